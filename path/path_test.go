package path

import (
	"testing"

	"github.com/gclaussn/go-bpmndt/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	t.Run("front", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "gateway/parallel.bpmn", "parallel")
		require.Len(t, paths, 1)

		p := paths[0]

		a := indexOf(t, p, "A")
		b := indexOf(t, p, "B")

		// when
		front := p.Front(a)

		// then
		assert.Equal([]int{a, b}, front)
		assert.Equal([]int{b}, p.Front(b))
	})

	t.Run("front of nested fork", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "gateway/parallel-nested.bpmn", "parallelNested")
		require.Len(t, paths, 2)

		p := paths[0]

		a1 := indexOf(t, p, "A1")
		b := indexOf(t, p, "B")

		// then
		assert.Equal([]int{a1, b}, p.Front(a1))
		assert.Equal([]int{b}, p.Front(b))
	})

	t.Run("equal and hash", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "gateway/exclusive.bpmn", "exclusive")
		require.Len(t, paths, 2)

		// then
		assert.True(paths[0].Equal(paths[0]))
		assert.False(paths[0].Equal(paths[1]))
		assert.NotEqual(paths[0].Hash(), paths[1].Hash())
	})

	t.Run("steps are copied", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "gateway/parallel.bpmn", "parallel")
		p := paths[0]

		// when
		steps := p.Steps()
		steps[1].Taken[0] = nil
		steps[2].Branches[0].Index = 7

		step := p.Step(1)
		step.Taken = nil

		// then
		assert.Equal("f2", p.Step(1).Taken[0].Id)
		assert.Equal(0, p.Step(2).Branches[0].Index)
	})

	t.Run("nodes by type", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "task/all.bpmn", "allTasks")

		// when
		userTasks := paths[0].NodesByType(model.ElementUserTask)
		gateways := paths[0].NodesByType(model.ElementExclusiveGateway)

		// then
		require.Len(t, userTasks, 1)
		assert.Equal("userTask", userTasks[0].Id)
		assert.Empty(gateways)
	})

	t.Run("string", func(t *testing.T) {
		assert := assert.New(t)

		// given
		paths := mustEnumerate(t, "event/boundary-timer.bpmn", "boundaryTimer")

		// then
		assert.Equal("start -> T -> End", paths[0].String())
		assert.Equal("start -> T[BOUNDARY:b] -> b -> TimedOut", paths[1].String())
	})
}

func TestOutcome(t *testing.T) {
	assert := assert.New(t)

	for _, outcome := range []Outcome{
		OutcomeCompleted,
		OutcomeBoundary,
		OutcomeBoundaryNonInterrupting,
		OutcomeEventSubProcess,
		OutcomeEventSubProcessNonInterrupting,
		OutcomeInterrupted,
		OutcomeThrow,
	} {
		b, err := outcome.MarshalJSON()
		assert.NoError(err)
		assert.Equal(`"`+outcome.String()+`"`, string(b))
	}

	b, err := Outcome(0).MarshalJSON()
	assert.NoError(err)
	assert.Equal("null", string(b))
}
