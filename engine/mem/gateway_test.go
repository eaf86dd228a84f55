package mem

import (
	"context"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExclusiveGateway(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "gateway/exclusive.bpmn")
	mustCreateDeployment(t, e, "gateway/exclusive-condition.bpmn")

	t.Run("decision", func(t *testing.T) {
		for _, decision := range []string{"f3", "B"} {
			// given
			piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "exclusive"})
			piAssert.IsWaitingAt("g1")

			job := piAssert.Job()
			assert.Equal(engine.JobEvaluateExclusiveGateway, job.Type)

			// when
			piAssert.CompleteJob(engine.CompleteJobCmd{
				Completion: &engine.JobCompletion{ExclusiveGatewayDecision: decision},
			})

			// then
			piAssert.IsWaitingAt("B")
			piAssert.IsNotWaitingAt("A")
			piAssert.CompleteJob()

			piAssert.HasPassed("End2")
			piAssert.IsCompleted()
		}
	})

	t.Run("returns error when decision is missing or invalid", func(t *testing.T) {
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "exclusive"})
		piAssert.IsWaitingAt("g1")

		engineErr := piAssert.CompleteJobWithError(engine.ErrorValidation)
		assert.Contains(engineErr.Detail, "no decision")

		engineErr = piAssert.CompleteJobWithError(engine.ErrorValidation, engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "End1"},
		})
		assert.Contains(engineErr.Detail, "End1")

		piAssert.IsWaitingAt("g1")
	})

	t.Run("condition", func(t *testing.T) {
		tests := []struct {
			amount   int
			expected string
		}{
			{2000, "high"},
			{1000, "low"},
			{1, "low"},
			{0, "other"},
			{-1, "other"},
		}

		for _, test := range tests {
			piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
				BpmnProcessId: "exclusiveCondition",
				Variables:     map[string]any{"amount": test.amount},
			})

			piAssert.HasPassed(test.expected)
			piAssert.HasPassed("end")
			piAssert.IsCompleted()

			elementInstances := piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: "g2"})
			assert.Len(elementInstances, 1, "amount %d", test.amount)
		}
	})

	t.Run("returns error when condition cannot be evaluated", func(t *testing.T) {
		_, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			BpmnProcessId: "exclusiveCondition",
			WorkerId:      testWorkerId,
		})
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorProcessModel, engineErr.Type)
		assert.Contains(engineErr.Detail, "amount")
	})
}

func TestInclusiveGateway(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "gateway/inclusive.bpmn")

	t.Run("multiple", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "inclusive"})
		piAssert.IsWaitingAt("fork")

		job := piAssert.Job()
		assert.Equal(engine.JobEvaluateInclusiveGateway, job.Type)

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{InclusiveGatewayDecision: []string{"A", "fB"}},
		})

		// then
		piAssert.IsWaitingAt("A")
		piAssert.IsWaitingAt("B")
		piAssert.IsNotWaitingAt("C")

		piAssert.IsWaitingAt("A")
		piAssert.CompleteUserTask()

		piAssert.IsNotCompleted()

		piAssert.IsWaitingAt("B")
		piAssert.CompleteUserTask()

		piAssert.HasPassed("join")
		piAssert.HasPassed("end")
		piAssert.IsCompleted()

		elementInstances := piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: "join"})
		assert.Len(elementInstances, 1)
	})

	t.Run("single", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "inclusive"})
		piAssert.IsWaitingAt("fork")

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{InclusiveGatewayDecision: []string{"C"}},
		})

		// then
		piAssert.IsWaitingAt("C")
		piAssert.CompleteUserTask()

		piAssert.HasPassed("end")
		piAssert.IsCompleted()
	})

	t.Run("returns error when decision is not unique", func(t *testing.T) {
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "inclusive"})
		piAssert.IsWaitingAt("fork")

		piAssert.CompleteJobWithError(engine.ErrorValidation, engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{InclusiveGatewayDecision: []string{"A", "A"}},
		})
	})
}

func TestParallelGateway(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "gateway/parallel.bpmn")
	mustCreateDeployment(t, e, "gateway/parallel-nested.bpmn")

	t.Run("fork and join", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "parallel"})

		// when
		piAssert.IsWaitingAt("B")
		piAssert.CompleteUserTask()

		// then
		piAssert.IsNotCompleted()

		elementInstances := piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: "g2"})
		require.Len(t, elementInstances, 1)
		assert.Equal(engine.InstanceCreated, elementInstances[0].State)

		// when
		piAssert.IsWaitingAt("A")
		piAssert.CompleteUserTask()

		// then
		piAssert.HasPassed("g2")
		piAssert.HasPassed("End")
		piAssert.IsCompleted()
	})

	t.Run("nested exclusive gateway", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "parallelNested"})
		piAssert.IsWaitingAt("B")
		piAssert.IsWaitingAt("xor")

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "A2"},
		})

		piAssert.IsWaitingAt("A2")
		job := piAssert.CompleteJob()
		assert.Equal("a2", job.Topic)

		piAssert.HasPassed("merge")
		piAssert.IsNotCompleted()

		piAssert.IsWaitingAt("B")
		piAssert.CompleteUserTask()

		// then
		piAssert.HasPassed("join")
		piAssert.HasPassed("end")
		piAssert.IsCompleted()
	})
}

func TestLoop(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "loop/loop.bpmn")

	// given
	piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "loop"})

	// when
	for i := 0; i < 3; i++ {
		piAssert.IsWaitingAt("A")
		piAssert.CompleteUserTask()

		piAssert.IsWaitingAt("retry")
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "merge"},
		})
	}

	piAssert.IsWaitingAt("A")
	piAssert.CompleteUserTask()

	piAssert.IsWaitingAt("retry")
	piAssert.CompleteJob(engine.CompleteJobCmd{
		Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "f5"},
	})

	// then
	piAssert.HasPassed("end")
	piAssert.IsCompleted()

	elementInstances := piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: "A"})
	assert.Len(elementInstances, 4)

	for _, elementInstance := range elementInstances {
		assert.Equal(engine.InstanceCompleted, elementInstance.State)
	}
}
