package path

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gclaussn/go-bpmndt/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const (
	blockTask = iota
	blockExclusive
	blockParallel
)

type block struct {
	kind  int
	width int
}

// processXml renders a process, consisting of a sequence of blocks between a start and an end event.
func processXml(blocks []block) string {
	var (
		elements strings.Builder
		flows    strings.Builder
	)

	n := 0
	flow := func(source string, target string) {
		n++
		fmt.Fprintf(&flows, `<bpmn:sequenceFlow id="f%d" sourceRef="%s" targetRef="%s" />`, n, source, target)
	}

	elements.WriteString(`<bpmn:startEvent id="start" />`)

	prev := "start"
	for i, b := range blocks {
		switch b.kind {
		case blockTask:
			id := fmt.Sprintf("t%d", i)
			fmt.Fprintf(&elements, `<bpmn:userTask id="%s" />`, id)
			flow(prev, id)
			prev = id
		case blockExclusive, blockParallel:
			gatewayType := "exclusiveGateway"
			if b.kind == blockParallel {
				gatewayType = "parallelGateway"
			}

			split := fmt.Sprintf("s%d", i)
			merge := fmt.Sprintf("m%d", i)
			fmt.Fprintf(&elements, `<bpmn:%s id="%s" />`, gatewayType, split)
			fmt.Fprintf(&elements, `<bpmn:%s id="%s" />`, gatewayType, merge)
			flow(prev, split)

			for j := 0; j < b.width; j++ {
				id := fmt.Sprintf("b%d_%d", i, j)
				fmt.Fprintf(&elements, `<bpmn:userTask id="%s" />`, id)
				flow(split, id)
				flow(id, merge)
			}
			prev = merge
		}
	}

	elements.WriteString(`<bpmn:endEvent id="end" />`)
	flow(prev, "end")

	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" id="generated">` +
		`<bpmn:process id="generated" isExecutable="true">` +
		elements.String() +
		flows.String() +
		`</bpmn:process>` +
		`</bpmn:definitions>`
}

func TestEnumerateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "blocks")

		blocks := make([]block, n)
		expectedPaths := 1
		expectedLen := 2
		for i := range blocks {
			blocks[i] = block{
				kind:  rapid.IntRange(blockTask, blockParallel).Draw(t, fmt.Sprintf("kind%d", i)),
				width: rapid.IntRange(2, 3).Draw(t, fmt.Sprintf("width%d", i)),
			}
			switch blocks[i].kind {
			case blockTask:
				expectedLen++
			case blockExclusive:
				expectedPaths *= blocks[i].width
				expectedLen += 3
			case blockParallel:
				expectedLen += blocks[i].width + 2
			}
		}

		m, err := model.New(strings.NewReader(processXml(blocks)))
		require.NoError(t, err)

		paths1, err := Enumerate(m, "generated")
		require.NoError(t, err)
		paths2, err := Enumerate(m, "generated")
		require.NoError(t, err)

		// deterministic
		require.Len(t, paths2, len(paths1))
		for i := range paths1 {
			assert.True(t, paths1[i].Equal(paths2[i]))
		}

		// complete
		assert.Len(t, paths1, expectedPaths)

		keys := make(map[string]bool)
		for _, p := range paths1 {
			// unique keys
			assert.False(t, keys[p.Key()], "duplicate key %s", p.Key())
			keys[p.Key()] = true

			// from start to end
			assert.Equal(t, "start", p.Start().Id)
			assert.Equal(t, "end", p.End().Id)

			for i := 0; i < p.Len(); i++ {
				step := p.Step(i)

				// each incoming sequence flow leads to the step's node
				if step.Incoming != nil {
					assert.Equal(t, step.Node, step.Incoming.Target)
				}

				// front members run concurrently
				for _, j := range p.Front(i) {
					assert.True(t, j == i || p.Concurrent(i, j))
				}
			}

			// each block is traversed once
			assert.Equal(t, expectedLen, p.Len())
		}
	})
}
