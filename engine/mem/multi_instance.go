package mem

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
)

const (
	varLoopCounter            = "loopCounter"
	varNrOfActiveInstances    = "nrOfActiveInstances"
	varNrOfCompletedInstances = "nrOfCompletedInstances"
	varNrOfInstances          = "nrOfInstances"
)

type loopState struct {
	items []any // collection items, one per instance

	nrOfActiveInstances    int
	nrOfCompletedInstances int
	nrOfInstances          int
}

// startMultiInstance starts the instances of a multi instance activity within its body.
// Parallel instances are started at once, sequential instances one after another.
func startMultiInstance(ctx *memContext, body *elementInstanceEntity) error {
	if err := subscribeBoundaries(ctx, body); err != nil {
		return err
	}

	loopCharacteristics := body.element.LoopCharacteristics

	var loop loopState
	switch {
	case loopCharacteristics.Collection != "":
		items, err := evaluateSlice(ctx, body, loopCharacteristics.Collection)
		if err != nil {
			return err
		}
		loop.items = items
		loop.nrOfInstances = len(items)
	case loopCharacteristics.Cardinality != "":
		nrOfInstances, err := evaluateInt(ctx, body, loopCharacteristics.Cardinality)
		if err != nil {
			return err
		}
		loop.nrOfInstances = max(nrOfInstances, 0)
	default:
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to start multi instance",
			Detail: fmt.Sprintf("element %s has neither a loop cardinality nor a collection", body.element.Pointer()),
		}
	}

	body.loop = &loop

	if loop.nrOfInstances == 0 {
		ctx.updateLoopVariables(body)
		return leave(ctx, body)
	}

	if loopCharacteristics.IsSequential {
		loop.nrOfActiveInstances = 1
	} else {
		loop.nrOfActiveInstances = loop.nrOfInstances
	}

	ctx.updateLoopVariables(body)

	if loopCharacteristics.IsSequential {
		return startInner(ctx, body, 0)
	}

	for i := 0; i < loop.nrOfInstances; i++ {
		if body.state != engine.InstanceStarted {
			return nil // completed early or interrupted
		}
		if err := startInner(ctx, body, i); err != nil {
			return err
		}
	}
	return nil
}

func startInner(ctx *memContext, body *elementInstanceEntity, loopCounter int) error {
	if err := ctx.step(); err != nil {
		return err
	}

	inner := ctx.newElementInstance(body, body.element)

	processInstance := body.processInstance
	ctx.setVariable(processInstance, inner, varLoopCounter, loopCounter)

	if elementVariable := body.element.LoopCharacteristics.ElementVariable; elementVariable != "" && body.loop.items != nil {
		ctx.setVariable(processInstance, inner, elementVariable, body.loop.items[loopCounter])
	}

	return execute(ctx, inner)
}

// completeInner continues a multi instance body, after an instance has been completed.
func completeInner(ctx *memContext, inner *elementInstanceEntity) error {
	body := inner.parent
	loop := body.loop

	loop.nrOfActiveInstances--
	loop.nrOfCompletedInstances++

	ctx.updateLoopVariables(body)

	loopCharacteristics := body.element.LoopCharacteristics

	if completionCondition := loopCharacteristics.CompletionCondition; completionCondition != "" {
		ok, err := evaluateCondition(ctx, inner, completionCondition)
		if err != nil {
			return err
		}
		if ok {
			for _, child := range body.children {
				terminate(ctx, child)
			}
			return leave(ctx, body)
		}
	}

	if loop.nrOfCompletedInstances == loop.nrOfInstances {
		return leave(ctx, body)
	}

	if loopCharacteristics.IsSequential {
		loop.nrOfActiveInstances++
		ctx.updateLoopVariables(body)
		return startInner(ctx, body, loop.nrOfCompletedInstances)
	}
	return nil
}

func (c *memContext) updateLoopVariables(body *elementInstanceEntity) {
	processInstance := body.processInstance

	c.setVariable(processInstance, body, varNrOfActiveInstances, body.loop.nrOfActiveInstances)
	c.setVariable(processInstance, body, varNrOfCompletedInstances, body.loop.nrOfCompletedInstances)
	c.setVariable(processInstance, body, varNrOfInstances, body.loop.nrOfInstances)
}
