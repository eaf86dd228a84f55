package mem

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func executeGateway(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element

	switch element.Type {
	case model.ElementEventBasedGateway:
		for _, sequenceFlow := range element.Outgoing {
			if err := subscribeEvent(ctx, elementInstance, sequenceFlow.Target); err != nil {
				return err
			}
		}
		return nil
	case model.ElementParallelGateway:
		return take(ctx, elementInstance, element.Outgoing)
	}

	if !element.RequiresDecision() {
		return leave(ctx, elementInstance)
	}

	if element.Type == model.ElementExclusiveGateway {
		ctx.createJob(elementInstance, engine.JobEvaluateExclusiveGateway, "")
	} else {
		ctx.createJob(elementInstance, engine.JobEvaluateInclusiveGateway, "")
	}
	return nil
}

// decide resolves the outgoing sequence flows of a gateway, using IDs of sequence flows or target elements.
func decide(gateway *model.Element, decisions []string) ([]*model.SequenceFlow, error) {
	if len(decisions) == 0 {
		return nil, engine.Error{
			Type:   engine.ErrorValidation,
			Title:  "failed to complete job",
			Detail: fmt.Sprintf("no decision for gateway %s provided", gateway.Id),
		}
	}

	var sequenceFlows []*model.SequenceFlow
	for _, decision := range decisions {
		var decided *model.SequenceFlow
		for _, sequenceFlow := range gateway.Outgoing {
			if sequenceFlow.Id == decision {
				decided = sequenceFlow
				break
			}
		}
		if decided == nil {
			for _, sequenceFlow := range gateway.Outgoing {
				if sequenceFlow.Target.Id == decision {
					decided = sequenceFlow
					break
				}
			}
		}

		if decided == nil {
			return nil, engine.Error{
				Type:   engine.ErrorValidation,
				Title:  "failed to complete job",
				Detail: fmt.Sprintf("gateway %s has no outgoing sequence flow or target %s", gateway.Id, decision),
			}
		}
		if !slices.Contains(sequenceFlows, decided) {
			sequenceFlows = append(sequenceFlows, decided)
		}
	}

	return sequenceFlows, nil
}

// join lets a token arrive at a converging parallel or inclusive gateway.
// Each joining element instance collects tokens of distinct incoming sequence flows.
func join(ctx *memContext, scope *elementInstanceEntity, element *model.Element, incoming *model.SequenceFlow) error {
	var elementInstance *elementInstanceEntity
	for _, child := range scope.children {
		if child.element != element || child.state != engine.InstanceCreated {
			continue
		}
		if !slices.Contains(child.arrived, incoming) {
			elementInstance = child
			break
		}
	}

	if elementInstance == nil {
		elementInstance = ctx.newElementInstance(scope, element)
		elementInstance.state = engine.InstanceCreated
		elementInstance.startedAt = nil
	}

	elementInstance.arrived = append(elementInstance.arrived, incoming)

	return tryJoin(ctx, elementInstance)
}

// tryJoin starts a joining element instance, when all expected tokens arrived.
func tryJoin(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element

	if element.Type == model.ElementParallelGateway {
		if len(elementInstance.arrived) < len(element.Incoming) {
			return nil
		}
	} else if isReachable(elementInstance) {
		return nil
	}

	elementInstance.state = engine.InstanceStarted
	elementInstance.startedAt = timePtr(ctx.time)

	return execute(ctx, elementInstance)
}

// checkJoins tries to start the inclusive gateways of a scope, which wait for tokens.
func checkJoins(ctx *memContext, scope *elementInstanceEntity) error {
	var joins []*elementInstanceEntity
	for _, child := range scope.children {
		if child.state == engine.InstanceCreated && child.element.Type == model.ElementInclusiveGateway {
			joins = append(joins, child)
		}
	}

	for _, elementInstance := range joins {
		if elementInstance.state != engine.InstanceCreated {
			continue
		}
		if err := tryJoin(ctx, elementInstance); err != nil {
			return err
		}
	}
	return nil
}

// isReachable reports whether any other active element instance of the same scope can still reach the element of a
// joining inclusive gateway.
func isReachable(joining *elementInstanceEntity) bool {
	target := joining.element

	for _, child := range joining.parent.children {
		if !child.isActive() || child.element == target {
			continue
		}

		visited := map[*model.Element]bool{child.element: true}
		queue := []*model.Element{child.element}
		for len(queue) != 0 {
			curr := queue[0]
			queue = queue[1:]

			next := make([]*model.Element, 0, len(curr.Outgoing))
			for _, sequenceFlow := range curr.Outgoing {
				next = append(next, sequenceFlow.Target)
			}
			if curr.Type.IsActivity() {
				next = append(next, joining.model().AttachedTo(curr.Id)...)
			}

			for _, element := range next {
				if element == target {
					return true
				}
				if !visited[element] {
					visited[element] = true
					queue = append(queue, element)
				}
			}
		}
	}
	return false
}
