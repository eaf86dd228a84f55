package handler

import (
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// Defaults creates a default handler for each element, the driver consults along the path: wait states, triggers of
// boundary events and event sub processes as well as the events, chosen at event-based gateways.
func Defaults(p path.Path) testcase.Handlers {
	handlers := make(testcase.Handlers)

	add := func(element *model.Element) {
		if element == nil {
			return
		}
		if _, ok := handlers[element.Id]; ok {
			return
		}
		if handler := For(element); handler != nil {
			handlers[element.Id] = handler
		}
	}

	for _, step := range p.Steps() {
		switch {
		case step.Fires():
			add(step.Trigger)
			if step.IsNonInterrupting() && step.IsWaitState() {
				add(step.Node)
			}
		case step.IsWaitState():
			if step.Node.Type == model.ElementEventBasedGateway {
				if chosen := step.Chosen(); chosen != nil {
					add(chosen.Target)
				}
			} else {
				add(step.Node)
			}
		}
	}

	return handlers
}

// For creates the default handler of an element or returns nil, if the element type requires no handler.
// Multi-instance activities get a [MultiInstanceHandler], wrapping the handler of a single instance.
func For(element *model.Element) testcase.Handler {
	handler := forElement(element)
	if handler != nil && element.IsMultiInstance() {
		return MultiInstance(handler)
	}
	return handler
}

func forElement(element *model.Element) testcase.Handler {
	switch element.Type {
	case
		model.ElementBusinessRuleTask,
		model.ElementScriptTask,
		model.ElementSendTask,
		model.ElementServiceTask:
		return Job()
	case model.ElementUserTask:
		return UserTask()
	case model.ElementReceiveTask:
		return Message()
	case model.ElementCallActivity:
		return CallActivity()
	case model.ElementExclusiveGateway, model.ElementInclusiveGateway:
		if element.RequiresDecision() {
			return Decision()
		}
		return nil
	case
		model.ElementBoundaryEvent,
		model.ElementIntermediateCatchEvent,
		model.ElementStartEvent:
		return forEvent(element.EventType())
	default:
		return nil
	}
}

func forEvent(eventType model.EventType) testcase.Handler {
	switch eventType {
	case model.EventConditional:
		return Conditional()
	case model.EventError:
		return Error()
	case model.EventEscalation:
		return Escalation()
	case model.EventMessage:
		return Message()
	case model.EventSignal:
		return Signal()
	case model.EventTimer:
		return Timer()
	default:
		return nil
	}
}
