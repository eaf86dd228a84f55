package model

import "fmt"

// ElementType describes the different BPMN flow node types - tasks, gateways, events and scopes.
type ElementType int

const (
	ElementBoundaryEvent ElementType = iota + 1
	ElementBusinessRuleTask
	ElementCallActivity
	ElementEndEvent
	ElementEventBasedGateway
	ElementEventSubProcess
	ElementExclusiveGateway
	ElementInclusiveGateway
	ElementIntermediateCatchEvent
	ElementIntermediateThrowEvent
	ElementManualTask
	ElementParallelGateway
	ElementProcess
	ElementReceiveTask
	ElementScriptTask
	ElementSendTask
	ElementServiceTask
	ElementStartEvent
	ElementSubProcess
	ElementTask
	ElementTransaction
	ElementUserTask
)

func MapElementType(s string) ElementType {
	switch s {
	case "BOUNDARY_EVENT":
		return ElementBoundaryEvent
	case "BUSINESS_RULE_TASK":
		return ElementBusinessRuleTask
	case "CALL_ACTIVITY":
		return ElementCallActivity
	case "END_EVENT":
		return ElementEndEvent
	case "EVENT_BASED_GATEWAY":
		return ElementEventBasedGateway
	case "EVENT_SUB_PROCESS":
		return ElementEventSubProcess
	case "EXCLUSIVE_GATEWAY":
		return ElementExclusiveGateway
	case "INCLUSIVE_GATEWAY":
		return ElementInclusiveGateway
	case "INTERMEDIATE_CATCH_EVENT":
		return ElementIntermediateCatchEvent
	case "INTERMEDIATE_THROW_EVENT":
		return ElementIntermediateThrowEvent
	case "MANUAL_TASK":
		return ElementManualTask
	case "PARALLEL_GATEWAY":
		return ElementParallelGateway
	case "PROCESS":
		return ElementProcess
	case "RECEIVE_TASK":
		return ElementReceiveTask
	case "SCRIPT_TASK":
		return ElementScriptTask
	case "SEND_TASK":
		return ElementSendTask
	case "SERVICE_TASK":
		return ElementServiceTask
	case "START_EVENT":
		return ElementStartEvent
	case "SUB_PROCESS":
		return ElementSubProcess
	case "TASK":
		return ElementTask
	case "TRANSACTION":
		return ElementTransaction
	case "USER_TASK":
		return ElementUserTask
	default:
		return 0
	}
}

// IsActivity reports whether boundary events can be attached to elements of this type.
func (v ElementType) IsActivity() bool {
	switch v {
	case
		ElementBusinessRuleTask,
		ElementCallActivity,
		ElementManualTask,
		ElementReceiveTask,
		ElementScriptTask,
		ElementSendTask,
		ElementServiceTask,
		ElementSubProcess,
		ElementTask,
		ElementTransaction,
		ElementUserTask:
		return true
	default:
		return false
	}
}

// IsGateway reports whether the type is one of the four gateway types.
func (v ElementType) IsGateway() bool {
	switch v {
	case ElementEventBasedGateway, ElementExclusiveGateway, ElementInclusiveGateway, ElementParallelGateway:
		return true
	default:
		return false
	}
}

// IsScope reports whether elements of this type contain other flow nodes.
func (v ElementType) IsScope() bool {
	switch v {
	case ElementEventSubProcess, ElementProcess, ElementSubProcess, ElementTransaction:
		return true
	default:
		return false
	}
}

func (v ElementType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v ElementType) String() string {
	switch v {
	case ElementBoundaryEvent:
		return "BOUNDARY_EVENT"
	case ElementBusinessRuleTask:
		return "BUSINESS_RULE_TASK"
	case ElementCallActivity:
		return "CALL_ACTIVITY"
	case ElementEndEvent:
		return "END_EVENT"
	case ElementEventBasedGateway:
		return "EVENT_BASED_GATEWAY"
	case ElementEventSubProcess:
		return "EVENT_SUB_PROCESS"
	case ElementExclusiveGateway:
		return "EXCLUSIVE_GATEWAY"
	case ElementInclusiveGateway:
		return "INCLUSIVE_GATEWAY"
	case ElementIntermediateCatchEvent:
		return "INTERMEDIATE_CATCH_EVENT"
	case ElementIntermediateThrowEvent:
		return "INTERMEDIATE_THROW_EVENT"
	case ElementManualTask:
		return "MANUAL_TASK"
	case ElementParallelGateway:
		return "PARALLEL_GATEWAY"
	case ElementProcess:
		return "PROCESS"
	case ElementReceiveTask:
		return "RECEIVE_TASK"
	case ElementScriptTask:
		return "SCRIPT_TASK"
	case ElementSendTask:
		return "SEND_TASK"
	case ElementServiceTask:
		return "SERVICE_TASK"
	case ElementStartEvent:
		return "START_EVENT"
	case ElementSubProcess:
		return "SUB_PROCESS"
	case ElementTask:
		return "TASK"
	case ElementTransaction:
		return "TRANSACTION"
	case ElementUserTask:
		return "USER_TASK"
	default:
		return ""
	}
}

func (v *ElementType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapElementType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid element type data %s", s)
	}
	return nil
}

// EventType describes the event definition of a start, end, intermediate or boundary event.
type EventType int

const (
	EventNone EventType = iota + 1
	EventCancel
	EventCompensation
	EventConditional
	EventError
	EventEscalation
	EventLink
	EventMessage
	EventSignal
	EventTerminate
	EventTimer
)

func MapEventType(s string) EventType {
	switch s {
	case "NONE":
		return EventNone
	case "CANCEL":
		return EventCancel
	case "COMPENSATION":
		return EventCompensation
	case "CONDITIONAL":
		return EventConditional
	case "ERROR":
		return EventError
	case "ESCALATION":
		return EventEscalation
	case "LINK":
		return EventLink
	case "MESSAGE":
		return EventMessage
	case "SIGNAL":
		return EventSignal
	case "TERMINATE":
		return EventTerminate
	case "TIMER":
		return EventTimer
	default:
		return 0
	}
}

func (v EventType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v EventType) String() string {
	switch v {
	case EventNone:
		return "NONE"
	case EventCancel:
		return "CANCEL"
	case EventCompensation:
		return "COMPENSATION"
	case EventConditional:
		return "CONDITIONAL"
	case EventError:
		return "ERROR"
	case EventEscalation:
		return "ESCALATION"
	case EventLink:
		return "LINK"
	case EventMessage:
		return "MESSAGE"
	case EventSignal:
		return "SIGNAL"
	case EventTerminate:
		return "TERMINATE"
	case EventTimer:
		return "TIMER"
	default:
		return ""
	}
}

func (v *EventType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapEventType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid event type data %s", s)
	}
	return nil
}
