package model

import (
	"slices"
	"strings"
)

type Element struct {
	Id   string
	Name string
	Type ElementType

	Parent   *Element
	Children []*Element
	Incoming []*SequenceFlow
	Outgoing []*SequenceFlow

	// EventDefinition is set for start, end, intermediate and boundary events.
	// Events without an event definition have the type [EventNone].
	EventDefinition *EventDefinition
	// LoopCharacteristics is set for activities, marked as multi-instance.
	LoopCharacteristics *LoopCharacteristics

	// Attributes contains vendor specific attributes (e.g. camunda:assignee), keyed by local name.
	Attributes map[string]string

	Model any
}

// Attr returns the value of a vendor specific attribute or an empty string.
func (e *Element) Attr(name string) string {
	return e.Attributes[name]
}

func (e *Element) AllElements() []*Element {
	all := []*Element{e}

	i := 0
	for i < len(all) {
		all = append(all, all[i].Children...)
		i++
	}

	return all
}

func (e *Element) ChildById(id string) *Element {
	for i := 0; i < len(e.Children); i++ {
		if e.Children[i].Id == id {
			return e.Children[i]
		}
	}
	return nil
}

func (e *Element) ChildrenByType(elementType ElementType) []*Element {
	var elements []*Element
	for i := 0; i < len(e.Children); i++ {
		if e.Children[i].Type == elementType {
			elements = append(elements, e.Children[i])
		}
	}
	return elements
}

// EventType returns the type of the element's event definition or 0, if the element is not an event.
func (e *Element) EventType() EventType {
	if e.EventDefinition == nil {
		return 0
	}
	return e.EventDefinition.Type
}

// IsConverging reports whether the element is a gateway, joining more than one incoming sequence flow.
func (e *Element) IsConverging() bool {
	return e.Type.IsGateway() && len(e.Incoming) > 1
}

// IsDiverging reports whether the element is a gateway, splitting into more than one outgoing sequence flow.
func (e *Element) IsDiverging() bool {
	return e.Type.IsGateway() && len(e.Outgoing) > 1
}

// IsMultiInstance reports whether the element is an activity with multi-instance loop characteristics.
func (e *Element) IsMultiInstance() bool {
	return e.LoopCharacteristics != nil
}

// RequiresDecision reports whether a diverging exclusive or inclusive gateway has an outgoing sequence flow, which
// is neither conditional nor the default. Such a gateway cannot evaluate its outgoing flows, the decision must be
// made externally.
func (e *Element) RequiresDecision() bool {
	if e.Type != ElementExclusiveGateway && e.Type != ElementInclusiveGateway {
		return false
	}
	if len(e.Outgoing) < 2 {
		return false
	}
	for _, sequenceFlow := range e.Outgoing {
		if sequenceFlow.Condition == "" && !sequenceFlow.IsDefault {
			return true
		}
	}
	return false
}

// Pointer returns the path of IDs from the process to the element, e.g. /processId/subProcessId/elementId.
func (e *Element) Pointer() string {
	var ids []string

	curr := e
	for curr != nil {
		ids = append(ids, curr.Id)
		curr = curr.Parent
	}

	ids = append(ids, "") // for leading slash

	slices.Reverse(ids)

	return strings.Join(ids, "/")
}

// Process returns the process element, the element belongs to.
func (e *Element) Process() *Element {
	curr := e
	for curr.Parent != nil {
		curr = curr.Parent
	}
	return curr
}

// StartEvents returns the start events, directly contained by the element.
func (e *Element) StartEvents() []*Element {
	return e.ChildrenByType(ElementStartEvent)
}

type SequenceFlow struct {
	Id   string
	Name string

	Source *Element
	Target *Element

	// Condition is the raw condition expression, e.g. ${amount > 100}.
	Condition string
	// IsDefault is true, when the flow is the default flow of its source gateway or activity.
	IsDefault bool
}

type EventDefinition struct {
	Id   string
	Type EventType

	Error      *Error
	Escalation *Escalation
	Message    *Message
	Signal     *Signal

	// Condition is the expression of a conditional event definition.
	Condition string
	// LinkName is the name of a link event definition.
	LinkName string
	Timer    *Timer
}

// Name returns the message, signal, error code, escalation code or link name of the event definition.
func (d *EventDefinition) Name() string {
	switch d.Type {
	case EventError:
		if d.Error != nil {
			return d.Error.Code
		}
	case EventEscalation:
		if d.Escalation != nil {
			return d.Escalation.Code
		}
	case EventLink:
		return d.LinkName
	case EventMessage:
		if d.Message != nil {
			return d.Message.Name
		}
	case EventSignal:
		if d.Signal != nil {
			return d.Signal.Name
		}
	}
	return ""
}

type Timer struct {
	TimeCycle    string
	TimeDate     string
	TimeDuration string
}

type LoopCharacteristics struct {
	IsSequential bool

	// Cardinality is the loop cardinality expression or number.
	Cardinality string
	// Collection is the name of a collection variable (camunda:collection).
	Collection string
	// CompletionCondition is evaluated after each completed instance.
	CompletionCondition string
	// ElementVariable is the name of the variable, holding the current collection item (camunda:elementVariable).
	ElementVariable string
}

// element specific models

type BoundaryEvent struct {
	AttachedTo     *Element
	CancelActivity bool
}

type CallActivity struct {
	CalledElement string
}

type Gateway struct {
	Default *SequenceFlow
}

type Process struct {
	IsExecutable bool
}

type ReceiveTask struct {
	Message *Message
}

type StartEvent struct {
	IsInterrupting bool
}

type UserTask struct {
	Assignee        string
	CandidateGroups []string
	CandidateUsers  []string
	FormKey         string
}
