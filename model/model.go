package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	nsBpmn = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	nsXsi  = "http://www.w3.org/2001/XMLSchema-instance"
)

// flowNodeTypes maps BPMN XML element names to element types.
// subProcess is mapped to an event sub process, when triggeredByEvent is true.
var flowNodeTypes = map[string]ElementType{
	"adHocSubProcess":        ElementSubProcess,
	"boundaryEvent":          ElementBoundaryEvent,
	"businessRuleTask":       ElementBusinessRuleTask,
	"callActivity":           ElementCallActivity,
	"endEvent":               ElementEndEvent,
	"eventBasedGateway":      ElementEventBasedGateway,
	"exclusiveGateway":       ElementExclusiveGateway,
	"inclusiveGateway":       ElementInclusiveGateway,
	"intermediateCatchEvent": ElementIntermediateCatchEvent,
	"intermediateThrowEvent": ElementIntermediateThrowEvent,
	"manualTask":             ElementManualTask,
	"parallelGateway":        ElementParallelGateway,
	"process":                ElementProcess,
	"receiveTask":            ElementReceiveTask,
	"scriptTask":             ElementScriptTask,
	"sendTask":               ElementSendTask,
	"serviceTask":            ElementServiceTask,
	"startEvent":             ElementStartEvent,
	"subProcess":             ElementSubProcess,
	"task":                   ElementTask,
	"transaction":            ElementTransaction,
	"userTask":               ElementUserTask,
}

var eventDefinitionTypes = map[string]EventType{
	"cancelEventDefinition":      EventCancel,
	"compensateEventDefinition":  EventCompensation,
	"conditionalEventDefinition": EventConditional,
	"errorEventDefinition":       EventError,
	"escalationEventDefinition":  EventEscalation,
	"linkEventDefinition":        EventLink,
	"messageEventDefinition":     EventMessage,
	"signalEventDefinition":      EventSignal,
	"terminateEventDefinition":   EventTerminate,
	"timerEventDefinition":       EventTimer,
}

// New reads a BPMN 2.0 XML document and builds the flow graph of all contained processes.
// The reader is structural only: expressions are preserved, but not evaluated.
//
// If the document cannot be parsed or is structurally malformed, an [InvalidModelError] is returned.
func New(bpmnXmlReader io.Reader) (*Model, error) {
	var (
		definitions       Definitions
		definitionsParsed bool

		elements      []*Element
		sequenceFlows []*SequenceFlow

		open         []*Element // stack of open flow nodes
		sequenceFlow *SequenceFlow
		refs         []reference

		text   *string // target of the current character data
		textSb strings.Builder

		causes []ErrorCause
	)

	current := func() *Element {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	scope := func() *Element {
		for i := len(open) - 1; i >= 0; i-- {
			if open[i].Type.IsScope() {
				return open[i]
			}
		}
		return nil
	}

	captureText := func(target *string) {
		text = target
		textSb.Reset()
	}

	decoder := xml.NewDecoder(bpmnXmlReader)

	count := 0
	for {
		token, err := decoder.Token()
		if token == nil || err == io.EOF {
			if count == 0 {
				return nil, InvalidModelError{Detail: "XML is empty"}
			}
			break
		} else if err != nil {
			return nil, InvalidModelError{Detail: fmt.Sprintf("failed to decode XML: %v", err)}
		}

		count++

		switch t := token.(type) {
		case xml.StartElement:
			if elementType, ok := flowNodeTypes[t.Name.Local]; ok {
				if elementType == ElementSubProcess && getAttrValue(t.Attr, "triggeredByEvent") == "true" {
					elementType = ElementEventSubProcess
				}

				element := newElement(elementType, t.Attr)

				if parent := scope(); parent != nil {
					element.Parent = parent
					parent.Children = append(parent.Children, element)
				} else if elementType != ElementProcess {
					causes = append(causes, ErrorCause{
						Pointer: "/" + element.Id,
						Type:    "element",
						Detail:  fmt.Sprintf("%s is not contained in a process", t.Name.Local),
					})
				}

				switch elementType {
				case
					ElementBoundaryEvent,
					ElementEndEvent,
					ElementIntermediateCatchEvent,
					ElementIntermediateThrowEvent,
					ElementStartEvent:
					element.EventDefinition = &EventDefinition{Type: EventNone}
				}

				switch elementType {
				case ElementBoundaryEvent:
					cancelActivity, _ := strconv.ParseBool(getAttrValueWithDefault(t.Attr, "cancelActivity", "true"))

					element.Model = BoundaryEvent{CancelActivity: cancelActivity}
					refs = append(refs, reference{element: element, kind: "attachedToRef", id: getAttrValue(t.Attr, "attachedToRef")})
				case ElementCallActivity:
					element.Model = CallActivity{CalledElement: getAttrValue(t.Attr, "calledElement")}
				case
					ElementEventBasedGateway,
					ElementExclusiveGateway,
					ElementInclusiveGateway,
					ElementParallelGateway:
					element.Model = Gateway{}
				case ElementProcess:
					isExecutable, _ := strconv.ParseBool(getAttrValue(t.Attr, "isExecutable"))
					element.Model = Process{IsExecutable: isExecutable}

					definitions.Processes = append(definitions.Processes, element)
				case ElementReceiveTask:
					var receiveTask ReceiveTask
					if messageId := getAttrValue(t.Attr, "messageRef"); messageId != "" {
						receiveTask.Message = definitions.messageById(messageId)
					}
					element.Model = receiveTask
				case ElementStartEvent:
					isInterrupting, _ := strconv.ParseBool(getAttrValueWithDefault(t.Attr, "isInterrupting", "true"))
					element.Model = StartEvent{IsInterrupting: isInterrupting}
				case ElementUserTask:
					element.Model = UserTask{
						Assignee:        element.Attr("assignee"),
						CandidateGroups: splitList(element.Attr("candidateGroups")),
						CandidateUsers:  splitList(element.Attr("candidateUsers")),
						FormKey:         element.Attr("formKey"),
					}
				}

				if defaultId := getAttrValue(t.Attr, "default"); defaultId != "" {
					refs = append(refs, reference{element: element, kind: "default", id: defaultId})
				}

				elements = append(elements, element)
				open = append(open, element)
				continue
			}

			if eventType, ok := eventDefinitionTypes[t.Name.Local]; ok {
				element := current()
				if element == nil || element.EventDefinition == nil {
					continue
				}

				eventDefinition := element.EventDefinition
				eventDefinition.Id = getAttrValue(t.Attr, "id")
				eventDefinition.Type = eventType

				switch eventType {
				case EventError:
					if errorId := getAttrValue(t.Attr, "errorRef"); errorId != "" {
						eventDefinition.Error = definitions.errorById(errorId)
					}
				case EventEscalation:
					if escalationId := getAttrValue(t.Attr, "escalationRef"); escalationId != "" {
						eventDefinition.Escalation = definitions.escalationById(escalationId)
					}
				case EventLink:
					eventDefinition.LinkName = getAttrValue(t.Attr, "name")
				case EventMessage:
					if messageId := getAttrValue(t.Attr, "messageRef"); messageId != "" {
						eventDefinition.Message = definitions.messageById(messageId)
					}
				case EventSignal:
					if signalId := getAttrValue(t.Attr, "signalRef"); signalId != "" {
						eventDefinition.Signal = definitions.signalById(signalId)
					}
				case EventTimer:
					eventDefinition.Timer = &Timer{}
				}
				continue
			}

			switch t.Name.Local {
			case "completionCondition":
				if element := current(); element != nil && element.LoopCharacteristics != nil {
					captureText(&element.LoopCharacteristics.CompletionCondition)
				}
			case "condition":
				if element := current(); element != nil && element.EventType() == EventConditional {
					captureText(&element.EventDefinition.Condition)
				}
			case "conditionExpression":
				if sequenceFlow != nil {
					captureText(&sequenceFlow.Condition)
				}
			case "definitions":
				definitions.Id = getAttrValue(t.Attr, "id")
				definitionsParsed = true
			case "error":
				bpmnError := definitions.errorById(getAttrValue(t.Attr, "id"))
				bpmnError.Name = getAttrValue(t.Attr, "name")
				bpmnError.Code = getAttrValue(t.Attr, "errorCode")
			case "escalation":
				escalation := definitions.escalationById(getAttrValue(t.Attr, "id"))
				escalation.Name = getAttrValue(t.Attr, "name")
				escalation.Code = getAttrValue(t.Attr, "escalationCode")
			case "loopCardinality":
				if element := current(); element != nil && element.LoopCharacteristics != nil {
					captureText(&element.LoopCharacteristics.Cardinality)
				}
			case "message":
				message := definitions.messageById(getAttrValue(t.Attr, "id"))
				message.Name = getAttrValue(t.Attr, "name")
			case "multiInstanceLoopCharacteristics":
				element := current()
				if element == nil {
					continue
				}

				isSequential, _ := strconv.ParseBool(getAttrValue(t.Attr, "isSequential"))

				loop := LoopCharacteristics{IsSequential: isSequential}
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "collection":
						loop.Collection = attr.Value
					case "elementVariable":
						loop.ElementVariable = attr.Value
					}
				}
				element.LoopCharacteristics = &loop
			case "sequenceFlow":
				sequenceFlow = &SequenceFlow{
					Id:   getAttrValue(t.Attr, "id"),
					Name: getAttrValue(t.Attr, "name"),
				}

				if parent := scope(); parent != nil {
					refs = append(refs,
						reference{flow: sequenceFlow, scope: parent, kind: "sourceRef", id: getAttrValue(t.Attr, "sourceRef")},
						reference{flow: sequenceFlow, scope: parent, kind: "targetRef", id: getAttrValue(t.Attr, "targetRef")},
					)
				}

				sequenceFlows = append(sequenceFlows, sequenceFlow)
			case "signal":
				signal := definitions.signalById(getAttrValue(t.Attr, "id"))
				signal.Name = getAttrValue(t.Attr, "name")
			case "timeCycle", "timeDate", "timeDuration":
				element := current()
				if element == nil || element.EventType() != EventTimer {
					continue
				}

				timer := element.EventDefinition.Timer
				switch t.Name.Local {
				case "timeCycle":
					captureText(&timer.TimeCycle)
				case "timeDate":
					captureText(&timer.TimeDate)
				default:
					captureText(&timer.TimeDuration)
				}
			}
		case xml.CharData:
			if text != nil {
				textSb.Write(t)
			}
		case xml.EndElement:
			if text != nil {
				*text = strings.TrimSpace(textSb.String())
				text = nil
			}

			if _, ok := flowNodeTypes[t.Name.Local]; ok && len(open) != 0 {
				open = open[:len(open)-1]
			} else if t.Name.Local == "sequenceFlow" {
				sequenceFlow = nil
			}
		}
	}

	if !definitionsParsed {
		return nil, InvalidModelError{Detail: "no definitions found"}
	}

	model := Model{
		Definitions: &definitions,

		Elements:      elements,
		SequenceFlows: sequenceFlows,
	}

	causes = append(causes, model.resolve(refs)...)
	causes = append(causes, model.validate()...)

	if len(causes) != 0 {
		return nil, InvalidModelError{
			Detail: fmt.Sprintf("BPMN %s is structurally malformed", definitions.Id),
			Causes: causes,
		}
	}

	return &model, nil
}

type Model struct {
	Definitions *Definitions

	Elements      []*Element
	SequenceFlows []*SequenceFlow

	attachments []attachment
}

// AttachedTo returns all boundary events that are attached to a specific task, sub process or call activity.
func (m *Model) AttachedTo(id string) []*Element {
	var elements []*Element
	for _, attachment := range m.attachments {
		if attachment.Id == id {
			elements = append(elements, attachment.Element)
		}
	}
	return elements
}

// ElementById returns the element with the given id, or nil, if no such element exists.
func (m *Model) ElementById(id string) *Element {
	for _, element := range m.Elements {
		if element.Id == id {
			return element
		}
	}
	return nil
}

// ElementsByProcessId returns all elements of a process, including the process element itself.
// If the process does not exist, nil is returned.
func (m *Model) ElementsByProcessId(processId string) []*Element {
	processElement := m.ProcessById(processId)
	if processElement == nil {
		return nil
	}
	return processElement.AllElements()
}

// ElementsByType returns all elements of the given type.
func (m *Model) ElementsByType(elementType ElementType) []*Element {
	var elements []*Element
	for _, element := range m.Elements {
		if element.Type == elementType {
			elements = append(elements, element)
		}
	}
	return elements
}

// ExecutableProcesses returns all processes, marked as executable.
func (m *Model) ExecutableProcesses() []*Element {
	var processes []*Element
	for _, process := range m.Definitions.Processes {
		if process.Model.(Process).IsExecutable {
			processes = append(processes, process)
		}
	}
	return processes
}

// LinkTarget returns the link catch event within the same scope, that a link throw event jumps to.
func (m *Model) LinkTarget(linkThrowEvent *Element) *Element {
	if linkThrowEvent.EventType() != EventLink || linkThrowEvent.Parent == nil {
		return nil
	}
	for _, child := range linkThrowEvent.Parent.Children {
		if child.Type != ElementIntermediateCatchEvent || child.EventType() != EventLink {
			continue
		}
		if child.EventDefinition.LinkName == linkThrowEvent.EventDefinition.LinkName {
			return child
		}
	}
	return nil
}

// ProcessById returns the process with the given id, or nil, if no such process exists.
func (m *Model) ProcessById(id string) *Element {
	for i := range m.Definitions.Processes {
		if m.Definitions.Processes[i].Id == id {
			return m.Definitions.Processes[i]
		}
	}
	return nil
}

func (m *Model) resolve(refs []reference) []ErrorCause {
	byId := make(map[string]*Element, len(m.Elements))
	for _, element := range m.Elements {
		byId[element.Id] = element
	}

	var causes []ErrorCause
	for _, ref := range refs {
		switch ref.kind {
		case "attachedToRef":
			attachedTo := byId[ref.id]
			if attachedTo == nil {
				causes = append(causes, ErrorCause{
					Pointer: ref.element.Pointer(),
					Type:    "boundary_event",
					Detail:  fmt.Sprintf("attached to element %s does not exist", ref.id),
				})
				continue
			}
			if !attachedTo.Type.IsActivity() {
				causes = append(causes, ErrorCause{
					Pointer: ref.element.Pointer(),
					Type:    "boundary_event",
					Detail:  fmt.Sprintf("attached to element %s is not an activity, but %s", ref.id, attachedTo.Type),
				})
				continue
			}

			boundaryEvent := ref.element.Model.(BoundaryEvent)
			boundaryEvent.AttachedTo = attachedTo
			ref.element.Model = boundaryEvent

			m.attachments = append(m.attachments, attachment{Id: attachedTo.Id, Element: ref.element})
		case "default":
			var defaultFlow *SequenceFlow
			for _, sequenceFlow := range m.SequenceFlows {
				if sequenceFlow.Id == ref.id {
					defaultFlow = sequenceFlow
					break
				}
			}
			if defaultFlow == nil {
				causes = append(causes, ErrorCause{
					Pointer: ref.element.Pointer(),
					Type:    "default_flow",
					Detail:  fmt.Sprintf("default sequence flow %s does not exist", ref.id),
				})
				continue
			}

			defaultFlow.IsDefault = true

			if gateway, ok := ref.element.Model.(Gateway); ok {
				gateway.Default = defaultFlow
				ref.element.Model = gateway
			}
		case "sourceRef", "targetRef":
			element := byId[ref.id]
			if element == nil {
				causes = append(causes, ErrorCause{
					Pointer: ref.scope.Pointer() + "/" + ref.flow.Id,
					Type:    "sequence_flow",
					Detail:  fmt.Sprintf("%s %s does not exist", ref.kind, ref.id),
				})
				continue
			}

			if ref.kind == "sourceRef" {
				ref.flow.Source = element
				element.Outgoing = append(element.Outgoing, ref.flow)
			} else {
				ref.flow.Target = element
				element.Incoming = append(element.Incoming, ref.flow)
			}
		}
	}

	return causes
}

func (m *Model) validate() []ErrorCause {
	var causes []ErrorCause

	ids := make(map[string]bool, len(m.Elements))
	for _, element := range m.Elements {
		if element.Id == "" {
			causes = append(causes, ErrorCause{
				Pointer: element.Pointer(),
				Type:    "element",
				Detail:  fmt.Sprintf("%s has no ID", element.Type),
			})
			continue
		}
		if ids[element.Id] {
			causes = append(causes, ErrorCause{
				Pointer: element.Pointer(),
				Type:    "element",
				Detail:  fmt.Sprintf("ID %s is not unique", element.Id),
			})
		}
		ids[element.Id] = true

		if element.Type == ElementIntermediateThrowEvent && element.EventType() == EventLink {
			if m.LinkTarget(element) == nil {
				causes = append(causes, ErrorCause{
					Pointer: element.Pointer(),
					Type:    "link_event",
					Detail:  fmt.Sprintf("no link catch event with name %s exists", element.EventDefinition.LinkName),
				})
			}
		}
	}

	return causes
}

type Definitions struct {
	Id string

	Errors      []*Error
	Escalations []*Escalation
	Messages    []*Message
	Processes   []*Element
	Signals     []*Signal
}

func (d *Definitions) errorById(id string) *Error {
	for _, bpmnError := range d.Errors {
		if bpmnError.Id == id {
			return bpmnError
		}
	}

	bpmnError := &Error{Id: id}
	d.Errors = append(d.Errors, bpmnError)
	return bpmnError
}

func (d *Definitions) escalationById(id string) *Escalation {
	for _, escalation := range d.Escalations {
		if escalation.Id == id {
			return escalation
		}
	}

	escalation := &Escalation{Id: id}
	d.Escalations = append(d.Escalations, escalation)
	return escalation
}

func (d *Definitions) messageById(id string) *Message {
	for _, message := range d.Messages {
		if message.Id == id {
			return message
		}
	}

	message := &Message{Id: id}
	d.Messages = append(d.Messages, message)
	return message
}

func (d *Definitions) signalById(id string) *Signal {
	for _, signal := range d.Signals {
		if signal.Id == id {
			return signal
		}
	}

	signal := &Signal{Id: id}
	d.Signals = append(d.Signals, signal)
	return signal
}

// Error is a BPMN error definition.
type Error struct {
	Id   string
	Name string
	Code string
}

type Escalation struct {
	Id   string
	Name string
	Code string
}

type Message struct {
	Id   string
	Name string
}

type Signal struct {
	Id   string
	Name string
}

// attachment represent an attached to relation between a boundary event and a task, sub process or call activity.
type attachment struct {
	Id      string   // ID of a task or sub process.
	Element *Element // The attached element.
}

// reference is an ID reference, resolved after all elements are read.
type reference struct {
	element *Element
	flow    *SequenceFlow
	scope   *Element
	kind    string
	id      string
}

func getAttrValue(attributes []xml.Attr, name string) string {
	for i := range attributes {
		if attributes[i].Name.Local == name {
			return attributes[i].Value
		}
	}
	return ""
}

func getAttrValueWithDefault(attributes []xml.Attr, name string, defaultValue string) string {
	if value := getAttrValue(attributes, name); value != "" {
		return value
	} else {
		return defaultValue
	}
}

func newElement(elementType ElementType, attributes []xml.Attr) *Element {
	element := Element{
		Id:   getAttrValue(attributes, "id"),
		Name: getAttrValue(attributes, "name"),
		Type: elementType,
	}

	for _, attr := range attributes {
		switch attr.Name.Space {
		case "", nsBpmn, nsXsi, "xmlns":
			continue
		}

		if element.Attributes == nil {
			element.Attributes = make(map[string]string)
		}
		element.Attributes[attr.Name.Local] = attr.Value
	}

	return &element
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var values []string
	for _, value := range strings.Split(s, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}
