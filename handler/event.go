package handler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// Message creates a handler, which correlates a message with a receive task, a message catch event, a message
// boundary event or a message start event of an event sub process. Unless configured, the message name of the
// waiting subscription is used.
func Message() *MessageHandler {
	return &MessageHandler{variables: make(Variables)}
}

type MessageHandler struct {
	verification verification
	variables    Variables

	name           string
	correlationKey string
}

func (h *MessageHandler) Apply(c *testcase.Context, _ path.Step) error {
	subscription, err := c.Subscription(c.Element().Id, engine.SubscriptionMessage)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	name := h.name
	if name == "" {
		name = subscription.Name
	}

	_, err = c.Engine().SendMessage(c.Context(), engine.SendMessageCmd{
		CorrelationKey:    h.correlationKey,
		Name:              name,
		ProcessInstanceId: c.ProcessInstance().Id,
		Variables:         h.variables.copy(),
		WorkerId:          c.WorkerId(),
	})
	return err
}

func (h *MessageHandler) Verify(verifier Verifier) *MessageHandler {
	h.verification = append(h.verification, verifier)
	return h
}

// WithCorrelationKey sets the correlation key, which must equal the business key of the process instance.
func (h *MessageHandler) WithCorrelationKey(correlationKey string) *MessageHandler {
	h.correlationKey = correlationKey
	return h
}

func (h *MessageHandler) WithName(name string) *MessageHandler {
	h.name = name
	return h
}

func (h *MessageHandler) WithVariable(name string, value any) *MessageHandler {
	h.variables.Put(name, value)
	return h
}

func (h *MessageHandler) WithVariables(variables map[string]any) *MessageHandler {
	h.variables.PutAll(variables)
	return h
}

// Signal creates a handler, which throws a signal at a waiting signal subscription. Unless configured, the
// subscription's signal name is used.
func Signal() *SignalHandler {
	return &SignalHandler{variables: make(Variables)}
}

type SignalHandler struct {
	name         string
	verification verification
	variables    Variables
}

func (h *SignalHandler) Apply(c *testcase.Context, _ path.Step) error {
	subscription, err := c.Subscription(c.Element().Id, engine.SubscriptionSignal)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	name := h.name
	if name == "" {
		name = subscription.Name
	}

	_, err = c.Engine().SendSignal(c.Context(), engine.SendSignalCmd{
		Name:      name,
		Variables: h.variables.copy(),
		WorkerId:  c.WorkerId(),
	})
	return err
}

func (h *SignalHandler) Verify(verifier Verifier) *SignalHandler {
	h.verification = append(h.verification, verifier)
	return h
}

func (h *SignalHandler) WithName(name string) *SignalHandler {
	h.name = name
	return h
}

func (h *SignalHandler) WithVariable(name string, value any) *SignalHandler {
	h.variables.Put(name, value)
	return h
}

// Timer creates a handler, which advances the clock just past the due date of a timer and triggers it.
func Timer() *TimerHandler {
	return &TimerHandler{}
}

type TimerHandler struct {
	verification verification
}

func (h *TimerHandler) Apply(c *testcase.Context, _ path.Step) error {
	task, err := c.Task(c.Element().Id)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	if err := c.Clock().Advance(c.Context(), task.DueAt); err != nil {
		return err
	}

	_, failedTasks, err := c.Engine().ExecuteTasks(c.Context(), engine.ExecuteTasksCmd{Id: task.Id})
	if err != nil {
		return err
	}
	if len(failedTasks) != 0 {
		return fmt.Errorf("failed to execute timer task %s", failedTasks[0])
	}
	return nil
}

// Verify adds a verifier, which is called before the clock is advanced.
func (h *TimerHandler) Verify(verifier Verifier) *TimerHandler {
	h.verification = append(h.verification, verifier)
	return h
}

// Conditional creates a handler, which satisfies the condition of a conditional event by setting process variables.
// Unless configured, the variables are derived from simple conditions like ${approved}, ${approved == true} or
// ${status == 'done'}.
func Conditional() *ConditionalHandler {
	return &ConditionalHandler{variables: make(Variables)}
}

type ConditionalHandler struct {
	verification verification
	variables    Variables
}

func (h *ConditionalHandler) Apply(c *testcase.Context, _ path.Step) error {
	subscription, err := c.Subscription(c.Element().Id, engine.SubscriptionConditional)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	variables := h.variables.copy()
	if variables == nil {
		variables, err = deriveVariables(subscription.Condition)
		if err != nil {
			return fmt.Errorf("failed to satisfy condition of %s: %v", c.Element().Id, err)
		}
	}

	return c.Engine().SetProcessVariables(c.Context(), engine.SetProcessVariablesCmd{
		ProcessInstanceId: c.ProcessInstance().Id,
		Variables:         variables,
		WorkerId:          c.WorkerId(),
	})
}

func (h *ConditionalHandler) Verify(verifier Verifier) *ConditionalHandler {
	h.verification = append(h.verification, verifier)
	return h
}

func (h *ConditionalHandler) WithVariable(name string, value any) *ConditionalHandler {
	h.variables.Put(name, value)
	return h
}

func (h *ConditionalHandler) WithVariables(variables map[string]any) *ConditionalHandler {
	h.variables.PutAll(variables)
	return h
}

var (
	conditionName     = regexp.MustCompile(`^\$\{\s*([A-Za-z_]\w*)\s*\}$`)
	conditionEquality = regexp.MustCompile(`^\$\{\s*([A-Za-z_]\w*)\s*===?\s*(.+?)\s*\}$`)
)

// deriveVariables derives the variables, which satisfy a simple condition.
func deriveVariables(condition string) (map[string]any, error) {
	condition = strings.TrimSpace(condition)

	if m := conditionName.FindStringSubmatch(condition); m != nil {
		return map[string]any{m[1]: true}, nil
	}

	m := conditionEquality.FindStringSubmatch(condition)
	if m == nil {
		return nil, fmt.Errorf("condition %s is not simple: variables must be configured", condition)
	}

	name, literal := m[1], m[2]
	switch {
	case literal == "true":
		return map[string]any{name: true}, nil
	case literal == "false":
		return map[string]any{name: false}, nil
	case len(literal) >= 2 && (literal[0] == '\'' || literal[0] == '"') && literal[len(literal)-1] == literal[0]:
		return map[string]any{name: literal[1 : len(literal)-1]}, nil
	}

	if i, err := strconv.Atoi(literal); err == nil {
		return map[string]any{name: i}, nil
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return map[string]any{name: f}, nil
	}

	return nil, fmt.Errorf("condition %s compares with unsupported literal %s: variables must be configured", condition, literal)
}

// Error creates a handler, which throws the BPMN error of an error boundary event or error event sub process at the
// element instance, the event is triggered for. Unless configured, the error code of the event definition is used.
func Error() *ThrowHandler {
	return &ThrowHandler{eventType: model.EventError, variables: make(Variables)}
}

// Escalation creates a handler, which throws the BPMN escalation of an escalation boundary event or escalation event
// sub process. Unless configured, the escalation code of the event definition is used.
func Escalation() *ThrowHandler {
	return &ThrowHandler{eventType: model.EventEscalation, variables: make(Variables)}
}

// ThrowHandler throws a BPMN error or escalation.
type ThrowHandler struct {
	verification verification
	variables    Variables

	eventType model.EventType
	code      string
}

func (h *ThrowHandler) Apply(c *testcase.Context, step path.Step) error {
	elementInstance, err := c.ElementInstance(step.Node.Id)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	code := h.code
	if code == "" && c.Element().EventDefinition != nil {
		code = c.Element().EventDefinition.Name()
	}
	if code == "" {
		code = c.Element().Id // caught by a catch all event
	}

	cmd := engine.ThrowCmd{
		ElementInstanceId: elementInstance.Id,
		Variables:         h.variables.copy(),
		WorkerId:          c.WorkerId(),
	}
	if h.eventType == model.EventEscalation {
		cmd.EscalationCode = code
	} else {
		cmd.ErrorCode = code
	}

	return c.Engine().Throw(c.Context(), cmd)
}

func (h *ThrowHandler) Verify(verifier Verifier) *ThrowHandler {
	h.verification = append(h.verification, verifier)
	return h
}

// WithCode sets the error or escalation code to throw.
func (h *ThrowHandler) WithCode(code string) *ThrowHandler {
	h.code = code
	return h
}

func (h *ThrowHandler) WithVariable(name string, value any) *ThrowHandler {
	h.variables.Put(name, value)
	return h
}
