package handler

import (
	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// UserTask creates a handler, which completes a user task.
func UserTask() *UserTaskHandler {
	return &UserTaskHandler{variables: make(Variables)}
}

type UserTaskHandler struct {
	verification verification
	variables    Variables

	assignee       string
	errorCode      string
	escalationCode string
}

func (h *UserTaskHandler) Apply(c *testcase.Context, _ path.Step) error {
	userTask, err := c.UserTask(c.Element().Id)
	if err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	_, err = c.Engine().CompleteUserTask(c.Context(), engine.CompleteUserTaskCmd{
		Id:             userTask.Id,
		Assignee:       h.assignee,
		ErrorCode:      h.errorCode,
		EscalationCode: h.escalationCode,
		Variables:      h.variables.copy(),
		WorkerId:       c.WorkerId(),
	})
	return err
}

// ThrowError throws a BPMN error, instead of completing the user task.
func (h *UserTaskHandler) ThrowError(errorCode string) *UserTaskHandler {
	h.errorCode = errorCode
	return h
}

// ThrowEscalation throws a BPMN escalation, before the user task is completed.
func (h *UserTaskHandler) ThrowEscalation(escalationCode string) *UserTaskHandler {
	h.escalationCode = escalationCode
	return h
}

func (h *UserTaskHandler) Verify(verifier Verifier) *UserTaskHandler {
	h.verification = append(h.verification, verifier)
	return h
}

// WithAssignee claims the user task for the assignee, before it is completed.
func (h *UserTaskHandler) WithAssignee(assignee string) *UserTaskHandler {
	h.assignee = assignee
	return h
}

func (h *UserTaskHandler) WithVariable(name string, value any) *UserTaskHandler {
	h.variables.Put(name, value)
	return h
}

func (h *UserTaskHandler) WithVariables(variables map[string]any) *UserTaskHandler {
	h.variables.PutAll(variables)
	return h
}
