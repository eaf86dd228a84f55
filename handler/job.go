package handler

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// Job creates a handler, which completes the job of a service, send, business rule or script task.
func Job() *JobHandler {
	return &JobHandler{variables: make(Variables)}
}

// JobHandler completes a job of type [engine.JobExecute].
type JobHandler struct {
	verification verification
	variables    Variables

	errorCode      string
	escalationCode string
	execute        func(*testcase.Context, engine.Job) error
}

func (h *JobHandler) Apply(c *testcase.Context, _ path.Step) error {
	job, err := c.LockJob(c.Element().Id)
	if err != nil {
		return err
	}
	if err := checkJobType(job, engine.JobExecute); err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	if h.execute != nil {
		if err := h.execute(c, job); err != nil {
			return err
		}
	}

	_, err = c.Engine().CompleteJob(c.Context(), engine.CompleteJobCmd{
		Id:               job.Id,
		Completion:       completion(h.errorCode, h.escalationCode),
		ProcessVariables: h.variables.copy(),
		WorkerId:         c.WorkerId(),
	})
	return err
}

// Execute sets a function, which is called before the job is completed - e.g. to call the code under test.
func (h *JobHandler) Execute(execute func(*testcase.Context, engine.Job) error) *JobHandler {
	h.execute = execute
	return h
}

// ThrowError throws a BPMN error, instead of completing the job.
func (h *JobHandler) ThrowError(errorCode string) *JobHandler {
	h.errorCode = errorCode
	return h
}

// ThrowEscalation throws a BPMN escalation, before the job is completed.
func (h *JobHandler) ThrowEscalation(escalationCode string) *JobHandler {
	h.escalationCode = escalationCode
	return h
}

func (h *JobHandler) Verify(verifier Verifier) *JobHandler {
	h.verification = append(h.verification, verifier)
	return h
}

func (h *JobHandler) WithVariable(name string, value any) *JobHandler {
	h.variables.Put(name, value)
	return h
}

func (h *JobHandler) WithVariables(variables map[string]any) *JobHandler {
	h.variables.PutAll(variables)
	return h
}

// WithoutVariable deletes a process variable, when the job is completed.
func (h *JobHandler) WithoutVariable(name string) *JobHandler {
	h.variables.Delete(name)
	return h
}

func checkJobType(job engine.Job, expected engine.JobType) error {
	if job.Type == expected {
		return nil
	}
	return testcase.Error{
		Type:     testcase.ErrorAssertion,
		Title:    "failed to check job type",
		Detail:   fmt.Sprintf("job %s has unexpected type", job),
		Expected: expected,
		Actual:   job.Type,
	}
}

func completion(errorCode string, escalationCode string) *engine.JobCompletion {
	if errorCode == "" && escalationCode == "" {
		return nil
	}
	return &engine.JobCompletion{ErrorCode: errorCode, EscalationCode: escalationCode}
}
