package handler

import (
	"fmt"
	"strings"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// CallActivity creates a handler, which simulates the called process: the called process is mocked, so that the
// call activity creates a job instead of a child process instance. The job is completed with the configured output
// variables.
//
// Alternatively, the called process can be executed along a path - see [CallActivityHandler.Execute].
func CallActivity() *CallActivityHandler {
	return &CallActivityHandler{mock: true, variables: make(Variables)}
}

type CallActivityHandler struct {
	verification verification
	variables    Variables

	mock           bool
	mockValue      any
	errorCode      string
	escalationCode string

	// nested execution
	pathKey  string
	path     *path.Path
	handlers testcase.Handlers
}

func (h *CallActivityHandler) Configure(c *testcase.Context) error {
	calledElement, err := calledElement(c.Element())
	if err != nil {
		return err
	}

	if h.mock {
		value := h.mockValue
		if value == nil {
			value = true
		}
		c.Engine().Mocks().Register(calledElement, value)
		return nil
	}

	if c.Engine().Mocks().Has(calledElement) {
		return fmt.Errorf("called process %s is mocked, but should be executed", calledElement)
	}

	if h.path == nil {
		p, err := selectPath(c.Model(), calledElement, h.pathKey)
		if err != nil {
			return err
		}
		h.path = &p
	}
	if h.handlers == nil {
		h.handlers = Defaults(*h.path)
	}

	return c.Configure(h.handlers)
}

func (h *CallActivityHandler) Apply(c *testcase.Context, _ path.Step) error {
	if h.mock {
		return h.complete(c)
	}

	calledElement, err := calledElement(c.Element())
	if err != nil {
		return err
	}

	results, err := c.Engine().CreateQuery().QueryProcessInstances(c.Context(), engine.ProcessInstanceCriteria{
		ParentId:      c.ProcessInstance().Id,
		BpmnProcessId: calledElement,
	})
	if err != nil {
		return err
	}

	var child *engine.ProcessInstance
	for i := range results {
		if results[i].State == engine.InstanceStarted {
			child = &results[i]
		}
	}
	if child == nil {
		return testcase.Error{
			Type:   testcase.ErrorUnexpectedPosition,
			Title:  "failed to find called process instance",
			Detail: fmt.Sprintf("process instance %d has no active child process instance of %s at %s", c.ProcessInstance().Id, calledElement, c.Element().Id),
		}
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	return c.Drive(*child, *h.path, h.handlers)
}

func (h *CallActivityHandler) complete(c *testcase.Context) error {
	job, err := c.LockJob(c.Element().Id)
	if err != nil {
		return err
	}
	if err := checkJobType(job, engine.JobCallActivity); err != nil {
		return err
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	_, err = c.Engine().CompleteJob(c.Context(), engine.CompleteJobCmd{
		Id:               job.Id,
		Completion:       completion(h.errorCode, h.escalationCode),
		ProcessVariables: h.variables.copy(),
		WorkerId:         c.WorkerId(),
	})
	return err
}

// Execute executes the called process along the path with the given key, instead of simulating it. The called
// process must be part of the same BPMN XML. The key can be empty, if the called process has only one path.
// If handlers is nil, the default handlers of the path are used.
func (h *CallActivityHandler) Execute(pathKey string, handlers testcase.Handlers) *CallActivityHandler {
	h.mock = false
	h.pathKey = pathKey
	h.handlers = handlers
	return h
}

// ExecutePath executes the called process along the given path.
func (h *CallActivityHandler) ExecutePath(p path.Path, handlers testcase.Handlers) *CallActivityHandler {
	h.mock = false
	h.path = &p
	h.handlers = handlers
	return h
}

// Handlers returns the handlers of a called process, which is executed, or nil.
// The default handlers are available, after the handler has been configured.
func (h *CallActivityHandler) Handlers() testcase.Handlers {
	return h.handlers
}

// ThrowError throws a BPMN error, instead of completing the simulated call.
func (h *CallActivityHandler) ThrowError(errorCode string) *CallActivityHandler {
	h.errorCode = errorCode
	return h
}

// ThrowEscalation throws a BPMN escalation, before the simulated call is completed.
func (h *CallActivityHandler) ThrowEscalation(escalationCode string) *CallActivityHandler {
	h.escalationCode = escalationCode
	return h
}

func (h *CallActivityHandler) Verify(verifier Verifier) *CallActivityHandler {
	h.verification = append(h.verification, verifier)
	return h
}

// WithMock sets the value of the mock, registered for the called process.
func (h *CallActivityHandler) WithMock(value any) *CallActivityHandler {
	h.mockValue = value
	return h
}

// WithVariable sets an output variable of the simulated call.
func (h *CallActivityHandler) WithVariable(name string, value any) *CallActivityHandler {
	h.variables.Put(name, value)
	return h
}

func (h *CallActivityHandler) WithVariables(variables map[string]any) *CallActivityHandler {
	h.variables.PutAll(variables)
	return h
}

func calledElement(element *model.Element) (string, error) {
	callActivity, ok := element.Model.(model.CallActivity)
	if !ok || callActivity.CalledElement == "" {
		return "", fmt.Errorf("element %s is not a call activity with a called element", element.Id)
	}
	return callActivity.CalledElement, nil
}

func selectPath(m *model.Model, processId string, pathKey string) (path.Path, error) {
	if m.ProcessById(processId) == nil {
		return path.Path{}, fmt.Errorf("called process %s is not part of the BPMN XML", processId)
	}

	paths, err := path.Enumerate(m, processId)
	if err != nil {
		return path.Path{}, err
	}

	if pathKey == "" {
		if len(paths) != 1 {
			return path.Path{}, fmt.Errorf("path key must be specified, since called process %s has %d paths", processId, len(paths))
		}
		return paths[0], nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		if p.Key() == pathKey {
			return p, nil
		}
		keys[i] = p.Key()
	}
	return path.Path{}, fmt.Errorf("called process %s has no path %s: available paths: %s", processId, pathKey, strings.Join(keys, ", "))
}
