package handler

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// MultiInstance creates a handler, which applies the inner handler once per instance of a multi-instance activity.
// Parallel instances are handled one after another, sequential instances as soon as they are started.
func MultiInstance(inner testcase.Handler) *MultiInstanceHandler {
	return &MultiInstanceHandler{inner: inner, instances: -1}
}

type MultiInstanceHandler struct {
	inner     testcase.Handler
	instances int
}

func (h *MultiInstanceHandler) Configure(c *testcase.Context) error {
	if configurer, ok := h.inner.(testcase.Configurer); ok {
		return configurer.Configure(c)
	}
	return nil
}

func (h *MultiInstanceHandler) Finish() error {
	if finisher, ok := h.inner.(testcase.Finisher); ok {
		return finisher.Finish()
	}
	return nil
}

func (h *MultiInstanceHandler) Apply(c *testcase.Context, step path.Step) error {
	body, err := h.body(c)
	if err != nil {
		return err
	}

	nrOfInstances, nrOfCompletedInstances, err := h.loopState(c, body)
	if err != nil {
		return err
	}

	if h.instances >= 0 && h.instances != nrOfInstances {
		return testcase.Error{
			Type:     testcase.ErrorAssertion,
			Title:    "failed to verify multi instance",
			Detail:   fmt.Sprintf("multi instance activity %s has an unexpected number of instances", c.Element().Id),
			Expected: h.instances,
			Actual:   nrOfInstances,
		}
	}

	for i := nrOfCompletedInstances; i < nrOfInstances; i++ {
		if err := h.inner.Apply(c, step); err != nil {
			return fmt.Errorf("failed to apply handler of instance %d: %w", i, err)
		}

		results, err := c.Engine().CreateQuery().QueryElementInstances(c.Context(), engine.ElementInstanceCriteria{
			Id: body.Id,
		})
		if err != nil {
			return err
		}
		if len(results) != 1 || results[0].State != engine.InstanceStarted {
			break // completion condition fulfilled
		}
	}
	return nil
}

// Inner returns the handler, which is applied per instance.
func (h *MultiInstanceHandler) Inner() testcase.Handler {
	return h.inner
}

// WithInstances verifies the number of instances, before the first instance is handled.
func (h *MultiInstanceHandler) WithInstances(n int) *MultiInstanceHandler {
	h.instances = n
	return h
}

func (h *MultiInstanceHandler) body(c *testcase.Context) (engine.ElementInstance, error) {
	results, err := c.Engine().CreateQuery().QueryElementInstances(c.Context(), engine.ElementInstanceCriteria{
		ProcessInstanceId: c.ProcessInstance().Id,
		BpmnElementId:     c.Element().Id,
		States:            []engine.InstanceState{engine.InstanceStarted},
	})
	if err != nil {
		return engine.ElementInstance{}, err
	}

	for _, elementInstance := range results {
		if elementInstance.IsMultiInstance {
			return elementInstance, nil
		}
	}

	return engine.ElementInstance{}, testcase.Error{
		Type:   testcase.ErrorUnexpectedPosition,
		Title:  "failed to find multi instance body",
		Detail: fmt.Sprintf("process instance %d has no active multi instance body at %s", c.ProcessInstance().Id, c.Element().Id),
	}
}

func (h *MultiInstanceHandler) loopState(c *testcase.Context, body engine.ElementInstance) (int, int, error) {
	variables, err := c.ElementVariables(body.Id, "nrOfInstances", "nrOfCompletedInstances")
	if err != nil {
		return 0, 0, err
	}

	nrOfInstances, err := toInt(variables["nrOfInstances"])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get number of instances of %s: %v", c.Element().Id, err)
	}
	nrOfCompletedInstances, err := toInt(variables["nrOfCompletedInstances"])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get number of completed instances of %s: %v", c.Element().Id, err)
	}

	return nrOfInstances, nrOfCompletedInstances, nil
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("value %v is not a number", value)
	}
}
