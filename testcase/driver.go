package testcase

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"go.uber.org/zap"
)

// A Handler stands in for the side effect of a BPMN element and lets the engine continue.
//
// Apply is called, when the engine waits at the element of a step. The element is either the step's node, the
// trigger of a boundary event or event sub process or the event, chosen at an event-based gateway.
type Handler interface {
	Apply(*Context, path.Step) error
}

// A Configurer is a [Handler], which must be configured, before the process instance is created - e.g. to register
// a mock.
type Configurer interface {
	Configure(*Context) error
}

// A Finisher is a [Handler], which holds state, that must be released, when the test case is finished.
type Finisher interface {
	Finish() error
}

// HandlerFunc adapts a function to a [Handler].
type HandlerFunc func(*Context, path.Step) error

func (f HandlerFunc) Apply(c *Context, step path.Step) error {
	return f(c, step)
}

// Handlers maps BPMN element IDs to handlers.
type Handlers map[string]Handler

// State is the state of a test case execution.
type State int

const (
	StateCreated State = iota + 1
	StateStarted
	StateAtStep
	StateEnded
	StateFailed
)

func (v State) String() string {
	switch v {
	case StateCreated:
		return "CREATED"
	case StateStarted:
		return "STARTED"
	case StateAtStep:
		return "AT_STEP"
	case StateEnded:
		return "ENDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// driver steps a process instance along a path, one step at a time.
type driver struct {
	ctx      context.Context
	e        engine.Engine
	clock    *Clock
	handlers Handlers
	logger   *zap.Logger
	model    *model.Model
	path     path.Path
	workerId string

	processInstance engine.ProcessInstance
	state           State
	index           int
}

// configure configures all handlers, which implement [Configurer], in the order of their element IDs.
func (d *driver) configure(handlers Handlers) error {
	for _, id := range slices.Sorted(maps.Keys(handlers)) {
		configurer, ok := handlers[id].(Configurer)
		if !ok {
			continue
		}

		element := d.model.ElementById(id)
		if element == nil {
			return Error{
				Type:   ErrorUnhandledNode,
				Title:  "failed to configure handler",
				Detail: fmt.Sprintf("BPMN element %s could not be found", id),
			}
		}

		if err := configurer.Configure(&Context{d: d, element: element}); err != nil {
			return fmt.Errorf("failed to configure handler of %s: %w", id, err)
		}
	}
	return nil
}

// start creates the process instance and drives it to the end of the path.
func (d *driver) start(cmd engine.CreateProcessInstanceCmd) error {
	d.state = StateCreated

	if err := d.configure(d.handlers); err != nil {
		d.state = StateFailed
		return err
	}

	processInstance, err := d.e.CreateProcessInstance(d.ctx, cmd)
	if err != nil {
		d.state = StateFailed
		return err
	}

	return d.attach(processInstance)
}

// attach drives an already created process instance to the end of the path.
func (d *driver) attach(processInstance engine.ProcessInstance) error {
	d.processInstance = processInstance
	d.state = StateStarted

	d.logger.Debug("process instance started",
		zap.Int32("processInstanceId", processInstance.Id),
		zap.String("bpmnProcessId", processInstance.BpmnProcessId),
		zap.String("path", d.path.Key()),
	)

	if err := d.run(); err != nil {
		d.state = StateFailed

		d.logger.Debug("test case failed",
			zap.Int32("processInstanceId", processInstance.Id),
			zap.Int("step", d.index),
			zap.Error(err),
		)
		return err
	}

	d.state = StateEnded
	return nil
}

func (d *driver) run() error {
	for i := 0; i < d.path.Len(); i++ {
		d.index = i
		d.state = StateAtStep

		if err := d.step(d.path.Step(i)); err != nil {
			return err
		}
	}
	return d.end()
}

func (d *driver) step(step path.Step) error {
	d.logger.Debug("step",
		zap.Int32("processInstanceId", d.processInstance.Id),
		zap.Int("step", d.index),
		zap.String("node", step.Node.Id),
		zap.Stringer("outcome", step.Outcome),
	)

	switch {
	case step.Fires():
		if step.IsWaitState() && !step.Node.Type.IsScope() {
			if err := d.assertPosition(); err != nil {
				return err
			}
		} else {
			c := Context{d: d, element: step.Node}
			if _, err := c.ElementInstance(step.Node.Id); err != nil {
				return err
			}
		}

		if err := d.apply(step.Trigger, step); err != nil {
			return err
		}
		if step.IsNonInterrupting() && step.IsWaitState() {
			return d.apply(step.Node, step)
		}
		return nil
	case step.IsWaitState():
		if err := d.assertPosition(); err != nil {
			return err
		}

		if step.Node.Type == model.ElementEventBasedGateway {
			return d.apply(step.Chosen().Target, step)
		}
		return d.apply(step.Node, step)
	default:
		return nil
	}
}

func (d *driver) apply(element *model.Element, step path.Step) error {
	handler := d.handlers[element.Id]
	if handler == nil {
		return Error{
			Type:   ErrorUnhandledNode,
			Title:  "failed to apply handler",
			Detail: fmt.Sprintf("no handler for %s %s at step %d of path %s", element.Type, element.Id, d.index, d.path.Key()),
		}
	}

	if err := handler.Apply(&Context{d: d, element: element}, step); err != nil {
		if _, ok := err.(Error); ok {
			return err
		}
		return fmt.Errorf("failed to apply handler of %s at step %d: %w", element.Id, d.index, err)
	}
	return nil
}

// assertPosition asserts that the engine waits exactly at the front of the current step.
func (d *driver) assertPosition() error {
	var expected []string
	for _, i := range d.path.Front(d.index) {
		expected = append(expected, d.path.Step(i).Node.Id)
	}
	slices.Sort(expected)
	expected = slices.Compact(expected)

	actual, err := d.position(false)
	if err != nil {
		return err
	}

	if !slices.Equal(expected, actual) {
		if actual, err = d.position(true); err != nil {
			return err
		}
		return Error{
			Type:     ErrorUnexpectedPosition,
			Title:    "failed to assert position",
			Detail:   fmt.Sprintf("process instance %d is not waiting at step %d of path %s", d.processInstance.Id, d.index, d.path.Key()),
			Expected: expected,
			Actual:   actual,
		}
	}
	return nil
}

// position returns the sorted and distinct BPMN element IDs of all active leaf element instances. If waiting is
// true, converging gateways, which wait for further tokens, are included.
func (d *driver) position(waiting bool) ([]string, error) {
	states := []engine.InstanceState{engine.InstanceStarted}
	if waiting {
		states = append(states, engine.InstanceCreated)
	}

	elementInstances, err := d.e.CreateQuery().QueryElementInstances(d.ctx, engine.ElementInstanceCriteria{
		ProcessInstanceId: d.processInstance.Id,
		States:            states,
	})
	if err != nil {
		return nil, err
	}

	parents := make(map[int32]bool, len(elementInstances))
	for _, elementInstance := range elementInstances {
		if elementInstance.HasParent() {
			parents[elementInstance.ParentId] = true
		}
	}

	var ids []string
	for _, elementInstance := range elementInstances {
		if elementInstance.BpmnElementType == model.ElementProcess || parents[elementInstance.Id] {
			continue
		}
		ids = append(ids, elementInstance.BpmnElementId)
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// end asserts that the process instance has been completed at the end event of the path and that no open jobs,
// tasks or user tasks remain.
func (d *driver) end() error {
	end := d.path.End()

	results, err := d.e.CreateQuery().QueryProcessInstances(d.ctx, engine.ProcessInstanceCriteria{
		Id: d.processInstance.Id,
	})
	if err != nil {
		return err
	}
	if len(results) != 1 {
		return Error{
			Type:   ErrorAssertion,
			Title:  "failed to assert end",
			Detail: fmt.Sprintf("process instance %d could not be found", d.processInstance.Id),
		}
	}

	d.processInstance = results[0]

	if d.processInstance.State != engine.InstanceCompleted {
		actual, err := d.position(true)
		if err != nil {
			return err
		}
		return Error{
			Type:     ErrorUnexpectedPosition,
			Title:    "failed to assert end",
			Detail:   fmt.Sprintf("process instance %d is %s, but expected to be completed", d.processInstance.Id, d.processInstance.State),
			Expected: []string{end.Id},
			Actual:   actual,
		}
	}

	passed, err := d.e.CreateQuery().QueryElementInstances(d.ctx, engine.ElementInstanceCriteria{
		ProcessInstanceId: d.processInstance.Id,
		BpmnElementId:     end.Id,
		States:            []engine.InstanceState{engine.InstanceCompleted},
	})
	if err != nil {
		return err
	}
	if len(passed) == 0 {
		return Error{
			Type:     ErrorUnexpectedPosition,
			Title:    "failed to assert end",
			Detail:   fmt.Sprintf("process instance %d has not passed end event %s", d.processInstance.Id, end.Id),
			Expected: []string{end.Id},
		}
	}

	return d.assertNoResiduals()
}

func (d *driver) assertNoResiduals() error {
	var residuals []string

	jobs, err := d.e.CreateQuery().QueryJobs(d.ctx, engine.JobCriteria{
		ProcessInstanceId: d.processInstance.Id,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return err
	}
	for _, job := range jobs {
		residuals = append(residuals, job.String())
	}

	tasks, err := d.e.CreateQuery().QueryTasks(d.ctx, engine.TaskCriteria{
		ProcessInstanceId: d.processInstance.Id,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return err
	}
	for _, task := range tasks {
		residuals = append(residuals, task.String())
	}

	userTasks, err := d.e.CreateQuery().QueryUserTasks(d.ctx, engine.UserTaskCriteria{
		ProcessInstanceId: d.processInstance.Id,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return err
	}
	for _, userTask := range userTasks {
		residuals = append(residuals, userTask.String())
	}

	if len(residuals) != 0 {
		return Error{
			Type:     ErrorAssertion,
			Title:    "failed to assert end",
			Detail:   fmt.Sprintf("process instance %d has open jobs, tasks or user tasks", d.processInstance.Id),
			Expected: []string{},
			Actual:   residuals,
		}
	}
	return nil
}
