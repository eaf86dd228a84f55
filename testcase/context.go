package testcase

import (
	"context"
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"go.uber.org/zap"
)

// Context provides a handler with access to the engine and the state of the driven process instance.
type Context struct {
	d       *driver
	element *model.Element
}

func (c *Context) Clock() *Clock {
	return c.d.clock
}

func (c *Context) Context() context.Context {
	return c.d.ctx
}

// Element returns the element, the handler is applied for: the node of the current step, the boundary event or
// event sub process start event, that is triggered, or the event, chosen at an event-based gateway.
func (c *Context) Element() *model.Element {
	return c.element
}

func (c *Context) Engine() engine.Engine {
	return c.d.e
}

// Index returns the index of the current step.
func (c *Context) Index() int {
	return c.d.index
}

func (c *Context) Logger() *zap.Logger {
	return c.d.logger
}

// Model returns the BPMN model, the path has been enumerated from.
func (c *Context) Model() *model.Model {
	return c.d.model
}

func (c *Context) Path() path.Path {
	return c.d.path
}

func (c *Context) ProcessInstance() engine.ProcessInstance {
	return c.d.processInstance
}

func (c *Context) WorkerId() string {
	return c.d.workerId
}

// ElementInstance returns the most recently created, active element instance of a BPMN element.
func (c *Context) ElementInstance(bpmnElementId string) (engine.ElementInstance, error) {
	results, err := c.d.e.CreateQuery().QueryElementInstances(c.d.ctx, engine.ElementInstanceCriteria{
		ProcessInstanceId: c.d.processInstance.Id,
		BpmnElementId:     bpmnElementId,
		States:            []engine.InstanceState{engine.InstanceStarted},
	})
	if err != nil {
		return engine.ElementInstance{}, err
	}
	if len(results) == 0 {
		return engine.ElementInstance{}, c.unexpectedPosition(bpmnElementId)
	}

	return slices.MaxFunc(results, func(a engine.ElementInstance, b engine.ElementInstance) int {
		return int(a.Id - b.Id)
	}), nil
}

// Job returns the first open job of a BPMN element.
func (c *Context) Job(bpmnElementId string) (engine.Job, error) {
	results, err := c.d.e.CreateQuery().QueryJobs(c.d.ctx, engine.JobCriteria{
		ProcessInstanceId: c.d.processInstance.Id,
		BpmnElementId:     bpmnElementId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return engine.Job{}, err
	}
	if len(results) == 0 {
		return engine.Job{}, Error{
			Type:   ErrorAssertion,
			Title:  "failed to find job",
			Detail: fmt.Sprintf("process instance %d has no open job at %s", c.d.processInstance.Id, bpmnElementId),
		}
	}
	return results[0], nil
}

// LockJob locks the first open job of a BPMN element for the driver's worker.
func (c *Context) LockJob(bpmnElementId string) (engine.Job, error) {
	job, err := c.Job(bpmnElementId)
	if err != nil {
		return engine.Job{}, err
	}
	if job.IsLocked() {
		return job, nil
	}

	lockedJobs, err := c.d.e.LockJobs(c.d.ctx, engine.LockJobsCmd{
		Id:       job.Id,
		WorkerId: c.d.workerId,
	})
	if err != nil {
		return engine.Job{}, err
	}
	if len(lockedJobs) == 0 {
		return engine.Job{}, Error{
			Type:   ErrorAssertion,
			Title:  "failed to lock job",
			Detail: fmt.Sprintf("job %s is not due", job),
		}
	}
	return lockedJobs[0], nil
}

// Subscription returns the first subscription of a BPMN element, that has the given type.
// If no such subscription exists, an error of type [ErrorMissingSubscription] is returned.
func (c *Context) Subscription(bpmnElementId string, subscriptionType engine.SubscriptionType) (engine.Subscription, error) {
	results, err := c.d.e.CreateQuery().QuerySubscriptions(c.d.ctx, engine.SubscriptionCriteria{
		ProcessInstanceId: c.d.processInstance.Id,
		BpmnElementId:     bpmnElementId,
		Type:              subscriptionType,
	})
	if err != nil {
		return engine.Subscription{}, err
	}
	if len(results) == 0 {
		return engine.Subscription{}, Error{
			Type:   ErrorMissingSubscription,
			Title:  "failed to find subscription",
			Detail: fmt.Sprintf("process instance %d has no %s subscription at %s", c.d.processInstance.Id, subscriptionType, bpmnElementId),
		}
	}
	return results[0], nil
}

// Task returns the first open task of a BPMN element, e.g. the timer of a catch or boundary event.
func (c *Context) Task(bpmnElementId string) (engine.Task, error) {
	results, err := c.d.e.CreateQuery().QueryTasks(c.d.ctx, engine.TaskCriteria{
		ProcessInstanceId: c.d.processInstance.Id,
		BpmnElementId:     bpmnElementId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return engine.Task{}, err
	}
	if len(results) == 0 {
		return engine.Task{}, Error{
			Type:   ErrorAssertion,
			Title:  "failed to find task",
			Detail: fmt.Sprintf("process instance %d has no open task at %s", c.d.processInstance.Id, bpmnElementId),
		}
	}
	return results[0], nil
}

// UserTask returns the first open user task of a BPMN element.
func (c *Context) UserTask(bpmnElementId string) (engine.UserTask, error) {
	results, err := c.d.e.CreateQuery().QueryUserTasks(c.d.ctx, engine.UserTaskCriteria{
		ProcessInstanceId: c.d.processInstance.Id,
		BpmnElementId:     bpmnElementId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		return engine.UserTask{}, err
	}
	if len(results) == 0 {
		return engine.UserTask{}, Error{
			Type:   ErrorAssertion,
			Title:  "failed to find user task",
			Detail: fmt.Sprintf("process instance %d has no open user task at %s", c.d.processInstance.Id, bpmnElementId),
		}
	}
	return results[0], nil
}

func (c *Context) ElementVariables(elementInstanceId int32, names ...string) (map[string]any, error) {
	return c.d.e.GetElementVariables(c.d.ctx, engine.GetElementVariablesCmd{
		ElementInstanceId: elementInstanceId,
		Names:             names,
	})
}

func (c *Context) ProcessVariables(names ...string) (map[string]any, error) {
	return c.d.e.GetProcessVariables(c.d.ctx, engine.GetProcessVariablesCmd{
		ProcessInstanceId: c.d.processInstance.Id,
		Names:             names,
	})
}

// Configure configures handlers, which are applied by a nested run - see [Context.Drive].
func (c *Context) Configure(handlers Handlers) error {
	return c.d.configure(handlers)
}

// Drive drives a process instance, started by a call activity, along a path of the called process.
// The nested run shares engine, clock, logger and worker ID with the current run.
func (c *Context) Drive(processInstance engine.ProcessInstance, p path.Path, handlers Handlers) error {
	nested := &driver{
		ctx:      c.d.ctx,
		e:        c.d.e,
		clock:    c.d.clock,
		handlers: handlers,
		logger:   c.d.logger.With(zap.Int32("parentProcessInstanceId", c.d.processInstance.Id)),
		model:    c.d.model,
		path:     p,
		workerId: c.d.workerId,
	}
	return nested.attach(processInstance)
}

func (c *Context) unexpectedPosition(bpmnElementId string) error {
	actual, err := c.d.position(true)
	if err != nil {
		return err
	}
	return Error{
		Type:     ErrorUnexpectedPosition,
		Title:    "failed to find element instance",
		Detail:   fmt.Sprintf("process instance %d is not waiting at %s", c.d.processInstance.Id, bpmnElementId),
		Expected: []string{bpmnElementId},
		Actual:   actual,
	}
}
