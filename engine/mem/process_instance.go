package mem

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"go.uber.org/zap"
)

func createProcessInstance(ctx *memContext, cmd engine.CreateProcessInstanceCmd) (engine.ProcessInstance, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.ProcessInstance{}, err
	}

	process := ctx.latestProcess(cmd.BpmnProcessId)
	if process == nil {
		return engine.ProcessInstance{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to create process instance",
			Detail: fmt.Sprintf("process %s could not be found", cmd.BpmnProcessId),
		}
	}

	var start *model.Element
	if cmd.BpmnStartElementId != "" {
		start = process.element.ChildById(cmd.BpmnStartElementId)
		if start == nil || start.Type != model.ElementStartEvent {
			return engine.ProcessInstance{}, engine.Error{
				Type:   engine.ErrorNotFound,
				Title:  "failed to create process instance",
				Detail: fmt.Sprintf("process %s has no start event %s", cmd.BpmnProcessId, cmd.BpmnStartElementId),
			}
		}
	} else {
		start = noneStartEvent(process.element)
		if start == nil {
			return engine.ProcessInstance{}, engine.Error{
				Type:   engine.ErrorProcessModel,
				Title:  "failed to create process instance",
				Detail: fmt.Sprintf("process %s has no none start event", cmd.BpmnProcessId),
			}
		}
	}

	processInstance := ctx.newProcessInstance(process, cmd.BusinessKey, cmd.WorkerId, nil)
	ctx.setVariables(processInstance, cmd.Variables)

	if err := startProcessInstance(ctx, processInstance, start); err != nil {
		return engine.ProcessInstance{}, err
	}

	return processInstance.ProcessInstance(), nil
}

// newProcessInstance creates a process instance and the element instance of its process element.
// A caller is set, when the process instance is started by a call activity.
func (c *memContext) newProcessInstance(process *processEntity, businessKey string, createdBy string, caller *elementInstanceEntity) *processInstanceEntity {
	c.ids.processInstance++

	processInstance := processInstanceEntity{
		id: c.ids.processInstance,

		process: process,

		caller: caller,

		businessKey: businessKey,
		createdAt:   c.time,
		createdBy:   createdBy,
		state:       engine.InstanceStarted,
	}

	if caller != nil {
		processInstance.parent = caller.processInstance
		processInstance.root = caller.processInstance.root
	} else {
		processInstance.root = &processInstance
	}

	c.ids.elementInstance++

	processInstance.scope = &elementInstanceEntity{
		id: c.ids.elementInstance,

		processInstance: &processInstance,

		element: process.element,

		createdAt: c.time,
		startedAt: timePtr(c.time),
		state:     engine.InstanceStarted,
	}

	c.processInstances = append(c.processInstances, &processInstance)
	c.elementInstances = append(c.elementInstances, processInstance.scope)

	c.logger.Debug("process instance created",
		fieldProcessInstance(&processInstance),
		zap.String("bpmnProcessId", process.element.Id),
	)

	return &processInstance
}

// startProcessInstance subscribes the event sub processes of a process instance and enters a start event.
func startProcessInstance(ctx *memContext, processInstance *processInstanceEntity, start *model.Element) error {
	if err := subscribeEventSubProcesses(ctx, processInstance.scope); err != nil {
		return err
	}
	return enter(ctx, processInstance.scope, start, nil)
}

func completeProcessInstance(ctx *memContext, processInstance *processInstanceEntity) error {
	complete(ctx, processInstance.scope)

	processInstance.state = engine.InstanceCompleted
	processInstance.endedAt = timePtr(ctx.time)

	ctx.logger.Debug("process instance completed", fieldProcessInstance(processInstance))

	caller := processInstance.caller
	if caller == nil {
		ctx.applyHistoryLevel(processInstance)
		return nil
	}

	// output of a called process instance
	callerProcessInstance := caller.processInstance
	ctx.setVariables(callerProcessInstance, ctx.processVariables(processInstance))

	ctx.applyHistoryLevel(processInstance)

	if err := leave(ctx, caller); err != nil {
		return err
	}
	return evaluateConditions(ctx, callerProcessInstance)
}

func terminateProcessInstance(ctx *memContext, processInstance *processInstanceEntity) {
	if processInstance.isEnded() {
		return
	}

	terminate(ctx, processInstance.scope)

	processInstance.state = engine.InstanceTerminated
	processInstance.endedAt = timePtr(ctx.time)

	ctx.logger.Debug("process instance terminated", fieldProcessInstance(processInstance))

	ctx.applyHistoryLevel(processInstance)
}

// callActivity starts an instance of the called process. If the called process is mocked, a job is created instead.
func callActivity(ctx *memContext, elementInstance *elementInstanceEntity) error {
	calledElement := elementInstance.element.Model.(model.CallActivity).CalledElement

	if ctx.mocks.Has(calledElement) {
		ctx.createJob(elementInstance, engine.JobCallActivity, calledElement)
		return nil
	}

	process := ctx.latestProcess(calledElement)
	if process == nil {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to execute call activity",
			Detail: fmt.Sprintf("called process %s of element %s could not be found", calledElement, elementInstance.element.Pointer()),
		}
	}

	start := noneStartEvent(process.element)
	if start == nil {
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to execute call activity",
			Detail: fmt.Sprintf("called process %s has no none start event", calledElement),
		}
	}

	processInstance := elementInstance.processInstance

	child := ctx.newProcessInstance(process, processInstance.businessKey, ctx.engineId(), elementInstance)
	ctx.setVariables(child, ctx.visibleVariables(elementInstance))

	elementInstance.child = child

	return startProcessInstance(ctx, child, start)
}

// applyHistoryLevel removes the entities of an ended process instance, which are not kept.
func (c *memContext) applyHistoryLevel(processInstance *processInstanceEntity) {
	switch c.options.Common.HistoryLevel {
	case engine.HistoryNone:
		c.purge(processInstance)
	case engine.HistoryActivity:
		c.jobs = slices.DeleteFunc(c.jobs, func(e *jobEntity) bool {
			return e.elementInstance.processInstance == processInstance
		})
		c.tasks = slices.DeleteFunc(c.tasks, func(e *taskEntity) bool {
			return e.elementInstance.processInstance == processInstance
		})
		c.userTasks = slices.DeleteFunc(c.userTasks, func(e *userTaskEntity) bool {
			return e.elementInstance.processInstance == processInstance
		})
		c.variables = slices.DeleteFunc(c.variables, func(e *variableEntity) bool {
			return e.processInstance == processInstance
		})
	}
}

// purge removes a process instance and all related entities.
func (c *memContext) purge(processInstance *processInstanceEntity) {
	c.processInstances = slices.DeleteFunc(c.processInstances, func(e *processInstanceEntity) bool {
		return e == processInstance
	})
	c.elementInstances = slices.DeleteFunc(c.elementInstances, func(e *elementInstanceEntity) bool {
		return e.processInstance == processInstance
	})
	c.jobs = slices.DeleteFunc(c.jobs, func(e *jobEntity) bool {
		return e.elementInstance.processInstance == processInstance
	})
	c.subscriptions = slices.DeleteFunc(c.subscriptions, func(e *subscriptionEntity) bool {
		if e.elementInstance.processInstance == processInstance {
			e.deleted = true
		}
		return e.deleted
	})
	c.tasks = slices.DeleteFunc(c.tasks, func(e *taskEntity) bool {
		if e.elementInstance.processInstance == processInstance {
			e.deleted = true
		}
		return e.deleted
	})
	c.userTasks = slices.DeleteFunc(c.userTasks, func(e *userTaskEntity) bool {
		return e.elementInstance.processInstance == processInstance
	})
	c.variables = slices.DeleteFunc(c.variables, func(e *variableEntity) bool {
		return e.processInstance == processInstance
	})
}
