package mem

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func (c *memContext) newElementInstance(parent *elementInstanceEntity, element *model.Element) *elementInstanceEntity {
	c.ids.elementInstance++

	elementInstance := elementInstanceEntity{
		id: c.ids.elementInstance,

		parent:          parent,
		processInstance: parent.processInstance,

		element: element,

		createdAt: c.time,
		startedAt: timePtr(c.time),
		state:     engine.InstanceStarted,
	}

	parent.children = append(parent.children, &elementInstance)
	c.elementInstances = append(c.elementInstances, &elementInstance)
	return &elementInstance
}

// removeOwned removes all open jobs, tasks, user tasks and subscriptions of an element instance.
func (c *memContext) removeOwned(elementInstance *elementInstanceEntity) {
	c.jobs = slices.DeleteFunc(c.jobs, func(e *jobEntity) bool {
		return e.elementInstance == elementInstance && e.completedAt == nil
	})
	c.userTasks = slices.DeleteFunc(c.userTasks, func(e *userTaskEntity) bool {
		return e.elementInstance == elementInstance && e.completedAt == nil
	})
	c.tasks = slices.DeleteFunc(c.tasks, func(e *taskEntity) bool {
		if e.elementInstance == elementInstance && e.completedAt == nil {
			e.deleted = true
		}
		return e.deleted
	})
	c.subscriptions = slices.DeleteFunc(c.subscriptions, func(e *subscriptionEntity) bool {
		if e.elementInstance == elementInstance {
			e.deleted = true
		}
		return e.deleted
	})
}

// enter creates an instance of an element within a scope and executes it.
// A converging parallel or inclusive gateway is joined instead.
func enter(ctx *memContext, scope *elementInstanceEntity, element *model.Element, incoming *model.SequenceFlow) error {
	if err := ctx.step(); err != nil {
		return err
	}

	if element.IsConverging() && (element.Type == model.ElementParallelGateway || element.Type == model.ElementInclusiveGateway) {
		return join(ctx, scope, element, incoming)
	}

	elementInstance := ctx.newElementInstance(scope, element)
	if element.IsMultiInstance() {
		elementInstance.isMultiInstance = true
		return startMultiInstance(ctx, elementInstance)
	}

	return execute(ctx, elementInstance)
}

// execute performs the behavior of a started element instance.
// Elements, which do not wait, are left immediately.
func execute(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element

	switch element.Type {
	case
		model.ElementManualTask,
		model.ElementStartEvent,
		model.ElementTask:
		return leave(ctx, elementInstance)
	case
		model.ElementBusinessRuleTask,
		model.ElementScriptTask,
		model.ElementSendTask,
		model.ElementServiceTask:
		if err := subscribeBoundaries(ctx, elementInstance); err != nil {
			return err
		}
		ctx.createJob(elementInstance, engine.JobExecute, element.Attr("topic"))
		return nil
	case model.ElementCallActivity:
		if err := subscribeBoundaries(ctx, elementInstance); err != nil {
			return err
		}
		return callActivity(ctx, elementInstance)
	case model.ElementReceiveTask:
		if err := subscribeBoundaries(ctx, elementInstance); err != nil {
			return err
		}
		ctx.subscribe(elementInstance, element)
		return nil
	case model.ElementSubProcess, model.ElementTransaction:
		if err := subscribeBoundaries(ctx, elementInstance); err != nil {
			return err
		}
		return startScope(ctx, elementInstance)
	case model.ElementUserTask:
		if err := subscribeBoundaries(ctx, elementInstance); err != nil {
			return err
		}
		return createUserTask(ctx, elementInstance)
	case
		model.ElementEventBasedGateway,
		model.ElementExclusiveGateway,
		model.ElementInclusiveGateway,
		model.ElementParallelGateway:
		return executeGateway(ctx, elementInstance)
	case model.ElementIntermediateCatchEvent:
		return catchEvent(ctx, elementInstance)
	case model.ElementIntermediateThrowEvent:
		return throwEvent(ctx, elementInstance)
	case model.ElementEndEvent:
		return endEvent(ctx, elementInstance)
	default:
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to execute element",
			Detail: fmt.Sprintf("element %s of type %s cannot be executed", element.Pointer(), element.Type),
		}
	}
}

// startScope subscribes the event sub processes of a sub process or transaction and enters its none start event.
func startScope(ctx *memContext, scope *elementInstanceEntity) error {
	if err := subscribeEventSubProcesses(ctx, scope); err != nil {
		return err
	}

	start := noneStartEvent(scope.element)
	if start == nil {
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to start scope",
			Detail: fmt.Sprintf("%s %s has no none start event", scope.element.Type, scope.element.Pointer()),
		}
	}

	return enter(ctx, scope, start, nil)
}

// leave completes an element instance and takes the outgoing sequence flows, whose conditions are satisfied.
func leave(ctx *memContext, elementInstance *elementInstanceEntity) error {
	if elementInstance.isInner() {
		complete(ctx, elementInstance)
		return completeInner(ctx, elementInstance)
	}

	exclusive := elementInstance.element.Type == model.ElementExclusiveGateway

	sequenceFlows, err := selectSequenceFlows(ctx, elementInstance, exclusive)
	if err != nil {
		return err
	}

	return take(ctx, elementInstance, sequenceFlows)
}

// take completes an element instance and enters the targets of the given sequence flows.
// Without any sequence flow, the enclosing scope is continued.
func take(ctx *memContext, elementInstance *elementInstanceEntity, sequenceFlows []*model.SequenceFlow) error {
	complete(ctx, elementInstance)

	scope := elementInstance.parent
	for _, sequenceFlow := range sequenceFlows {
		if scope.state != engine.InstanceStarted {
			return nil // ended by a previously entered target
		}
		if err := enter(ctx, scope, sequenceFlow.Target, sequenceFlow); err != nil {
			return err
		}
	}

	return continueScope(ctx, scope)
}

// selectSequenceFlows returns the outgoing sequence flows of an element instance, whose condition is satisfied or
// that have no condition. If no sequence flow can be taken, the default sequence flow is selected.
func selectSequenceFlows(ctx *memContext, elementInstance *elementInstanceEntity, exclusive bool) ([]*model.SequenceFlow, error) {
	var (
		sequenceFlows []*model.SequenceFlow
		defaultFlow   *model.SequenceFlow
	)

	for _, sequenceFlow := range elementInstance.element.Outgoing {
		if sequenceFlow.IsDefault {
			defaultFlow = sequenceFlow
			continue
		}

		if sequenceFlow.Condition != "" {
			ok, err := evaluateCondition(ctx, elementInstance, sequenceFlow.Condition)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		sequenceFlows = append(sequenceFlows, sequenceFlow)
		if exclusive {
			break
		}
	}

	if len(sequenceFlows) == 0 && defaultFlow != nil {
		sequenceFlows = append(sequenceFlows, defaultFlow)
	}

	if len(sequenceFlows) == 0 && len(elementInstance.element.Outgoing) != 0 {
		return nil, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to leave element",
			Detail: fmt.Sprintf("no outgoing sequence flow of element %s can be taken", elementInstance.element.Pointer()),
		}
	}

	return sequenceFlows, nil
}

func complete(ctx *memContext, elementInstance *elementInstanceEntity) {
	elementInstance.state = engine.InstanceCompleted
	elementInstance.endedAt = timePtr(ctx.time)

	ctx.removeOwned(elementInstance)
}

// continueScope completes a scope, when none of its element instances is active anymore.
func continueScope(ctx *memContext, scope *elementInstanceEntity) error {
	if scope.state != engine.InstanceStarted {
		return nil
	}

	if err := checkJoins(ctx, scope); err != nil {
		return err
	}

	if scope.state != engine.InstanceStarted {
		return nil
	}
	for _, child := range scope.children {
		if child.isActive() {
			return nil
		}
	}

	switch scope.element.Type {
	case model.ElementProcess:
		return completeProcessInstance(ctx, scope.processInstance)
	case model.ElementEventSubProcess:
		complete(ctx, scope)
		return continueScope(ctx, scope.parent)
	default:
		return leave(ctx, scope)
	}
}

// terminate ends an active element instance, its children and a called process instance.
func terminate(ctx *memContext, elementInstance *elementInstanceEntity) {
	if !elementInstance.isActive() {
		return
	}

	for _, child := range elementInstance.children {
		terminate(ctx, child)
	}

	if elementInstance.child != nil {
		terminateProcessInstance(ctx, elementInstance.child)
	}

	elementInstance.state = engine.InstanceTerminated
	elementInstance.endedAt = timePtr(ctx.time)

	ctx.removeOwned(elementInstance)
}

func noneStartEvent(scope *model.Element) *model.Element {
	for _, start := range scope.StartEvents() {
		if start.EventType() == model.EventNone {
			return start
		}
	}
	return nil
}
