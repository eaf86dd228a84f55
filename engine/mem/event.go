package mem

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func catchEvent(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element

	switch element.EventType() {
	case model.EventLink:
		return leave(ctx, elementInstance)
	case model.EventConditional, model.EventMessage, model.EventSignal, model.EventTimer:
		return subscribeEvent(ctx, elementInstance, element)
	default:
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to execute element",
			Detail: fmt.Sprintf("intermediate catch event %s has an unsupported event definition", element.Pointer()),
		}
	}
}

func throwEvent(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element

	switch element.EventType() {
	case model.EventEscalation:
		if err := propagate(ctx, elementInstance, model.EventEscalation, element.EventDefinition.Name()); err != nil {
			return err
		}
		if elementInstance.state != engine.InstanceStarted {
			return nil // interrupted
		}
	case model.EventLink:
		target := elementInstance.model().LinkTarget(element)

		complete(ctx, elementInstance)
		return enter(ctx, elementInstance.parent, target, nil)
	case model.EventSignal:
		if _, err := broadcastSignal(ctx, element.EventDefinition.Name(), nil, ctx.engineId()); err != nil {
			return err
		}
		if elementInstance.state != engine.InstanceStarted {
			return nil
		}
	}

	return leave(ctx, elementInstance)
}

func endEvent(ctx *memContext, elementInstance *elementInstanceEntity) error {
	element := elementInstance.element
	scope := elementInstance.parent

	complete(ctx, elementInstance)

	switch eventType := element.EventType(); eventType {
	case model.EventCancel, model.EventError, model.EventEscalation:
		if err := propagate(ctx, elementInstance, eventType, element.EventDefinition.Name()); err != nil {
			return err
		}
	case model.EventSignal:
		if _, err := broadcastSignal(ctx, element.EventDefinition.Name(), nil, ctx.engineId()); err != nil {
			return err
		}
	case model.EventTerminate:
		for _, child := range scope.children {
			terminate(ctx, child)
		}
	}

	return continueScope(ctx, scope)
}

// subscribeEvent lets an element instance wait for the event of a catching element: a timer task or a message,
// signal or conditional subscription is created. Other events are not subscribed.
func subscribeEvent(ctx *memContext, owner *elementInstanceEntity, element *model.Element) error {
	if element.Type == model.ElementReceiveTask {
		ctx.subscribe(owner, element)
		return nil
	}

	switch element.EventType() {
	case model.EventTimer:
		return ctx.createTimerTask(owner, element)
	case model.EventConditional, model.EventMessage, model.EventSignal:
		ctx.subscribe(owner, element)
	}
	return nil
}

func subscribeBoundaries(ctx *memContext, activity *elementInstanceEntity) error {
	if activity.isInner() {
		return nil // subscribed by the multi instance body
	}

	for _, boundaryEvent := range activity.model().AttachedTo(activity.element.Id) {
		if err := subscribeEvent(ctx, activity, boundaryEvent); err != nil {
			return err
		}
	}
	return nil
}

func subscribeEventSubProcesses(ctx *memContext, scope *elementInstanceEntity) error {
	for _, eventSubProcess := range scope.element.ChildrenByType(model.ElementEventSubProcess) {
		for _, start := range eventSubProcess.StartEvents() {
			if err := subscribeEvent(ctx, scope, start); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *memContext) subscribe(owner *elementInstanceEntity, element *model.Element) {
	c.ids.subscription++

	subscription := subscriptionEntity{
		id: c.ids.subscription,

		elementInstance: owner,
		element:         element,

		createdAt: c.time,
	}

	if element.Type == model.ElementReceiveTask {
		subscription.subscriptionType = engine.SubscriptionMessage
		if message := element.Model.(model.ReceiveTask).Message; message != nil {
			subscription.name = message.Name
		}
	} else {
		switch element.EventType() {
		case model.EventConditional:
			subscription.subscriptionType = engine.SubscriptionConditional
			subscription.condition = element.EventDefinition.Condition
		case model.EventMessage:
			subscription.subscriptionType = engine.SubscriptionMessage
			subscription.name = element.EventDefinition.Name()
		case model.EventSignal:
			subscription.subscriptionType = engine.SubscriptionSignal
			subscription.name = element.EventDefinition.Name()
		}
	}

	if subscription.subscriptionType == engine.SubscriptionMessage {
		subscription.correlationKey = owner.processInstance.businessKey
	}

	c.subscriptions = append(c.subscriptions, &subscription)
}

// trigger continues an element instance, whose event occurred.
//
// The owner is the element instance, that waits for the event: a catch event, a receive task, an event based
// gateway, an activity with boundary events or a scope with event sub processes.
func trigger(ctx *memContext, owner *elementInstanceEntity, element *model.Element) error {
	if !owner.isActive() {
		return nil
	}

	if err := ctx.step(); err != nil {
		return err
	}

	switch {
	case element.Type == model.ElementBoundaryEvent:
		if element.Model.(model.BoundaryEvent).CancelActivity {
			terminate(ctx, owner)
		}

		boundaryEvent := ctx.newElementInstance(owner.parent, element)
		return leave(ctx, boundaryEvent)
	case element.Type == model.ElementStartEvent && element.Parent.Type == model.ElementEventSubProcess:
		return triggerEventSubProcess(ctx, owner, element)
	case owner.element.Type == model.ElementEventBasedGateway:
		complete(ctx, owner)

		target := ctx.newElementInstance(owner.parent, element)
		return leave(ctx, target)
	default:
		return leave(ctx, owner)
	}
}

func triggerEventSubProcess(ctx *memContext, scope *elementInstanceEntity, start *model.Element) error {
	if start.Model.(model.StartEvent).IsInterrupting {
		for _, child := range scope.children {
			terminate(ctx, child)
		}

		// an interrupted scope cannot be triggered by other event sub processes
		scope.removeEventSubProcessSubscriptions(ctx)
	}

	eventSubProcess := ctx.newElementInstance(scope, start.Parent)
	if err := subscribeEventSubProcesses(ctx, eventSubProcess); err != nil {
		return err
	}

	startEvent := ctx.newElementInstance(eventSubProcess, start)
	return leave(ctx, startEvent)
}

func (e *elementInstanceEntity) removeEventSubProcessSubscriptions(ctx *memContext) {
	for _, subscription := range ctx.subscriptions {
		if subscription.elementInstance == e && subscription.element.Type == model.ElementStartEvent {
			subscription.deleted = true
		}
	}
	for _, task := range ctx.tasks {
		if task.elementInstance == e && task.element.Type == model.ElementStartEvent && task.completedAt == nil {
			task.deleted = true
		}
	}

	ctx.subscriptions = slices.DeleteFunc(ctx.subscriptions, func(e *subscriptionEntity) bool { return e.deleted })
	ctx.tasks = slices.DeleteFunc(ctx.tasks, func(e *taskEntity) bool { return e.deleted })
}

// propagate throws an error, escalation or cancellation at an element instance.
// If no catch event exists, nothing happens.
func propagate(ctx *memContext, elementInstance *elementInstanceEntity, eventType model.EventType, code string) error {
	owner, catchEvent := findCatcher(elementInstance, eventType, code)
	if owner == nil {
		return nil
	}

	ctx.logger.Debug(fmt.Sprintf("%s caught", eventType),
		fieldElementInstance(elementInstance),
		fieldCatchEvent(catchEvent),
	)

	return trigger(ctx, owner, catchEvent)
}

// findCatcher returns the nearest boundary event or event sub process start event, that catches an error,
// escalation or cancellation thrown at an element instance, along with the element instance owning the catch event.
// The search continues from the innermost scope outward, across call activities.
//
// Errors and cancellations are only caught by interrupting events, escalations by both.
func findCatcher(elementInstance *elementInstanceEntity, eventType model.EventType, code string) (*elementInstanceEntity, *model.Element) {
	var prev *elementInstanceEntity

	curr := elementInstance
	for curr != nil {
		element := curr.element

		if element.Type.IsScope() && !curr.isMultiInstance {
			for _, eventSubProcess := range element.ChildrenByType(model.ElementEventSubProcess) {
				if prev != nil && prev.element == eventSubProcess {
					continue // thrown within the event sub process
				}

				for _, start := range eventSubProcess.StartEvents() {
					if (start.Model.(model.StartEvent).IsInterrupting || eventType == model.EventEscalation) && catches(start, eventType, code) {
						return curr, start
					}
				}
			}
		}

		if element.Type.IsActivity() && !curr.isInner() {
			for _, boundaryEvent := range curr.model().AttachedTo(element.Id) {
				if (boundaryEvent.Model.(model.BoundaryEvent).CancelActivity || eventType == model.EventEscalation) && catches(boundaryEvent, eventType, code) {
					return curr, boundaryEvent
				}
			}
		}

		prev = curr
		if curr.parent != nil {
			curr = curr.parent
		} else {
			curr = curr.processInstance.caller
		}
	}

	return nil, nil
}

// isInterrupting reports whether a triggered catch event ends the element instance, owning it.
func isInterrupting(catchEvent *model.Element) bool {
	switch m := catchEvent.Model.(type) {
	case model.BoundaryEvent:
		return m.CancelActivity
	case model.StartEvent:
		return m.IsInterrupting
	default:
		return true
	}
}

// catches reports whether a catch event catches an error, escalation or cancellation.
// A catch event without code catches all codes.
func catches(catchEvent *model.Element, eventType model.EventType, code string) bool {
	if catchEvent.EventType() != eventType {
		return false
	}
	if eventType == model.EventCancel {
		return true
	}

	catchCode := catchEvent.EventDefinition.Name()
	return catchCode == "" || catchCode == code
}

func throw(ctx *memContext, cmd engine.ThrowCmd) error {
	if err := engine.Validate(cmd); err != nil {
		return err
	}

	elementInstance := ctx.elementInstanceById(cmd.ElementInstanceId)
	if elementInstance == nil {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to throw",
			Detail: fmt.Sprintf("element instance %d could not be found", cmd.ElementInstanceId),
		}
	}
	if elementInstance.state != engine.InstanceStarted {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to throw",
			Detail: fmt.Sprintf("element instance %s is not active", elementInstance.ElementInstance()),
		}
	}

	eventType, code := model.EventError, cmd.ErrorCode
	if code == "" {
		eventType, code = model.EventEscalation, cmd.EscalationCode
	}

	owner, catchEvent := findCatcher(elementInstance, eventType, code)
	if owner == nil && eventType == model.EventError {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to throw",
			Detail: fmt.Sprintf("no catch event for error code %s found", code),
		}
	}

	processInstance := elementInstance.processInstance
	ctx.setVariables(processInstance, cmd.Variables)

	if owner != nil {
		if err := trigger(ctx, owner, catchEvent); err != nil {
			return err
		}
	}

	return evaluateConditions(ctx, processInstance)
}
