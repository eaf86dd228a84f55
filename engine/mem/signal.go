package mem

import (
	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func sendSignal(ctx *memContext, cmd engine.SendSignalCmd) (engine.Signal, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.Signal{}, err
	}

	return broadcastSignal(ctx, cmd.Name, cmd.Variables, cmd.WorkerId)
}

// broadcastSignal notifies all signal subscriptions with the given name and creates a process instance for each
// signal start event.
func broadcastSignal(ctx *memContext, name string, variables map[string]any, createdBy string) (engine.Signal, error) {
	var subscriptions []*subscriptionEntity
	for _, e := range ctx.subscriptions {
		if e.subscriptionType == engine.SubscriptionSignal && e.name == name {
			subscriptions = append(subscriptions, e)
		}
	}

	var subscriberCount int
	for _, subscription := range subscriptions {
		if subscription.deleted || !subscription.elementInstance.isActive() {
			continue // removed by a previously notified subscription
		}

		processInstance := subscription.elementInstance.processInstance
		ctx.setVariables(processInstance, variables)

		if err := trigger(ctx, subscription.elementInstance, subscription.element); err != nil {
			return engine.Signal{}, err
		}
		if err := evaluateConditions(ctx, processInstance); err != nil {
			return engine.Signal{}, err
		}

		subscriberCount++
	}

	for _, process := range ctx.latestProcesses() {
		for _, start := range process.element.StartEvents() {
			if start.EventType() != model.EventSignal || start.EventDefinition.Name() != name {
				continue
			}

			processInstance := ctx.newProcessInstance(process, "", createdBy, nil)
			ctx.setVariables(processInstance, variables)

			if err := startProcessInstance(ctx, processInstance, start); err != nil {
				return engine.Signal{}, err
			}

			subscriberCount++
		}
	}

	ctx.ids.signal++

	signal := engine.Signal{
		Id: ctx.ids.signal,

		CreatedAt:       ctx.time,
		CreatedBy:       createdBy,
		Name:            name,
		SubscriberCount: subscriberCount,
	}

	ctx.signals = append(ctx.signals, signal)
	return signal, nil
}
