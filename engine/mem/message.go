package mem

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

// sendMessage correlates a message with the first matching message subscription.
// If no subscription matches, a process instance is created at a matching message start event.
func sendMessage(ctx *memContext, cmd engine.SendMessageCmd) (engine.Message, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.Message{}, err
	}

	ctx.ids.message++

	message := engine.Message{
		Id: ctx.ids.message,

		CorrelationKey: cmd.CorrelationKey,
		CreatedAt:      ctx.time,
		CreatedBy:      cmd.WorkerId,
		IsCorrelated:   true,
		Name:           cmd.Name,
	}

	var subscription *subscriptionEntity
	for _, e := range ctx.subscriptions {
		if e.subscriptionType != engine.SubscriptionMessage || e.name != cmd.Name {
			continue
		}
		if cmd.ProcessInstanceId != 0 && cmd.ProcessInstanceId != e.elementInstance.processInstance.id {
			continue
		}
		if cmd.CorrelationKey != "" && cmd.CorrelationKey != e.correlationKey {
			continue
		}

		subscription = e
		break
	}

	if subscription != nil {
		ctx.messages = append(ctx.messages, message)

		processInstance := subscription.elementInstance.processInstance
		ctx.setVariables(processInstance, cmd.Variables)

		if err := trigger(ctx, subscription.elementInstance, subscription.element); err != nil {
			return engine.Message{}, err
		}
		if err := evaluateConditions(ctx, processInstance); err != nil {
			return engine.Message{}, err
		}

		return message, nil
	}

	if cmd.ProcessInstanceId == 0 {
		for _, process := range ctx.latestProcesses() {
			for _, start := range process.element.StartEvents() {
				if start.EventType() != model.EventMessage || start.EventDefinition.Name() != cmd.Name {
					continue
				}

				ctx.messages = append(ctx.messages, message)

				processInstance := ctx.newProcessInstance(process, cmd.CorrelationKey, cmd.WorkerId, nil)
				ctx.setVariables(processInstance, cmd.Variables)

				if err := startProcessInstance(ctx, processInstance, start); err != nil {
					return engine.Message{}, err
				}

				return message, nil
			}
		}
	}

	return engine.Message{}, engine.Error{
		Type:   engine.ErrorNotFound,
		Title:  "failed to send message",
		Detail: fmt.Sprintf("no subscriber for message %s found", cmd.Name),
	}
}
