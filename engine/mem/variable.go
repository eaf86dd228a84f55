package mem

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
)

// setVariable sets or, if the value is nil, deletes a variable. Without an element instance, the variable is set at
// process instance scope.
func (c *memContext) setVariable(processInstance *processInstanceEntity, elementInstance *elementInstanceEntity, name string, value any) {
	for i, e := range c.variables {
		if e.processInstance != processInstance || e.elementInstance != elementInstance || e.name != name {
			continue
		}

		if value == nil {
			c.variables = slices.Delete(c.variables, i, i+1)
		} else {
			e.updatedAt = c.time
			e.value = value
		}
		return
	}

	if value == nil {
		return
	}

	c.variables = append(c.variables, &variableEntity{
		processInstance: processInstance,
		elementInstance: elementInstance,

		createdAt: c.time,
		name:      name,
		updatedAt: c.time,
		value:     value,
	})
}

func (c *memContext) setVariables(processInstance *processInstanceEntity, variables map[string]any) {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		c.setVariable(processInstance, nil, name, variables[name])
	}
}

func (c *memContext) processVariables(processInstance *processInstanceEntity) map[string]any {
	variables := make(map[string]any)
	for _, e := range c.variables {
		if e.processInstance == processInstance && e.elementInstance == nil {
			variables[e.name] = e.value
		}
	}
	return variables
}

// visibleVariables returns the process variables, overlaid by the local variables of an element instance and its
// enclosing scopes. Inner local variables shadow outer ones.
func (c *memContext) visibleVariables(elementInstance *elementInstanceEntity) map[string]any {
	variables := c.processVariables(elementInstance.processInstance)

	var scopes []*elementInstanceEntity
	for curr := elementInstance; curr != nil; curr = curr.parent {
		scopes = append(scopes, curr)
	}
	slices.Reverse(scopes)

	for _, scope := range scopes {
		for _, e := range c.variables {
			if e.elementInstance == scope {
				variables[e.name] = e.value
			}
		}
	}
	return variables
}

// evaluateConditions triggers the conditional subscriptions of a process instance, whose conditions are satisfied.
func evaluateConditions(ctx *memContext, processInstance *processInstanceEntity) error {
	var subscriptions []*subscriptionEntity
	for _, subscription := range ctx.subscriptions {
		if subscription.subscriptionType != engine.SubscriptionConditional {
			continue
		}
		if subscription.elementInstance.processInstance == processInstance {
			subscriptions = append(subscriptions, subscription)
		}
	}

	for _, subscription := range subscriptions {
		if subscription.deleted {
			continue // removed by a previously triggered subscription
		}

		owner := subscription.elementInstance

		ok, err := evaluateEventCondition(ctx, owner, subscription.condition)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if err := trigger(ctx, owner, subscription.element); err != nil {
			return err
		}
	}

	return nil
}

func getElementVariables(ctx *memContext, cmd engine.GetElementVariablesCmd) (map[string]any, error) {
	if err := engine.Validate(cmd); err != nil {
		return nil, err
	}

	elementInstance := ctx.elementInstanceById(cmd.ElementInstanceId)
	if elementInstance == nil {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get element variables",
			Detail: fmt.Sprintf("element instance %d could not be found", cmd.ElementInstanceId),
		}
	}

	variables := make(map[string]any)
	for _, e := range ctx.variables {
		if e.elementInstance != elementInstance {
			continue
		}
		if len(cmd.Names) != 0 && !slices.Contains(cmd.Names, e.name) {
			continue
		}
		variables[e.name] = e.value
	}
	return variables, nil
}

func getProcessVariables(ctx *memContext, cmd engine.GetProcessVariablesCmd) (map[string]any, error) {
	if err := engine.Validate(cmd); err != nil {
		return nil, err
	}

	processInstance := ctx.processInstanceById(cmd.ProcessInstanceId)
	if processInstance == nil {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get process variables",
			Detail: fmt.Sprintf("process instance %d could not be found", cmd.ProcessInstanceId),
		}
	}

	variables := ctx.processVariables(processInstance)
	if len(cmd.Names) != 0 {
		for name := range variables {
			if !slices.Contains(cmd.Names, name) {
				delete(variables, name)
			}
		}
	}
	return variables, nil
}

func setProcessVariables(ctx *memContext, cmd engine.SetProcessVariablesCmd) error {
	if err := engine.Validate(cmd); err != nil {
		return err
	}

	processInstance := ctx.processInstanceById(cmd.ProcessInstanceId)
	if processInstance == nil {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to set process variables",
			Detail: fmt.Sprintf("process instance %d could not be found", cmd.ProcessInstanceId),
		}
	}
	if processInstance.isEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set process variables",
			Detail: fmt.Sprintf("process instance %s is ended", processInstance.ProcessInstance()),
		}
	}

	ctx.setVariables(processInstance, cmd.Variables)

	return evaluateConditions(ctx, processInstance)
}
