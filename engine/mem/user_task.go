package mem

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func createUserTask(ctx *memContext, elementInstance *elementInstanceEntity) error {
	userTaskModel, _ := elementInstance.element.Model.(model.UserTask)

	assignee, err := evaluateString(ctx, elementInstance, userTaskModel.Assignee)
	if err != nil {
		return err
	}

	ctx.ids.userTask++

	ctx.userTasks = append(ctx.userTasks, &userTaskEntity{
		id: ctx.ids.userTask,

		elementInstance: elementInstance,

		assignee:        assignee,
		candidateGroups: userTaskModel.CandidateGroups,
		candidateUsers:  userTaskModel.CandidateUsers,
		createdAt:       ctx.time,
		formKey:         userTaskModel.FormKey,
	})

	return nil
}

func completeUserTask(ctx *memContext, cmd engine.CompleteUserTaskCmd) (engine.UserTask, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.UserTask{}, err
	}

	userTask := ctx.userTaskById(cmd.Id)
	if userTask == nil {
		return engine.UserTask{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to complete user task",
			Detail: fmt.Sprintf("user task %d could not be found", cmd.Id),
		}
	}
	if userTask.completedAt != nil {
		return engine.UserTask{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to complete user task",
			Detail: fmt.Sprintf("user task %d is completed", cmd.Id),
		}
	}

	elementInstance := userTask.elementInstance

	var (
		owner      *elementInstanceEntity
		catchEvent *model.Element
	)

	if cmd.ErrorCode != "" {
		owner, catchEvent = findCatcher(elementInstance, model.EventError, cmd.ErrorCode)
		if owner == nil {
			return engine.UserTask{}, engine.Error{
				Type:   engine.ErrorConflict,
				Title:  "failed to complete user task",
				Detail: fmt.Sprintf("no catch event for error code %s found", cmd.ErrorCode),
			}
		}
	} else if cmd.EscalationCode != "" {
		owner, catchEvent = findCatcher(elementInstance, model.EventEscalation, cmd.EscalationCode)
	}

	if cmd.Assignee != "" {
		userTask.assignee = cmd.Assignee
	}

	userTask.completedAt = timePtr(ctx.time)
	userTask.completedBy = cmd.WorkerId

	processInstance := elementInstance.processInstance
	ctx.setVariables(processInstance, cmd.Variables)

	var err error
	if owner != nil {
		err = trigger(ctx, owner, catchEvent)
		if err == nil && !isInterrupting(catchEvent) && elementInstance.state == engine.InstanceStarted {
			err = leave(ctx, elementInstance)
		}
	} else {
		err = leave(ctx, elementInstance)
	}
	if err != nil {
		return engine.UserTask{}, err
	}

	if err := evaluateConditions(ctx, processInstance); err != nil {
		return engine.UserTask{}, err
	}

	return userTask.UserTask(), nil
}
