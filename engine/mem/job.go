package mem

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

func (c *memContext) createJob(elementInstance *elementInstanceEntity, jobType engine.JobType, topic string) {
	c.ids.job++

	c.jobs = append(c.jobs, &jobEntity{
		id: c.ids.job,

		elementInstance: elementInstance,

		createdAt: c.time,
		dueAt:     c.time,
		jobType:   jobType,
		topic:     topic,
	})
}

func lockJobs(ctx *memContext, cmd engine.LockJobsCmd) ([]engine.Job, error) {
	if err := engine.Validate(cmd); err != nil {
		return nil, err
	}

	limit := cmd.Limit
	if limit == 0 {
		limit = 1000
	}

	var results []engine.Job
	for _, e := range ctx.jobs {
		if len(results) == limit {
			break
		}

		if e.lockedAt != nil || e.completedAt != nil || ctx.time.Before(e.dueAt) {
			continue
		}

		if cmd.Id != 0 && cmd.Id != e.id {
			continue
		}
		if cmd.ElementInstanceId != 0 && cmd.ElementInstanceId != e.elementInstance.id {
			continue
		}
		if cmd.ProcessInstanceId != 0 && cmd.ProcessInstanceId != e.elementInstance.processInstance.id {
			continue
		}
		if cmd.BpmnElementId != "" && cmd.BpmnElementId != e.elementInstance.element.Id {
			continue
		}

		e.lockedAt = timePtr(ctx.time)
		e.lockedBy = cmd.WorkerId

		results = append(results, e.Job())
	}

	return results, nil
}

func completeJob(ctx *memContext, cmd engine.CompleteJobCmd) (engine.Job, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.Job{}, err
	}

	job := ctx.jobById(cmd.Id)
	if job == nil {
		return engine.Job{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to complete job",
			Detail: fmt.Sprintf("job %d could not be found", cmd.Id),
		}
	}
	if job.completedAt != nil {
		return engine.Job{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to complete job",
			Detail: fmt.Sprintf("job %d is completed", cmd.Id),
		}
	}
	if job.lockedAt == nil || job.lockedBy != cmd.WorkerId {
		return engine.Job{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to complete job",
			Detail: fmt.Sprintf("job %d is not locked by worker %s", cmd.Id, cmd.WorkerId),
		}
	}

	completion := cmd.Completion
	if completion == nil {
		completion = &engine.JobCompletion{}
	}

	elementInstance := job.elementInstance
	element := elementInstance.element

	var (
		sequenceFlows []*model.SequenceFlow
		err           error
	)

	switch job.jobType {
	case engine.JobEvaluateExclusiveGateway:
		var decisions []string
		if completion.ExclusiveGatewayDecision != "" {
			decisions = append(decisions, completion.ExclusiveGatewayDecision)
		}
		sequenceFlows, err = decide(element, decisions)
	case engine.JobEvaluateInclusiveGateway:
		sequenceFlows, err = decide(element, completion.InclusiveGatewayDecision)
	}
	if err != nil {
		return engine.Job{}, err
	}

	var (
		owner      *elementInstanceEntity
		catchEvent *model.Element
	)

	if completion.ErrorCode != "" {
		owner, catchEvent = findCatcher(elementInstance, model.EventError, completion.ErrorCode)
		if owner == nil {
			return engine.Job{}, engine.Error{
				Type:   engine.ErrorConflict,
				Title:  "failed to complete job",
				Detail: fmt.Sprintf("no catch event for error code %s found", completion.ErrorCode),
			}
		}
	} else if completion.EscalationCode != "" {
		owner, catchEvent = findCatcher(elementInstance, model.EventEscalation, completion.EscalationCode)
	}

	job.completedAt = timePtr(ctx.time)
	job.completedBy = cmd.WorkerId

	processInstance := elementInstance.processInstance
	ctx.setVariables(processInstance, cmd.ProcessVariables)

	switch {
	case sequenceFlows != nil:
		err = take(ctx, elementInstance, sequenceFlows)
	case owner != nil:
		err = trigger(ctx, owner, catchEvent)
		if err == nil && !isInterrupting(catchEvent) && elementInstance.state == engine.InstanceStarted {
			err = leave(ctx, elementInstance)
		}
	default:
		err = leave(ctx, elementInstance)
	}
	if err != nil {
		return engine.Job{}, err
	}

	if err := evaluateConditions(ctx, processInstance); err != nil {
		return engine.Job{}, err
	}

	return job.Job(), nil
}
