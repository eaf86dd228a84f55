package mem

import (
	"context"
	"slices"

	"github.com/gclaussn/go-bpmndt/engine"
)

type query struct {
	e *memEngine

	defaultQueryLimit int
	options           engine.QueryOptions
}

func (q *query) QueryDeployments(_ context.Context, c engine.DeploymentCriteria) ([]engine.Deployment, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.deployments, q.options, func(e *deploymentEntity) bool {
		if c.Id != "" && c.Id != e.id {
			return false
		}
		if c.Name != "" && c.Name != e.name {
			return false
		}
		return true
	}, (*deploymentEntity).Deployment), nil
}

func (q *query) QueryElementInstances(_ context.Context, c engine.ElementInstanceCriteria) ([]engine.ElementInstance, error) {
	if err := engine.Validate(c); err != nil {
		return nil, err
	}

	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.elementInstances, q.options, func(e *elementInstanceEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.ParentId != 0 && (e.parent == nil || c.ParentId != e.parent.id) {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.processInstance.id {
			return false
		}
		if c.BpmnElementId != "" && c.BpmnElementId != e.element.Id {
			return false
		}
		if len(c.States) != 0 && !slices.Contains(c.States, e.state) {
			return false
		}
		return true
	}, (*elementInstanceEntity).ElementInstance), nil
}

func (q *query) QueryJobs(_ context.Context, c engine.JobCriteria) ([]engine.Job, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.jobs, q.options, func(e *jobEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.ElementInstanceId != 0 && c.ElementInstanceId != e.elementInstance.id {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.elementInstance.processInstance.id {
			return false
		}
		if c.BpmnElementId != "" && c.BpmnElementId != e.elementInstance.element.Id {
			return false
		}
		if c.ExcludeCompleted && e.completedAt != nil {
			return false
		}
		return true
	}, (*jobEntity).Job), nil
}

func (q *query) QueryProcesses(_ context.Context, c engine.ProcessCriteria) ([]engine.Process, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.processes, q.options, func(e *processEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.BpmnProcessId != "" && c.BpmnProcessId != e.element.Id {
			return false
		}
		if c.DeploymentId != "" && c.DeploymentId != e.deployment.id {
			return false
		}
		return true
	}, (*processEntity).Process), nil
}

func (q *query) QueryProcessInstances(_ context.Context, c engine.ProcessInstanceCriteria) ([]engine.ProcessInstance, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.processInstances, q.options, func(e *processInstanceEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.ParentId != 0 && (e.parent == nil || c.ParentId != e.parent.id) {
			return false
		}
		if c.ProcessId != 0 && c.ProcessId != e.process.id {
			return false
		}
		if c.BpmnProcessId != "" && c.BpmnProcessId != e.process.element.Id {
			return false
		}
		if c.BusinessKey != "" && c.BusinessKey != e.businessKey {
			return false
		}
		return true
	}, (*processInstanceEntity).ProcessInstance), nil
}

func (q *query) QuerySubscriptions(_ context.Context, c engine.SubscriptionCriteria) ([]engine.Subscription, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.subscriptions, q.options, func(e *subscriptionEntity) bool {
		if c.ElementInstanceId != 0 && c.ElementInstanceId != e.elementInstance.id {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.elementInstance.processInstance.id {
			return false
		}
		if c.BpmnElementId != "" && c.BpmnElementId != e.element.Id {
			return false
		}
		if c.Name != "" && c.Name != e.name {
			return false
		}
		if c.Type != 0 && c.Type != e.subscriptionType {
			return false
		}
		return true
	}, (*subscriptionEntity).Subscription), nil
}

func (q *query) QueryTasks(_ context.Context, c engine.TaskCriteria) ([]engine.Task, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.tasks, q.options, func(e *taskEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.ElementInstanceId != 0 && c.ElementInstanceId != e.elementInstance.id {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.elementInstance.processInstance.id {
			return false
		}
		if c.BpmnElementId != "" && c.BpmnElementId != e.element.Id {
			return false
		}
		if c.ExcludeCompleted && e.completedAt != nil {
			return false
		}
		if c.Type != 0 && c.Type != e.taskType {
			return false
		}
		return true
	}, (*taskEntity).Task), nil
}

func (q *query) QueryUserTasks(_ context.Context, c engine.UserTaskCriteria) ([]engine.UserTask, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.userTasks, q.options, func(e *userTaskEntity) bool {
		if c.Id != 0 && c.Id != e.id {
			return false
		}
		if c.ElementInstanceId != 0 && c.ElementInstanceId != e.elementInstance.id {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.elementInstance.processInstance.id {
			return false
		}
		if c.Assignee != "" && c.Assignee != e.assignee {
			return false
		}
		if c.BpmnElementId != "" && c.BpmnElementId != e.elementInstance.element.Id {
			return false
		}
		if c.ExcludeCompleted && e.completedAt != nil {
			return false
		}
		return true
	}, (*userTaskEntity).UserTask), nil
}

func (q *query) QueryVariables(_ context.Context, c engine.VariableCriteria) ([]engine.Variable, error) {
	defer q.e.unlock()
	ctx := q.e.rlock()

	return queryEntities(ctx.variables, q.options, func(e *variableEntity) bool {
		if c.ElementInstanceId != 0 && (e.elementInstance == nil || c.ElementInstanceId != e.elementInstance.id) {
			return false
		}
		if c.ProcessInstanceId != 0 && c.ProcessInstanceId != e.processInstance.id {
			return false
		}
		if len(c.Names) != 0 && !slices.Contains(c.Names, e.name) {
			return false
		}
		return true
	}, (*variableEntity).Variable), nil
}

func (q *query) SetOptions(options engine.QueryOptions) {
	if options.Limit <= 0 {
		options.Limit = q.defaultQueryLimit
	}

	q.options = options
}

// queryEntities filters entities and converts the results, considering offset and limit of the query options.
func queryEntities[E any, R any](entities []E, o engine.QueryOptions, filter func(E) bool, convert func(E) R) []R {
	var (
		results []R
		offset  int
	)

	for _, e := range entities {
		if !filter(e) {
			continue
		}

		if offset < o.Offset {
			offset++
			continue
		}

		results = append(results, convert(e))

		if o.Limit > 0 && len(results) == o.Limit {
			break
		}
	}

	return results
}
