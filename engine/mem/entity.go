package mem

import (
	"time"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
)

type deploymentEntity struct {
	id string

	bpmnXml   string
	createdAt time.Time
	createdBy string
	model     *model.Model
	name      string
	processes []*processEntity
	resources map[string]string
}

func (e *deploymentEntity) Deployment() engine.Deployment {
	processes := make([]engine.Process, len(e.processes))
	for i, process := range e.processes {
		processes[i] = process.Process()
	}

	return engine.Deployment{
		Id: e.id,

		CreatedAt: e.createdAt,
		CreatedBy: e.createdBy,
		Name:      e.name,
		Processes: processes,
		Resources: e.resources,
	}
}

type processEntity struct {
	id int32

	deployment *deploymentEntity
	element    *model.Element

	createdAt time.Time
	version   int
}

func (e *processEntity) Process() engine.Process {
	return engine.Process{
		Id: e.id,

		DeploymentId: e.deployment.id,

		BpmnProcessId: e.element.Id,
		CreatedAt:     e.createdAt,
		Version:       e.version,
	}
}

type processInstanceEntity struct {
	id int32

	parent  *processInstanceEntity
	root    *processInstanceEntity
	process *processEntity

	caller *elementInstanceEntity // call activity, that started the process instance
	scope  *elementInstanceEntity // element instance of the process element

	businessKey string
	createdAt   time.Time
	createdBy   string
	endedAt     *time.Time
	state       engine.InstanceState
}

func (e *processInstanceEntity) ProcessInstance() engine.ProcessInstance {
	var parentId int32
	if e.parent != nil {
		parentId = e.parent.id
	}

	return engine.ProcessInstance{
		Id: e.id,

		ParentId: parentId,
		RootId:   e.root.id,

		ProcessId: e.process.id,

		BpmnProcessId: e.process.element.Id,
		BusinessKey:   e.businessKey,
		CreatedAt:     e.createdAt,
		CreatedBy:     e.createdBy,
		EndedAt:       e.endedAt,
		State:         e.state,
		Version:       e.process.version,
	}
}

func (e *processInstanceEntity) isEnded() bool {
	return e.state.IsEnded()
}

func (e *processInstanceEntity) model() *model.Model {
	return e.process.deployment.model
}

type elementInstanceEntity struct {
	id int32

	parent          *elementInstanceEntity
	children        []*elementInstanceEntity
	processInstance *processInstanceEntity

	element *model.Element

	createdAt       time.Time
	endedAt         *time.Time
	isMultiInstance bool // multi instance body
	startedAt       *time.Time
	state           engine.InstanceState

	arrived []*model.SequenceFlow  // sequence flows, a joining gateway has been reached through
	child   *processInstanceEntity // process instance, started by a call activity
	loop    *loopState             // state of a multi instance body
}

func (e *elementInstanceEntity) ElementInstance() engine.ElementInstance {
	var parentId int32
	if e.parent != nil {
		parentId = e.parent.id
	}

	return engine.ElementInstance{
		Id: e.id,

		ParentId: parentId,

		ProcessId:         e.processInstance.process.id,
		ProcessInstanceId: e.processInstance.id,

		BpmnElementId:   e.element.Id,
		BpmnElementType: e.element.Type,
		CreatedAt:       e.createdAt,
		EndedAt:         e.endedAt,
		IsMultiInstance: e.isMultiInstance,
		StartedAt:       e.startedAt,
		State:           e.state,
	}
}

func (e *elementInstanceEntity) isActive() bool {
	return e.state == engine.InstanceCreated || e.state == engine.InstanceStarted
}

// isInner reports whether the element instance is an instance of a multi instance activity.
func (e *elementInstanceEntity) isInner() bool {
	return e.parent != nil && e.parent.isMultiInstance
}

func (e *elementInstanceEntity) model() *model.Model {
	return e.processInstance.model()
}

type jobEntity struct {
	id int32

	elementInstance *elementInstanceEntity

	completedAt *time.Time
	completedBy string
	createdAt   time.Time
	dueAt       time.Time
	lockedAt    *time.Time
	lockedBy    string
	jobType     engine.JobType
	topic       string
}

func (e *jobEntity) Job() engine.Job {
	processInstance := e.elementInstance.processInstance

	return engine.Job{
		Id: e.id,

		ElementInstanceId: e.elementInstance.id,
		ProcessId:         processInstance.process.id,
		ProcessInstanceId: processInstance.id,

		BpmnElementId: e.elementInstance.element.Id,
		BusinessKey:   processInstance.businessKey,
		CompletedAt:   e.completedAt,
		CompletedBy:   e.completedBy,
		CreatedAt:     e.createdAt,
		DueAt:         e.dueAt,
		LockedAt:      e.lockedAt,
		LockedBy:      e.lockedBy,
		Topic:         e.topic,
		Type:          e.jobType,
	}
}

type subscriptionEntity struct {
	id int32

	elementInstance *elementInstanceEntity // owner
	element         *model.Element         // catching element

	condition        string
	correlationKey   string
	createdAt        time.Time
	name             string
	subscriptionType engine.SubscriptionType

	deleted bool
}

func (e *subscriptionEntity) Subscription() engine.Subscription {
	return engine.Subscription{
		Id: e.id,

		ElementInstanceId: e.elementInstance.id,
		ProcessInstanceId: e.elementInstance.processInstance.id,

		BpmnElementId:  e.element.Id,
		Condition:      e.condition,
		CorrelationKey: e.correlationKey,
		CreatedAt:      e.createdAt,
		Name:           e.name,
		Type:           e.subscriptionType,
	}
}

type taskEntity struct {
	id int32

	elementInstance *elementInstanceEntity // owner
	element         *model.Element         // timer event

	completedAt *time.Time
	createdAt   time.Time
	dueAt       time.Time
	error       string
	taskType    engine.TaskType
	timer       engine.Timer

	deleted bool
}

func (e *taskEntity) Task() engine.Task {
	timer := e.timer

	return engine.Task{
		Id: e.id,

		ElementInstanceId: e.elementInstance.id,
		ProcessInstanceId: e.elementInstance.processInstance.id,

		BpmnElementId: e.element.Id,
		CompletedAt:   e.completedAt,
		CreatedAt:     e.createdAt,
		DueAt:         e.dueAt,
		Error:         e.error,
		Timer:         &timer,
		Type:          e.taskType,
	}
}

type userTaskEntity struct {
	id int32

	elementInstance *elementInstanceEntity

	assignee        string
	candidateGroups []string
	candidateUsers  []string
	completedAt     *time.Time
	completedBy     string
	createdAt       time.Time
	formKey         string
}

func (e *userTaskEntity) UserTask() engine.UserTask {
	return engine.UserTask{
		Id: e.id,

		ElementInstanceId: e.elementInstance.id,
		ProcessInstanceId: e.elementInstance.processInstance.id,

		Assignee:        e.assignee,
		BpmnElementId:   e.elementInstance.element.Id,
		CandidateGroups: e.candidateGroups,
		CandidateUsers:  e.candidateUsers,
		CompletedAt:     e.completedAt,
		CompletedBy:     e.completedBy,
		CreatedAt:       e.createdAt,
		FormKey:         e.formKey,
		Name:            e.elementInstance.element.Name,
	}
}

type variableEntity struct {
	processInstance *processInstanceEntity
	elementInstance *elementInstanceEntity // nil at process instance scope

	createdAt time.Time
	name      string
	updatedAt time.Time
	value     any
}

func (e *variableEntity) Variable() engine.Variable {
	var elementInstanceId int32
	if e.elementInstance != nil {
		elementInstanceId = e.elementInstance.id
	}

	return engine.Variable{
		ElementInstanceId: elementInstanceId,
		ProcessInstanceId: e.processInstance.id,

		CreatedAt: e.createdAt,
		Name:      e.name,
		UpdatedAt: e.updatedAt,
		Value:     e.value,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
