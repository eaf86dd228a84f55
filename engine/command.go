package engine

import (
	"time"
)

// CompleteJobCmd provides data for the completion of a locked job.
type CompleteJobCmd struct {
	// Job ID.
	Id int32 `json:"-" validate:"required"`

	// Optional completion, used to decide a gateway or to throw a BPMN error or escalation.
	Completion *JobCompletion `json:"completion,omitempty"`
	// Variables to set or delete at process instance scope. For a variable deletion, a nil value must be provided.
	ProcessVariables map[string]any `json:"processVariables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that locked and completes the job.
	WorkerId string `json:"workerId" validate:"required"`
}

// CompleteUserTaskCmd provides data for the completion of a user task.
type CompleteUserTaskCmd struct {
	// User task ID.
	Id int32 `json:"-" validate:"required"`

	// Optional assignee, the user task is claimed for, before it is completed.
	Assignee string `json:"assignee,omitempty"`
	// Optional code of a BPMN error, thrown instead of completing the user task.
	ErrorCode string `json:"errorCode,omitempty"`
	// Optional code of a BPMN escalation, thrown instead of completing the user task.
	EscalationCode string `json:"escalationCode,omitempty"`
	// Variables to set or delete at process instance scope. For a variable deletion, a nil value must be provided.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that completes the user task.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateDeploymentCmd provides data for the deployment of a BPMN XML.
type CreateDeploymentCmd struct {
	// Model of the BPMN processes as XML.
	BpmnXml string `json:"bpmnXml" validate:"required"`
	// Name of the deployment, e.g. the BPMN file name.
	Name string `json:"name" validate:"required"`
	// Auxiliary resources like DMN decision tables, deployed alongside the BPMN XML, keyed by resource name.
	Resources map[string]string `json:"resources,omitempty" validate:"max=100"`
	// ID of the worker that created the deployment.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateProcessInstanceCmd provides data for the creation of a process instance.
type CreateProcessInstanceCmd struct {
	// BPMN ID of a deployed process.
	BpmnProcessId string `json:"bpmnProcessId" validate:"required"`
	// Optional BPMN ID of the start event to start at. If empty, the process's none start event is used.
	BpmnStartElementId string `json:"bpmnStartElementId,omitempty"`
	// Optional key, used to correlate a process instance with a business entity.
	BusinessKey string `json:"businessKey,omitempty"`
	// Variables to set at process instance scope.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that created the process instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// DeleteDeploymentCmd is a command for deleting a deployment.
type DeleteDeploymentCmd struct {
	// Deployment ID.
	Id string `json:"-" validate:"required"`

	// Determines if all process instances of the deployed processes are deleted as well.
	// If false and a related process instance exists, an error of type [ErrorConflict] is returned.
	Cascade bool `json:"cascade,omitempty"`
}

// ExecuteTasksCmd specifies which due tasks are executed by an engine.
type ExecuteTasksCmd struct {
	// Task condition.
	Id int32 `json:"id,omitempty"`

	// Element instance condition.
	ElementInstanceId int32 `json:"elementInstanceId,omitempty"`
	// Process instance condition.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"`
	// BPMN element condition.
	BpmnElementId string `json:"bpmnElementId,omitempty"`
	// Task type condition.
	Type TaskType `json:"type,omitempty"`

	// Maximum number of tasks to execute. If 0, up to 1000 tasks are executed.
	Limit int `json:"limit,omitempty" validate:"omitempty,gte=1,lte=1000"`
}

// GetElementVariablesCmd is used to get the local variables of a specific element instance.
type GetElementVariablesCmd struct {
	// Element instance ID.
	ElementInstanceId int32 `json:"-" validate:"required"`

	// Names of element variables to get.
	// If empty, all variables are included.
	Names []string `json:"-"`
}

// GetProcessVariablesCmd is used to get the variables of a specific process instance.
type GetProcessVariablesCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-" validate:"required"`

	// Names of process variables to get.
	// If empty, all variables are included.
	Names []string `json:"-"`
}

// LockJobsCmd specifies which due jobs are locked by a worker.
type LockJobsCmd struct {
	// Job condition.
	Id int32 `json:"id,omitempty"`

	// Element instance condition.
	ElementInstanceId int32 `json:"elementInstanceId,omitempty"`
	// Process instance condition.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"`
	// BPMN element condition.
	BpmnElementId string `json:"bpmnElementId,omitempty"`

	// Maximum number of jobs to lock. If 0, up to 1000 jobs are locked.
	Limit int `json:"limit,omitempty" validate:"omitempty,gte=1,lte=1000"`
	// ID of the worker that locks the jobs.
	WorkerId string `json:"workerId" validate:"required"`
}

// SendMessageCmd is used to notify a message subscriber.
type SendMessageCmd struct {
	// Optional key, used to correlate a process instance with the message.
	// If set, only subscriptions of process instances with an equal business key are notified.
	CorrelationKey string `json:"correlationKey,omitempty"`
	// Message name.
	Name string `json:"name" validate:"required"`
	// Optional process instance condition.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"`
	// Variables to set at process instance scope.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that sent the message.
	WorkerId string `json:"workerId" validate:"required"`
}

// SendSignalCmd is used to notify all subscribers.
type SendSignalCmd struct {
	// Signal name.
	Name string `json:"name" validate:"required"`
	// Variables to set at process instance scope of each notified process instance.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that sent the signal.
	WorkerId string `json:"workerId" validate:"required"`
}

// SetProcessVariablesCmd is used to set or delete variables at process instance scope.
type SetProcessVariablesCmd struct {
	// Process instance ID.
	ProcessInstanceId int32 `json:"-" validate:"required"`

	// Variables to set or delete. For a variable deletion, a nil value must be provided.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that set the variables.
	WorkerId string `json:"workerId" validate:"required"`
}

// SetTimeCmd is a command for increasing the engine's time for testing purposes.
type SetTimeCmd struct {
	// A future point in time.
	Time time.Time `json:"time" validate:"required"`
}

// ThrowCmd is used to throw a BPMN error or escalation at an active element instance.
//
// A BPMN error is caught by the nearest error boundary event or error event sub process, that matches the error code.
// If no catch event matches, an error of type [ErrorConflict] is returned.
// A BPMN escalation is caught the same way, but an uncaught escalation has no effect.
type ThrowCmd struct {
	// Element instance ID.
	ElementInstanceId int32 `json:"-" validate:"required"`

	// Code of the BPMN error to throw.
	ErrorCode string `json:"errorCode,omitempty" validate:"required_without=EscalationCode"`
	// Code of the BPMN escalation to throw.
	EscalationCode string `json:"escalationCode,omitempty" validate:"required_without=ErrorCode"`
	// Variables to set at process instance scope, before the error or escalation is thrown.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// ID of the worker that throws.
	WorkerId string `json:"workerId" validate:"required"`
}

// command related types

// A job completion is used to complete jobs of various types.
type JobCompletion struct {
	// Code of a BPMN error, thrown instead of completing the job's element.
	// Applicable when job type is `CALL_ACTIVITY` or `EXECUTE`.
	ErrorCode string `json:"errorCode,omitempty"`
	// Code of a BPMN escalation, thrown before the job's element is completed.
	// Applicable when job type is `CALL_ACTIVITY` or `EXECUTE`.
	EscalationCode string `json:"escalationCode,omitempty"`
	// ID of the sequence flow or BPMN element to continue with after the exclusive gateway.
	// Applicable when job type is `EVALUATE_EXCLUSIVE_GATEWAY`.
	ExclusiveGatewayDecision string `json:"exclusiveGatewayDecision,omitempty"`
	// IDs of the sequence flows or BPMN elements to continue with after the inclusive gateway.
	// Applicable when job type is `EVALUATE_INCLUSIVE_GATEWAY`.
	InclusiveGatewayDecision []string `json:"inclusiveGatewayDecision,omitempty" validate:"unique"`
}
