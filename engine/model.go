package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gclaussn/go-bpmndt/model"
)

// HistoryLevel determines which ended entities are kept by an engine.
//
//   - [HistoryNone]: ended instances, completed jobs, tasks and user tasks are removed
//   - [HistoryActivity]: ended process and element instances are kept, completed jobs, tasks and user tasks are removed
//   - [HistoryFull]: everything is kept, including variables of ended process instances
type HistoryLevel int

const (
	HistoryNone HistoryLevel = iota + 1
	HistoryActivity
	HistoryFull
)

func MapHistoryLevel(s string) HistoryLevel {
	switch s {
	case "NONE":
		return HistoryNone
	case "ACTIVITY":
		return HistoryActivity
	case "FULL":
		return HistoryFull
	default:
		return 0
	}
}

func (v HistoryLevel) String() string {
	switch v {
	case HistoryNone:
		return "NONE"
	case HistoryActivity:
		return "ACTIVITY"
	case HistoryFull:
		return "FULL"
	default:
		return ""
	}
}

// InstanceState describes possible process instance and element instance states.
type InstanceState int

const (
	InstanceCanceled InstanceState = iota + 1
	InstanceCompleted
	InstanceCreated
	InstanceStarted
	InstanceTerminated
)

func MapInstanceState(s string) InstanceState {
	switch s {
	case "CANCELED":
		return InstanceCanceled
	case "COMPLETED":
		return InstanceCompleted
	case "CREATED":
		return InstanceCreated
	case "STARTED":
		return InstanceStarted
	case "TERMINATED":
		return InstanceTerminated
	default:
		return 0
	}
}

// IsEnded reports whether the state is a final state.
func (v InstanceState) IsEnded() bool {
	return v == InstanceCanceled || v == InstanceCompleted || v == InstanceTerminated
}

func (v InstanceState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v InstanceState) String() string {
	switch v {
	case InstanceCanceled:
		return "CANCELED"
	case InstanceCompleted:
		return "COMPLETED"
	case InstanceCreated:
		return "CREATED"
	case InstanceStarted:
		return "STARTED"
	case InstanceTerminated:
		return "TERMINATED"
	default:
		return ""
	}
}

func (v *InstanceState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapInstanceState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid instance state data %s", s)
	}
	return nil
}

// JobType describes the different types of jobs, a worker needs to execute.
//
// Each type is used for a specific set of BPMN element types:
//
//   - [JobCallActivity]: call activity, whose called process is mocked
//   - [JobEvaluateExclusiveGateway]: forking exclusive gateway without conditional sequence flows
//   - [JobEvaluateInclusiveGateway]: forking inclusive gateway without conditional sequence flows
//   - [JobExecute]: business rule, script, send and service task
type JobType int

const (
	JobCallActivity JobType = iota + 1
	JobEvaluateExclusiveGateway
	JobEvaluateInclusiveGateway
	JobExecute
)

func MapJobType(s string) JobType {
	switch s {
	case "CALL_ACTIVITY":
		return JobCallActivity
	case "EVALUATE_EXCLUSIVE_GATEWAY":
		return JobEvaluateExclusiveGateway
	case "EVALUATE_INCLUSIVE_GATEWAY":
		return JobEvaluateInclusiveGateway
	case "EXECUTE":
		return JobExecute
	default:
		return 0
	}
}

func (v JobType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v JobType) String() string {
	switch v {
	case JobCallActivity:
		return "CALL_ACTIVITY"
	case JobEvaluateExclusiveGateway:
		return "EVALUATE_EXCLUSIVE_GATEWAY"
	case JobEvaluateInclusiveGateway:
		return "EVALUATE_INCLUSIVE_GATEWAY"
	case JobExecute:
		return "EXECUTE"
	default:
		return ""
	}
}

func (v *JobType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapJobType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid job type data %s", s)
	}
	return nil
}

// SubscriptionType describes the different kinds of events, an element instance waits for.
type SubscriptionType int

const (
	SubscriptionConditional SubscriptionType = iota + 1
	SubscriptionMessage
	SubscriptionSignal
)

func MapSubscriptionType(s string) SubscriptionType {
	switch s {
	case "CONDITIONAL":
		return SubscriptionConditional
	case "MESSAGE":
		return SubscriptionMessage
	case "SIGNAL":
		return SubscriptionSignal
	default:
		return 0
	}
}

func (v SubscriptionType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v SubscriptionType) String() string {
	switch v {
	case SubscriptionConditional:
		return "CONDITIONAL"
	case SubscriptionMessage:
		return "MESSAGE"
	case SubscriptionSignal:
		return "SIGNAL"
	default:
		return ""
	}
}

func (v *SubscriptionType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapSubscriptionType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid subscription type data %s", s)
	}
	return nil
}

// TaskType describes the different types of tasks, an engine needs to execute.
//
//   - [TaskTriggerTimer] triggers a timer boundary, catch or event sub process start event
type TaskType int

const (
	TaskTriggerTimer TaskType = iota + 1
)

func MapTaskType(s string) TaskType {
	switch s {
	case "TRIGGER_TIMER":
		return TaskTriggerTimer
	default:
		return 0
	}
}

func (v TaskType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v TaskType) String() string {
	switch v {
	case TaskTriggerTimer:
		return "TRIGGER_TIMER"
	default:
		return ""
	}
}

func (v *TaskType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapTaskType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid task type data %s", s)
	}
	return nil
}

// Deployment is a BPMN XML and its auxiliary resources, deployed at once.
type Deployment struct {
	Id string `json:"id" validate:"required"` // Deployment ID.

	CreatedAt time.Time         `json:"createdAt" validate:"required"` // Creation time.
	CreatedBy string            `json:"createdBy" validate:"required"` // ID of the worker that created the deployment.
	Name      string            `json:"name" validate:"required"`      // Deployment name.
	Processes []Process         `json:"processes"`                     // Deployed executable processes.
	Resources map[string]string `json:"resources,omitempty"`           // Auxiliary resources, keyed by name.
}

func (v Deployment) String() string {
	return v.Id
}

// DeploymentCriteria specifies the results, returned by a deployment query.
type DeploymentCriteria struct {
	Id string `json:"id,omitempty"` // Deployment filter.

	Name string `json:"name,omitempty"` // Deployment name filter.
}

// ElementInstance is an instance of a BPMN element in the scope of an process instance.
type ElementInstance struct {
	Id int32 `json:"id" validate:"required"` // Element instance ID.

	ParentId int32 `json:"parentId,omitempty"` // ID of the parent element instance, the enclosing scope.

	ProcessId         int32 `json:"processId" validate:"required"`         // ID of the related process.
	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	BpmnElementId   string            `json:"bpmnElementId" validate:"required"`   // Element ID within the BPMN XML.
	BpmnElementType model.ElementType `json:"bpmnElementType" validate:"required"` // BPMN element type.
	CreatedAt       time.Time         `json:"createdAt" validate:"required"`       // Creation time.
	EndedAt         *time.Time        `json:"endedAt,omitempty"`                   // End time.
	IsMultiInstance bool              `json:"multiInstance,omitempty"`             // Determines if the element instance is a multi instance body.
	StartedAt       *time.Time        `json:"startedAt,omitempty"`                 // Start time.
	State           InstanceState     `json:"state" validate:"required"`           // Current state.
}

func (v ElementInstance) HasParent() bool {
	return v.ParentId != 0
}

func (v ElementInstance) IsEnded() bool {
	return v.EndedAt != nil
}

func (v ElementInstance) String() string {
	return fmt.Sprintf("%d:%s", v.Id, v.BpmnElementId)
}

// ElementInstanceCriteria specifies the results, returned by an element instance query.
type ElementInstanceCriteria struct {
	Id int32 `json:"id,omitempty"` // Element instance filter.

	ParentId          int32 `json:"parentId,omitempty"`          // Parent element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	BpmnElementId string          `json:"bpmnElementId,omitempty"`                  // BPMN element ID filter.
	States        []InstanceState `json:"states,omitempty" validate:"max=5,unique"` // States to include.
}

// Job is a unit of work related to an element instance, which must be locked, executed and completed by a worker.
type Job struct {
	Id int32 `json:"id" validate:"required"` // Job ID.

	ElementInstanceId int32 `json:"elementInstanceId" validate:"required"` // ID of the related element instance.
	ProcessId         int32 `json:"processId" validate:"required"`         // ID of the related process.
	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	BpmnElementId string     `json:"bpmnElementId" validate:"required"` // Element ID within the BPMN XML.
	BusinessKey   string     `json:"businessKey,omitempty"`             // Business key of the process instance.
	CompletedAt   *time.Time `json:"completedAt,omitempty"`             // Completion time.
	CompletedBy   string     `json:"completedBy,omitempty"`             // ID of the worker that completed the job.
	CreatedAt     time.Time  `json:"createdAt" validate:"required"`     // Creation time.
	DueAt         time.Time  `json:"dueAt" validate:"required"`         // Point in time when a job can be locked by a worker.
	LockedAt      *time.Time `json:"lockedAt,omitempty"`                // Lock time.
	LockedBy      string     `json:"lockedBy,omitempty"`                // ID of the worker that locked the job.
	Topic         string     `json:"topic,omitempty"`                   // Topic of an external task, derived from the BPMN element.
	Type          JobType    `json:"type" validate:"required"`          // Job type.
}

func (v Job) IsCompleted() bool {
	return v.CompletedAt != nil
}

func (v Job) IsLocked() bool {
	return v.LockedAt != nil
}

func (v Job) String() string {
	return strconv.Itoa(int(v.Id))
}

// JobCriteria specifies the results, returned by a job query.
type JobCriteria struct {
	Id int32 `json:"id,omitempty"` // Job filter.

	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // Element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	BpmnElementId    string `json:"bpmnElementId,omitempty"`    // BPMN element ID filter.
	ExcludeCompleted bool   `json:"excludeCompleted,omitempty"` // Determines if completed jobs are excluded.
}

// Message represents a sent message.
//
// If a message is correlated, a message subscriber (message start or catch event, receive task) has been notified.
type Message struct {
	Id int64 `json:"id" validate:"required"` // Message ID.

	CorrelationKey string    `json:"correlationKey,omitempty"`       // Key, used to correlate a message with a process instance.
	CreatedAt      time.Time `json:"createdAt" validate:"required"`  // Message sent time.
	CreatedBy      string    `json:"createdBy" validate:"required"`  // ID of the worker that sent the message.
	IsCorrelated   bool      `json:"correlated"`                     // Indicates if the message is correlated or not.
	Name           string    `json:"name" validate:"required"`       // Message name.
}

func (v Message) String() string {
	return strconv.FormatInt(v.Id, 10)
}

// Process represents a deployed, executable BPMN process.
type Process struct {
	Id int32 `json:"id" validate:"required"` // Process ID.

	DeploymentId string `json:"deploymentId" validate:"required"` // ID of the related deployment.

	BpmnProcessId string    `json:"bpmnProcessId" validate:"required"` // ID of the process element within the BPMN XML.
	CreatedAt     time.Time `json:"createdAt" validate:"required"`     // Creation time.
	Version       int       `json:"version" validate:"required,gte=1"` // Process version, increased per deployment.
}

func (v Process) String() string {
	return fmt.Sprintf("%d:%s:%d", v.Id, v.BpmnProcessId, v.Version)
}

// ProcessCriteria specifies the results, returned by a process query.
type ProcessCriteria struct {
	Id int32 `json:"id,omitempty"` // Process filter.

	BpmnProcessId string `json:"bpmnProcessId,omitempty"` // BPMN process ID filter.
	DeploymentId  string `json:"deploymentId,omitempty"`  // Deployment filter.
}

// Process instance is an instance of a BPMN process.
type ProcessInstance struct {
	Id int32 `json:"id" validate:"required"` // Process instance ID

	ParentId int32 `json:"parentId,omitempty"` // ID of the parent process instance, started by a call activity.
	RootId   int32 `json:"rootId,omitempty"`   // ID of the root process instance.

	ProcessId int32 `json:"processId" validate:"required"` // ID of the related process.

	BpmnProcessId string        `json:"bpmnProcessId" validate:"required"` // ID of the process element within the BPMN XML.
	BusinessKey   string        `json:"businessKey,omitempty"`             // Key, used to correlate a process instance with a business entity.
	CreatedAt     time.Time     `json:"createdAt" validate:"required"`     // Creation time.
	CreatedBy     string        `json:"createdBy" validate:"required"`     // ID of the worker or engine that created the process instance.
	EndedAt       *time.Time    `json:"endedAt,omitempty"`                 // End time.
	State         InstanceState `json:"state" validate:"required"`         // Current state.
	Version       int           `json:"version" validate:"required"`       // Process version.
}

func (v ProcessInstance) HasParent() bool {
	return v.ParentId != 0
}

func (v ProcessInstance) IsEnded() bool {
	return v.EndedAt != nil
}

func (v ProcessInstance) String() string {
	return strconv.Itoa(int(v.Id))
}

// ProcessInstanceCriteria specifies the results, returned by a process instance query.
type ProcessInstanceCriteria struct {
	Id int32 `json:"id,omitempty"` // Process instance filter.

	ParentId  int32 `json:"parentId,omitempty"`  // Parent process instance filter.
	ProcessId int32 `json:"processId,omitempty"` // Process filter.

	BpmnProcessId string `json:"bpmnProcessId,omitempty"` // BPMN process ID filter.
	BusinessKey   string `json:"businessKey,omitempty"`   // Business key filter.
}

// Signal represents a notification of signal subscribers (signal start, boundary or catch events).
type Signal struct {
	Id int64 `json:"id" validate:"required"` // Signal ID.

	CreatedAt       time.Time `json:"createdAt" validate:"required"`             // Signal sent time.
	CreatedBy       string    `json:"createdBy" validate:"required"`             // ID of the worker or engine that sent the signal.
	Name            string    `json:"name" validate:"required"`                  // Name of the signal.
	SubscriberCount int       `json:"subscriberCount" validate:"required,gte=0"` // Number of notified signal subscribers.
}

func (v Signal) String() string {
	return strconv.FormatInt(v.Id, 10)
}

// Subscription represents an element instance, waiting for a message, a signal or a condition.
type Subscription struct {
	Id int32 `json:"id" validate:"required"` // Subscription ID.

	ElementInstanceId int32 `json:"elementInstanceId" validate:"required"` // ID of the subscribing element instance.
	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	BpmnElementId  string           `json:"bpmnElementId" validate:"required"` // ID of the catching BPMN element.
	Condition      string           `json:"condition,omitempty"`               // Condition expression - set in case of a conditional subscription.
	CorrelationKey string           `json:"correlationKey,omitempty"`          // Business key of the process instance.
	CreatedAt      time.Time        `json:"createdAt" validate:"required"`     // Creation time.
	Name           string           `json:"name,omitempty"`                    // Message or signal name.
	Type           SubscriptionType `json:"type" validate:"required"`          // Subscription type.
}

func (v Subscription) String() string {
	return fmt.Sprintf("%d:%s:%s", v.Id, v.Type, v.BpmnElementId)
}

// SubscriptionCriteria specifies the results, returned by a subscription query.
type SubscriptionCriteria struct {
	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // Element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	BpmnElementId string           `json:"bpmnElementId,omitempty"` // BPMN element ID filter.
	Name          string           `json:"name,omitempty"`          // Message or signal name filter.
	Type          SubscriptionType `json:"type,omitempty"`          // Subscription type filter.
}

// Task is a unit of work, which must be executed by an engine, when it is due.
type Task struct {
	Id int32 `json:"id" validate:"required"` // Task ID.

	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // ID of the related element instance.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // ID of the enclosing process instance.

	BpmnElementId string     `json:"bpmnElementId,omitempty"`       // ID of the related BPMN element.
	CompletedAt   *time.Time `json:"completedAt,omitempty"`         // Completion time.
	CreatedAt     time.Time  `json:"createdAt" validate:"required"` // Creation time.
	DueAt         time.Time  `json:"dueAt" validate:"required"`     // Point in time when a task is executed.
	Error         string     `json:"error,omitempty"`               // Error, indicating a failed execution.
	Timer         *Timer     `json:"timer,omitempty"`               // Timer definition - set in case of a timer task.
	Type          TaskType   `json:"type" validate:"required"`      // Task type.
}

func (v Task) HasError() bool {
	return v.Error != ""
}

func (v Task) IsCompleted() bool {
	return v.CompletedAt != nil
}

func (v Task) String() string {
	return strconv.Itoa(int(v.Id))
}

// TaskCriteria specifies the results, returned by a task query.
type TaskCriteria struct {
	Id int32 `json:"id,omitempty"` // Task filter.

	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // Element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	BpmnElementId    string   `json:"bpmnElementId,omitempty"`    // BPMN element ID filter.
	ExcludeCompleted bool     `json:"excludeCompleted,omitempty"` // Determines if completed tasks are excluded.
	Type             TaskType `json:"type,omitempty"`             // Task type.
}

// A timer defines a point in time using a time value, a CRON expression or a duration.
type Timer struct {
	// A point in time.
	Time time.Time `json:"time"`
	// CRON expression that specifies a cyclic timer.
	TimeCycle string `json:"timeCycle,omitempty" validate:"cron"`
	// Duration based timer that uses the engine's time to calculate a point in time.
	TimeDuration ISO8601Duration `json:"timeDuration" validate:"iso8601_duration"`
}

func (t Timer) String() string {
	if !t.Time.IsZero() {
		return t.Time.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
	} else if t.TimeCycle != "" {
		return t.TimeCycle
	} else if !t.TimeDuration.IsZero() {
		return t.TimeDuration.String()
	} else {
		return ""
	}
}

// UserTask is a BPMN user task, waiting for its completion by a human.
type UserTask struct {
	Id int32 `json:"id" validate:"required"` // User task ID.

	ElementInstanceId int32 `json:"elementInstanceId" validate:"required"` // ID of the related element instance.
	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	Assignee        string     `json:"assignee,omitempty"`                // Assigned user.
	BpmnElementId   string     `json:"bpmnElementId" validate:"required"` // Element ID within the BPMN XML.
	CandidateGroups []string   `json:"candidateGroups,omitempty"`         // Groups, whose members may claim the user task.
	CandidateUsers  []string   `json:"candidateUsers,omitempty"`          // Users, who may claim the user task.
	CompletedAt     *time.Time `json:"completedAt,omitempty"`             // Completion time.
	CompletedBy     string     `json:"completedBy,omitempty"`             // ID of the worker that completed the user task.
	CreatedAt       time.Time  `json:"createdAt" validate:"required"`     // Creation time.
	FormKey         string     `json:"formKey,omitempty"`                 // Key of the form, the user task is rendered with.
	Name            string     `json:"name,omitempty"`                    // Name of the BPMN element.
}

func (v UserTask) IsCompleted() bool {
	return v.CompletedAt != nil
}

func (v UserTask) String() string {
	return strconv.Itoa(int(v.Id))
}

// UserTaskCriteria specifies the results, returned by a user task query.
type UserTaskCriteria struct {
	Id int32 `json:"id,omitempty"` // User task filter.

	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // Element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	Assignee         string `json:"assignee,omitempty"`         // Assignee filter.
	BpmnElementId    string `json:"bpmnElementId,omitempty"`    // BPMN element ID filter.
	ExcludeCompleted bool   `json:"excludeCompleted,omitempty"` // Determines if completed user tasks are excluded.
}

// Variable is data, identified by a name, that exists in the scope of a process instance or element instance.
type Variable struct {
	ElementInstanceId int32 `json:"elementInstanceId,omitempty"`           // ID of the related element instance - set if the variable exists at element instance scope.
	ProcessInstanceId int32 `json:"processInstanceId" validate:"required"` // ID of the enclosing process instance.

	CreatedAt time.Time `json:"createdAt" validate:"required"` // Creation time.
	Name      string    `json:"name" validate:"required"`      // Variable name.
	UpdatedAt time.Time `json:"updatedAt" validate:"required"` // Last modification time.
	Value     any       `json:"value"`                         // Variable value.
}

func (v Variable) String() string {
	return fmt.Sprintf("%d:%s", v.ProcessInstanceId, v.Name)
}

// VariableCriteria specifies the results, returned by a variable query.
type VariableCriteria struct {
	ElementInstanceId int32 `json:"elementInstanceId,omitempty"` // Element instance filter.
	ProcessInstanceId int32 `json:"processInstanceId,omitempty"` // Process instance filter.

	Names []string `json:"names,omitempty"` // Names of variables to include.
}
