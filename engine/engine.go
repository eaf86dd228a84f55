package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEngineId = "default-engine" // Default ID of an engine, used when no specific ID is provided via [Options].
)

// An Engine deploys BPMN processes, creates process instances and executes them, based on the BPMN 2.0
// specification.
//
// An engine never advances process instances on its own, unless a task executor is enabled. Jobs, user tasks,
// messages, signals and due timers must be driven by the caller.
type Engine interface {
	// CompleteJob completes a locked job.
	//
	// A job completion can specify a gateway decision or a BPMN error or escalation, which is thrown instead of
	// completing the related element normally.
	CompleteJob(context.Context, CompleteJobCmd) (Job, error)

	// CompleteUserTask completes an active user task.
	CompleteUserTask(context.Context, CompleteUserTaskCmd) (UserTask, error)

	// CreateDeployment deploys all executable processes of a BPMN XML as well as auxiliary resources.
	//
	// If a process with the same BPMN process ID has been deployed before, a new version is created.
	CreateDeployment(context.Context, CreateDeploymentCmd) (Deployment, error)

	// CreateProcessInstance creates an instance of the latest version of a deployed BPMN process.
	CreateProcessInstance(context.Context, CreateProcessInstanceCmd) (ProcessInstance, error)

	// CreateQuery creates a query with default options.
	CreateQuery() Query

	// DeleteDeployment deletes a deployment, its processes and, if cascade is set, all related process instances.
	DeleteDeployment(context.Context, DeleteDeploymentCmd) error

	// ExecuteTasks executes due tasks, which match the specified conditions.
	//
	// Due tasks are normally handled by a task executor, running inside the engine.
	// When waiting for a timer to be triggered during testing, this method must be called!
	ExecuteTasks(context.Context, ExecuteTasksCmd) ([]Task, []Task, error)

	// GetElementVariables gets the local variables of an element instance.
	GetElementVariables(context.Context, GetElementVariablesCmd) (map[string]any, error)

	// GetProcessVariables gets the variables of an active or ended process instance.
	GetProcessVariables(context.Context, GetProcessVariablesCmd) (map[string]any, error)

	// LockJobs locks due jobs, which match the specified conditions.
	LockJobs(context.Context, LockJobsCmd) ([]Job, error)

	// Mocks returns the engine's mock registry.
	Mocks() *Mocks

	// SendMessage correlates a message with a message subscriber.
	//
	// A subscriber can be a message start, boundary or catch event as well as a receive task.
	// In case of a message start event, a new process instance is created.
	// If no subscriber exists, an error of type [ErrorNotFound] is returned.
	SendMessage(context.Context, SendMessageCmd) (Message, error)

	// SendSignal sends a signal to notify all signal subscribers.
	SendSignal(context.Context, SendSignalCmd) (Signal, error)

	// SetProcessVariables sets or deletes variables of an active process instance.
	// Afterwards, the conditions of all conditional events of the process instance are evaluated.
	SetProcessVariables(context.Context, SetProcessVariablesCmd) error

	// SetTime increases the engine's time for testing purposes.
	SetTime(context.Context, SetTimeCmd) error

	// Throw throws a BPMN error or escalation at an active element instance.
	Throw(context.Context, ThrowCmd) error

	// Shutdown shuts the engine down.
	Shutdown()
}

// A Query allows to query entities, using query options.
type Query interface {
	QueryDeployments(context.Context, DeploymentCriteria) ([]Deployment, error)
	QueryElementInstances(context.Context, ElementInstanceCriteria) ([]ElementInstance, error)
	QueryJobs(context.Context, JobCriteria) ([]Job, error)
	QueryProcesses(context.Context, ProcessCriteria) ([]Process, error)
	QueryProcessInstances(context.Context, ProcessInstanceCriteria) ([]ProcessInstance, error)
	QuerySubscriptions(context.Context, SubscriptionCriteria) ([]Subscription, error)
	QueryTasks(context.Context, TaskCriteria) ([]Task, error)
	QueryUserTasks(context.Context, UserTaskCriteria) ([]UserTask, error)
	QueryVariables(context.Context, VariableCriteria) ([]Variable, error)

	// SetOptions sets options that are used when performing a query.
	SetOptions(QueryOptions)
}

// Options are common configuration options that are shared between engine implementations.
type Options struct {
	DefaultQueryLimit    int           // Default limit for queries, executed without an explicit limit.
	EngineId             string        // ID of the engine.
	HistoryLevel         HistoryLevel  // Level of ended instances and entities, kept by the engine.
	IdGenerator          IdGenerator   // Generator of deployment IDs.
	Logger               *zap.Logger   // Logger of the engine.
	TaskExecutorEnabled  bool          // Enables or disables the engine's task executor.
	TaskExecutorInterval time.Duration // Interval between execution of due tasks.
	TaskExecutorLimit    int           // Maximum number of due tasks to lock and execute at once.
	TelemetryEnabled     bool          // Enables or disables the periodic report of engine statistics.
	TelemetryInterval    time.Duration // Interval between telemetry reports.

	OnTaskExecutionFailure func(Task, error) // Called when the engine failed to execute a locked task.
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.EngineId) == "" {
		return errors.New("engine ID must not be empty or blank")
	}
	if o.HistoryLevel == 0 {
		return errors.New("history level must be specified")
	}
	if o.IdGenerator == nil {
		return errors.New("ID generator must not be nil")
	}
	if o.TaskExecutorInterval.Milliseconds() < 1000 {
		return errors.New("task executor interval must be greater than or equal to 1000 ms")
	}
	if o.TaskExecutorLimit < 1 {
		return errors.New("task executor limit must be greater than or equal to 1")
	}
	if o.TaskExecutorLimit > 1000 {
		return errors.New("task executor limit must be must be less than or equal to 1000")
	}
	if o.TelemetryInterval.Milliseconds() < 1000 {
		return errors.New("telemetry interval must be greater than or equal to 1000 ms")
	}

	return nil
}

// QueryOptions are used to limit or offset query results.
// The zero value does not affect a query.
type QueryOptions struct {
	// Limit specifies the maximum number of results to return.
	// If Limit <= 0, the option's DefaultQueryLimit is applied.
	Limit int
	// Offset specifies the number of results to skip, before returning any result.
	// If Offset <= 0, no results are skipped.
	Offset int
}

type Error struct {
	Type   ErrorType
	Title  string
	Detail string
	Causes []ErrorCause
}

func (e Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s: %s", e.Type, e.Title, e.Detail))

	for _, cause := range e.Causes {
		sb.WriteRune('\n')
		sb.WriteString(cause.String())
	}

	return sb.String()
}

type ErrorType int

const (
	ErrorBug ErrorType = iota + 1
	ErrorConflict
	ErrorNotFound
	ErrorProcessModel
	ErrorValidation
)

func MapErrorType(s string) ErrorType {
	switch s {
	case "BUG":
		return ErrorBug
	case "CONFLICT":
		return ErrorConflict
	case "NOT_FOUND":
		return ErrorNotFound
	case "PROCESS_MODEL":
		return ErrorProcessModel
	case "VALIDATION":
		return ErrorValidation
	default:
		return 0
	}
}

func (v ErrorType) String() string {
	switch v {
	case ErrorBug:
		return "BUG"
	case ErrorConflict:
		return "CONFLICT"
	case ErrorNotFound:
		return "NOT_FOUND"
	case ErrorProcessModel:
		return "PROCESS_MODEL"
	case ErrorValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// A cause of a process model or validation [Error] like an unsupported BPMN element or an invalid command field.
type ErrorCause struct {
	Pointer string // A pointer, locating the invalid BPMN element or command field.
	Type    string // Type indicator.
	Detail  string // Human-readable, detailed information about the cause.
}

func (e ErrorCause) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Detail)
}
