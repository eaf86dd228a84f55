package mem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gclaussn/go-bpmndt/engine"
	"go.uber.org/zap"
)

func New(customizers ...func(*Options)) (engine.Engine, error) {
	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	if options.Common.Logger == nil {
		options.Common.Logger = zap.NewNop()
	}

	ctx := newMemContext(options)

	memEngine := memEngine{ctx: ctx, defaultQueryLimit: options.Common.DefaultQueryLimit}

	if options.Common.TaskExecutorEnabled {
		memEngine.taskExecutor = newTaskExecutor(
			&memEngine,
			options.Common.Logger,
			options.Common.TaskExecutorInterval,
			options.Common.TaskExecutorLimit,
		)

		memEngine.taskExecutor.Execute()
	}

	if options.Common.TelemetryEnabled {
		memEngine.telemetry = newTelemetryReporter(&memEngine, options.Common.Logger, options.Common.TelemetryInterval)
		memEngine.telemetry.Report()
	}

	options.Common.Logger.Debug("engine created",
		zap.String("engineId", options.Common.EngineId),
		zap.Stringer("historyLevel", options.Common.HistoryLevel),
		zap.Bool("taskExecutorEnabled", options.Common.TaskExecutorEnabled),
		zap.Bool("telemetryEnabled", options.Common.TelemetryEnabled),
	)

	return &memEngine, nil
}

func NewOptions() Options {
	return Options{
		Common: engine.Options{
			DefaultQueryLimit:    1000,
			EngineId:             engine.DefaultEngineId,
			HistoryLevel:         engine.HistoryFull,
			IdGenerator:          engine.NewUUIDGenerator(),
			Logger:               zap.NewNop(),
			TaskExecutorEnabled:  false,
			TaskExecutorInterval: 60 * time.Second,
			TaskExecutorLimit:    10,
			TelemetryEnabled:     false,
			TelemetryInterval:    60 * time.Second,
		},
	}
}

type Options struct {
	Common engine.Options // Common options
}

func (o Options) Validate() error {
	return o.Common.Validate()
}

type memEngine struct {
	ctxMutex   sync.RWMutex
	ctx        *memContext
	isReadLock bool

	defaultQueryLimit int

	offset       time.Duration
	taskExecutor *taskExecutor
	telemetry    *telemetryReporter
}

func (e *memEngine) CompleteJob(_ context.Context, cmd engine.CompleteJobCmd) (engine.Job, error) {
	defer e.unlock()
	return completeJob(e.wlock(), cmd)
}

func (e *memEngine) CompleteUserTask(_ context.Context, cmd engine.CompleteUserTaskCmd) (engine.UserTask, error) {
	defer e.unlock()
	return completeUserTask(e.wlock(), cmd)
}

func (e *memEngine) CreateDeployment(_ context.Context, cmd engine.CreateDeploymentCmd) (engine.Deployment, error) {
	defer e.unlock()
	return createDeployment(e.wlock(), cmd)
}

func (e *memEngine) CreateProcessInstance(_ context.Context, cmd engine.CreateProcessInstanceCmd) (engine.ProcessInstance, error) {
	defer e.unlock()
	return createProcessInstance(e.wlock(), cmd)
}

func (e *memEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		defaultQueryLimit: e.defaultQueryLimit,
		options:           engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *memEngine) DeleteDeployment(_ context.Context, cmd engine.DeleteDeploymentCmd) error {
	defer e.unlock()
	return deleteDeployment(e.wlock(), cmd)
}

func (e *memEngine) ExecuteTasks(_ context.Context, cmd engine.ExecuteTasksCmd) ([]engine.Task, []engine.Task, error) {
	defer e.unlock()
	ctx := e.wlock()

	if err := engine.Validate(cmd); err != nil {
		return nil, nil, err
	}

	dueTasks := ctx.selectDueTasks(cmd)

	var (
		completedTasks []engine.Task
		failedTasks    []engine.Task

		errs []error
	)
	for _, dueTask := range dueTasks {
		if dueTask.deleted {
			continue // removed by a previously executed task
		}

		err := executeTask(ctx, dueTask)

		task := dueTask.Task()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to execute task %s: %v", task, err))
			if onFailure := ctx.options.Common.OnTaskExecutionFailure; onFailure != nil {
				onFailure(task, err)
			}

			failedTasks = append(failedTasks, task)
		} else {
			completedTasks = append(completedTasks, task)
		}
	}

	if len(errs) == 0 {
		return completedTasks, failedTasks, nil
	} else {
		return completedTasks, failedTasks, errors.Join(errs...)
	}
}

func (e *memEngine) GetElementVariables(_ context.Context, cmd engine.GetElementVariablesCmd) (map[string]any, error) {
	defer e.unlock()
	return getElementVariables(e.rlock(), cmd)
}

func (e *memEngine) GetProcessVariables(_ context.Context, cmd engine.GetProcessVariablesCmd) (map[string]any, error) {
	defer e.unlock()
	return getProcessVariables(e.rlock(), cmd)
}

func (e *memEngine) LockJobs(_ context.Context, cmd engine.LockJobsCmd) ([]engine.Job, error) {
	defer e.unlock()
	return lockJobs(e.wlock(), cmd)
}

func (e *memEngine) Mocks() *engine.Mocks {
	return e.ctx.mocks
}

func (e *memEngine) SendMessage(_ context.Context, cmd engine.SendMessageCmd) (engine.Message, error) {
	defer e.unlock()
	return sendMessage(e.wlock(), cmd)
}

func (e *memEngine) SendSignal(_ context.Context, cmd engine.SendSignalCmd) (engine.Signal, error) {
	defer e.unlock()
	return sendSignal(e.wlock(), cmd)
}

func (e *memEngine) SetProcessVariables(_ context.Context, cmd engine.SetProcessVariablesCmd) error {
	defer e.unlock()
	return setProcessVariables(e.wlock(), cmd)
}

func (e *memEngine) SetTime(_ context.Context, cmd engine.SetTimeCmd) error {
	defer e.unlock()
	ctx := e.wlock()

	old := ctx.Time()
	new := cmd.Time.UTC().Truncate(time.Millisecond)

	sub := new.Sub(old)
	if sub.Milliseconds() < 0 {
		return engine.Error{
			Type:  engine.ErrorConflict,
			Title: "failed to set time",
			Detail: fmt.Sprintf(
				"time %s is before engine time %s",
				new.Format(time.RFC3339),
				old.Format(time.RFC3339),
			),
		}
	}

	e.offset = e.offset + sub
	return nil
}

func (e *memEngine) Throw(_ context.Context, cmd engine.ThrowCmd) error {
	defer e.unlock()
	return throw(e.wlock(), cmd)
}

func (e *memEngine) Shutdown() {
	if e.taskExecutor != nil {
		e.taskExecutor.Stop()
	}
	if e.telemetry != nil {
		e.telemetry.Stop()
	}

	defer e.unlock()
	e.wlock().clear()
}

func (e *memEngine) rlock() *memContext {
	now := time.Now()

	e.ctxMutex.RLock()
	e.isReadLock = true

	// must be UTC and truncated to millis, so that times survive a JSON round trip
	e.ctx.time = now.UTC().Add(e.offset).Truncate(time.Millisecond)

	return e.ctx
}

func (e *memEngine) wlock() *memContext {
	now := time.Now()

	e.ctxMutex.Lock()
	e.isReadLock = false

	// must be UTC and truncated to millis, so that times survive a JSON round trip
	e.ctx.time = now.UTC().Add(e.offset).Truncate(time.Millisecond)
	e.ctx.steps = 0

	return e.ctx
}

func (e *memEngine) unlock() {
	if e.isReadLock {
		e.ctxMutex.RUnlock()
	} else {
		e.ctxMutex.Unlock()
	}
}
