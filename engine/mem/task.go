package mem

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"go.uber.org/zap"
)

func newTaskExecutor(e engine.Engine, logger *zap.Logger, interval time.Duration, taskLimit int) *taskExecutor {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &taskExecutor{
		engine:    e,
		logger:    logger,
		taskLimit: taskLimit,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(interval),
	}
}

// taskExecutor executes due tasks periodically.
type taskExecutor struct {
	engine    engine.Engine
	logger    *zap.Logger
	taskLimit int

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker
}

func (e *taskExecutor) Execute() {
	go func() {
		for {
			select {
			case <-e.ticker.C:
				completedTasks, failedTasks, err := e.engine.ExecuteTasks(e.tickerCtx, engine.ExecuteTasksCmd{Limit: e.taskLimit})
				if err != nil {
					e.logger.Warn("failed to execute tasks", zap.Int("failed", len(failedTasks)), zap.Error(err))
				}
				if len(completedTasks) != 0 {
					e.logger.Debug("tasks executed", zap.Int("completed", len(completedTasks)))
				}
			case <-e.tickerCtx.Done():
				return
			}
		}
	}()
}

func (e *taskExecutor) Stop() {
	e.ticker.Stop()
	e.tickerCancel()
}

// createTimerTask creates a task, which triggers a timer event of an element instance, when it is due.
func (c *memContext) createTimerTask(owner *elementInstanceEntity, element *model.Element) error {
	timer, dueAt, err := evaluateTimer(c, owner, element)
	if err != nil {
		return err
	}

	c.ids.task++

	c.tasks = append(c.tasks, &taskEntity{
		id: c.ids.task,

		elementInstance: owner,
		element:         element,

		createdAt: c.time,
		dueAt:     dueAt,
		taskType:  engine.TaskTriggerTimer,
		timer:     timer,
	})

	return nil
}

// evaluateTimer calculates the due date of a timer event, based on the engine's time.
//
// A time date must be formatted as RFC 3339, a time duration as ISO 8601 duration.
// A time cycle is either an ISO 8601 repeating interval like R3/PT1H or a CRON expression.
func evaluateTimer(ctx *memContext, owner *elementInstanceEntity, element *model.Element) (engine.Timer, time.Time, error) {
	definition := element.EventDefinition.Timer

	newError := func(detail string, args ...any) error {
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to evaluate timer",
			Detail: fmt.Sprintf("timer event %s: %s", element.Pointer(), fmt.Sprintf(detail, args...)),
		}
	}

	if definition == nil {
		return engine.Timer{}, time.Time{}, newError("no timer definition")
	}

	switch {
	case definition.TimeDate != "":
		value, err := evaluateString(ctx, owner, definition.TimeDate)
		if err != nil {
			return engine.Timer{}, time.Time{}, err
		}

		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return engine.Timer{}, time.Time{}, newError("invalid time date %s: %v", value, err)
		}

		t = t.UTC().Truncate(time.Millisecond)
		return engine.Timer{Time: t}, t, nil
	case definition.TimeDuration != "":
		value, err := evaluateString(ctx, owner, definition.TimeDuration)
		if err != nil {
			return engine.Timer{}, time.Time{}, err
		}

		duration, err := engine.NewISO8601Duration(value)
		if err != nil {
			return engine.Timer{}, time.Time{}, newError("invalid time duration: %v", err)
		}

		return engine.Timer{TimeDuration: duration}, duration.Calculate(ctx.time), nil
	case definition.TimeCycle != "":
		value, err := evaluateString(ctx, owner, definition.TimeCycle)
		if err != nil {
			return engine.Timer{}, time.Time{}, err
		}

		if strings.HasPrefix(value, "R") {
			interval, err := engine.NewISO8601RepeatingInterval(value)
			if err != nil {
				return engine.Timer{}, time.Time{}, newError("invalid time cycle: %v", err)
			}
			return engine.Timer{TimeCycle: value}, interval.Next(ctx.time), nil
		}

		dueAt, err := gronx.NextTickAfter(value, ctx.time, false)
		if err != nil {
			return engine.Timer{}, time.Time{}, newError("invalid time cycle %s: %v", value, err)
		}
		return engine.Timer{TimeCycle: value}, dueAt.UTC().Truncate(time.Millisecond), nil
	default:
		return engine.Timer{}, time.Time{}, newError("neither time date, time duration nor time cycle defined")
	}
}

// selectDueTasks returns the due tasks, matching the conditions of a command, ordered by due date.
func (c *memContext) selectDueTasks(cmd engine.ExecuteTasksCmd) []*taskEntity {
	limit := cmd.Limit
	if limit == 0 {
		limit = 1000
	}

	var results []*taskEntity
	for _, e := range c.tasks {
		if e.completedAt != nil || e.deleted || c.time.Before(e.dueAt) {
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
		if cmd.BpmnElementId != "" && cmd.BpmnElementId != e.element.Id {
			continue
		}
		if cmd.Type != 0 && cmd.Type != e.taskType {
			continue
		}

		results = append(results, e)
	}

	slices.SortStableFunc(results, func(a *taskEntity, b *taskEntity) int {
		if c := a.dueAt.Compare(b.dueAt); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// executeTask completes a due task and triggers the related timer event.
func executeTask(ctx *memContext, task *taskEntity) error {
	task.completedAt = timePtr(ctx.time)

	owner := task.elementInstance
	if err := trigger(ctx, owner, task.element); err != nil {
		task.error = err.Error()
		return err
	}

	ctx.logger.Debug("timer triggered",
		fieldElementInstance(owner),
		zap.Stringer("timer", task.timer),
	)

	return nil
}
