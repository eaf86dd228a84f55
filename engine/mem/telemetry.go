package mem

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func newTelemetryReporter(e *memEngine, logger *zap.Logger, interval time.Duration) *telemetryReporter {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &telemetryReporter{
		engine: e,
		logger: logger,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(interval),
	}
}

// telemetryReporter logs engine statistics periodically.
type telemetryReporter struct {
	engine *memEngine
	logger *zap.Logger

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker
}

func (r *telemetryReporter) Report() {
	go func() {
		for {
			select {
			case <-r.ticker.C:
				r.logger.Info("engine statistics", r.engine.statistics()...)
			case <-r.tickerCtx.Done():
				return
			}
		}
	}()
}

func (r *telemetryReporter) Stop() {
	r.ticker.Stop()
	r.tickerCancel()
}

// statistics returns the number of active entities as log fields.
func (e *memEngine) statistics() []zap.Field {
	defer e.unlock()
	ctx := e.rlock()

	var activeProcessInstances int
	for _, processInstance := range ctx.processInstances {
		if !processInstance.isEnded() {
			activeProcessInstances++
		}
	}

	var openJobs int
	for _, job := range ctx.jobs {
		if job.completedAt == nil {
			openJobs++
		}
	}

	var dueTasks int
	for _, task := range ctx.tasks {
		if task.completedAt == nil && !ctx.time.Before(task.dueAt) {
			dueTasks++
		}
	}

	var openUserTasks int
	for _, userTask := range ctx.userTasks {
		if userTask.completedAt == nil {
			openUserTasks++
		}
	}

	return []zap.Field{
		zap.String("engineId", ctx.engineId()),
		zap.Time("time", ctx.time),
		zap.Int("deployments", len(ctx.deployments)),
		zap.Int("activeProcessInstances", activeProcessInstances),
		zap.Int("dueTasks", dueTasks),
		zap.Int("openJobs", openJobs),
		zap.Int("openUserTasks", openUserTasks),
		zap.Int("subscriptions", len(ctx.subscriptions)),
	}
}
