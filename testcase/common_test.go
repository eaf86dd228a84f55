package testcase

import (
	"context"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
)

func bpmnFile(fileName string) string {
	return "../test/bpmn/" + fileName
}

// completeJob completes the open job of the handled element.
func completeJob(completion *engine.JobCompletion, variables map[string]any) Handler {
	return HandlerFunc(func(c *Context, _ path.Step) error {
		job, err := c.LockJob(c.Element().Id)
		if err != nil {
			return err
		}

		_, err = c.Engine().CompleteJob(c.Context(), engine.CompleteJobCmd{
			Id:               job.Id,
			Completion:       completion,
			ProcessVariables: variables,
			WorkerId:         c.WorkerId(),
		})
		return err
	})
}

// completeUserTask completes the open user task of the handled element.
func completeUserTask() Handler {
	return HandlerFunc(func(c *Context, _ path.Step) error {
		userTask, err := c.UserTask(c.Element().Id)
		if err != nil {
			return err
		}

		_, err = c.Engine().CompleteUserTask(c.Context(), engine.CompleteUserTaskCmd{
			Id:       userTask.Id,
			WorkerId: c.WorkerId(),
		})
		return err
	})
}

// decide completes the decision job of a gateway with the sequence flow, taken by the step.
func decide() Handler {
	return HandlerFunc(func(c *Context, step path.Step) error {
		return completeJob(&engine.JobCompletion{ExclusiveGatewayDecision: step.Chosen().Id}, nil).Apply(c, step)
	})
}

// executeTimer advances the clock and executes the timer task of the handled element.
func executeTimer() Handler {
	return HandlerFunc(func(c *Context, _ path.Step) error {
		task, err := c.Task(c.Element().Id)
		if err != nil {
			return err
		}
		if err := c.Clock().Advance(c.Context(), task.DueAt); err != nil {
			return err
		}

		_, _, err = c.Engine().ExecuteTasks(c.Context(), engine.ExecuteTasksCmd{Id: task.Id})
		return err
	})
}

// noop does nothing, so that the engine keeps waiting.
func noop() Handler {
	return HandlerFunc(func(*Context, path.Step) error {
		return nil
	})
}

type finishingHandler struct {
	finished int
}

func (h *finishingHandler) Apply(c *Context, step path.Step) error {
	return completeJob(nil, nil).Apply(c, step)
}

func (h *finishingHandler) Finish() error {
	h.finished++
	return nil
}

type mockingHandler struct {
	name  string
	value any
}

func (h mockingHandler) Apply(c *Context, step path.Step) error {
	return completeJob(nil, map[string]any{"x": 7}).Apply(c, step)
}

func (h mockingHandler) Configure(c *Context) error {
	c.Engine().Mocks().Register(h.name, h.value)
	return nil
}

func mustOpen(t *testing.T, config Config) *Instance {
	i, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open test case: %v", err)
	}
	return i
}

func mustQueryDeployments(t *testing.T, e engine.Engine, id string) []engine.Deployment {
	deployments, err := e.CreateQuery().QueryDeployments(context.Background(), engine.DeploymentCriteria{Id: id})
	if err != nil {
		t.Fatalf("failed to query deployments: %v", err)
	}
	return deployments
}
