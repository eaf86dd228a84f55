package testcase

import (
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sendMessage sends a message, correlated with the process instance under test.
func sendMessage(name string) Handler {
	return HandlerFunc(func(c *Context, _ path.Step) error {
		if _, err := c.Subscription(c.Element().Id, engine.SubscriptionMessage); err != nil {
			return err
		}

		_, err := c.Engine().SendMessage(c.Context(), engine.SendMessageCmd{
			Name:              name,
			ProcessInstanceId: c.ProcessInstance().Id,
			WorkerId:          c.WorkerId(),
		})
		return err
	})
}

func TestDriver(t *testing.T) {
	assert := assert.New(t)

	t.Run("linear", func(t *testing.T) {
		// given
		i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("task/service.bpmn")})
		i.Handle("t1", completeJob(nil, map[string]any{"a": "b"}))

		// when
		processInstance := i.Executor().
			Verify(func(piAssert *engine.ProcessInstanceAssert) {
				piAssert.HasPassed("t1")
				piAssert.HasPassed("End")
				assert.Equal("b", piAssert.ProcessVariable("a"))
			}).
			Execute()

		// then
		assert.Equal(engine.InstanceCompleted, processInstance.State)
		assert.Equal(StateEnded, i.State())
	})

	t.Run("exclusive", func(t *testing.T) {
		for _, key := range []string{"start__g1__A__End1", "start__g1__B__End2"} {
			t.Run(key, func(t *testing.T) {
				// given
				i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/exclusive.bpmn"), PathKey: key})
				i.Handle("g1", decide())
				i.Handle("A", completeJob(nil, nil))
				i.Handle("B", completeJob(nil, nil))

				// when
				i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
					piAssert.HasPassed(i.Path().End().Id)
					piAssert.IsCompleted()
				}).Execute()

				// then
				assert.Equal(StateEnded, i.State())
			})
		}
	})

	t.Run("parallel", func(t *testing.T) {
		// given
		i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/parallel.bpmn")})
		i.Handle("A", completeUserTask())
		i.Handle("B", completeUserTask())

		// when
		i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
			piAssert.HasPassed("A")
			piAssert.HasPassed("B")
			piAssert.HasPassed("g2")
			piAssert.IsCompleted()
		}).Execute()

		// then
		assert.Equal("start__g1__A__B__g2__End", i.Path().Key())
	})

	t.Run("boundary timer", func(t *testing.T) {
		t.Run("completed", func(t *testing.T) {
			i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("event/boundary-timer.bpmn"), PathKey: "start__T__End"})
			i.Handle("T", completeUserTask())
			i.Handle("b", executeTimer())

			i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
				piAssert.HasPassed("End")
			}).Execute()

			assert.True(i.Clock().Now().IsZero())
		})

		t.Run("timed out", func(t *testing.T) {
			i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("event/boundary-timer.bpmn"), PathKey: "start__T__b__TimedOut"})
			i.Handle("T", completeUserTask())
			i.Handle("b", executeTimer())

			i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
				piAssert.HasPassed("b")
				piAssert.HasPassed("TimedOut")
			}).Execute()

			assert.False(i.Clock().Now().IsZero())
		})
	})

	t.Run("event-based gateway", func(t *testing.T) {
		t.Run("message", func(t *testing.T) {
			i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/event-based.bpmn"), PathKey: "start__ebg__m__End1"})
			i.Handle("m", sendMessage("paymentReceived"))
			i.Handle("t", executeTimer())

			i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
				piAssert.HasPassed("m")
				piAssert.HasPassed("End1")
			}).Execute()
		})

		t.Run("timer", func(t *testing.T) {
			i := New(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/event-based.bpmn"), PathKey: "start__ebg__t__End2"})
			i.Handle("m", sendMessage("paymentReceived"))
			i.Handle("t", executeTimer())

			i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
				piAssert.HasPassed("t")
				piAssert.HasPassed("End2")
			}).Execute()
		})
	})

	t.Run("call activity with mock", func(t *testing.T) {
		// given
		i := New(t, Config{
			EngineName: t.Name(),
			BpmnFile:   bpmnFile("call-activity/call-activity.bpmn"),
			ProcessId:  "callActivity",
		})
		i.Handle("ca", mockingHandler{name: "child", value: true})

		// when
		i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
			piAssert.HasPassed("ca")
			assert.Equal(7, piAssert.ProcessVariable("x"))
		}).Execute()

		// then
		assert.False(i.Engine().Mocks().Has("child"))
	})

	t.Run("call activity with nested path", func(t *testing.T) {
		// given
		i := New(t, Config{
			EngineName: t.Name(),
			BpmnFile:   bpmnFile("call-activity/call-activity.bpmn"),
			ProcessId:  "callActivity",
		})

		childPaths, err := path.Enumerate(i.Model(), "child")
		require.NoError(t, err)
		require.Len(t, childPaths, 1)

		i.Handle("ca", HandlerFunc(func(c *Context, _ path.Step) error {
			children, err := c.Engine().CreateQuery().QueryProcessInstances(c.Context(), engine.ProcessInstanceCriteria{
				ParentId: c.ProcessInstance().Id,
			})
			if err != nil {
				return err
			}
			require.Len(t, children, 1)

			return c.Drive(children[0], childPaths[0], Handlers{
				"childTask": completeJob(nil, map[string]any{"fromChild": true}),
			})
		}))

		// when
		i.Executor().Verify(func(piAssert *engine.ProcessInstanceAssert) {
			piAssert.HasPassed("ca")
			piAssert.IsCompleted()
		}).Execute()

		// then
		assert.Equal(StateEnded, i.State())
	})

	t.Run("returns error when handler is missing", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("task/service.bpmn")})
		defer i.Finish()

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorUnhandledNode))
		assert.Contains(err.Error(), "t1")
		assert.Equal(StateFailed, i.State())
	})

	t.Run("returns error when handler of unknown element is configured", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("task/service.bpmn")})
		defer i.Finish()

		i.Handle("t1", completeJob(nil, nil))
		i.Handle("unknown", mockingHandler{name: "unknown"})

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		assert.True(IsErrorType(err, ErrorUnhandledNode))
		assert.Contains(err.Error(), "unknown")
	})

	t.Run("returns error when decision deviates from path", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/exclusive.bpmn"), PathKey: "start__g1__A__End1"})
		defer i.Finish()

		i.Handle("g1", completeJob(&engine.JobCompletion{ExclusiveGatewayDecision: "B"}, nil))
		i.Handle("A", completeJob(nil, nil))
		i.Handle("B", completeJob(nil, nil))

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorUnexpectedPosition))

		var testcaseErr Error
		require.ErrorAs(t, err, &testcaseErr)
		assert.Equal([]string{"A"}, testcaseErr.Expected)
		assert.Equal([]string{"B"}, testcaseErr.Actual)
	})

	t.Run("returns error when process instance is not completed", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("task/service.bpmn")})
		defer i.Finish()

		i.Handle("t1", noop())

		// when
		processInstance, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorUnexpectedPosition))
		assert.Equal(engine.InstanceStarted, processInstance.State)

		var testcaseErr Error
		require.ErrorAs(t, err, &testcaseErr)
		assert.Equal([]string{"End"}, testcaseErr.Expected)
		assert.Equal([]string{"t1"}, testcaseErr.Actual)
	})

	t.Run("returns error when process instance waits at join", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{
			EngineName: t.Name(),
			BpmnFile:   bpmnFile("parallel/branch-end.bpmn"),
			ProcessId:  "exclusiveBranchEnd",
		})
		defer i.Finish()

		i.Handle("A", completeJob(nil, nil))
		i.Handle("xor", completeJob(&engine.JobCompletion{ExclusiveGatewayDecision: "aborted"}, nil))
		i.Handle("B", completeUserTask())

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorUnexpectedPosition))

		var testcaseErr Error
		require.ErrorAs(t, err, &testcaseErr)
		assert.Equal([]string{"end"}, testcaseErr.Expected)
		assert.Equal([]string{"join"}, testcaseErr.Actual)
	})

	t.Run("returns error when boundary event is triggered at unexpected position", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{
			EngineName: t.Name(),
			BpmnFile:   bpmnFile("parallel/boundary-non-interrupting.bpmn"),
			PathKey:    "start__fork__A__B__b__notify__notifyEnd__join__end",
		})
		defer i.Finish()

		i.Handle("A", noop())
		i.Handle("B", completeUserTask())
		i.Handle("b", executeTimer())
		i.Handle("notify", completeJob(nil, nil))

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorUnexpectedPosition))

		var testcaseErr Error
		require.ErrorAs(t, err, &testcaseErr)
		assert.Equal([]string{"B"}, testcaseErr.Expected)
		assert.Equal([]string{"A", "B"}, testcaseErr.Actual)
		assert.True(i.Clock().Now().IsZero())
	})

	t.Run("returns error when handler fails", func(t *testing.T) {
		// given
		i := mustOpen(t, Config{EngineName: t.Name(), BpmnFile: bpmnFile("gateway/parallel.bpmn")})
		defer i.Finish()

		i.Handle("A", completeUserTask())
		i.Handle("B", executeTimer())

		// when
		_, err := i.Executor().Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(IsErrorType(err, ErrorAssertion))
		assert.Contains(err.Error(), "B")
	})
}
