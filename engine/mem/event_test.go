package mem

import (
	"context"
	"testing"
	"time"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryEvent(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "event/boundary-error.bpmn")
	mustCreateDeployment(t, e, "event/boundary-non-interrupting.bpmn")

	t.Run("error", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "boundaryError"})
		piAssert.IsWaitingAt("pay")

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ErrorCode: "PAYMENT_FAILED"},
		})

		// then
		piAssert.HasPassed("failed")
		piAssert.HasPassed("notPaid")
		piAssert.IsCompleted()

		elementInstances := piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: "pay"})
		require.Len(t, elementInstances, 1)
		assert.Equal(engine.InstanceTerminated, elementInstances[0].State)
	})

	t.Run("escalation", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "boundaryError"})
		piAssert.IsWaitingAt("pay")

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{EscalationCode: "PAYMENT_LATE"},
		})

		// then
		piAssert.HasPassed("late")
		piAssert.HasPassed("reminded")
		piAssert.HasPassed("pay")
		piAssert.HasPassed("paid")
		piAssert.IsCompleted()
	})

	t.Run("escalation thrown at active element instance", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "boundaryError"})
		piAssert.IsWaitingAt("pay")

		// when
		err := e.Throw(context.Background(), engine.ThrowCmd{
			ElementInstanceId: piAssert.ElementInstance().Id,
			EscalationCode:    "PAYMENT_LATE",
			WorkerId:          testWorkerId,
		})
		require.NoError(t, err)

		// then
		piAssert.HasPassed("reminded")
		piAssert.IsWaitingAt("pay")

		piAssert.CompleteJob()
		piAssert.HasPassed("paid")
		piAssert.IsCompleted()
	})

	t.Run("error thrown at active element instance", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "boundaryError"})
		piAssert.IsWaitingAt("pay")

		// when
		err := e.Throw(context.Background(), engine.ThrowCmd{
			ElementInstanceId: piAssert.ElementInstance().Id,
			ErrorCode:         "PAYMENT_FAILED",
			Variables:         map[string]any{"reason": "insufficient funds"},
			WorkerId:          testWorkerId,
		})
		require.NoError(t, err)

		// then
		piAssert.HasPassed("notPaid")
		piAssert.IsCompleted()
		assert.Equal("insufficient funds", piAssert.ProcessVariable("reason"))
	})

	t.Run("returns error when error code is not caught", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "boundaryError"})
		piAssert.IsWaitingAt("pay")

		// when
		err := e.Throw(context.Background(), engine.ThrowCmd{
			ElementInstanceId: piAssert.ElementInstance().Id,
			ErrorCode:         "UNKNOWN",
			WorkerId:          testWorkerId,
		})

		// then
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorConflict, engineErr.Type)

		piAssert.IsWaitingAt("pay")
	})

	t.Run("non-interrupting", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "boundaryNonInterrupting",
			BusinessKey:   "non-interrupting",
		})
		piAssert.IsWaitingAt("T")

		// when
		mustSendMessage(t, e, engine.SendMessageCmd{Name: "reminder", CorrelationKey: "non-interrupting"})

		// then
		piAssert.HasPassed("b")
		piAssert.IsWaitingAt("T")
		piAssert.IsWaitingAt("notify")

		// boundary event stays subscribed
		subscriptions := mustQuerySubscriptions(t, e, engine.SubscriptionCriteria{BpmnElementId: "b"})
		require.Len(t, subscriptions, 1)

		piAssert.CompleteJob()
		piAssert.HasPassed("Notified")

		piAssert.IsWaitingAt("T")
		piAssert.CompleteUserTask()

		piAssert.IsWaitingAt("after")
		piAssert.CompleteJob()

		piAssert.HasPassed("End")
		piAssert.IsCompleted()

		assert.Empty(mustQuerySubscriptions(t, e, engine.SubscriptionCriteria{BpmnElementId: "b"}))
	})
}

func TestCatchEvent(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "event/catch.bpmn")

	// given
	piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "catch"})
	processInstanceId := piAssert.ProcessInstance().Id

	piAssert.IsWaitingAt("signalCatch")
	mustSendSignal(t, e, "go")

	// when
	piAssert.IsWaitingAt("conditionalCatch")

	subscriptions := mustQuerySubscriptions(t, e, engine.SubscriptionCriteria{BpmnElementId: "conditionalCatch"})
	require.Len(t, subscriptions, 1)
	assert.Equal(engine.SubscriptionConditional, subscriptions[0].Type)
	assert.Equal("${approved == true}", subscriptions[0].Condition)

	err := e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
		ProcessInstanceId: processInstanceId,
		Variables:         map[string]any{"approved": false},
		WorkerId:          testWorkerId,
	})
	require.NoError(t, err)

	// then
	piAssert.IsWaitingAt("conditionalCatch")

	// when
	err = e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
		ProcessInstanceId: processInstanceId,
		Variables:         map[string]any{"approved": true},
		WorkerId:          testWorkerId,
	})
	require.NoError(t, err)

	// then
	piAssert.IsWaitingAt("timerCatch")

	task := piAssert.Task()
	assert.Equal(24*time.Hour, task.DueAt.Sub(task.CreatedAt))

	// when
	piAssert.IsWaitingAt("timerCatch")
	piAssert.ExecuteTask()

	// then
	piAssert.HasPassed("linkThrow")
	piAssert.HasPassed("linkCatch")
	piAssert.HasPassed("signalThrow")
	piAssert.HasPassed("end")
	piAssert.IsCompleted()
}

func TestSubProcess(t *testing.T) {
	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "sub-process/sub-process.bpmn")

	t.Run("completed", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "subProcess"})
		piAssert.IsWaitingAt("sp")
		piAssert.IsWaitingAt("review")

		// when
		piAssert.CompleteUserTask()

		piAssert.IsWaitingAt("decision")
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "spEnd"},
		})

		// then
		piAssert.HasPassed("spEnd")
		piAssert.HasPassed("sp")
		piAssert.HasPassed("approved")
		piAssert.IsCompleted()
	})

	t.Run("error end event", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "subProcess"})
		piAssert.IsWaitingAt("review")
		piAssert.CompleteUserTask()

		// when
		piAssert.IsWaitingAt("decision")
		piAssert.CompleteJob(engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ExclusiveGatewayDecision: "s4"},
		})

		// then
		piAssert.HasPassed("spError")
		piAssert.HasPassed("onRejected")
		piAssert.HasPassed("rejectedEnd")
		piAssert.IsNotWaitingAt("sp")
		piAssert.IsCompleted()
	})

	t.Run("message boundary event", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "subProcess", BusinessKey: "abort"})
		piAssert.IsWaitingAt("review")

		// when
		mustSendMessage(t, e, engine.SendMessageCmd{Name: "abort", CorrelationKey: "abort"})

		// then
		piAssert.IsNotWaitingAt("review")
		piAssert.HasPassed("onAbort")
		piAssert.HasPassed("abortedEnd")
		piAssert.IsCompleted()

		userTasks, err := e.CreateQuery().QueryUserTasks(context.Background(), engine.UserTaskCriteria{
			ProcessInstanceId: piAssert.ProcessInstance().Id,
			ExcludeCompleted:  true,
		})
		require.NoError(t, err)
		assert.Empty(t, userTasks)
	})
}
