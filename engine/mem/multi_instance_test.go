package mem

import (
	"context"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiInstance(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "multi-instance/multi-instance.bpmn")

	mustGetElementVariables := func(t *testing.T, elementInstanceId int32) map[string]any {
		variables, err := e.GetElementVariables(context.Background(), engine.GetElementVariablesCmd{
			ElementInstanceId: elementInstanceId,
		})
		if err != nil {
			t.Fatalf("failed to get element variables: %v", err)
		}
		return variables
	}

	findBody := func(t *testing.T, piAssert *engine.ProcessInstanceAssert, bpmnElementId string) engine.ElementInstance {
		for _, elementInstance := range piAssert.ElementInstances(engine.ElementInstanceCriteria{BpmnElementId: bpmnElementId}) {
			if elementInstance.IsMultiInstance {
				return elementInstance
			}
		}
		t.Fatalf("no multi instance body of %s found", bpmnElementId)
		return engine.ElementInstance{}
	}

	t.Run("parallel and sequential", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "multiInstance",
			Variables:     map[string]any{"recipients": []any{"alice", "bob"}},
		})

		userTasks, err := e.CreateQuery().QueryUserTasks(context.Background(), engine.UserTaskCriteria{
			ProcessInstanceId: piAssert.ProcessInstance().Id,
			BpmnElementId:     "approve",
		})
		require.NoError(t, err)
		assert.Len(userTasks, 3)

		body := findBody(t, piAssert, "approve")
		assert.Equal(map[string]any{
			"nrOfActiveInstances":    3,
			"nrOfCompletedInstances": 0,
			"nrOfInstances":          3,
		}, mustGetElementVariables(t, body.Id))

		// when
		for i := 0; i < 3; i++ {
			piAssert.IsWaitingAt("approve")
			piAssert.CompleteUserTask()
		}

		// then
		piAssert.HasPassed("approve")
		assert.Equal(map[string]any{
			"nrOfActiveInstances":    0,
			"nrOfCompletedInstances": 3,
			"nrOfInstances":          3,
		}, mustGetElementVariables(t, body.Id))

		// when
		for i, recipient := range []string{"alice", "bob"} {
			piAssert.IsWaitingAt("notify")

			job := piAssert.Job()
			assert.Equal(map[string]any{
				"loopCounter": i,
				"recipient":   recipient,
			}, mustGetElementVariables(t, job.ElementInstanceId))

			jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{
				ProcessInstanceId: piAssert.ProcessInstance().Id,
				BpmnElementId:     "notify",
				ExcludeCompleted:  true,
			})
			require.NoError(t, err)
			assert.Len(jobs, 1, "sequential")

			piAssert.CompleteJob()
		}

		// then
		piAssert.HasPassed("notify")
		piAssert.HasPassed("end")
		piAssert.IsCompleted()
	})

	t.Run("empty collection", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "multiInstance",
			Variables:     map[string]any{"recipients": []any{}},
		})

		for i := 0; i < 3; i++ {
			piAssert.IsWaitingAt("approve")
			piAssert.CompleteUserTask()
		}

		// then
		piAssert.HasPassed("notify")
		piAssert.IsCompleted()
	})

	t.Run("returns error when collection is not a collection", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "multiInstance",
			Variables:     map[string]any{"recipients": "alice"},
		})

		for i := 0; i < 2; i++ {
			piAssert.IsWaitingAt("approve")
			piAssert.CompleteUserTask()
		}

		piAssert.IsWaitingAt("approve")
		userTask := piAssert.UserTask()

		// when
		_, err := e.CompleteUserTask(context.Background(), engine.CompleteUserTaskCmd{Id: userTask.Id, WorkerId: testWorkerId})

		// then
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorProcessModel, engineErr.Type)
	})
}
