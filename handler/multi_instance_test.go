package handler

import (
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiInstance(t *testing.T) {
	assert := assert.New(t)

	t.Run("parallel and sequential", func(t *testing.T) {
		// given
		tc := newTestCase(t, "multi-instance/multi-instance.bpmn", "")

		approve, ok := tc.Handler("approve").(*MultiInstanceHandler)
		require.True(t, ok)
		assert.IsType(&UserTaskHandler{}, approve.Inner())

		notify, ok := tc.Handler("notify").(*MultiInstanceHandler)
		require.True(t, ok)
		assert.IsType(&JobHandler{}, notify.Inner())

		approve.WithInstances(3)
		notify.WithInstances(2)

		var recipients []any
		notify.Inner().(*JobHandler).Execute(func(c *testcase.Context, job engine.Job) error {
			elementVariables, err := c.ElementVariables(job.ElementInstanceId, "recipient")
			if err != nil {
				return err
			}
			recipients = append(recipients, elementVariables["recipient"])
			return nil
		})

		// when
		processInstance := tc.Executor().WithVariable("recipients", []any{"alice", "bob"}).Execute()

		// then
		assert.Equal([]any{"alice", "bob"}, recipients)

		userTasks, err := tc.Engine().CreateQuery().QueryUserTasks(t.Context(), engine.UserTaskCriteria{
			ProcessInstanceId: processInstance.Id,
			BpmnElementId:     "approve",
		})
		require.NoError(t, err)
		assert.Len(userTasks, 3)

		jobs, err := tc.Engine().CreateQuery().QueryJobs(t.Context(), engine.JobCriteria{
			ProcessInstanceId: processInstance.Id,
			BpmnElementId:     "notify",
		})
		require.NoError(t, err)
		assert.Len(jobs, 2)
	})

	t.Run("returns error when number of instances is unexpected", func(t *testing.T) {
		// given
		tc := mustOpen(t, testcase.Config{BpmnFile: bpmnFile("multi-instance/multi-instance.bpmn")})
		tc.Handler("approve").(*MultiInstanceHandler).WithInstances(2)

		// when
		_, err := tc.Executor().WithVariable("recipients", []any{"alice"}).Run(t.Context())

		// then
		require.Error(t, err)
		assert.True(testcase.IsErrorType(err, testcase.ErrorAssertion))

		var testcaseErr testcase.Error
		require.ErrorAs(t, err, &testcaseErr)
		assert.Equal(2, testcaseErr.Expected)
		assert.Equal(3, testcaseErr.Actual)
	})

	t.Run("returns error when no body is active", func(t *testing.T) {
		// given
		tc := mustOpen(t, testcase.Config{BpmnFile: bpmnFile("gateway/parallel.bpmn")})
		tc.Handle("A", MultiInstance(UserTask()))

		// when
		_, err := tc.Executor().Run(t.Context())

		// then
		assert.True(testcase.IsErrorType(err, testcase.ErrorUnexpectedPosition))
	})
}
