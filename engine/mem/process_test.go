package mem

import (
	"context"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProcessInstance(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "task/service.bpmn")
	mustCreateDeployment(t, e, "event/event-sub-process.bpmn")

	t.Run("create", func(t *testing.T) {
		// when
		processInstance, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			BpmnProcessId: "linear",
			BusinessKey:   "order-1",
			Variables:     map[string]any{"a": "b", "x": 1},
			WorkerId:      testWorkerId,
		})

		// then
		require.NoError(t, err)

		assert.NotEmpty(processInstance.Id)
		assert.Equal(processInstance.Id, processInstance.RootId)
		assert.Empty(processInstance.ParentId)
		assert.Equal("linear", processInstance.BpmnProcessId)
		assert.Equal("order-1", processInstance.BusinessKey)
		assert.Equal(testWorkerId, processInstance.CreatedBy)
		assert.Equal(engine.InstanceStarted, processInstance.State)
		assert.Equal(1, processInstance.Version)

		variables, err := e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{
			ProcessInstanceId: processInstance.Id,
		})
		require.NoError(t, err)
		assert.Equal(map[string]any{"a": "b", "x": 1}, variables)

		piAssert := engine.Assert(t, e, processInstance)
		piAssert.HasPassed("start")
		piAssert.IsWaitingAt("t1")

		job := piAssert.Job()
		assert.Equal(engine.JobExecute, job.Type)
		assert.Equal("doSomething", job.Topic)
		assert.Equal("order-1", job.BusinessKey)
	})

	t.Run("returns error when process not exists", func(t *testing.T) {
		_, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			BpmnProcessId: "not-existing",
			WorkerId:      testWorkerId,
		})
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorNotFound, engineErr.Type)
	})

	t.Run("returns error when start element is not a start event of the process", func(t *testing.T) {
		for _, bpmnStartElementId := range []string{"t1", "not-existing"} {
			_, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
				BpmnProcessId:      "linear",
				BpmnStartElementId: bpmnStartElementId,
				WorkerId:           testWorkerId,
			})
			assert.IsTypef(engine.Error{}, err, "expected engine error")

			engineErr := err.(engine.Error)
			assert.Equal(engine.ErrorNotFound, engineErr.Type)
		}
	})

	t.Run("returns error when start element is nested", func(t *testing.T) {
		_, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			BpmnProcessId:      "eventSubProcess",
			BpmnStartElementId: "cancelStart",
			WorkerId:           testWorkerId,
		})
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorNotFound, engineErr.Type)
	})

	t.Run("returns error when variable name is invalid", func(t *testing.T) {
		_, err := e.CreateProcessInstance(context.Background(), engine.CreateProcessInstanceCmd{
			BpmnProcessId: "linear",
			Variables:     map[string]any{"a b": 1},
			WorkerId:      testWorkerId,
		})
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorValidation, engineErr.Type)
	})
}

func TestCallActivity(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "call-activity/call-activity.bpmn")

	t.Run("child process instance", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "callActivity",
			BusinessKey:   "ca-1",
			Variables:     map[string]any{"input": "a"},
		})
		piAssert.IsWaitingAt("ca")

		parent := piAssert.ProcessInstance()

		children, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{
			ParentId: parent.Id,
		})
		require.NoError(t, err)
		require.Len(t, children, 1)

		child := children[0]
		assert.Equal("child", child.BpmnProcessId)
		assert.Equal(parent.Id, child.RootId)
		assert.Equal("ca-1", child.BusinessKey)
		assert.Equal(engine.DefaultEngineId, child.CreatedBy)

		childAssert := engine.Assert(t, e, child)
		childAssert.HasProcessVariable("input")
		childAssert.IsWaitingAt("childTask")

		// when
		childAssert.CompleteJob(engine.CompleteJobCmd{
			ProcessVariables: map[string]any{"x": 7},
		})

		// then
		childAssert.IsCompleted()

		piAssert.HasPassed("ca")
		piAssert.IsCompleted()
		assert.Equal(7, piAssert.ProcessVariable("x"))
	})

	t.Run("mocked", func(t *testing.T) {
		// given
		e.Mocks().Register("child", true)
		defer e.Mocks().Reset()

		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "callActivity"})
		piAssert.IsWaitingAt("ca")

		job := piAssert.Job()
		assert.Equal(engine.JobCallActivity, job.Type)
		assert.Equal("child", job.Topic)

		// when
		piAssert.CompleteJob(engine.CompleteJobCmd{
			ProcessVariables: map[string]any{"x": 7},
		})

		// then
		piAssert.IsCompleted()
		assert.Equal(7, piAssert.ProcessVariable("x"))

		children, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{
			ParentId: piAssert.ProcessInstance().Id,
		})
		require.NoError(t, err)
		assert.Empty(children)
	})

	t.Run("returns error when BPMN error is not caught", func(t *testing.T) {
		// given
		e.Mocks().Register("child", true)
		defer e.Mocks().Reset()

		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "callActivity"})
		piAssert.IsWaitingAt("ca")

		// when
		piAssert.CompleteJobWithError(engine.ErrorConflict, engine.CompleteJobCmd{
			Completion: &engine.JobCompletion{ErrorCode: "not-caught"},
		})

		// then
		piAssert.IsWaitingAt("ca")
	})
}

func TestHistoryLevel(t *testing.T) {
	assert := assert.New(t)

	createAndComplete := func(t *testing.T, historyLevel engine.HistoryLevel) (engine.Engine, engine.ProcessInstance) {
		e := mustCreateEngine(t, func(o *Options) {
			o.Common.HistoryLevel = historyLevel
		})

		mustCreateDeployment(t, e, "task/service.bpmn")

		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "linear",
			Variables:     map[string]any{"a": 1},
		})
		processInstance := piAssert.ProcessInstance()

		piAssert.IsWaitingAt("t1")
		piAssert.CompleteJob()

		return e, processInstance
	}

	t.Run("none", func(t *testing.T) {
		e, processInstance := createAndComplete(t, engine.HistoryNone)
		defer e.Shutdown()

		q := e.CreateQuery()

		processInstances, err := q.QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
		assert.Nil(err)
		assert.Empty(processInstances)

		elementInstances, err := q.QueryElementInstances(context.Background(), engine.ElementInstanceCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		assert.Empty(elementInstances)
	})

	t.Run("activity", func(t *testing.T) {
		e, processInstance := createAndComplete(t, engine.HistoryActivity)
		defer e.Shutdown()

		q := e.CreateQuery()

		elementInstances, err := q.QueryElementInstances(context.Background(), engine.ElementInstanceCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		assert.Len(elementInstances, 4) // process, start, t1, End

		jobs, err := q.QueryJobs(context.Background(), engine.JobCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		assert.Empty(jobs)

		variables, err := q.QueryVariables(context.Background(), engine.VariableCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		assert.Empty(variables)
	})

	t.Run("full", func(t *testing.T) {
		e, processInstance := createAndComplete(t, engine.HistoryFull)
		defer e.Shutdown()

		q := e.CreateQuery()

		jobs, err := q.QueryJobs(context.Background(), engine.JobCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		require.Len(t, jobs, 1)
		assert.True(jobs[0].IsCompleted())
		assert.Equal("test-worker", jobs[0].CompletedBy)

		variables, err := q.QueryVariables(context.Background(), engine.VariableCriteria{ProcessInstanceId: processInstance.Id})
		assert.Nil(err)
		assert.Len(variables, 1)
	})
}

func TestProcessVariables(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	mustCreateDeployment(t, e, "task/service.bpmn")

	t.Run("set and delete", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{
			BpmnProcessId: "linear",
			Variables:     map[string]any{"a": 1, "b": 2},
		})
		processInstanceId := piAssert.ProcessInstance().Id

		// when
		err := e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
			ProcessInstanceId: processInstanceId,
			Variables:         map[string]any{"a": nil, "b": 3, "c": "x"},
			WorkerId:          testWorkerId,
		})

		// then
		require.NoError(t, err)

		piAssert.HasNoProcessVariable("a")
		assert.Equal(3, piAssert.ProcessVariable("b"))
		assert.Equal("x", piAssert.ProcessVariable("c"))

		variables, err := e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{
			ProcessInstanceId: processInstanceId,
			Names:             []string{"c"},
		})
		require.NoError(t, err)
		assert.Equal(map[string]any{"c": "x"}, variables)
	})

	t.Run("returns error when process instance not exists", func(t *testing.T) {
		err := e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
			ProcessInstanceId: 9999,
			WorkerId:          testWorkerId,
		})
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorNotFound, engineErr.Type)

		_, err = e.GetProcessVariables(context.Background(), engine.GetProcessVariablesCmd{ProcessInstanceId: 9999})
		assert.IsTypef(engine.Error{}, err, "expected engine error")
	})

	t.Run("returns error when process instance is ended", func(t *testing.T) {
		// given
		piAssert := mustCreateProcessInstance(t, e, engine.CreateProcessInstanceCmd{BpmnProcessId: "linear"})
		piAssert.IsWaitingAt("t1")
		piAssert.CompleteJob()

		// when
		err := e.SetProcessVariables(context.Background(), engine.SetProcessVariablesCmd{
			ProcessInstanceId: piAssert.ProcessInstance().Id,
			Variables:         map[string]any{"a": 1},
			WorkerId:          testWorkerId,
		})

		// then
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorConflict, engineErr.Type)
	})
}
