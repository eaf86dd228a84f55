package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"testing"
)

const assertWorkerId = "test-worker"

func Assert(t testing.TB, e Engine, processInstance ProcessInstance) *ProcessInstanceAssert {
	return &ProcessInstanceAssert{
		t: t,
		e: e,

		processInstanceId: processInstance.Id,
	}
}

// ProcessInstanceAssert asserts the state of a process instance and drives it, using the API of an engine.
//
// Methods, which require an element instance, must be called after IsWaitingAt.
type ProcessInstanceAssert struct {
	t testing.TB
	e Engine

	processInstanceId int32
	elementInstanceId int32
	bpmnElementId     string
}

func (a *ProcessInstanceAssert) CompleteJob(completeJobCmds ...CompleteJobCmd) Job {
	job := a.Job()

	lockedJobs, err := a.e.LockJobs(context.Background(), LockJobsCmd{
		Id:       job.Id,
		WorkerId: assertWorkerId,
	})
	if err != nil {
		a.Fatalf("failed to lock job: %v", err)
	}

	if len(lockedJobs) == 0 {
		a.Fatalf("no job locked")
	}

	var completeJobCmd CompleteJobCmd
	if len(completeJobCmds) != 0 {
		completeJobCmd = completeJobCmds[0]
	}

	completeJobCmd.Id = lockedJobs[0].Id
	completeJobCmd.WorkerId = assertWorkerId

	completedJob, err := a.e.CompleteJob(context.Background(), completeJobCmd)
	if err != nil {
		a.Fatalf("failed to complete job %s: %v", lockedJobs[0], err)
	}

	a.reset()
	return completedJob
}

// CompleteJobWithError completes the active job and expects the engine to return an error of the given type.
func (a *ProcessInstanceAssert) CompleteJobWithError(errorType ErrorType, completeJobCmds ...CompleteJobCmd) Error {
	job := a.Job()

	if !job.IsLocked() {
		if _, err := a.e.LockJobs(context.Background(), LockJobsCmd{Id: job.Id, WorkerId: assertWorkerId}); err != nil {
			a.Fatalf("failed to lock job: %v", err)
		}
	}

	var completeJobCmd CompleteJobCmd
	if len(completeJobCmds) != 0 {
		completeJobCmd = completeJobCmds[0]
	}

	completeJobCmd.Id = job.Id
	completeJobCmd.WorkerId = assertWorkerId

	_, err := a.e.CompleteJob(context.Background(), completeJobCmd)
	if err == nil {
		a.Fatalf("expected job %s to complete with an error, but is not", job)
	}

	engineErr, ok := err.(Error)
	if !ok {
		a.Fatalf("expected job %s to complete with an engine error, but got %v", job, err)
	}
	if engineErr.Type != errorType {
		a.Fatalf("expected job %s to complete with an error of type %s, but got %v", job, errorType, err)
	}

	return engineErr
}

func (a *ProcessInstanceAssert) CompleteUserTask(completeUserTaskCmds ...CompleteUserTaskCmd) UserTask {
	userTask := a.UserTask()

	var completeUserTaskCmd CompleteUserTaskCmd
	if len(completeUserTaskCmds) != 0 {
		completeUserTaskCmd = completeUserTaskCmds[0]
	}

	completeUserTaskCmd.Id = userTask.Id
	completeUserTaskCmd.WorkerId = assertWorkerId

	completedUserTask, err := a.e.CompleteUserTask(context.Background(), completeUserTaskCmd)
	if err != nil {
		a.Fatalf("failed to complete user task %s: %v", userTask, err)
	}

	a.reset()
	return completedUserTask
}

func (a *ProcessInstanceAssert) ElementInstance() ElementInstance {
	if a.elementInstanceId == 0 {
		a.Fatalf("call IsWaitingAt first")
	}

	results, err := a.e.CreateQuery().QueryElementInstances(context.Background(), ElementInstanceCriteria{
		Id: a.elementInstanceId,
	})
	if err != nil {
		a.Fatalf("failed to query element instance: %v", err)
	}

	if len(results) != 1 {
		a.Fatalf("expected one element instance, but got %d", len(results))
	}

	return results[0]
}

func (a *ProcessInstanceAssert) ElementInstances(criteria ...ElementInstanceCriteria) []ElementInstance {
	var c ElementInstanceCriteria
	if len(criteria) != 0 {
		c = criteria[0]
	}

	c.ProcessInstanceId = a.processInstanceId

	results, err := a.e.CreateQuery().QueryElementInstances(context.Background(), c)
	if err != nil {
		a.Fatalf("failed to query element instances: %v", err)
	}

	return results
}

// ExecuteTask executes the active task of the current element instance.
// If the task is not yet due, the engine's time is set to the task's due date.
func (a *ProcessInstanceAssert) ExecuteTask() Task {
	task := a.Task()

	if err := a.e.SetTime(context.Background(), SetTimeCmd{Time: task.DueAt}); err != nil {
		if engineErr, ok := err.(Error); !ok || engineErr.Type != ErrorConflict {
			a.Fatalf("failed to set time: %v", err)
		}
	}

	completedTasks, _, err := a.e.ExecuteTasks(context.Background(), ExecuteTasksCmd{Id: task.Id})
	if err != nil {
		a.Fatalf("failed to execute task: %v", err)
	}

	if len(completedTasks) == 0 {
		a.Fatalf("no task completed")
	}

	a.reset()
	return completedTasks[0]
}

func (a *ProcessInstanceAssert) Fatalf(format string, args ...any) {
	data := map[string]string{
		"Error Trace": string(debug.Stack()),
		"Error":       fmt.Sprintf(format, args...),
		"Test":        a.t.Name(),
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n%s: %s", k, data[k]))
	}

	a.t.Fatal(sb.String())
}

func (a *ProcessInstanceAssert) HasPassed(bpmnElementId string) {
	results := a.ElementInstances(ElementInstanceCriteria{States: []InstanceState{InstanceCompleted}})

	for _, result := range results {
		if result.BpmnElementId == bpmnElementId {
			return
		}
	}

	slices.SortFunc(results, func(a ElementInstance, b ElementInstance) int {
		return int(a.Id - b.Id)
	})

	passed := make([]string, len(results))
	for i, result := range results {
		passed[i] = result.BpmnElementId
	}

	a.Fatalf("expected process instance to have passed %s, but has not\npassed elements: %s", bpmnElementId, strings.Join(passed, ", "))
}

func (a *ProcessInstanceAssert) HasNoProcessVariable(name string) {
	if _, ok := a.processVariables(name)[name]; ok {
		a.Fatalf("expected process instance to have no variable %s, but has", name)
	}
}

func (a *ProcessInstanceAssert) HasProcessVariable(name string) {
	if _, ok := a.processVariables(name)[name]; !ok {
		a.Fatalf("expected process instance to have variable %s, but has not", name)
	}
}

func (a *ProcessInstanceAssert) IsCompleted() {
	if state := a.ProcessInstance().State; state != InstanceCompleted {
		a.Fatalf("expected process instance to be completed, but is %s", state)
	}
}

func (a *ProcessInstanceAssert) IsEnded() {
	if state := a.ProcessInstance().State; !state.IsEnded() {
		a.Fatalf("expected process instance to be ended, but is %s", state)
	}
}

func (a *ProcessInstanceAssert) IsNotCompleted() {
	if a.ProcessInstance().State == InstanceCompleted {
		a.Fatalf("expected process instance not to be completed, but is")
	}
}

func (a *ProcessInstanceAssert) IsNotWaitingAt(bpmnElementId string) {
	results := a.ElementInstances(ElementInstanceCriteria{
		BpmnElementId: bpmnElementId,
		States:        []InstanceState{InstanceStarted},
	})

	if len(results) != 0 {
		a.Fatalf("expected process instance not to be waiting at %s: active element instances found: %d", bpmnElementId, len(results))
	}
}

func (a *ProcessInstanceAssert) IsTerminated() {
	if state := a.ProcessInstance().State; state != InstanceTerminated {
		a.Fatalf("expected process instance to be terminated, but is %s", state)
	}
}

func (a *ProcessInstanceAssert) IsWaitingAt(bpmnElementId string) {
	results := a.ElementInstances(ElementInstanceCriteria{
		BpmnElementId: bpmnElementId,
		States:        []InstanceState{InstanceStarted},
	})

	if len(results) != 0 {
		a.bpmnElementId = bpmnElementId
		a.elementInstanceId = results[0].Id
		return
	}

	a.Fatalf("expected process instance to be waiting at %s: no active element instance found", bpmnElementId)
}

// Job returns the first active job of the current BPMN element.
func (a *ProcessInstanceAssert) Job() Job {
	if a.elementInstanceId == 0 {
		a.Fatalf("call IsWaitingAt first")
	}

	results, err := a.e.CreateQuery().QueryJobs(context.Background(), JobCriteria{
		ProcessInstanceId: a.processInstanceId,
		BpmnElementId:     a.bpmnElementId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		a.Fatalf("failed to query jobs: %v", err)
	}

	if len(results) == 0 {
		a.Fatalf("expected process instance to have an active job at %s", a.bpmnElementId)
	}

	return results[0]
}

func (a *ProcessInstanceAssert) ProcessInstance() ProcessInstance {
	results, err := a.e.CreateQuery().QueryProcessInstances(context.Background(), ProcessInstanceCriteria{
		Id: a.processInstanceId,
	})
	if err != nil {
		a.Fatalf("failed to query process instance: %v", err)
	}

	if len(results) != 1 {
		a.Fatalf("expected one process instance, but got %d", len(results))
	}

	return results[0]
}

func (a *ProcessInstanceAssert) ProcessVariable(name string) any {
	value, ok := a.processVariables(name)[name]
	if !ok {
		a.Fatalf("expected process instance to have variable %s, but has not", name)
	}
	return value
}

// Task returns the active task of the current element instance.
func (a *ProcessInstanceAssert) Task() Task {
	if a.elementInstanceId == 0 {
		a.Fatalf("call IsWaitingAt first")
	}

	results, err := a.e.CreateQuery().QueryTasks(context.Background(), TaskCriteria{
		ElementInstanceId: a.elementInstanceId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		a.Fatalf("failed to query tasks: %v", err)
	}

	if len(results) == 0 {
		a.Fatalf("expected process instance to have an active task at %s", a.bpmnElementId)
	}

	return results[0]
}

// UserTask returns the first active user task of the current BPMN element.
func (a *ProcessInstanceAssert) UserTask() UserTask {
	if a.elementInstanceId == 0 {
		a.Fatalf("call IsWaitingAt first")
	}

	results, err := a.e.CreateQuery().QueryUserTasks(context.Background(), UserTaskCriteria{
		ProcessInstanceId: a.processInstanceId,
		BpmnElementId:     a.bpmnElementId,
		ExcludeCompleted:  true,
	})
	if err != nil {
		a.Fatalf("failed to query user tasks: %v", err)
	}

	if len(results) == 0 {
		a.Fatalf("expected process instance to have an active user task at %s", a.bpmnElementId)
	}

	return results[0]
}

func (a *ProcessInstanceAssert) processVariables(names ...string) map[string]any {
	processVariables, err := a.e.GetProcessVariables(context.Background(), GetProcessVariablesCmd{
		ProcessInstanceId: a.processInstanceId,
		Names:             names,
	})
	if err != nil {
		a.Fatalf("failed to get process variables: %v", err)
	}
	return processVariables
}

func (a *ProcessInstanceAssert) reset() {
	a.bpmnElementId = ""
	a.elementInstanceId = 0
}
