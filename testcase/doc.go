// Package testcase drives a BPMN process instance along an enumerated path.
/*
A test case deploys a BPMN file to a shared in-memory process engine, selects one path of a process and drives a
process instance along it. At each wait state, the driver asserts that the engine waits exactly where the path
expects and applies the handler, registered for the element.

Create a Test Case

	func TestOrder(t *testing.T) {
		tc := testcase.New(t, testcase.Config{
			BpmnFile: "order.bpmn",
			PathKey:  "start__check__approve__end",
		})

		tc.Handle("check", handler.Job())
		tc.Handle("approve", handler.UserTask())

		tc.Executor().WithVariable("amount", 100).Execute()
	}

The test case is finished, when the test completes: the deployment and all process instances are deleted.

Engine Bootstrap

Test cases share a process engine by name - see [ProcessEngine]. Test cases, which run in parallel, should use
different engine names. The engine is built with a disabled task executor and a sequential ID generator, so that
runs are reproducible. Timers become due by advancing the [Clock].
*/
package testcase
