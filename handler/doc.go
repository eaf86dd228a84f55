/*
Package handler provides the handlers, which let a test case continue at a wait state or trigger a boundary event or an
event sub process.

# Default handlers

[Defaults] derives a handler for each element, the driver consults along a path:

	tc := testcase.New(t, testcase.Config{BpmnFile: "order.bpmn", PathKey: "start__approve__ship__end"})
	tc.HandleAll(handler.Defaults(tc.Path()))

A default handler completes its element without variables. Gateways, which require a decision, take the sequence flows
of the path.

# Customization

Handlers are configured using builder methods:

	tc.Handler("approve").(*handler.UserTaskHandler).
		Verify(handler.VariableEquals("order.total", 100)).
		WithAssignee("alice").
		WithVariable("approved", true)

	tc.Handle("ship", handler.Job().ThrowError("NOT_IN_STOCK"))

# Call activities

By default, a called process is mocked and the call activity is completed via a job. A called process, which is part of
the same BPMN XML, can be executed along one of its paths instead:

	tc.Handler("ca").(*handler.CallActivityHandler).Execute("childStart__childTask__childEnd", nil)
*/
package handler
