// Package mem implements an in-memory process engine, which drives BPMN process instances under test.
/*
A mem engine keeps deployments, process instances and their element instances in memory. It does not advance process
instances on its own: jobs, user tasks, messages and signals are completed by the caller, timers become due when the
engine time is set via [engine.Engine.SetTime].

Create an Engine

	e, err := mem.New(func(o *mem.Options) {
		o.Common.EngineId = "order-tests"
		o.Common.IdGenerator = engine.NewSequentialIdGenerator("order-tests-")
	})
	if err != nil {
		log.Fatalf("failed to create mem engine: %v", err)
	}

	defer e.Shutdown()

Deploy and Start

	deployment, _ := e.CreateDeployment(ctx, engine.CreateDeploymentCmd{
		BpmnXml:  bpmnXml,
		Name:     "order.bpmn",
		WorkerId: "order-worker",
	})

	pi, _ := e.CreateProcessInstance(ctx, engine.CreateProcessInstanceCmd{
		BpmnProcessId: "order",
		WorkerId:      "order-worker",
	})

A called process, which is registered in [engine.Mocks], is not instantiated. Instead the call activity waits for a
job of type [engine.JobCallActivity].
*/
package mem
