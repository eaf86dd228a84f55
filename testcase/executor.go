package testcase

import (
	"context"
	"maps"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/stretchr/testify/require"
)

// Executor starts a process instance and drives it along the path of a test case.
type Executor struct {
	instance *Instance

	businessKey string
	variables   map[string]any
	mocks       map[string]any
	verifiers   []func(*engine.ProcessInstanceAssert)
}

// WithBusinessKey sets the business key of the process instance.
func (x *Executor) WithBusinessKey(businessKey string) *Executor {
	x.businessKey = businessKey
	return x
}

// WithMock registers a mock, before the process instance is created. Mocks are available as globals within
// expressions. A mock, named like a called process, lets the call activity create a job instead.
func (x *Executor) WithMock(name string, value any) *Executor {
	if x.mocks == nil {
		x.mocks = make(map[string]any)
	}
	x.mocks[name] = value
	return x
}

// WithVariable sets a variable, the process instance is created with.
func (x *Executor) WithVariable(name string, value any) *Executor {
	if x.variables == nil {
		x.variables = make(map[string]any)
	}
	x.variables[name] = value
	return x
}

func (x *Executor) WithVariables(variables map[string]any) *Executor {
	if x.variables == nil {
		x.variables = make(map[string]any, len(variables))
	}
	maps.Copy(x.variables, variables)
	return x
}

// Verify adds a function, that verifies the ended process instance.
func (x *Executor) Verify(verifier func(*engine.ProcessInstanceAssert)) *Executor {
	x.verifiers = append(x.verifiers, verifier)
	return x
}

// Execute runs the test case and fails the test, if the process instance cannot be driven to the end of the path.
// Afterwards, all verifiers are called.
//
// Execute requires a test case, created with [New]. Test cases, created with [Open], must be executed via
// [Executor.Run].
func (x *Executor) Execute() engine.ProcessInstance {
	t := x.instance.t
	if t == nil {
		panic("testcase: Execute requires a test case, created with New - use Run instead")
	}
	t.Helper()

	processInstance, err := x.Run(context.Background())
	require.NoError(t, err, "path %s", x.instance.path.Key())

	for _, verifier := range x.verifiers {
		verifier(engine.Assert(t, x.instance.e, processInstance))
	}

	return processInstance
}

// Run runs the test case: it registers all mocks, configures the handlers, creates the process instance and drives it
// along the path, asserting the position at each wait state. The returned error is of type [Error], when the
// process instance deviates from the path.
func (x *Executor) Run(ctx context.Context) (engine.ProcessInstance, error) {
	i := x.instance

	for name, value := range x.mocks {
		i.e.Mocks().Register(name, value)
	}

	cmd := engine.CreateProcessInstanceCmd{
		BpmnProcessId: i.path.ProcessId(),
		BusinessKey:   x.businessKey,
		Variables:     x.variables,
		WorkerId:      i.config.WorkerId,
	}

	if start := i.path.Start(); start.EventType() != model.EventNone {
		cmd.BpmnStartElementId = start.Id
	}

	d := driver{
		ctx:      ctx,
		e:        i.e,
		clock:    i.clock,
		handlers: i.handlers,
		logger:   i.config.Logger,
		model:    i.model,
		path:     i.path,
		workerId: i.config.WorkerId,
	}

	err := d.start(cmd)
	i.state = d.state

	return d.processInstance, err
}
