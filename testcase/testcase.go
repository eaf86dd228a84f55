package testcase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultWorkerId is the ID of the worker, used to create, lock and complete entities, when no specific ID is
// provided via [Config].
const DefaultWorkerId = "testcase"

// Config configures a test case.
type Config struct {
	EngineName string   // Name of the shared engine - see [ProcessEngine].
	Plugins    []Plugin // Plugins, applied when the shared engine is built.

	BpmnFile string // Path of the BPMN file to test.
	BpmnXml  string // BPMN XML to test - takes precedence over BpmnFile.

	Resources map[string]string // Auxiliary resources like DMN decision tables, deployed alongside the BPMN XML.

	ProcessId string     // ID of the process to test. Can be omitted, when the BPMN XML has one executable process.
	PathKey   string     // Key of the path to test. Can be omitted, when the process has only one path.
	Path      *path.Path // Path to test - takes precedence over PathKey.

	Logger   *zap.Logger // Logger of the driver.
	WorkerId string      // ID of the worker.
}

func (c Config) Validate() error {
	if c.BpmnXml == "" && strings.TrimSpace(c.BpmnFile) == "" {
		return errors.New("BPMN file or BPMN XML must be specified")
	}
	if strings.TrimSpace(c.WorkerId) == "" {
		return errors.New("worker ID must not be empty or blank")
	}
	if c.Logger == nil {
		return errors.New("logger must not be nil")
	}
	return nil
}

// Instance is a test case, that executes a process along one path. It lives for the duration of a single test:
// created on test start, it deploys the BPMN XML, drives a process instance and is finished afterwards.
type Instance struct {
	t      testing.TB
	config Config

	e          engine.Engine
	model      *model.Model
	path       path.Path
	deployment engine.Deployment
	handlers   Handlers

	clock    *Clock
	state    State
	finished bool
}

// New creates a test case instance, that is finished, when the test and all its subtests complete.
// If the instance cannot be created, the test fails immediately.
func New(t testing.TB, config Config) *Instance {
	t.Helper()

	i, err := Open(config)
	if err != nil {
		t.Fatalf("failed to create test case: %v", err)
	}

	i.t = t

	t.Cleanup(func() {
		if err := i.Finish(); err != nil {
			t.Errorf("failed to finish test case: %v", err)
		}
	})

	return i
}

// Open creates a test case instance without a test: it fetches the shared engine, parses the BPMN XML, selects the
// path and deploys the BPMN XML and all resources. The caller must call [Instance.Finish].
func Open(config Config) (*Instance, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.WorkerId == "" {
		config.WorkerId = DefaultWorkerId
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	bpmnXml := config.BpmnXml
	if bpmnXml == "" {
		b, err := os.ReadFile(config.BpmnFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read BPMN file: %v", err)
		}
		bpmnXml = string(b)
	}

	m, err := model.New(strings.NewReader(bpmnXml))
	if err != nil {
		return nil, err
	}

	p, err := selectPath(m, config)
	if err != nil {
		return nil, err
	}

	e, err := ProcessEngine(config.EngineName, config.Plugins...)
	if err != nil {
		return nil, fmt.Errorf("failed to build process engine: %v", err)
	}

	deployment, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
		BpmnXml:   bpmnXml,
		Name:      deploymentName(config, p),
		Resources: config.Resources,
		WorkerId:  config.WorkerId,
	})
	if err != nil {
		return nil, Error{
			Type:   ErrorDeployment,
			Title:  "failed to deploy BPMN XML",
			Detail: err.Error(),
		}
	}

	config.Logger.Debug("deployment created",
		zap.String("deploymentId", deployment.Id),
		zap.String("path", p.Key()),
	)

	return &Instance{
		config: config,

		e:          e,
		model:      m,
		path:       p,
		deployment: deployment,
		handlers:   make(Handlers),

		clock: newClock(e),
	}, nil
}

func (i *Instance) Clock() *Clock {
	return i.clock
}

func (i *Instance) Deployment() engine.Deployment {
	return i.deployment
}

func (i *Instance) Engine() engine.Engine {
	return i.e
}

// Executor creates an executor, which starts a process instance and drives it along the path.
func (i *Instance) Executor() *Executor {
	return &Executor{instance: i}
}

// Finish deletes the deployment, including all process instances, and resets the engine's mocks.
// Finish can be called multiple times, only the first call has an effect.
func (i *Instance) Finish() error {
	if i.finished {
		return nil
	}
	i.finished = true

	var err error
	err = multierr.Append(err, i.e.DeleteDeployment(context.Background(), engine.DeleteDeploymentCmd{
		Id:      i.deployment.Id,
		Cascade: true,
	}))

	i.e.Mocks().Reset()

	for _, id := range slices.Sorted(maps.Keys(i.handlers)) {
		if finisher, ok := i.handlers[id].(Finisher); ok {
			if finishErr := finisher.Finish(); finishErr != nil {
				err = multierr.Append(err, fmt.Errorf("failed to finish handler of %s: %v", id, finishErr))
			}
		}
	}

	i.config.Logger.Debug("test case finished",
		zap.String("deploymentId", i.deployment.Id),
		zap.String("path", i.path.Key()),
		zap.Stringer("state", i.state),
	)

	return err
}

// Handle registers the handler of a BPMN element, replacing a previously registered one.
func (i *Instance) Handle(bpmnElementId string, handler Handler) {
	i.handlers[bpmnElementId] = handler
}

// HandleAll registers multiple handlers at once.
func (i *Instance) HandleAll(handlers Handlers) {
	maps.Copy(i.handlers, handlers)
}

// Handler returns the handler of a BPMN element or nil.
func (i *Instance) Handler(bpmnElementId string) Handler {
	return i.handlers[bpmnElementId]
}

func (i *Instance) Model() *model.Model {
	return i.model
}

func (i *Instance) Path() path.Path {
	return i.path
}

// State returns the state of the last execution.
func (i *Instance) State() State {
	return i.state
}

func deploymentName(config Config, p path.Path) string {
	if config.BpmnFile != "" {
		return filepath.Base(config.BpmnFile)
	}
	return p.ProcessId() + ".bpmn"
}

func selectPath(m *model.Model, config Config) (path.Path, error) {
	if config.Path != nil {
		return *config.Path, nil
	}

	processId := config.ProcessId
	if processId == "" {
		processes := m.ExecutableProcesses()
		if len(processes) != 1 {
			return path.Path{}, fmt.Errorf("process ID must be specified, since BPMN XML has %d executable processes", len(processes))
		}
		processId = processes[0].Id
	}

	paths, err := path.Enumerate(m, processId)
	if err != nil {
		return path.Path{}, err
	}

	if config.PathKey == "" {
		if len(paths) != 1 {
			return path.Path{}, fmt.Errorf("path key must be specified, since process %s has %d paths", processId, len(paths))
		}
		return paths[0], nil
	}

	keys := make([]string, len(paths))
	for j, p := range paths {
		if p.Key() == config.PathKey {
			return p, nil
		}
		keys[j] = p.Key()
	}

	return path.Path{}, fmt.Errorf("process %s has no path %s: available paths: %s", processId, config.PathKey, strings.Join(keys, ", "))
}
