package mem

import (
	"time"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"go.uber.org/zap"
)

// maxSteps limits the number of elements, entered while a single command is executed.
const maxSteps = 10000

func newMemContext(options Options) *memContext {
	return &memContext{
		options: options,
		logger:  options.Common.Logger,
		mocks:   engine.NewMocks(),
	}
}

type memContext struct {
	options Options
	logger  *zap.Logger
	mocks   *engine.Mocks

	time  time.Time
	steps int // number of entered elements within the current command

	deployments      []*deploymentEntity
	elementInstances []*elementInstanceEntity
	jobs             []*jobEntity
	messages         []engine.Message
	processes        []*processEntity
	processInstances []*processInstanceEntity
	signals          []engine.Signal
	subscriptions    []*subscriptionEntity
	tasks            []*taskEntity
	userTasks        []*userTaskEntity
	variables        []*variableEntity

	ids struct {
		elementInstance int32
		job             int32
		message         int64
		process         int32
		processInstance int32
		signal          int64
		subscription    int32
		task            int32
		userTask        int32
	}
}

func (c *memContext) Time() time.Time {
	return c.time
}

func (c *memContext) engineId() string {
	return c.options.Common.EngineId
}

// step counts an entered element and fails, when a process model loops endlessly.
func (c *memContext) step() error {
	c.steps++
	if c.steps > maxSteps {
		return engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to execute process instance",
			Detail: "maximum number of steps exceeded: process model contains an endless loop",
		}
	}
	return nil
}

func (c *memContext) clear() {
	c.mocks.Reset()

	c.deployments = nil
	c.elementInstances = nil
	c.jobs = nil
	c.messages = nil
	c.processes = nil
	c.processInstances = nil
	c.signals = nil
	c.subscriptions = nil
	c.tasks = nil
	c.userTasks = nil
	c.variables = nil
}

func (c *memContext) elementInstanceById(id int32) *elementInstanceEntity {
	for _, e := range c.elementInstances {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (c *memContext) jobById(id int32) *jobEntity {
	for _, e := range c.jobs {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (c *memContext) processInstanceById(id int32) *processInstanceEntity {
	for _, e := range c.processInstances {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (c *memContext) userTaskById(id int32) *userTaskEntity {
	for _, e := range c.userTasks {
		if e.id == id {
			return e
		}
	}
	return nil
}

// latestProcess returns the latest version of a deployed process or nil, if no such process exists.
func (c *memContext) latestProcess(bpmnProcessId string) *processEntity {
	var latest *processEntity
	for _, e := range c.processes {
		if e.element.Id != bpmnProcessId {
			continue
		}
		if latest == nil || e.version > latest.version {
			latest = e
		}
	}
	return latest
}

// latestProcesses returns the latest version of each deployed process.
func (c *memContext) latestProcesses() []*processEntity {
	var results []*processEntity
	for _, e := range c.processes {
		if c.latestProcess(e.element.Id) == e {
			results = append(results, e)
		}
	}
	return results
}

func fieldCatchEvent(element *model.Element) zap.Field {
	return zap.String("catchEvent", element.Id)
}

func fieldElementInstance(e *elementInstanceEntity) zap.Field {
	return zap.Stringer("elementInstance", e.ElementInstance())
}

func fieldProcessInstance(e *processInstanceEntity) zap.Field {
	return zap.Stringer("processInstance", e.ProcessInstance())
}
