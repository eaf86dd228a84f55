package testcase

import (
	"sync"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/engine/mem"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultEngineName is the name of the engine, shared by test cases, which do not specify an engine name.
const DefaultEngineName = "default"

var (
	engines      = cache.New(cache.NoExpiration, 0)
	enginesMutex sync.Mutex
)

// A Plugin customizes the options of a process engine, before it is built.
type Plugin interface {
	Configure(*mem.Options)
}

// PluginFunc adapts a function to a [Plugin].
type PluginFunc func(*mem.Options)

func (f PluginFunc) Configure(o *mem.Options) {
	f(o)
}

// DeterministicPlugin disables the task executor and telemetry, keeps the full history and installs a sequential
// ID generator. It is always applied after all other plugins.
func DeterministicPlugin(engineName string) Plugin {
	return PluginFunc(func(o *mem.Options) {
		o.Common.EngineId = engineName
		o.Common.HistoryLevel = engine.HistoryFull
		o.Common.IdGenerator = engine.NewSequentialIdGenerator(engineName + "-")
		o.Common.TaskExecutorEnabled = false
		o.Common.TelemetryEnabled = false
	})
}

// LoggerPlugin sets the logger of the engine.
func LoggerPlugin(logger *zap.Logger) Plugin {
	return PluginFunc(func(o *mem.Options) {
		o.Common.Logger = logger
	})
}

// ProcessEngine returns the process engine with the given name. The engine is built lazily, when it is requested for
// the first time, and shared by all test cases afterwards. Plugins are only applied, when the engine is built.
//
// Test cases, which run in parallel, must use different engine names.
func ProcessEngine(name string, plugins ...Plugin) (engine.Engine, error) {
	if name == "" {
		name = DefaultEngineName
	}

	enginesMutex.Lock()
	defer enginesMutex.Unlock()

	if cached, ok := engines.Get(name); ok {
		return cached.(engine.Engine), nil
	}

	e, err := mem.New(func(o *mem.Options) {
		for _, plugin := range plugins {
			plugin.Configure(o)
		}
		DeterministicPlugin(name).Configure(o)
	})
	if err != nil {
		return nil, err
	}

	engines.Set(name, e, cache.NoExpiration)
	return e, nil
}

// ShutdownProcessEngine shuts a shared process engine down and removes it, so that the next request builds a new one.
func ShutdownProcessEngine(name string) {
	if name == "" {
		name = DefaultEngineName
	}

	enginesMutex.Lock()
	defer enginesMutex.Unlock()

	if cached, ok := engines.Get(name); ok {
		cached.(engine.Engine).Shutdown()
		engines.Delete(name)
	}
}
