package engine

import (
	"maps"
	"slices"
	"sync"
)

// Mocks is a registry of named values, an engine exposes to expressions and to call activities.
//
// A mock, registered with the BPMN process ID of a called process, prevents the call activity from starting a child
// process instance. Instead a job of type [JobCallActivity] is created, which must be completed by a worker.
// Any other mock is available as a global within condition and completion expressions.
type Mocks struct {
	mutex  sync.RWMutex
	values map[string]any
}

func NewMocks() *Mocks {
	return &Mocks{values: make(map[string]any)}
}

// Get returns the value of a mock.
func (m *Mocks) Get(name string) (any, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	value, ok := m.values[name]
	return value, ok
}

// Has reports whether a mock with the given name is registered.
func (m *Mocks) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Names returns the names of all registered mocks in lexical order.
func (m *Mocks) Names() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return slices.Sorted(maps.Keys(m.values))
}

// Register registers or replaces a mock.
func (m *Mocks) Register(name string, value any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.values[name] = value
}

// Reset removes all mocks.
func (m *Mocks) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	clear(m.values)
}

// Values returns a copy of all registered mocks.
func (m *Mocks) Values() map[string]any {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return maps.Clone(m.values)
}
