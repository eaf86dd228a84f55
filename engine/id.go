package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// An IdGenerator generates the IDs of deployments.
type IdGenerator interface {
	NewId() string
}

// NewUUIDGenerator returns a generator of random (version 4) UUIDs.
func NewUUIDGenerator() IdGenerator {
	return uuidGenerator{}
}

// NewSequentialIdGenerator returns a generator of IDs, that consist of a prefix and a counter, starting at 1.
// Sequential IDs make engine runs reproducible.
func NewSequentialIdGenerator(prefix string) IdGenerator {
	return &sequentialIdGenerator{prefix: prefix}
}

type uuidGenerator struct{}

func (uuidGenerator) NewId() string {
	return uuid.NewString()
}

type sequentialIdGenerator struct {
	prefix string
	n      atomic.Int64
}

func (g *sequentialIdGenerator) NewId() string {
	return fmt.Sprintf("%s%d", g.prefix, g.n.Add(1))
}
