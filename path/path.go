package path

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gclaussn/go-bpmndt/model"
)

// Path is an immutable, ordered and non-empty sequence of steps from a start event to an end event.
type Path struct {
	processId string
	key       string
	steps     []Step
	hash      uint64
}

func newPath(processId string, key string, steps []Step) Path {
	p := Path{processId: processId, key: key, steps: steps}
	p.hash = p.computeHash()
	return p
}

// Concurrent reports whether the steps i and j belong to different branches of a common fork.
// Steps, which are not concurrent, are executed sequentially in the order of the path.
func (p Path) Concurrent(i int, j int) bool {
	a := p.steps[i].Branches
	b := p.steps[j].Branches

	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k].Fork == b[k].Fork && a[k].Index != b[k].Index
		}
	}
	return false
}

// Depth returns the sub process nesting depth of step i.
func (p Path) Depth(i int) int {
	return p.steps[i].Depth
}

// End returns the end event of the path.
func (p Path) End() *model.Element {
	return p.steps[len(p.steps)-1].Node
}

// Equal reports whether both paths consist of the same steps - compared by node, incoming and taken sequence flows,
// outcome and trigger.
func (p Path) Equal(o Path) bool {
	if p.processId != o.processId || len(p.steps) != len(o.steps) || p.hash != o.hash {
		return false
	}
	for i := range p.steps {
		a := p.steps[i]
		b := o.steps[i]

		if a.Node.Id != b.Node.Id || a.Outcome != b.Outcome || a.Depth != b.Depth {
			return false
		}
		if flowId(a.Incoming) != flowId(b.Incoming) || elementId(a.Trigger) != elementId(b.Trigger) {
			return false
		}
		if !slices.EqualFunc(a.Taken, b.Taken, func(x, y *model.SequenceFlow) bool { return x.Id == y.Id }) {
			return false
		}
		if !slices.Equal(a.Scopes, b.Scopes) || !slices.Equal(a.Branches, b.Branches) {
			return false
		}
	}
	return true
}

// FirstIndex returns the index of the first step.
func (p Path) FirstIndex() int {
	return 0
}

// Front returns the indices of all wait state steps, the process engine is expected to wait at, when step i is
// reached. Besides step i itself, these are the first pending wait states of all branches, that run concurrently
// to step i.
func (p Path) Front(i int) []int {
	var front []int
	for j := i; j < len(p.steps); j++ {
		if !p.steps[j].IsWaitState() {
			continue
		}

		pending := true
		for _, k := range front {
			if !p.Concurrent(k, j) {
				pending = false
				break
			}
		}
		if !pending {
			continue
		}

		if j != i && !p.Concurrent(i, j) {
			continue
		}

		front = append(front, j)
	}
	return front
}

// Hash returns a hash, derived from the node IDs and taken sequence flow IDs.
func (p Path) Hash() uint64 {
	return p.hash
}

// IsBoundary reports whether step i triggers a boundary event.
func (p Path) IsBoundary(i int) bool {
	switch p.steps[i].Outcome {
	case OutcomeBoundary, OutcomeBoundaryNonInterrupting:
		return true
	case OutcomeThrow, OutcomeInterrupted:
		trigger := p.steps[i].Trigger
		return trigger != nil && trigger.Type == model.ElementBoundaryEvent
	default:
		return false
	}
}

// Key returns the deterministic key of the path, consisting of all node IDs, joined by "__".
func (p Path) Key() string {
	return p.key
}

// LastIndex returns the index of the last step.
func (p Path) LastIndex() int {
	return len(p.steps) - 1
}

// Len returns the number of steps.
func (p Path) Len() int {
	return len(p.steps)
}

// NodesByType returns the nodes of all steps with the given element type, in path order.
func (p Path) NodesByType(elementType model.ElementType) []*model.Element {
	var nodes []*model.Element
	for _, step := range p.steps {
		if step.Node.Type == elementType {
			nodes = append(nodes, step.Node)
		}
	}
	return nodes
}

// Occurrence returns how often the node of step i occurs within the steps 0 to i.
func (p Path) Occurrence(i int) int {
	n := 0
	for j := 0; j <= i; j++ {
		if p.steps[j].Node == p.steps[i].Node {
			n++
		}
	}
	return n
}

// ProcessId returns the ID of the process, the path belongs to.
func (p Path) ProcessId() string {
	return p.processId
}

// Start returns the start event of the path.
func (p Path) Start() *model.Element {
	return p.steps[0].Node
}

// Step returns a copy of step i.
func (p Path) Step(i int) Step {
	return p.steps[i].clone()
}

// Steps returns a copy of all steps.
func (p Path) Steps() []Step {
	steps := make([]Step, len(p.steps))
	for i := range p.steps {
		steps[i] = p.steps[i].clone()
	}
	return steps
}

func (p Path) String() string {
	var sb strings.Builder
	for i, step := range p.steps {
		if i != 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(step.String())
	}
	return sb.String()
}

func (p Path) computeHash() uint64 {
	d := xxhash.New()
	d.WriteString(p.processId)
	for _, step := range p.steps {
		d.WriteString("|")
		d.WriteString(step.Node.Id)
		for _, sequenceFlow := range step.Taken {
			d.WriteString(",")
			d.WriteString(sequenceFlow.Id)
		}
		if step.Trigger != nil {
			d.WriteString("!")
			d.WriteString(step.Trigger.Id)
		}
	}
	return d.Sum64()
}

func elementId(element *model.Element) string {
	if element == nil {
		return ""
	}
	return element.Id
}

func flowId(sequenceFlow *model.SequenceFlow) string {
	if sequenceFlow == nil {
		return ""
	}
	return sequenceFlow.Id
}
