package path

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/model"
)

// Outcome describes how a step leaves its node.
type Outcome int

const (
	// OutcomeCompleted is the normal completion of a node.
	OutcomeCompleted Outcome = iota + 1
	// OutcomeBoundary means that the interrupting boundary event [Step.Trigger] fires, while the activity is active.
	OutcomeBoundary
	// OutcomeBoundaryNonInterrupting means that the non-interrupting boundary event [Step.Trigger] fires and the
	// activity completes normally afterwards.
	OutcomeBoundaryNonInterrupting
	// OutcomeEventSubProcess means that the interrupting event sub process start event [Step.Trigger] fires, while
	// the node is active.
	OutcomeEventSubProcess
	// OutcomeEventSubProcessNonInterrupting means that the non-interrupting event sub process start event
	// [Step.Trigger] fires and the node completes normally afterwards.
	OutcomeEventSubProcessNonInterrupting
	// OutcomeInterrupted means that a scope is interrupted by an error or escalation, thrown by one of its nodes.
	OutcomeInterrupted
	// OutcomeThrow means that an end or throw event throws an error, escalation or cancellation, which is caught by
	// [Step.Trigger].
	OutcomeThrow
)

func (v Outcome) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v Outcome) String() string {
	switch v {
	case OutcomeCompleted:
		return "COMPLETED"
	case OutcomeBoundary:
		return "BOUNDARY"
	case OutcomeBoundaryNonInterrupting:
		return "BOUNDARY_NON_INTERRUPTING"
	case OutcomeEventSubProcess:
		return "EVENT_SUB_PROCESS"
	case OutcomeEventSubProcessNonInterrupting:
		return "EVENT_SUB_PROCESS_NON_INTERRUPTING"
	case OutcomeInterrupted:
		return "INTERRUPTED"
	case OutcomeThrow:
		return "THROW"
	default:
		return ""
	}
}

// Branch locates a step within the concurrent branches, started by a fork.
//
// A fork is a diverging parallel or inclusive gateway, an activity with multiple outgoing sequence flows or a step
// with a non-interrupting outcome. For non-interrupting outcomes, branch 0 is the triggered continuation and
// branch 1 the remaining flow of the enclosing scope.
type Branch struct {
	Fork  int // Index of the forking step.
	Index int // Index of the branch.
}

// Step is a single flow node on a path.
type Step struct {
	Node *model.Element
	// Incoming is the sequence flow, taken to reach the node - nil for start events, boundary events, event sub
	// processes and link catch events.
	Incoming *model.SequenceFlow
	// Taken contains the outgoing sequence flows of a diverging gateway or forking activity.
	// For exclusive and event-based gateways, it contains exactly one sequence flow.
	Taken []*model.SequenceFlow

	Outcome Outcome
	// Trigger is the boundary event, event sub process start event or catching element of a non-completing outcome.
	Trigger *model.Element

	// Depth is the sub process nesting depth - 0 for nodes, directly contained by the process.
	Depth int
	// Scopes contains the indices of the enclosing scope steps (sub processes, transactions and event sub
	// processes), outermost first.
	Scopes []int
	// Branches contains the concurrency lineage of the step, outermost fork first.
	Branches []Branch
}

// Chosen returns the single outgoing sequence flow, that was taken by an exclusive or event-based gateway.
func (s Step) Chosen() *model.SequenceFlow {
	if len(s.Taken) != 1 {
		return nil
	}
	return s.Taken[0]
}

// Fires reports whether the step triggers a boundary event or event sub process, using the handler of
// [Step.Trigger].
func (s Step) Fires() bool {
	switch s.Outcome {
	case
		OutcomeBoundary,
		OutcomeBoundaryNonInterrupting,
		OutcomeEventSubProcess,
		OutcomeEventSubProcessNonInterrupting:
		return true
	default:
		return false
	}
}

// IsNonInterrupting reports whether the step triggers a non-interrupting boundary event or event sub process.
func (s Step) IsNonInterrupting() bool {
	return s.Outcome == OutcomeBoundaryNonInterrupting || s.Outcome == OutcomeEventSubProcessNonInterrupting
}

// IsWaitState reports whether the process engine waits at the step's node for an external action - a job, a
// user task, a message, a signal, a timer or a condition.
func (s Step) IsWaitState() bool {
	return IsWaitState(s.Node, s.Incoming)
}

func (s Step) String() string {
	if s.Outcome == OutcomeCompleted || s.Trigger == nil {
		return s.Node.Id
	}
	return fmt.Sprintf("%s[%s:%s]", s.Node.Id, s.Outcome, s.Trigger.Id)
}

func (s Step) clone() Step {
	c := s
	c.Taken = append([]*model.SequenceFlow(nil), s.Taken...)
	c.Scopes = append([]int(nil), s.Scopes...)
	c.Branches = append([]Branch(nil), s.Branches...)
	return c
}

// IsWaitState reports whether a node, reached via the incoming sequence flow, is a wait state.
// Catch events and receive tasks, following an event-based gateway, are not wait states, since the gateway waits.
func IsWaitState(node *model.Element, incoming *model.SequenceFlow) bool {
	switch node.Type {
	case
		model.ElementBusinessRuleTask,
		model.ElementCallActivity,
		model.ElementEventBasedGateway,
		model.ElementScriptTask,
		model.ElementSendTask,
		model.ElementServiceTask,
		model.ElementUserTask:
		return true
	case model.ElementReceiveTask:
		return !followsEventBasedGateway(incoming)
	case model.ElementIntermediateCatchEvent:
		switch node.EventType() {
		case model.EventConditional, model.EventMessage, model.EventSignal, model.EventTimer:
			return !followsEventBasedGateway(incoming)
		}
	case model.ElementExclusiveGateway, model.ElementInclusiveGateway:
		return node.RequiresDecision()
	}
	return false
}

func followsEventBasedGateway(incoming *model.SequenceFlow) bool {
	return incoming != nil && incoming.Source != nil && incoming.Source.Type == model.ElementEventBasedGateway
}
