package path

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gclaussn/go-bpmndt/model"
)

const DefaultMaxPaths = 1024

func NewOptions() Options {
	return Options{MaxPaths: DefaultMaxPaths}
}

type Options struct {
	MaxPaths int // Maximum number of paths per process, before an [UnboundedExpansionError] is returned.
}

func (o Options) Validate() error {
	if o.MaxPaths < 1 {
		return errors.New("max paths must be greater than or equal to 1")
	}
	return nil
}

// ProcessPaths are the paths of a single process.
type ProcessPaths struct {
	Process *model.Element
	Paths   []Path
}

// Enumerate returns all distinct paths of a process in a stable order.
//
// Paths start at each start event of the process. Exclusive and event-based gateways fork one path per outgoing
// sequence flow, the default flow last. Parallel gateways traverse all branches in XML order, materializing the
// product of the branch variants. Inclusive gateways fork one path per non-empty subset of their outgoing sequence
// flows. Activities with k boundary events result in k+1 variants. Sub processes are expanded inline and call
// activities are treated as a single step. Event sub processes interrupt or accompany each wait state of their
// scope.
//
// A node may occur at most twice per nesting stack, so that each loop is represented by a path skipping it and a
// path running through it once.
func Enumerate(m *model.Model, processId string, customizers ...func(*Options)) ([]Path, error) {
	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	processElement := m.ProcessById(processId)
	if processElement == nil {
		return nil, model.InvalidModelError{Detail: fmt.Sprintf("process %s does not exist", processId)}
	}

	w := walker{
		model:    m,
		process:  processElement,
		maxPaths: options.MaxPaths,
	}

	return w.enumerate()
}

// EnumerateAll enumerates the paths of all executable processes.
func EnumerateAll(m *model.Model, customizers ...func(*Options)) ([]ProcessPaths, error) {
	var all []ProcessPaths
	for _, processElement := range m.ExecutableProcesses() {
		paths, err := Enumerate(m, processElement.Id, customizers...)
		if err != nil {
			return nil, err
		}
		all = append(all, ProcessPaths{Process: processElement, Paths: paths})
	}
	return all, nil
}

type exit int

const (
	exitEnd       exit = iota // scope token ended
	exitJoin                  // branch reached a converging gateway
	exitTerminate             // terminate end event
	exitThrow                 // error, escalation or cancellation thrown, caught by an enclosing scope
)

// seg is a partial path, enumerated from a node until an exit.
type seg struct {
	steps   []*wstep
	exit    exit
	flow    *model.SequenceFlow // exitJoin: sequence flow into the converging gateway
	thrower *wstep              // exitThrow: throwing step
	trail   *trail
}

// wstep is a step under construction, referencing scope and fork steps by pointer.
type wstep struct {
	node     *model.Element
	incoming *model.SequenceFlow
	taken    []*model.SequenceFlow
	outcome  Outcome
	trigger  *model.Element
	depth    int
	scopes   []*wstep
	branches []wbranch
}

func (s *wstep) signature() string {
	var sb strings.Builder
	sb.WriteString(s.node.Id)
	for _, sequenceFlow := range s.taken {
		sb.WriteRune(',')
		sb.WriteString(sequenceFlow.Id)
	}
	if s.trigger != nil {
		sb.WriteRune('!')
		sb.WriteString(s.trigger.Id)
	}
	return sb.String()
}

type wbranch struct {
	fork  *wstep
	index int
}

type walkCtx struct {
	scopes   []*wstep
	branches []wbranch
	depth    int
	join     bool // stop at converging parallel and inclusive gateways
}

func (c walkCtx) enter(scope *wstep) walkCtx {
	scopes := make([]*wstep, len(c.scopes), len(c.scopes)+1)
	copy(scopes, c.scopes)

	c.scopes = append(scopes, scope)
	c.depth++
	c.join = false
	return c
}

func (c walkCtx) fork(s *wstep, index int) walkCtx {
	branches := make([]wbranch, len(c.branches), len(c.branches)+1)
	copy(branches, c.branches)

	c.branches = append(branches, wbranch{fork: s, index: index})
	return c
}

func (c walkCtx) newStep(node *model.Element, incoming *model.SequenceFlow) *wstep {
	return &wstep{
		node:     node,
		incoming: incoming,
		outcome:  OutcomeCompleted,
		depth:    c.depth,
		scopes:   c.scopes,
		branches: c.branches,
	}
}

func (c walkCtx) scopeKey() string {
	ids := make([]string, len(c.scopes))
	for i, scope := range c.scopes {
		ids[i] = scope.node.Id
	}
	return strings.Join(ids, "/")
}

// trail is the persistent stack of visited nodes, shared between forked walks.
type trail struct {
	prev  *trail
	node  *model.Element
	scope string
}

// push returns a new trail, containing the node, or false, if the node already occurs twice within the scope.
func (t *trail) push(node *model.Element, scope string) (*trail, bool) {
	n := 0
	for x := t; x != nil; x = x.prev {
		if x.node == node && x.scope == scope {
			n++
		}
	}
	if n >= 2 {
		return nil, false
	}
	return &trail{prev: t, node: node, scope: scope}, true
}

type walker struct {
	model    *model.Model
	process  *model.Element
	maxPaths int
}

func (w *walker) enumerate() ([]Path, error) {
	var c walkCtx

	var results []seg
	for _, start := range w.process.StartEvents() {
		segs, err := w.enter(start, nil, c, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, segs...)
		if err := w.check(len(results)); err != nil {
			return nil, err
		}
	}

	results, err := w.complete(w.process, c, results)
	if err != nil {
		return nil, err
	}

	var paths []Path
	keys := make(map[string]int)
	for _, r := range results {
		steps := finalize(r.steps)

		ids := make([]string, len(steps))
		for i, step := range steps {
			ids[i] = step.Node.Id
		}

		key := strings.Join(ids, "__")

		p := newPath(w.process.Id, key, steps)

		duplicate := false
		for _, existing := range paths {
			if existing.Equal(p) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		keys[key]++
		if n := keys[key]; n > 1 {
			p.key = fmt.Sprintf("%s__%d", key, n)
		}

		paths = append(paths, p)
	}

	return paths, nil
}

func (w *walker) check(n int) error {
	if n > w.maxPaths {
		return UnboundedExpansionError{ProcessId: w.process.Id, MaxPaths: w.maxPaths}
	}
	return nil
}

// enter enters a node via the incoming sequence flow.
func (w *walker) enter(node *model.Element, incoming *model.SequenceFlow, c walkCtx, tr *trail) ([]seg, error) {
	if c.join && node.IsConverging() {
		switch node.Type {
		case model.ElementInclusiveGateway, model.ElementParallelGateway:
			return []seg{{exit: exitJoin, flow: incoming, trail: tr}}, nil
		}
	}
	return w.step(c.newStep(node, incoming), c, tr)
}

// step visits a step, unless its node is cut by the cycle policy.
func (w *walker) step(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	tr, ok := tr.push(s.node, c.scopeKey())
	if !ok {
		return nil, nil
	}
	return w.visit(s, c, tr)
}

func (w *walker) visit(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	node := s.node

	switch node.Type {
	case model.ElementEndEvent:
		return []seg{w.end(s, c, tr)}, nil
	case model.ElementIntermediateThrowEvent:
		switch node.EventType() {
		case model.EventLink:
			segs, err := w.enter(w.model.LinkTarget(node), nil, c, tr)
			return prepend(s, segs), err
		case model.EventEscalation:
			if w.catcher(node, c) != nil {
				return []seg{{steps: []*wstep{s}, exit: exitThrow, thrower: s, trail: tr}}, nil
			}
		}
	case model.ElementEventBasedGateway, model.ElementExclusiveGateway:
		if node.IsDiverging() {
			return w.choose(s, c, tr)
		}
	case model.ElementInclusiveGateway:
		if node.IsDiverging() {
			return w.forkSubsets(s, c, tr)
		}
	case model.ElementParallelGateway:
		if node.IsDiverging() {
			return w.fork(s, node.Outgoing, c, tr)
		}
	}

	if node.Type.IsActivity() {
		return w.activity(s, c, tr)
	}

	return w.leave(s, c, tr)
}

func (w *walker) end(s *wstep, c walkCtx, tr *trail) seg {
	switch s.node.EventType() {
	case model.EventTerminate:
		return seg{steps: []*wstep{s}, exit: exitTerminate, trail: tr}
	case model.EventCancel, model.EventError, model.EventEscalation:
		if w.catcher(s.node, c) != nil {
			return seg{steps: []*wstep{s}, exit: exitThrow, thrower: s, trail: tr}
		}
	}
	return seg{steps: []*wstep{s}, exit: exitEnd, trail: tr}
}

// leave continues after a step via all outgoing sequence flows of its node.
func (w *walker) leave(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	outgoing := s.node.Outgoing
	switch len(outgoing) {
	case 0:
		return []seg{{steps: []*wstep{s}, exit: exitEnd, trail: tr}}, nil
	case 1:
		segs, err := w.enter(outgoing[0].Target, outgoing[0], c, tr)
		return prepend(s, segs), err
	default:
		return w.fork(s, outgoing, c, tr) // implicit parallel split
	}
}

// choose forks one path per outgoing sequence flow of an exclusive or event-based gateway.
func (w *walker) choose(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	var segs []seg
	for _, sequenceFlow := range orderedOutgoing(s.node) {
		chosen := *s
		chosen.taken = []*model.SequenceFlow{sequenceFlow}

		rest, err := w.enter(sequenceFlow.Target, sequenceFlow, c, tr)
		if err != nil {
			return nil, err
		}

		segs = append(segs, prepend(&chosen, rest)...)
		if err := w.check(len(segs)); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

// forkSubsets forks one path per non-empty subset of the non-default outgoing sequence flows of an inclusive
// gateway, ordered by size. The default flow alone is the last variant.
func (w *walker) forkSubsets(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	var (
		sequenceFlows []*model.SequenceFlow
		defaultFlow   *model.SequenceFlow
	)
	for _, sequenceFlow := range s.node.Outgoing {
		if sequenceFlow.IsDefault {
			defaultFlow = sequenceFlow
		} else {
			sequenceFlows = append(sequenceFlows, sequenceFlow)
		}
	}

	if len(sequenceFlows) > 16 {
		return nil, UnboundedExpansionError{ProcessId: w.process.Id, MaxPaths: w.maxPaths}
	}

	var subsets [][]*model.SequenceFlow
	for k := 1; k <= len(sequenceFlows); k++ {
		for _, indices := range combinations(len(sequenceFlows), k) {
			subset := make([]*model.SequenceFlow, k)
			for i, index := range indices {
				subset[i] = sequenceFlows[index]
			}
			subsets = append(subsets, subset)
		}
	}
	if defaultFlow != nil {
		subsets = append(subsets, []*model.SequenceFlow{defaultFlow})
	}

	var segs []seg
	for _, subset := range subsets {
		fork := *s

		rest, err := w.fork(&fork, subset, c, tr)
		if err != nil {
			return nil, err
		}

		segs = append(segs, rest...)
		if err := w.check(len(segs)); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

// fork traverses all branches, started by the given sequence flows, and materializes the product of the branch
// variants. Branches are ordered by the given sequence flows, except branches ending with a terminate end event or
// a throw, which are ordered last.
func (w *walker) fork(s *wstep, sequenceFlows []*model.SequenceFlow, c walkCtx, tr *trail) ([]seg, error) {
	s.taken = sequenceFlows

	variants := make([][]seg, len(sequenceFlows))

	product := 1
	for i, sequenceFlow := range sequenceFlows {
		bc := c.fork(s, i)
		bc.join = true

		segs, err := w.enter(sequenceFlow.Target, sequenceFlow, bc, tr)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			return nil, nil
		}

		variants[i] = segs

		product *= len(segs)
		if err := w.check(product); err != nil {
			return nil, err
		}
	}

	var segs []seg

	combination := make([]int, len(variants))
	for {
		branches := make([]seg, len(variants))
		for i := range combination {
			branches[i] = variants[i][combination[i]]
		}

		joined, err := w.join(s, branches, c)
		if err != nil {
			return nil, err
		}

		segs = append(segs, joined...)
		if err := w.check(len(segs)); err != nil {
			return nil, err
		}

		k := len(combination) - 1
		for k >= 0 {
			combination[k]++
			if combination[k] < len(variants[k]) {
				break
			}
			combination[k] = 0
			k--
		}
		if k < 0 {
			break
		}
	}

	return segs, nil
}

// join concatenates the branches of a fork and continues after the converging gateway, the branches reached.
func (w *walker) join(s *wstep, branches []seg, c walkCtx) ([]seg, error) {
	var order, final []int
	for i, branch := range branches {
		switch branch.exit {
		case exitTerminate, exitThrow:
			final = append(final, i)
		default:
			order = append(order, i)
		}
	}
	order = append(order, final...)

	steps := []*wstep{s}
	for _, i := range order {
		steps = append(steps, branches[i].steps...)
	}

	last := branches[order[len(order)-1]]
	if len(final) != 0 {
		return []seg{{steps: steps, exit: last.exit, thrower: last.thrower, trail: last.trail}}, nil
	}

	var joining seg
	for _, i := range order {
		branch := branches[i]
		if branch.exit != exitJoin {
			continue
		}
		if joining.flow != nil && joining.flow.Target != branch.flow.Target {
			return nil, model.InvalidModelError{
				Detail: fmt.Sprintf("branches of %s converge at different gateways", s.node.Pointer()),
				Causes: []model.ErrorCause{
					{Pointer: joining.flow.Target.Pointer(), Type: "gateway", Detail: "converging gateway"},
					{Pointer: branch.flow.Target.Pointer(), Type: "gateway", Detail: "converging gateway"},
				},
			}
		}
		joining = branch
	}

	if joining.flow == nil {
		return []seg{{steps: steps, exit: exitEnd, trail: last.trail}}, nil
	}
	if joining.flow.Target.Type == model.ElementParallelGateway && !isJoined(joining.flow.Target, branches) {
		return nil, nil // converging parallel gateway would wait forever
	}

	rest, err := w.step(c.newStep(joining.flow.Target, joining.flow), c, joining.trail)
	if err != nil {
		return nil, err
	}
	return prependAll(steps, rest), nil
}

// isJoined reports whether the branches of a fork let a converging parallel gateway proceed: each incoming
// sequence flow must carry a token and no branch may end before.
func isJoined(gateway *model.Element, branches []seg) bool {
	var arrived []*model.SequenceFlow
	for _, branch := range branches {
		switch branch.exit {
		case exitEnd:
			return false
		case exitJoin:
			if branch.flow.Target == gateway && !slices.Contains(arrived, branch.flow) {
				arrived = append(arrived, branch.flow)
			}
		}
	}
	return len(arrived) == len(gateway.Incoming)
}

// activity visits an activity, resulting in the normal variants and one variant per boundary event.
func (w *walker) activity(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	normal := func(s *wstep, c walkCtx) ([]seg, error) {
		switch s.node.Type {
		case model.ElementSubProcess, model.ElementTransaction:
			return w.scope(s, c, tr)
		default:
			return w.leave(s, c, tr)
		}
	}

	segs, err := normal(s, c)
	if err != nil {
		return nil, err
	}

	for _, boundaryEvent := range w.boundaries(s.node) {
		triggered := *s
		triggered.trigger = boundaryEvent

		if boundaryEvent.Model.(model.BoundaryEvent).CancelActivity {
			triggered.outcome = OutcomeBoundary

			rest, err := w.step(c.newStep(boundaryEvent, nil), c, tr)
			if err != nil {
				return nil, err
			}

			segs = append(segs, prepend(&triggered, rest)...)
		} else {
			triggered.outcome = OutcomeBoundaryNonInterrupting

			bc := c.fork(&triggered, 0)
			bc.join = false

			continuations, err := w.step(bc.newStep(boundaryEvent, nil), bc, tr)
			if err != nil {
				return nil, err
			}

			remaining, err := normal(&triggered, c.fork(&triggered, 1))
			if err != nil {
				return nil, err
			}

			for _, x := range continuations {
				for _, y := range remaining {
					// y starts with the triggered step
					steps := make([]*wstep, 0, len(x.steps)+len(y.steps))
					steps = append(steps, y.steps[0])
					steps = append(steps, x.steps...)
					steps = append(steps, y.steps[1:]...)

					segs = append(segs, seg{steps: steps, exit: y.exit, flow: y.flow, thrower: y.thrower, trail: y.trail})
				}
			}
		}

		if err := w.check(len(segs)); err != nil {
			return nil, err
		}
	}

	return segs, nil
}

// boundaries returns the boundary events of an activity, that are triggered externally.
// Errors and escalations of sub processes are thrown by inner events, compensation and cancellation are not
// triggered at all.
func (w *walker) boundaries(activity *model.Element) []*model.Element {
	var boundaryEvents []*model.Element
	for _, boundaryEvent := range w.model.AttachedTo(activity.Id) {
		switch boundaryEvent.EventType() {
		case model.EventConditional, model.EventMessage, model.EventSignal, model.EventTimer:
			boundaryEvents = append(boundaryEvents, boundaryEvent)
		case model.EventError, model.EventEscalation:
			if !activity.Type.IsScope() {
				boundaryEvents = append(boundaryEvents, boundaryEvent)
			}
		}
	}
	return boundaryEvents
}

// scope expands a sub process or transaction inline.
func (w *walker) scope(s *wstep, c walkCtx, tr *trail) ([]seg, error) {
	ic := c.enter(s)

	var inner []seg
	for _, start := range s.node.StartEvents() {
		segs, err := w.enter(start, nil, ic, tr)
		if err != nil {
			return nil, err
		}
		inner = append(inner, segs...)
	}

	inner, err := w.complete(s.node, ic, inner)
	if err != nil {
		return nil, err
	}

	var segs []seg
	for _, r := range inner {
		if r.exit == exitThrow {
			boundaryEvent := catchingBoundary(w.model.AttachedTo(s.node.Id), r.thrower.node)
			if boundaryEvent == nil {
				// propagate to the enclosing scope
				segs = append(segs, seg{steps: prepend(s, []seg{r})[0].steps, exit: exitThrow, thrower: r.thrower, trail: r.trail})
				continue
			}

			interrupted := *s
			interrupted.outcome = OutcomeInterrupted
			interrupted.trigger = boundaryEvent

			mapping := map[*wstep]*wstep{s: &interrupted}
			steps := rebase(r.steps, mapping, nil)

			thrower := mapping[r.thrower]
			thrower.outcome = OutcomeThrow
			thrower.trigger = boundaryEvent

			rest, err := w.step(c.newStep(boundaryEvent, nil), c, r.trail)
			if err != nil {
				return nil, err
			}

			segs = append(segs, prependAll(append([]*wstep{&interrupted}, steps...), rest)...)
		} else {
			rest, err := w.leave(s, c, r.trail)
			if err != nil {
				return nil, err
			}

			for _, x := range rest {
				// x starts with the scope step
				steps := make([]*wstep, 0, len(r.steps)+len(x.steps))
				steps = append(steps, x.steps[0])
				steps = append(steps, r.steps...)
				steps = append(steps, x.steps[1:]...)

				segs = append(segs, seg{steps: steps, exit: x.exit, flow: x.flow, thrower: x.thrower, trail: x.trail})
			}
		}

		if err := w.check(len(segs)); err != nil {
			return nil, err
		}
	}

	return segs, nil
}

// complete adds the event sub process variants of a scope: throws, caught by an event sub process, are continued
// with it and for each wait state of a scope path, each triggerable event sub process is started.
func (w *walker) complete(scopeNode *model.Element, ic walkCtx, results []seg) ([]seg, error) {
	eventSubProcesses := scopeNode.ChildrenByType(model.ElementEventSubProcess)
	if len(eventSubProcesses) == 0 {
		return results, nil
	}

	var segs []seg
	for _, r := range results {
		if r.exit != exitThrow {
			segs = append(segs, r)
			continue
		}

		start := catchingStart(eventSubProcesses, r.thrower.node)
		if start == nil {
			segs = append(segs, r)
			continue
		}

		mapping := make(map[*wstep]*wstep)
		steps := rebase(r.steps, mapping, nil)

		thrower := mapping[r.thrower]
		thrower.outcome = OutcomeThrow
		thrower.trigger = start

		continuations, err := w.eventSubProcess(start, ic, ic.branches)
		if err != nil {
			return nil, err
		}

		for _, x := range continuations {
			segs = append(segs, seg{steps: concat(steps, x.steps), exit: x.exit, thrower: x.thrower, trail: r.trail})
		}
	}

	signatures := make(map[string]bool)
	for _, r := range results {
		if containsTrigger(r.steps) {
			continue
		}

		for k, step := range r.steps {
			if step.outcome != OutcomeCompleted || !IsWaitState(step.node, step.incoming) {
				continue
			}

			for _, eventSubProcess := range eventSubProcesses {
				starts := eventSubProcess.StartEvents()
				if len(starts) == 0 || !w.triggerable(starts[0], step, len(ic.scopes)) {
					continue
				}

				start := starts[0]

				triggered := *step
				triggered.trigger = start

				if start.Model.(model.StartEvent).IsInterrupting {
					triggered.outcome = OutcomeEventSubProcess

					var sb strings.Builder
					for _, prefixStep := range r.steps[:k+1] {
						sb.WriteString(prefixStep.signature())
						sb.WriteRune('|')
					}
					sb.WriteString(start.Id)

					signature := sb.String()
					if signatures[signature] {
						continue
					}
					signatures[signature] = true

					continuations, err := w.eventSubProcess(start, ic, ic.branches)
					if err != nil {
						return nil, err
					}

					prefix := concat(r.steps[:k], []*wstep{&triggered})
					for _, x := range continuations {
						segs = append(segs, seg{steps: concat(prefix, x.steps), exit: x.exit, thrower: x.thrower, trail: r.trail})
					}
				} else {
					triggered.outcome = OutcomeEventSubProcessNonInterrupting

					at := len(ic.branches)

					lineage := make([]wbranch, at, at+1)
					copy(lineage, ic.branches)
					lineage = append(lineage, wbranch{fork: &triggered, index: 0})

					continuations, err := w.eventSubProcess(start, ic, lineage)
					if err != nil {
						return nil, err
					}

					mapping := map[*wstep]*wstep{step: &triggered}
					rest := rebase(r.steps[k+1:], mapping, func(s *wstep) {
						branches := make([]wbranch, 0, len(s.branches)+1)
						branches = append(branches, s.branches[:at]...)
						branches = append(branches, wbranch{fork: &triggered, index: 1})
						branches = append(branches, s.branches[at:]...)
						s.branches = branches
					})

					thrower := r.thrower
					if mapped, ok := mapping[thrower]; ok {
						thrower = mapped
					}

					prefix := concat(r.steps[:k], []*wstep{&triggered})
					for _, x := range continuations {
						segs = append(segs, seg{steps: concat(concat(prefix, x.steps), rest), exit: r.exit, thrower: thrower, trail: r.trail})
					}
				}

				if err := w.check(len(segs)); err != nil {
					return nil, err
				}
			}
		}
	}

	return segs, nil
}

// eventSubProcess enumerates an event sub process, started by the given start event.
func (w *walker) eventSubProcess(start *model.Element, ic walkCtx, lineage []wbranch) ([]seg, error) {
	espStep := &wstep{
		node:     start.Parent,
		outcome:  OutcomeCompleted,
		depth:    ic.depth,
		scopes:   ic.scopes,
		branches: lineage,
	}

	ec := walkCtx{scopes: ic.scopes, branches: lineage, depth: ic.depth}.enter(espStep)

	segs, err := w.enter(start, nil, ec, nil)
	if err != nil {
		return nil, err
	}

	segs, err = w.complete(start.Parent, ec, segs)
	if err != nil {
		return nil, err
	}

	return prepend(espStep, segs), nil
}

// triggerable reports whether the start event of an event sub process, defined in a scope at the given depth, can
// be triggered by the handler of a wait state step.
func (w *walker) triggerable(start *model.Element, step *wstep, scopeDepth int) bool {
	switch start.EventType() {
	case model.EventConditional, model.EventMessage, model.EventSignal, model.EventTimer:
		return true
	case model.EventError, model.EventEscalation:
	default:
		return false
	}

	switch step.node.Type {
	case
		model.ElementBusinessRuleTask,
		model.ElementCallActivity,
		model.ElementScriptTask,
		model.ElementSendTask,
		model.ElementServiceTask,
		model.ElementUserTask:
	default:
		return false
	}

	thrower := &model.Element{Type: model.ElementEndEvent, EventDefinition: start.EventDefinition}

	// a catching boundary event or inner event sub process takes precedence
	if catchingBoundary(w.model.AttachedTo(step.node.Id), thrower) != nil {
		return false
	}
	for i := len(step.scopes) - 1; i >= scopeDepth; i-- {
		scopeNode := step.scopes[i].node
		if catchingStart(scopeNode.ChildrenByType(model.ElementEventSubProcess), thrower) != nil {
			return false
		}
		if catchingBoundary(w.model.AttachedTo(scopeNode.Id), thrower) != nil {
			return false
		}
	}
	return true
}

// catcher returns the boundary event or event sub process start event, that catches an error, escalation or
// cancellation thrown by the given node, or nil, if no interrupting catcher exists.
func (w *walker) catcher(thrower *model.Element, c walkCtx) *model.Element {
	for i := len(c.scopes); i >= 0; i-- {
		scopeNode := w.process
		if i != 0 {
			scopeNode = c.scopes[i-1].node
		}

		var eventSubProcesses []*model.Element
		for _, eventSubProcess := range scopeNode.ChildrenByType(model.ElementEventSubProcess) {
			enclosing := false
			for _, scope := range c.scopes {
				if scope.node == eventSubProcess {
					enclosing = true
					break
				}
			}
			if !enclosing {
				eventSubProcesses = append(eventSubProcesses, eventSubProcess)
			}
		}

		if start := catchingStart(eventSubProcesses, thrower); start != nil {
			return start
		}
		if i != 0 {
			if boundaryEvent := catchingBoundary(w.model.AttachedTo(scopeNode.Id), thrower); boundaryEvent != nil {
				return boundaryEvent
			}
		}
	}
	return nil
}

func catchingBoundary(boundaryEvents []*model.Element, thrower *model.Element) *model.Element {
	for _, boundaryEvent := range boundaryEvents {
		if !boundaryEvent.Model.(model.BoundaryEvent).CancelActivity {
			continue
		}
		if catches(boundaryEvent, thrower) {
			return boundaryEvent
		}
	}
	return nil
}

func catchingStart(eventSubProcesses []*model.Element, thrower *model.Element) *model.Element {
	for _, eventSubProcess := range eventSubProcesses {
		for _, start := range eventSubProcess.StartEvents() {
			if !start.Model.(model.StartEvent).IsInterrupting {
				continue
			}
			if catches(start, thrower) {
				return start
			}
		}
	}
	return nil
}

// catches reports whether a catch event catches the error, escalation or cancellation of a throw event.
// A catch event without code catches all codes.
func catches(catchEvent *model.Element, thrower *model.Element) bool {
	eventType := thrower.EventType()
	if catchEvent.EventType() != eventType {
		return false
	}
	if eventType == model.EventCancel {
		return true
	}

	code := catchEvent.EventDefinition.Name()
	return code == "" || code == thrower.EventDefinition.Name()
}

// combinations returns all k-combinations of n indices in lexicographic order.
func combinations(n int, k int) [][]int {
	var all [][]int

	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}

	for {
		all = append(all, append([]int(nil), indices...))

		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			return all
		}

		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

func concat(a []*wstep, b []*wstep) []*wstep {
	steps := make([]*wstep, 0, len(a)+len(b))
	steps = append(steps, a...)
	return append(steps, b...)
}

func containsTrigger(steps []*wstep) bool {
	for _, s := range steps {
		switch s.outcome {
		case OutcomeEventSubProcess, OutcomeEventSubProcessNonInterrupting:
			return true
		}
	}
	return false
}

// finalize converts the steps under construction into steps, referencing scope and fork steps by index.
func finalize(wsteps []*wstep) []Step {
	index := make(map[*wstep]int, len(wsteps))
	for i, s := range wsteps {
		index[s] = i
	}

	steps := make([]Step, len(wsteps))
	for i, s := range wsteps {
		step := Step{
			Node:     s.node,
			Incoming: s.incoming,
			Taken:    s.taken,
			Outcome:  s.outcome,
			Trigger:  s.trigger,
			Depth:    s.depth,
		}

		for _, scope := range s.scopes {
			if j, ok := index[scope]; ok {
				step.Scopes = append(step.Scopes, j)
			}
		}
		for _, branch := range s.branches {
			if j, ok := index[branch.fork]; ok {
				step.Branches = append(step.Branches, Branch{Fork: j, Index: branch.index})
			}
		}

		steps[i] = step
	}
	return steps
}

// orderedOutgoing returns the outgoing sequence flows in XML order, the default flow last.
func orderedOutgoing(node *model.Element) []*model.SequenceFlow {
	sequenceFlows := make([]*model.SequenceFlow, 0, len(node.Outgoing))
	var defaultFlows []*model.SequenceFlow
	for _, sequenceFlow := range node.Outgoing {
		if sequenceFlow.IsDefault {
			defaultFlows = append(defaultFlows, sequenceFlow)
		} else {
			sequenceFlows = append(sequenceFlows, sequenceFlow)
		}
	}
	return append(sequenceFlows, defaultFlows...)
}

func prepend(s *wstep, segs []seg) []seg {
	return prependAll([]*wstep{s}, segs)
}

func prependAll(steps []*wstep, segs []seg) []seg {
	result := make([]seg, len(segs))
	for i, x := range segs {
		x.steps = concat(steps, x.steps)
		result[i] = x
	}
	return result
}

// rebase clones steps, replacing references to cloned steps. The mapping is extended by all clones.
func rebase(steps []*wstep, mapping map[*wstep]*wstep, customize func(*wstep)) []*wstep {
	clones := make([]*wstep, len(steps))
	for i, s := range steps {
		clone := *s

		clone.scopes = make([]*wstep, len(s.scopes))
		for j, scope := range s.scopes {
			if mapped, ok := mapping[scope]; ok {
				clone.scopes[j] = mapped
			} else {
				clone.scopes[j] = scope
			}
		}

		clone.branches = make([]wbranch, len(s.branches))
		for j, branch := range s.branches {
			if mapped, ok := mapping[branch.fork]; ok {
				branch.fork = mapped
			}
			clone.branches[j] = branch
		}

		if customize != nil {
			customize(&clone)
		}

		mapping[s] = &clone
		clones[i] = &clone
	}
	return clones
}
