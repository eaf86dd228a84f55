package path

import "github.com/gclaussn/go-bpmndt/model"

// Coverage describes how often the flow nodes of a process are visited by a set of paths.
type Coverage struct {
	Process *model.Element
	// Counts maps flow node IDs to the number of paths, visiting the node at least once.
	Counts map[string]int
	// Uncovered contains all flow nodes, not visited by any path, in document order.
	Uncovered []*model.Element
	Total     int
}

// NewCoverage computes the node coverage of paths, enumerated for a process.
func NewCoverage(processElement *model.Element, paths []Path) Coverage {
	counts := make(map[string]int)
	for _, p := range paths {
		visited := make(map[string]bool, len(p.steps))
		for _, step := range p.steps {
			visited[step.Node.Id] = true
		}
		for id := range visited {
			counts[id]++
		}
	}

	coverage := Coverage{Process: processElement, Counts: counts}
	for _, element := range processElement.AllElements()[1:] {
		coverage.Total++
		if counts[element.Id] == 0 {
			coverage.Uncovered = append(coverage.Uncovered, element)
		}
	}
	return coverage
}

// Ratio returns the share of covered flow nodes, between 0 and 1.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Total-len(c.Uncovered)) / float64(c.Total)
}
