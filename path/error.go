package path

import "fmt"

// UnboundedExpansionError is returned, when the number of paths of a process exceeds the configured maximum.
type UnboundedExpansionError struct {
	ProcessId string
	MaxPaths  int
}

func (e UnboundedExpansionError) Error() string {
	return fmt.Sprintf("unbounded expansion: process %s has more than %d paths", e.ProcessId, e.MaxPaths)
}
