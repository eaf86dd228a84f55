package model

import (
	"fmt"
	"strings"
)

// InvalidModelError is returned, when a BPMN document cannot be parsed or is structurally malformed.
type InvalidModelError struct {
	Detail string
	Causes []ErrorCause
}

func (e InvalidModelError) Error() string {
	var sb strings.Builder

	sb.WriteString("invalid model: ")
	sb.WriteString(e.Detail)

	for _, cause := range e.Causes {
		sb.WriteRune('\n')
		sb.WriteString(cause.String())
	}

	return sb.String()
}

type ErrorCause struct {
	Pointer string // A pointer, locating the invalid BPMN element or sequence flow.
	Type    string // Type indicator.
	Detail  string // Human-readable, detailed information about the cause.
}

func (e ErrorCause) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Detail)
}
