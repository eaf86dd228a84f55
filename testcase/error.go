package testcase

import (
	"errors"
	"fmt"
	"strings"
)

// Error is returned, when a test case cannot be executed along its path.
type Error struct {
	Type   ErrorType
	Title  string
	Detail string

	// Expected and Actual are set for errors of type [ErrorUnexpectedPosition] and [ErrorAssertion].
	Expected any
	Actual   any
}

func (e Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s: %s", e.Type, e.Title, e.Detail))

	if e.Expected != nil || e.Actual != nil {
		sb.WriteString(fmt.Sprintf("\nexpected: %v\nactual  : %v", e.Expected, e.Actual))
	}

	return sb.String()
}

type ErrorType int

const (
	ErrorAssertion ErrorType = iota + 1
	ErrorDeployment
	ErrorMissingSubscription
	ErrorUnexpectedPosition
	ErrorUnhandledNode
)

func (v ErrorType) String() string {
	switch v {
	case ErrorAssertion:
		return "ASSERTION_FAILURE"
	case ErrorDeployment:
		return "DEPLOYMENT_FAILURE"
	case ErrorMissingSubscription:
		return "MISSING_SUBSCRIPTION"
	case ErrorUnexpectedPosition:
		return "UNEXPECTED_POSITION"
	case ErrorUnhandledNode:
		return "UNHANDLED_NODE"
	default:
		return "UNKNOWN"
	}
}

// IsErrorType reports whether err is or wraps an [Error] of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var testcaseErr Error
	return errors.As(err, &testcaseErr) && testcaseErr.Type == errorType
}
