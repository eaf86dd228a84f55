package handler

import (
	"fmt"
	"strings"

	"github.com/gclaussn/go-bpmndt/testcase"
	"github.com/oliveagle/jsonpath"
	"github.com/stretchr/testify/assert"
)

// A Verifier asserts the state of a process instance, before a handler lets the engine continue.
// A failed verification must return an error of type [testcase.ErrorAssertion].
type Verifier func(*testcase.Context) error

// HasVariable verifies that the process instance has a variable.
func HasVariable(name string) Verifier {
	return func(c *testcase.Context) error {
		variables, err := c.ProcessVariables(name)
		if err != nil {
			return err
		}
		if _, ok := variables[name]; !ok {
			return testcase.Error{
				Type:   testcase.ErrorAssertion,
				Title:  "failed to verify variable",
				Detail: fmt.Sprintf("process instance %d has no variable %s at %s", c.ProcessInstance().Id, name, c.Element().Id),
			}
		}
		return nil
	}
}

// HasNoVariable verifies that the process instance has no variable with the given name.
func HasNoVariable(name string) Verifier {
	return func(c *testcase.Context) error {
		variables, err := c.ProcessVariables(name)
		if err != nil {
			return err
		}
		if value, ok := variables[name]; ok {
			return testcase.Error{
				Type:   testcase.ErrorAssertion,
				Title:  "failed to verify variable",
				Detail: fmt.Sprintf("process instance %d has variable %s at %s", c.ProcessInstance().Id, name, c.Element().Id),
				Actual: value,
			}
		}
		return nil
	}
}

// VariableEquals verifies the value, a JSONPath expression selects from the process variables. The root object of the
// expression contains all process variables, e.g. $.order.total selects the field total of variable order.
// A leading $. can be omitted. Numeric values are compared by value, regardless of their type.
func VariableEquals(expr string, expected any) Verifier {
	return func(c *testcase.Context) error {
		actual, err := lookup(c, expr)
		if err != nil {
			return err
		}
		if !assert.ObjectsAreEqualValues(expected, actual) {
			return testcase.Error{
				Type:     testcase.ErrorAssertion,
				Title:    "failed to verify variable",
				Detail:   fmt.Sprintf("process instance %d has unexpected value %s at %s", c.ProcessInstance().Id, expr, c.Element().Id),
				Expected: expected,
				Actual:   actual,
			}
		}
		return nil
	}
}

// VariableMatches verifies the value, a JSONPath expression selects from the process variables, using a predicate.
func VariableMatches(expr string, predicate func(any) bool) Verifier {
	return func(c *testcase.Context) error {
		actual, err := lookup(c, expr)
		if err != nil {
			return err
		}
		if !predicate(actual) {
			return testcase.Error{
				Type:   testcase.ErrorAssertion,
				Title:  "failed to verify variable",
				Detail: fmt.Sprintf("process instance %d has value %s at %s, which does not match", c.ProcessInstance().Id, expr, c.Element().Id),
				Actual: actual,
			}
		}
		return nil
	}
}

func lookup(c *testcase.Context, expr string) (any, error) {
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}

	variables, err := c.ProcessVariables()
	if err != nil {
		return nil, err
	}

	value, err := jsonpath.JsonPathLookup(variables, expr)
	if err != nil {
		return nil, testcase.Error{
			Type:   testcase.ErrorAssertion,
			Title:  "failed to verify variable",
			Detail: fmt.Sprintf("process instance %d has no value %s at %s: %v", c.ProcessInstance().Id, expr, c.Element().Id, err),
		}
	}
	return value, nil
}

// verification holds the verifiers of a handler.
type verification []Verifier

func (v verification) verify(c *testcase.Context) error {
	for _, verifier := range v {
		if err := verifier(c); err != nil {
			return err
		}
	}
	return nil
}
