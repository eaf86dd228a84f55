package mem

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	"github.com/gclaussn/go-bpmndt/engine"
)

// operators maps the textual operators of JUEL expressions to JavaScript operators.
var operators = []struct {
	regexp      *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\band\b`), "&&"},
	{regexp.MustCompile(`\bor\b`), "||"},
	{regexp.MustCompile(`\bnot\b`), "!"},
	{regexp.MustCompile(`\beq\b`), "=="},
	{regexp.MustCompile(`\bne\b`), "!="},
	{regexp.MustCompile(`\bgt\b`), ">"},
	{regexp.MustCompile(`\bge\b`), ">="},
	{regexp.MustCompile(`\blt\b`), "<"},
	{regexp.MustCompile(`\ble\b`), "<="},
}

// isExpression reports whether a value is an expression like ${amount > 100}.
func isExpression(s string) bool {
	s = strings.TrimSpace(s)
	return (strings.HasPrefix(s, "${") || strings.HasPrefix(s, "#{")) && strings.HasSuffix(s, "}")
}

// toScript turns an expression into a JavaScript snippet.
func toScript(expression string) string {
	script := strings.TrimSpace(expression)
	if isExpression(script) {
		script = script[2 : len(script)-1]
	}

	for _, operator := range operators {
		script = operator.regexp.ReplaceAllString(script, operator.replacement)
	}
	return script
}

// evaluate evaluates an expression in the scope of an element instance.
// Mocks and all visible variables are available as globals, variables shadow mocks.
func evaluate(ctx *memContext, elementInstance *elementInstanceEntity, expression string) (goja.Value, error) {
	vm := goja.New()

	for name, value := range ctx.mocks.Values() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	for name, value := range ctx.visibleVariables(elementInstance) {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}

	return vm.RunString(toScript(expression))
}

// evaluateCondition evaluates a sequence flow condition or a completion condition.
func evaluateCondition(ctx *memContext, elementInstance *elementInstanceEntity, expression string) (bool, error) {
	value, err := evaluate(ctx, elementInstance, expression)
	if err != nil {
		return false, newExpressionError(elementInstance, expression, err)
	}
	return value.ToBoolean(), nil
}

// evaluateEventCondition evaluates the condition of a conditional event.
// A condition, referencing an undefined variable, is not satisfied.
func evaluateEventCondition(ctx *memContext, elementInstance *elementInstanceEntity, expression string) (bool, error) {
	value, err := evaluate(ctx, elementInstance, expression)
	if err != nil {
		if isReferenceError(err) {
			return false, nil
		}
		return false, newExpressionError(elementInstance, expression, err)
	}
	return value.ToBoolean(), nil
}

// evaluateInt evaluates an expression or a number like a loop cardinality.
func evaluateInt(ctx *memContext, elementInstance *elementInstanceEntity, expression string) (int, error) {
	value, err := evaluate(ctx, elementInstance, expression)
	if err != nil {
		return 0, newExpressionError(elementInstance, expression, err)
	}
	return int(value.ToInteger()), nil
}

// evaluateSlice evaluates an expression or a variable name, resulting in a collection.
func evaluateSlice(ctx *memContext, elementInstance *elementInstanceEntity, expression string) ([]any, error) {
	value, err := evaluate(ctx, elementInstance, expression)
	if err != nil {
		return nil, newExpressionError(elementInstance, expression, err)
	}

	exported := value.Export()
	if exported == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(exported)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to evaluate expression",
			Detail: fmt.Sprintf("expression %s of element %s is not a collection, but %T", expression, elementInstance.element.Pointer(), exported),
		}
	}

	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

// evaluateString evaluates an expression to a string. Any other value is returned as it is.
func evaluateString(ctx *memContext, elementInstance *elementInstanceEntity, s string) (string, error) {
	if !isExpression(s) {
		return s, nil
	}

	value, err := evaluate(ctx, elementInstance, s)
	if err != nil {
		return "", newExpressionError(elementInstance, s, err)
	}
	return value.String(), nil
}

func isReferenceError(err error) bool {
	var exception *goja.Exception
	if !errors.As(err, &exception) {
		return false
	}
	return strings.HasPrefix(exception.Value().String(), "ReferenceError")
}

func newExpressionError(elementInstance *elementInstanceEntity, expression string, err error) error {
	return engine.Error{
		Type:   engine.ErrorProcessModel,
		Title:  "failed to evaluate expression",
		Detail: fmt.Sprintf("expression %s of element %s: %v", expression, elementInstance.element.Pointer(), err),
	}
}
