package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"
)

var (
	RegexpVariableName = regexp.MustCompile("^[a-zA-Z0-9_.-]+$")

	validate = newValidate()
)

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0] // e.g. `json:"processVariables,omitempty"` -> processVariables
	})

	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		return gronx.IsValid(v)
	})
	validate.RegisterValidation("iso8601_duration", func(fl validator.FieldLevel) bool {
		_, err := NewISO8601Duration(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("timer", func(fl validator.FieldLevel) bool {
		timer, ok := fl.Field().Interface().(Timer)
		if !ok {
			return false
		}
		return !timer.Time.IsZero() || timer.TimeCycle != "" || !timer.TimeDuration.IsZero()
	}, true)
	validate.RegisterValidation("variable_name", func(fl validator.FieldLevel) bool {
		return RegexpVariableName.MatchString(fl.Field().String())
	})

	return validate
}

// Validate validates a command or timer, using its struct tags.
// If the validation fails, an [Error] of type [ErrorValidation] is returned, containing a cause per invalid field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return Error{
			Type:   ErrorBug,
			Title:  "failed to validate",
			Detail: err.Error(),
		}
	}

	causes := make([]ErrorCause, len(fieldErrors))
	for i, fieldError := range fieldErrors {
		var detail string
		switch fieldError.Tag() {
		case "gte":
			detail = fmt.Sprintf("must be greater than or equal to %s", fieldError.Param())
		case "lte":
			detail = fmt.Sprintf("must be less than or equal to %s", fieldError.Param())
		case "max":
			detail = fmt.Sprintf("exceeds a maximum of %s", fieldError.Param())
		case "required":
			detail = "is required"
		case "required_without":
			detail = fmt.Sprintf("is required, when %s is not set", fieldError.Param())
		case "unique":
			detail = "must be unique"
		// custom validation
		case "cron":
			detail = fmt.Sprintf("%s is invalid", fieldError.Value())
		case "iso8601_duration":
			detail = fmt.Sprintf("%s is invalid", fieldError.Value())
		case "timer":
			detail = "must specify a time, time cycle or time duration"
		case "variable_name":
			detail = fmt.Sprintf("%s must match regex %s", fieldError.Value(), RegexpVariableName)
		default:
			detail = fmt.Sprintf("%v is invalid", fieldError.Value())
		}

		causes[i] = ErrorCause{
			Pointer: pointer(fieldError.Namespace()),
			Type:    fieldError.Tag(),
			Detail:  detail,
		}
	}

	return Error{
		Type:   ErrorValidation,
		Title:  "invalid command",
		Detail: fmt.Sprintf("failed to validate %T", v),
		Causes: causes,
	}
}

// pointer converts a validator namespace into a JSON pointer, e.g. CompleteJobCmd.completion.exclusiveGatewayDecision
// -> #/completion/exclusiveGatewayDecision and SendSignalCmd.variables[a b] -> #/variables/a b.
func pointer(namespace string) string {
	var sb strings.Builder
	for _, r := range namespace {
		if sb.Len() == 0 {
			// skip until first dot
			if r == '.' {
				sb.WriteString("#/")
			}
			continue
		}

		switch r {
		case '.', '[':
			sb.WriteRune('/')
		case ']':
			continue
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
