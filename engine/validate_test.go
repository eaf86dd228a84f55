package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	mustValidationError := func(t *testing.T, v any) Error {
		err := Validate(v)
		require.IsType(t, Error{}, err)

		engineErr := err.(Error)
		require.Equal(t, ErrorValidation, engineErr.Type)
		return engineErr
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(Validate(CreateProcessInstanceCmd{
			BpmnProcessId: "order",
			Variables:     map[string]any{"order.total": 100},
			WorkerId:      "test-worker",
		}))
	})

	t.Run("required", func(t *testing.T) {
		engineErr := mustValidationError(t, CreateDeploymentCmd{BpmnXml: "<xml />"})

		require.Len(t, engineErr.Causes, 2)
		assert.Equal("#/name", engineErr.Causes[0].Pointer)
		assert.Equal("required", engineErr.Causes[0].Type)
		assert.Equal("#/workerId", engineErr.Causes[1].Pointer)
	})

	t.Run("limit", func(t *testing.T) {
		assert.NoError(Validate(LockJobsCmd{WorkerId: "test-worker"}))

		engineErr := mustValidationError(t, LockJobsCmd{Limit: 1001, WorkerId: "test-worker"})

		require.Len(t, engineErr.Causes, 1)
		assert.Equal("#/limit", engineErr.Causes[0].Pointer)
		assert.Equal("lte", engineErr.Causes[0].Type)
	})

	t.Run("variable name", func(t *testing.T) {
		engineErr := mustValidationError(t, SetProcessVariablesCmd{
			ProcessInstanceId: 1,
			Variables:         map[string]any{"a b": 1},
			WorkerId:          "test-worker",
		})

		require.Len(t, engineErr.Causes, 1)
		assert.Equal("variable_name", engineErr.Causes[0].Type)
		assert.Equal("#/variables/a b", engineErr.Causes[0].Pointer)
	})

	t.Run("error or escalation code", func(t *testing.T) {
		engineErr := mustValidationError(t, ThrowCmd{ElementInstanceId: 1, WorkerId: "test-worker"})

		require.Len(t, engineErr.Causes, 2)
		assert.Equal("required_without", engineErr.Causes[0].Type)
		assert.Equal("required_without", engineErr.Causes[1].Type)

		assert.NoError(Validate(ThrowCmd{ElementInstanceId: 1, ErrorCode: "TEST_CODE", WorkerId: "test-worker"}))
	})

	t.Run("unique inclusive gateway decision", func(t *testing.T) {
		engineErr := mustValidationError(t, CompleteJobCmd{
			Id:         1,
			Completion: &JobCompletion{InclusiveGatewayDecision: []string{"a", "a"}},
			WorkerId:   "test-worker",
		})

		require.Len(t, engineErr.Causes, 1)
		assert.Equal("#/completion/inclusiveGatewayDecision", engineErr.Causes[0].Pointer)
		assert.Equal("unique", engineErr.Causes[0].Type)
	})

	t.Run("timer", func(t *testing.T) {
		assert.NoError(Validate(Timer{Time: time.Now()}))
		assert.NoError(Validate(Timer{TimeCycle: "0 * * * *"}))
		assert.NoError(Validate(Timer{TimeDuration: ISO8601Duration("PT1H")}))

		engineErr := mustValidationError(t, Timer{TimeCycle: "* *"})
		assert.Equal("cron", engineErr.Causes[0].Type)

		engineErr = mustValidationError(t, Timer{TimeDuration: ISO8601Duration("P")})
		assert.Equal("iso8601_duration", engineErr.Causes[0].Type)
	})
}
