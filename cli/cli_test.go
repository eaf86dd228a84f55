package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelp(t *testing.T) {
	assert := assert.New(t)

	out := mustExecute(t)
	assert.Contains(out, "generate")
	assert.Contains(out, "paths")
	assert.Contains(out, "version")

	mustExecute(t, "generate", "--help")
	mustExecute(t, "paths", "--help")
}

func TestVersion(t *testing.T) {
	assert := assert.New(t)

	out := mustExecute(t, "version")
	assert.Equal("test-version\n", out)
}

func TestConfigure(t *testing.T) {
	assert := assert.New(t)

	exclusive := filepath.Join(bpmnDir, "gateway/exclusive.bpmn")

	t.Run("environment variable", func(t *testing.T) {
		// given
		t.Setenv("GO_BPMNDT_MAX_PATHS", "1")

		// when
		_, err := execute("paths", "--bpmn-file", exclusive)

		// then
		assert.ErrorContains(err, "unbounded expansion")
	})

	t.Run("flag takes precedence", func(t *testing.T) {
		// given
		t.Setenv("GO_BPMNDT_MAX_PATHS", "1")

		// when
		out, err := execute("paths", "--bpmn-file", exclusive, "--max-paths", "2")

		// then
		assert.NoError(err)
		assert.Contains(out, "start__g1__B__End2")
	})

	t.Run("config file", func(t *testing.T) {
		// given
		configFile := filepath.Join(t.TempDir(), "go-bpmndt.yaml")
		if err := os.WriteFile(configFile, []byte("max-paths: 1\n"), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		// when
		_, err := execute("paths", "--config", configFile, "--bpmn-file", exclusive)

		// then
		assert.ErrorContains(err, "unbounded expansion")
	})

	t.Run("returns error when config file does not exist", func(t *testing.T) {
		_, err := execute("paths", "--config", "not-existing.yaml", "--bpmn-file", exclusive)
		assert.ErrorContains(err, "failed to read config file")
	})

	t.Run("returns error when value is invalid", func(t *testing.T) {
		// given
		t.Setenv("GO_BPMNDT_MAX_PATHS", "many")

		// when
		_, err := execute("paths", "--bpmn-file", exclusive)

		// then
		assert.ErrorContains(err, "invalid value \"many\" for flag max-paths")
	})

	t.Run("required flag", func(t *testing.T) {
		// given
		t.Setenv("GO_BPMNDT_OUTPUT_DIR", filepath.Join(t.TempDir(), "orders"))

		// when
		out, err := execute("generate", "--base-dir", bpmnDir, "--pattern", "task/service.bpmn")

		// then
		assert.NoError(err)
		assert.Contains(out, "service_bpmndt_test.go")
	})
}
