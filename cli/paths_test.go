package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	assert := assert.New(t)

	t.Run("paths", func(t *testing.T) {
		// when
		out := mustExecute(t, "paths", "--bpmn-file", filepath.Join(bpmnDir, "gateway/exclusive.bpmn"))

		// then
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		assert.Len(lines, 4)

		assert.Equal([]string{"PROCESS ID", "KEY", "START", "END", "STEPS"}, splitColumns(lines[0]))
		assert.Equal([]string{"exclusive", "start__g1__A__End1", "start", "End1", "4"}, splitColumns(lines[2]))
		assert.Equal([]string{"exclusive", "start__g1__B__End2", "start", "End2", "4"}, splitColumns(lines[3]))
	})

	t.Run("verbose", func(t *testing.T) {
		// when
		out := mustExecute(t, "paths", "--bpmn-file", filepath.Join(bpmnDir, "event/boundary-timer.bpmn"), "--verbose")

		// then
		assert.Contains(out, "start -> T -> End")
		assert.Contains(out, "start -> T[BOUNDARY:b] -> b -> TimedOut")
	})

	t.Run("process ID", func(t *testing.T) {
		// when
		out := mustExecute(t, "paths",
			"--bpmn-file", filepath.Join(bpmnDir, "call-activity/call-activity.bpmn"),
			"--process-id", "child",
		)

		// then
		assert.Contains(out, "childStart__childTask__childEnd")
		assert.NotContains(out, "start__ca__end")
	})

	t.Run("coverage", func(t *testing.T) {
		// when
		out := mustExecute(t, "paths", "--bpmn-file", filepath.Join(bpmnDir, "call-activity/call-activity.bpmn"), "--coverage")

		// then
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		assert.Len(lines, 4)

		assert.Equal([]string{"PROCESS ID", "PATHS", "COVERED", "TOTAL", "RATIO", "UNCOVERED"}, splitColumns(lines[0]))
		assert.Equal([]string{"callActivity", "1", "3", "3", "1.00", "-"}, splitColumns(lines[2]))
		assert.Equal([]string{"child", "1", "3", "3", "1.00", "-"}, splitColumns(lines[3]))
	})

	t.Run("returns error when BPMN file does not exist", func(t *testing.T) {
		_, err := execute("paths", "--bpmn-file", "not-existing.bpmn")
		assert.ErrorContains(err, "failed to read BPMN file not-existing.bpmn")
	})

	t.Run("returns error when BPMN file is invalid", func(t *testing.T) {
		_, err := execute("paths", "--bpmn-file", filepath.Join(bpmnDir, "invalid/target-missing.bpmn"))
		assert.Error(err)
	})

	t.Run("returns error when process does not exist", func(t *testing.T) {
		_, err := execute("paths", "--bpmn-file", filepath.Join(bpmnDir, "gateway/exclusive.bpmn"), "--process-id", "unknown")
		assert.ErrorContains(err, "process unknown does not exist")
	})
}

// splitColumns splits a formatted table row, whose columns are separated by three spaces.
func splitColumns(line string) []string {
	var columns []string
	for _, column := range strings.Split(line, "   ") {
		if column = strings.TrimSpace(column); column != "" {
			columns = append(columns, column)
		}
	}
	return columns
}
