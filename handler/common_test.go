package handler

import (
	"testing"

	"github.com/gclaussn/go-bpmndt/testcase"
)

func bpmnFile(fileName string) string {
	return "../test/bpmn/" + fileName
}

// newTestCase creates a test case with the default handlers of the selected path.
func newTestCase(t *testing.T, fileName string, pathKey string) *testcase.Instance {
	tc := testcase.New(t, testcase.Config{
		EngineName: t.Name(),
		BpmnFile:   bpmnFile(fileName),
		PathKey:    pathKey,
	})
	tc.HandleAll(Defaults(tc.Path()))
	return tc
}

// mustOpen opens a test case, which is finished, when the test completes. Unlike newTestCase, a failed run does not
// fail the test, since it is executed via [testcase.Executor.Run].
func mustOpen(t *testing.T, config testcase.Config) *testcase.Instance {
	if config.EngineName == "" {
		config.EngineName = t.Name()
	}

	tc, err := testcase.Open(config)
	if err != nil {
		t.Fatalf("failed to open test case: %v", err)
	}

	t.Cleanup(func() {
		if err := tc.Finish(); err != nil {
			t.Errorf("failed to finish test case: %v", err)
		}
	})

	tc.HandleAll(Defaults(tc.Path()))
	return tc
}
