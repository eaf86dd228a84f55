package cli

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
)

const bpmnDir = "../test/bpmn"

func newTestRootCmd(out *bytes.Buffer) *Cli {
	cli := &Cli{version: "test-version", logger: zap.NewNop()}
	cli.rootCmd = newRootCmd(cli)
	cli.rootCmd.SetOut(out)
	cli.rootCmd.SetErr(out)
	return cli
}

// execute executes a command and returns its output.
func execute(args ...string) (string, error) {
	var out bytes.Buffer

	cli := newTestRootCmd(&out)
	cli.rootCmd.SetArgs(args)

	err := cli.rootCmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("failed to execute %v: %v\n%s", args, err, out)
	}
	return out
}
