/*
go-bpmndt generates test cases for BPMN processes and lists their paths.

Usage:

	go-bpmndt [flags]
	go-bpmndt [command]

Available Commands:

	completion  Generate the autocompletion script for the specified shell
	generate    Generate test cases for all paths of BPMN processes
	help        Help about any command
	paths       List the paths of BPMN processes
	version     Show version

Flags:

	    --config string   Path to a YAML, TOML or JSON config file
	    --debug           Enable debug logging
	-h, --help            help for go-bpmndt

Use "go-bpmndt [command] --help" for more information about a command.

Flags, which are not set explicitly, can be configured via environment variables, prefixed with GO_BPMNDT_ (e.g.
GO_BPMNDT_MAX_PATHS), or via the config file.
*/
package main

import (
	"os"

	"github.com/gclaussn/go-bpmndt/cli"
)

var (
	version = "unknown-version"
)

func main() {
	cli := cli.New(version)
	os.Exit(cli.Execute())
}
