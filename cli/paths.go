package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPathsCmd(cli *Cli) *cobra.Command {
	var (
		bpmnFileName string
		processIds   []string
		maxPaths     int
		coverage     bool
		verbose      bool
	)

	c := cobra.Command{
		Use:   "paths",
		Short: "List the paths of BPMN processes",
		RunE: func(c *cobra.Command, _ []string) error {
			b, err := os.ReadFile(bpmnFileName)
			if err != nil {
				return fmt.Errorf("failed to read BPMN file %s: %v", bpmnFileName, err)
			}

			m, err := model.New(bytes.NewReader(b))
			if err != nil {
				return err
			}

			customizer := func(o *path.Options) {
				o.MaxPaths = maxPaths
			}

			var all []path.ProcessPaths
			if len(processIds) == 0 {
				all, err = path.EnumerateAll(m, customizer)
				if err != nil {
					return err
				}
			} else {
				for _, processId := range processIds {
					paths, err := path.Enumerate(m, processId, customizer)
					if err != nil {
						return err
					}
					all = append(all, path.ProcessPaths{Process: m.ProcessById(processId), Paths: paths})
				}
			}

			for _, processPaths := range all {
				cli.logger.Debug("paths enumerated",
					zap.String("processId", processPaths.Process.Id),
					zap.Int("paths", len(processPaths.Paths)),
				)
			}

			if coverage {
				c.Print(formatCoverage(all))
			} else {
				c.Print(formatPaths(all, verbose))
			}
			return nil
		},
	}

	c.Flags().StringVar(&bpmnFileName, "bpmn-file", "", "Path to a BPMN XML file")
	c.Flags().StringSliceVar(&processIds, "process-id", nil, "IDs of the processes to list paths for")
	c.Flags().IntVar(&maxPaths, "max-paths", path.DefaultMaxPaths, "Maximum number of paths per process")
	c.Flags().BoolVar(&coverage, "coverage", false, "Show the flow nodes, covered by the paths, instead of the paths")
	c.Flags().BoolVar(&verbose, "verbose", false, "Show the steps of each path")

	c.MarkFlagRequired("bpmn-file")
	c.MarkFlagFilename("bpmn-file", ".bpmn", ".bpmn20.xml", ".xml")

	c.Flags().SetAnnotation("max-paths", configLookupAllowed, nil)

	return &c
}

func formatPaths(all []path.ProcessPaths, verbose bool) string {
	headers := []string{"PROCESS ID", "KEY", "START", "END", "STEPS"}
	if verbose {
		headers = append(headers, "PATH")
	}

	table := newTable(headers)
	for _, processPaths := range all {
		for _, p := range processPaths.Paths {
			row := []string{
				processPaths.Process.Id,
				p.Key(),
				p.Start().Id,
				p.End().Id,
				strconv.Itoa(p.Len()),
			}
			if verbose {
				row = append(row, p.String())
			}
			table.addRow(row)
		}
	}

	return table.format()
}

func formatCoverage(all []path.ProcessPaths) string {
	table := newTable([]string{"PROCESS ID", "PATHS", "COVERED", "TOTAL", "RATIO", "UNCOVERED"})
	for _, processPaths := range all {
		coverage := path.NewCoverage(processPaths.Process, processPaths.Paths)

		uncovered := make([]string, len(coverage.Uncovered))
		for i, element := range coverage.Uncovered {
			uncovered[i] = element.Id
		}

		table.addRow([]string{
			processPaths.Process.Id,
			strconv.Itoa(len(processPaths.Paths)),
			strconv.Itoa(coverage.Total - len(coverage.Uncovered)),
			strconv.Itoa(coverage.Total),
			fmt.Sprintf("%.2f", coverage.Ratio()),
			formatIds(uncovered),
		})
	}

	return table.format()
}
