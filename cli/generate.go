package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gclaussn/go-bpmndt/generator"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const generatedFileSuffix = "_bpmndt_test.go"

type generateOptions struct {
	baseDir     string
	pattern     string
	outputDir   string
	packageName string
	processIds  []string
	maxPaths    int
	parallelism int
}

func newGenerateCmd(cli *Cli) *cobra.Command {
	var options generateOptions

	c := cobra.Command{
		Use:   "generate",
		Short: "Generate test cases for all paths of BPMN processes",
		Long: `Generate test cases for all paths of the executable processes, found in BPMN files matching a pattern.

For each BPMN file, a Go source file is written to the output directory. It provides a test case type per path, which
embeds a test case instance and exposes the default handlers of the path as fields.`,
		RunE: func(c *cobra.Command, _ []string) error {
			files, err := generate(c.Context(), cli.logger, options)
			if err != nil {
				return err
			}

			for _, file := range files {
				c.Println(file)
			}
			return nil
		},
	}

	c.Flags().StringVar(&options.baseDir, "base-dir", ".", "Base directory of the BPMN files")
	c.Flags().StringVar(&options.pattern, "pattern", "**/*.bpmn", "Pattern, matching BPMN files relative to the base directory")
	c.Flags().StringVar(&options.outputDir, "output-dir", "", "Directory of the generated files")
	c.Flags().StringVar(&options.packageName, "package", "", "Package of the generated files - defaults to the name of the output directory")
	c.Flags().StringSliceVar(&options.processIds, "process-id", nil, "IDs of the processes to generate test cases for")
	c.Flags().IntVar(&options.maxPaths, "max-paths", path.DefaultMaxPaths, "Maximum number of paths per process")
	c.Flags().IntVar(&options.parallelism, "parallelism", runtime.NumCPU(), "Maximum number of BPMN files, processed in parallel")

	c.MarkFlagRequired("output-dir")
	c.MarkFlagDirname("base-dir")
	c.MarkFlagDirname("output-dir")

	for _, name := range []string{"base-dir", "pattern", "output-dir", "package", "process-id", "max-paths", "parallelism"} {
		c.Flags().SetAnnotation(name, configLookupAllowed, nil)
	}

	return &c
}

// generate generates a Go source file per BPMN file and returns the paths of the written files.
func generate(ctx context.Context, logger *zap.Logger, options generateOptions) ([]string, error) {
	if !doublestar.ValidatePattern(options.pattern) {
		return nil, fmt.Errorf("pattern %s is invalid", options.pattern)
	}
	if options.parallelism < 1 {
		return nil, errors.New("parallelism must be greater than or equal to 1")
	}

	bpmnFiles, err := doublestar.Glob(os.DirFS(options.baseDir), options.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to find BPMN files: %v", err)
	}
	if len(bpmnFiles) == 0 {
		return nil, fmt.Errorf("no BPMN files found in %s, matching %s", options.baseDir, options.pattern)
	}

	slices.Sort(bpmnFiles)

	baseDir, err := filepath.Abs(options.baseDir)
	if err != nil {
		return nil, err
	}
	outputDir, err := filepath.Abs(options.outputDir)
	if err != nil {
		return nil, err
	}

	packageName := options.packageName
	if packageName == "" {
		packageName = strings.ReplaceAll(filepath.Base(outputDir), "-", "_")
	}

	outputFiles := make(map[string]string, len(bpmnFiles))
	for _, bpmnFile := range bpmnFiles {
		outputFile := filepath.Join(options.outputDir, generatedFileName(bpmnFile))
		if other, ok := outputFiles[outputFile]; ok {
			return nil, fmt.Errorf("BPMN files %s and %s result in the same file %s", other, bpmnFile, outputFile)
		}
		outputFiles[outputFile] = bpmnFile
	}

	var (
		mu        sync.Mutex
		described = make(map[string]generator.File, len(bpmnFiles))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(options.parallelism)

	for _, bpmnFile := range bpmnFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bpmnPath, err := filepath.Rel(outputDir, filepath.Join(baseDir, bpmnFile))
			if err != nil {
				return err
			}

			file, err := generator.Describe(generator.Config{
				BpmnFile:   filepath.Join(baseDir, bpmnFile),
				BpmnPath:   filepath.ToSlash(bpmnPath),
				Package:    packageName,
				ProcessIds: options.processIds,
				MaxPaths:   options.maxPaths,
			})
			if err != nil {
				return fmt.Errorf("failed to describe test cases of %s: %w", bpmnFile, err)
			}

			logger.Debug("test cases described",
				zap.String("bpmnFile", bpmnFile),
				zap.Int("testCases", len(file.TestCases)),
			)

			mu.Lock()
			described[bpmnFile] = file
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	typeNames := make(map[string]string)
	for _, bpmnFile := range bpmnFiles {
		for _, testCase := range described[bpmnFile].TestCases {
			if other, ok := typeNames[testCase.Name]; ok {
				return nil, fmt.Errorf("BPMN files %s and %s result in the same test case %s", other, bpmnFile, testCase.Name)
			}
			typeNames[testCase.Name] = bpmnFile
		}
	}

	if err := os.MkdirAll(options.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %v", err)
	}

	var written []string
	for _, bpmnFile := range bpmnFiles {
		file := described[bpmnFile]
		if len(file.TestCases) == 0 {
			logger.Warn("BPMN file has no executable process", zap.String("bpmnFile", bpmnFile))
			continue
		}

		source, err := generator.Render(file)
		if err != nil {
			return nil, fmt.Errorf("failed to render test cases of %s: %w", bpmnFile, err)
		}

		outputFile := filepath.Join(options.outputDir, generatedFileName(bpmnFile))
		if err := os.WriteFile(outputFile, source, 0644); err != nil {
			return nil, fmt.Errorf("failed to write file %s: %v", outputFile, err)
		}

		logger.Info("file generated",
			zap.String("bpmnFile", bpmnFile),
			zap.String("file", outputFile),
			zap.Int("testCases", len(file.TestCases)),
		)

		written = append(written, outputFile)
	}

	return written, nil
}

// generatedFileName returns the name of the file, generated for a BPMN file, e.g. order/order-process.bpmn results
// in order_process_bpmndt_test.go.
func generatedFileName(bpmnFile string) string {
	name := filepath.Base(bpmnFile)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(identifierOf(name)) + generatedFileSuffix
}

func identifierOf(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, s)
}
