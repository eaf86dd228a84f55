package cli

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGenerateOptions(t *testing.T, pattern string) generateOptions {
	return generateOptions{
		baseDir:     bpmnDir,
		pattern:     pattern,
		outputDir:   filepath.Join(t.TempDir(), "orders"),
		maxPaths:    100,
		parallelism: 2,
	}
}

func mustCopyBpmnFile(t *testing.T, src string, dst string) {
	b, err := os.ReadFile(filepath.Join(bpmnDir, src))
	if err != nil {
		t.Fatalf("failed to read BPMN file: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(dst, b, 0644); err != nil {
		t.Fatalf("failed to write BPMN file: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)

	t.Run("generate", func(t *testing.T) {
		// given
		options := newGenerateOptions(t, "gateway/*.bpmn")

		// when
		files, err := generate(context.Background(), zap.NewNop(), options)
		require.NoError(t, err)

		// then
		assert.Equal([]string{
			filepath.Join(options.outputDir, "event_based_bpmndt_test.go"),
			filepath.Join(options.outputDir, "exclusive_condition_bpmndt_test.go"),
			filepath.Join(options.outputDir, "exclusive_bpmndt_test.go"),
			filepath.Join(options.outputDir, "inclusive_bpmndt_test.go"),
			filepath.Join(options.outputDir, "parallel_nested_bpmndt_test.go"),
			filepath.Join(options.outputDir, "parallel_bpmndt_test.go"),
		}, files)

		fset := token.NewFileSet()
		for _, file := range files {
			f, err := parser.ParseFile(fset, file, nil, parser.PackageClauseOnly)
			require.NoError(t, err)
			assert.Equal("orders", f.Name.Name)
		}

		b, err := os.ReadFile(files[2])
		require.NoError(t, err)
		assert.Contains(string(b), `BpmnFile:  "../../`)
		assert.Contains(string(b), `gateway/exclusive.bpmn"`)
		assert.Contains(string(b), "type Exclusive_start__g1__A__End1 struct")
	})

	t.Run("generate command", func(t *testing.T) {
		// given
		outputDir := filepath.Join(t.TempDir(), "order-tests")

		// when
		out := mustExecute(t, "generate",
			"--base-dir", bpmnDir,
			"--pattern", "call-activity/*.bpmn",
			"--output-dir", outputDir,
			"--process-id", "callActivity",
		)

		// then
		outputFile := filepath.Join(outputDir, "call_activity_bpmndt_test.go")
		assert.Equal(outputFile+"\n", out)

		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, outputFile, nil, parser.PackageClauseOnly)
		require.NoError(t, err)
		assert.Equal("order_tests", f.Name.Name)

		b, err := os.ReadFile(outputFile)
		require.NoError(t, err)
		assert.Contains(string(b), "CallActivity_start__ca__end")
		assert.NotContains(string(b), "Child_childStart__childTask__childEnd")
	})

	t.Run("returns error when no BPMN file matches", func(t *testing.T) {
		_, err := generate(context.Background(), zap.NewNop(), newGenerateOptions(t, "*.xml"))
		assert.ErrorContains(err, "no BPMN files found")
	})

	t.Run("returns error when pattern is invalid", func(t *testing.T) {
		_, err := generate(context.Background(), zap.NewNop(), newGenerateOptions(t, "[a"))
		assert.ErrorContains(err, "pattern [a is invalid")
	})

	t.Run("returns error when parallelism is invalid", func(t *testing.T) {
		options := newGenerateOptions(t, "task/*.bpmn")
		options.parallelism = 0

		_, err := generate(context.Background(), zap.NewNop(), options)
		assert.ErrorContains(err, "parallelism")
	})

	t.Run("returns error when BPMN file is invalid", func(t *testing.T) {
		// given
		options := newGenerateOptions(t, "{gateway/exclusive.bpmn,invalid/target-missing.bpmn}")

		// when
		_, err := generate(context.Background(), zap.NewNop(), options)

		// then
		assert.ErrorContains(err, "failed to describe test cases of invalid/target-missing.bpmn")

		_, statErr := os.Stat(options.outputDir)
		assert.True(os.IsNotExist(statErr))
	})

	t.Run("returns error when generated files collide", func(t *testing.T) {
		// given
		baseDir := t.TempDir()
		mustCopyBpmnFile(t, "task/service.bpmn", filepath.Join(baseDir, "a/service.bpmn"))
		mustCopyBpmnFile(t, "task/service.bpmn", filepath.Join(baseDir, "b/service.bpmn"))

		options := newGenerateOptions(t, "**/*.bpmn")
		options.baseDir = baseDir

		// when
		_, err := generate(context.Background(), zap.NewNop(), options)

		// then
		assert.ErrorContains(err, "BPMN files a/service.bpmn and b/service.bpmn result in the same file")
	})

	t.Run("returns error when test cases collide", func(t *testing.T) {
		// given
		baseDir := t.TempDir()
		mustCopyBpmnFile(t, "task/service.bpmn", filepath.Join(baseDir, "a/service.bpmn"))
		mustCopyBpmnFile(t, "task/service.bpmn", filepath.Join(baseDir, "b/linear.bpmn"))

		options := newGenerateOptions(t, "**/*.bpmn")
		options.baseDir = baseDir

		// when
		_, err := generate(context.Background(), zap.NewNop(), options)

		// then
		assert.ErrorContains(err, "BPMN files a/service.bpmn and b/linear.bpmn result in the same test case Linear_start__t1__End")
	})
}

func TestGeneratedFileName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("order_bpmndt_test.go", generatedFileName("order.bpmn"))
	assert.Equal("order_process_bpmndt_test.go", generatedFileName("order/order-process.bpmn"))
	assert.Equal("order_bpmndt_test.go", generatedFileName("Order.bpmn20.xml"))
}
