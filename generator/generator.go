// Package generator generates Go source files, providing a test case type per path of a BPMN process.
package generator

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"strings"
	"text/template"

	"github.com/gclaussn/go-bpmndt/handler"
	"github.com/gclaussn/go-bpmndt/model"
	"github.com/gclaussn/go-bpmndt/path"
)

//go:embed templates
var resources embed.FS

// Config configures the generation of a Go source file for a BPMN file.
type Config struct {
	BpmnFile string // Path of the BPMN file to read.
	// BpmnPath is the path of the BPMN file, as referenced by the generated code - normally relative to the directory
	// of the generated file. If empty, BpmnFile is used.
	BpmnPath string
	Package  string // Name of the Go package of the generated file.

	ProcessIds []string // IDs of the processes to generate test cases for. If empty, all executable processes are used.
	MaxPaths   int      // Maximum number of paths per process.
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BpmnFile) == "" {
		return errors.New("BPMN file must not be empty or blank")
	}
	if !token.IsIdentifier(c.Package) {
		return fmt.Errorf("package %q is not a valid identifier", c.Package)
	}
	if c.MaxPaths < 1 {
		return errors.New("max paths must be greater than or equal to 1")
	}
	return nil
}

// File describes a generated Go source file, containing one test case type per path.
type File struct {
	BpmnFile  string
	Package   string
	TestCases []TestCase
}

// TestCase describes the test case of a single path. The generated type embeds a [testcase.Instance] and exposes the
// default handlers of the path as named fields, which can be customized before the test case is executed.
type TestCase struct {
	Name      string // Name of the generated Go type.
	ProcessId string
	PathKey   string
	Start     string // ID of the start event.
	End       string // ID of the end event.

	Handlers []HandlerField
}

// HandlerField describes a field of a generated test case type, holding the handler of a BPMN element.
type HandlerField struct {
	Name          string // Name of the Go field.
	BpmnElementId string
	ElementType   model.ElementType
	Type          string // Go type of the handler, e.g. *handler.JobHandler.
}

// Generate describes the test cases of a BPMN file and renders them as formatted Go source.
func Generate(config Config) ([]byte, error) {
	file, err := Describe(config)
	if err != nil {
		return nil, err
	}
	return Render(file)
}

// Describe reads a BPMN file, enumerates the paths of its processes and describes a test case per path.
func Describe(config Config) (File, error) {
	if err := config.Validate(); err != nil {
		return File{}, err
	}

	b, err := os.ReadFile(config.BpmnFile)
	if err != nil {
		return File{}, fmt.Errorf("failed to read BPMN file: %v", err)
	}

	m, err := model.New(bytes.NewReader(b))
	if err != nil {
		return File{}, err
	}

	testCases, err := DescribeModel(m, config.ProcessIds, config.MaxPaths)
	if err != nil {
		return File{}, err
	}

	bpmnPath := config.BpmnPath
	if bpmnPath == "" {
		bpmnPath = config.BpmnFile
	}

	return File{
		BpmnFile:  bpmnPath,
		Package:   config.Package,
		TestCases: testCases,
	}, nil
}

// DescribeModel describes a test case per path of the given processes, or of all executable processes, if processIds
// is empty.
func DescribeModel(m *model.Model, processIds []string, maxPaths int) ([]TestCase, error) {
	var processes []*model.Element
	if len(processIds) == 0 {
		processes = m.ExecutableProcesses()
	} else {
		for _, processId := range processIds {
			processElement := m.ProcessById(processId)
			if processElement == nil {
				return nil, fmt.Errorf("process %s does not exist", processId)
			}
			processes = append(processes, processElement)
		}
	}

	var testCases []TestCase
	for _, processElement := range processes {
		paths, err := path.Enumerate(m, processElement.Id, func(o *path.Options) {
			o.MaxPaths = maxPaths
		})
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate paths of process %s: %w", processElement.Id, err)
		}

		typePrefix := exportedName(processElement.Id)
		for _, p := range paths {
			testCases = append(testCases, describe(p, typePrefix))
		}
	}

	return testCases, nil
}

// Render renders a file as formatted Go source.
func Render(file File) ([]byte, error) {
	t, err := template.ParseFS(resources, "templates/testcase.go.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, file); err != nil {
		return nil, fmt.Errorf("failed to execute template: %v", err)
	}

	source, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format source: %v\n%s", err, buf.String())
	}
	return source, nil
}

func describe(p path.Path, typePrefix string) TestCase {
	handlers := handler.Defaults(p)

	// elements in order of their first occurrence
	var elements []*model.Element
	visited := make(map[string]bool)
	visit := func(element *model.Element) {
		if element == nil || visited[element.Id] {
			return
		}
		visited[element.Id] = true
		if _, ok := handlers[element.Id]; ok {
			elements = append(elements, element)
		}
	}

	for _, step := range p.Steps() {
		visit(step.Trigger)
		visit(step.Node)
		if chosen := step.Chosen(); chosen != nil && step.Node.Type == model.ElementEventBasedGateway {
			visit(chosen.Target)
		}
	}

	names := fieldNames{"Instance": true}

	fields := make([]HandlerField, len(elements))
	for i, element := range elements {
		fields[i] = HandlerField{
			Name:          names.next(exportedName(element.Id)),
			BpmnElementId: element.Id,
			ElementType:   element.Type,
			Type:          fmt.Sprintf("%T", handlers[element.Id]),
		}
	}

	return TestCase{
		Name:      typePrefix + "_" + identifier(p.Key()),
		ProcessId: p.ProcessId(),
		PathKey:   p.Key(),
		Start:     p.Start().Id,
		End:       p.End().Id,

		Handlers: fields,
	}
}
