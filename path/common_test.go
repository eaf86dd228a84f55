package path

import (
	"os"
	"testing"

	"github.com/gclaussn/go-bpmndt/model"
)

func mustCreateModel(t *testing.T, fileName string) *model.Model {
	fileName = "../test/bpmn/" + fileName

	bpmnFile, err := os.Open(fileName)
	if err != nil {
		t.Fatalf("failed to open BPMN file %s: %v", fileName, err)
	}

	defer bpmnFile.Close()

	m, err := model.New(bpmnFile)
	if err != nil {
		t.Fatalf("failed to parse BPMN XML: %v", err)
	}
	return m
}

func mustEnumerate(t *testing.T, fileName string, processId string) []Path {
	paths, err := Enumerate(mustCreateModel(t, fileName), processId)
	if err != nil {
		t.Fatalf("failed to enumerate paths of process %s: %v", processId, err)
	}
	return paths
}

func keys(paths []Path) []string {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = p.Key()
	}
	return keys
}

func indexOf(t *testing.T, p Path, nodeId string) int {
	for i := 0; i < p.Len(); i++ {
		if p.steps[i].Node.Id == nodeId {
			return i
		}
	}
	t.Fatalf("path %s has no step %s", p.Key(), nodeId)
	return -1
}
