package model

import (
	"os"
	"testing"
)

func mustCreateModel(t *testing.T, fileName string) *Model {
	model, err := mustReadModel(t, fileName)
	if err != nil {
		t.Fatalf("failed to parse BPMN XML: %v", err)
	}
	return model
}

func mustReadModel(t *testing.T, fileName string) (*Model, error) {
	fileName = "../test/bpmn/" + fileName

	bpmnFile, err := os.Open(fileName)
	if err != nil {
		t.Fatalf("failed to open BPMN file %s: %v", fileName, err)
	}

	defer bpmnFile.Close()

	return New(bpmnFile)
}
