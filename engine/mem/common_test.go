package mem

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/gclaussn/go-bpmndt/engine"
)

const testWorkerId = "test-worker"

func mustCreateEngine(t *testing.T, customizers ...func(*Options)) engine.Engine {
	e, err := New(customizers...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func mustCreateDeployment(t *testing.T, e engine.Engine, fileName string) engine.Deployment {
	deployment, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
		BpmnXml:  mustReadBpmnFile(t, fileName),
		Name:     fileName,
		WorkerId: testWorkerId,
	})
	if err != nil {
		t.Fatalf("failed to create deployment: %v", err)
	}
	return deployment
}

func mustCreateProcessInstance(t *testing.T, e engine.Engine, cmd engine.CreateProcessInstanceCmd) *engine.ProcessInstanceAssert {
	cmd.WorkerId = testWorkerId

	processInstance, err := e.CreateProcessInstance(context.Background(), cmd)
	if err != nil {
		t.Fatalf("failed to create process instance: %v", err)
	}

	return engine.Assert(t, e, processInstance)
}

func mustQuerySubscriptions(t *testing.T, e engine.Engine, c engine.SubscriptionCriteria) []engine.Subscription {
	subscriptions, err := e.CreateQuery().QuerySubscriptions(context.Background(), c)
	if err != nil {
		t.Fatalf("failed to query subscriptions: %v", err)
	}
	return subscriptions
}

func mustReadBpmnFile(t *testing.T, fileName string) string {
	bpmnFile, err := os.Open("../../test/bpmn/" + fileName)
	if err != nil {
		t.Fatalf("failed to open BPMN file: %v", err)
	}

	defer bpmnFile.Close()

	b, err := io.ReadAll(bpmnFile)
	if err != nil {
		t.Fatalf("failed to read BPMN XML: %v", err)
	}

	return string(b)
}

func mustSendMessage(t *testing.T, e engine.Engine, cmd engine.SendMessageCmd) engine.Message {
	cmd.WorkerId = testWorkerId

	message, err := e.SendMessage(context.Background(), cmd)
	if err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	return message
}

func mustSendSignal(t *testing.T, e engine.Engine, name string) engine.Signal {
	signal, err := e.SendSignal(context.Background(), engine.SendSignalCmd{Name: name, WorkerId: testWorkerId})
	if err != nil {
		t.Fatalf("failed to send signal: %v", err)
	}
	return signal
}
