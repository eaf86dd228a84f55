package handler

import (
	"fmt"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/path"
	"github.com/gclaussn/go-bpmndt/testcase"
)

// Decision creates a handler, which decides an exclusive or inclusive gateway, whose outgoing sequence flows cannot
// be evaluated by the engine. The gateway continues with the sequence flows, taken by the step.
func Decision() *DecisionHandler {
	return &DecisionHandler{}
}

type DecisionHandler struct {
	verification verification
}

func (h *DecisionHandler) Apply(c *testcase.Context, step path.Step) error {
	job, err := c.LockJob(c.Element().Id)
	if err != nil {
		return err
	}

	var completion engine.JobCompletion
	switch job.Type {
	case engine.JobEvaluateExclusiveGateway:
		chosen := step.Chosen()
		if chosen == nil {
			return fmt.Errorf("step %s takes %d sequence flows, but exclusive gateway requires one", step, len(step.Taken))
		}
		completion.ExclusiveGatewayDecision = chosen.Id
	case engine.JobEvaluateInclusiveGateway:
		for _, sequenceFlow := range step.Taken {
			completion.InclusiveGatewayDecision = append(completion.InclusiveGatewayDecision, sequenceFlow.Id)
		}
	default:
		return checkJobType(job, engine.JobEvaluateExclusiveGateway)
	}

	if err := h.verification.verify(c); err != nil {
		return err
	}

	_, err = c.Engine().CompleteJob(c.Context(), engine.CompleteJobCmd{
		Id:         job.Id,
		Completion: &completion,
		WorkerId:   c.WorkerId(),
	})
	return err
}

// Verify adds a verifier, which is called before the gateway is decided.
func (h *DecisionHandler) Verify(verifier Verifier) *DecisionHandler {
	h.verification = append(h.verification, verifier)
	return h
}
