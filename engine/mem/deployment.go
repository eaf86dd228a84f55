package mem

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gclaussn/go-bpmndt/engine"
	"github.com/gclaussn/go-bpmndt/model"
	"go.uber.org/zap"
)

func createDeployment(ctx *memContext, cmd engine.CreateDeploymentCmd) (engine.Deployment, error) {
	if err := engine.Validate(cmd); err != nil {
		return engine.Deployment{}, err
	}

	bpmnModel, err := model.New(strings.NewReader(cmd.BpmnXml))
	if err != nil {
		var invalidModelErr model.InvalidModelError
		if !errors.As(err, &invalidModelErr) {
			return engine.Deployment{}, engine.Error{
				Type:   engine.ErrorProcessModel,
				Title:  "failed to create deployment",
				Detail: err.Error(),
			}
		}

		causes := make([]engine.ErrorCause, len(invalidModelErr.Causes))
		for i, cause := range invalidModelErr.Causes {
			causes[i] = engine.ErrorCause{
				Pointer: cause.Pointer,
				Type:    cause.Type,
				Detail:  cause.Detail,
			}
		}

		return engine.Deployment{}, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to create deployment",
			Detail: invalidModelErr.Detail,
			Causes: causes,
		}
	}

	executableProcesses := bpmnModel.ExecutableProcesses()
	if len(executableProcesses) == 0 {
		return engine.Deployment{}, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to create deployment",
			Detail: fmt.Sprintf("BPMN XML %s contains no executable process", cmd.Name),
		}
	}

	deployment := deploymentEntity{
		id: ctx.options.Common.IdGenerator.NewId(),

		bpmnXml:   cmd.BpmnXml,
		createdAt: ctx.time,
		createdBy: cmd.WorkerId,
		model:     bpmnModel,
		name:      cmd.Name,
		resources: cmd.Resources,
	}

	for _, element := range executableProcesses {
		version := 1
		if latest := ctx.latestProcess(element.Id); latest != nil {
			version = latest.version + 1
		}

		ctx.ids.process++

		process := processEntity{
			id: ctx.ids.process,

			deployment: &deployment,
			element:    element,

			createdAt: ctx.time,
			version:   version,
		}

		deployment.processes = append(deployment.processes, &process)
		ctx.processes = append(ctx.processes, &process)
	}

	ctx.deployments = append(ctx.deployments, &deployment)

	ctx.logger.Info("deployment created",
		zap.String("deploymentId", deployment.id),
		zap.String("name", deployment.name),
		zap.Int("processes", len(deployment.processes)),
	)

	return deployment.Deployment(), nil
}

// deleteDeployment deletes a deployment and its processes.
// With cascade, all process instances of the processes and their called process instances are deleted as well.
func deleteDeployment(ctx *memContext, cmd engine.DeleteDeploymentCmd) error {
	if err := engine.Validate(cmd); err != nil {
		return err
	}

	i := slices.IndexFunc(ctx.deployments, func(e *deploymentEntity) bool {
		return e.id == cmd.Id
	})
	if i == -1 {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to delete deployment",
			Detail: fmt.Sprintf("deployment %s could not be found", cmd.Id),
		}
	}

	deployment := ctx.deployments[i]

	var processInstances []*processInstanceEntity
	for _, processInstance := range ctx.processInstances {
		if processInstance.process.deployment == deployment || processInstance.root.process.deployment == deployment {
			processInstances = append(processInstances, processInstance)
		}
	}

	if len(processInstances) != 0 && !cmd.Cascade {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to delete deployment",
			Detail: fmt.Sprintf("deployment %s has %d process instances", cmd.Id, len(processInstances)),
		}
	}

	for _, processInstance := range processInstances {
		ctx.purge(processInstance)
	}

	ctx.processes = slices.DeleteFunc(ctx.processes, func(e *processEntity) bool {
		return e.deployment == deployment
	})
	ctx.deployments = slices.Delete(ctx.deployments, i, i+1)

	ctx.logger.Info("deployment deleted",
		zap.String("deploymentId", deployment.id),
		zap.Int("processInstances", len(processInstances)),
	)

	return nil
}
