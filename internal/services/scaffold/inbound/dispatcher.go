package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/engine"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
)

// Collaborator message types this service reacts to.
const (
	MessageTemplateUpdated     = "template.updated"
	MessageRepositoryCreated   = "repository.created"
	MessageDeploymentCompleted = "service.deployment.completed"
)

// Executor runs a command through the domain engine.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// Dispatcher maps collaborator messages to commands.
//
// Collaborator commands have no acting user; the deciders treat them as
// idempotent so redelivered messages fold to no-ops.
type Dispatcher struct {
	Engine Executor
}

// Dispatch handles one collaborator message. Unknown message types are logged
// and dropped so new collaborator events do not wedge the subscription.
func (d Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if d.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if msg.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}

	var cmdType command.Type
	switch msg.Type {
	case MessageTemplateUpdated:
		cmdType = project.CommandTypeTemplateRecheck
	case MessageRepositoryCreated:
		cmdType = project.CommandTypeRepositoryAttach
	case MessageDeploymentCompleted:
		cmdType = project.CommandTypeDeploymentComplete
	default:
		log.Printf("inbound: ignoring unknown message type %s for %s", msg.Type, msg.ProjectID)
		return nil
	}

	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	result, err := d.Engine.Execute(ctx, command.Command{
		ProjectID:     msg.ProjectID,
		Type:          cmdType,
		RequestID:     msg.RequestID,
		CorrelationID: msg.CorrelationID,
		CausationID:   msg.CausationID,
		PayloadJSON:   payload,
	})
	if err != nil {
		return fmt.Errorf("execute %s: %w", cmdType, err)
	}
	for _, rejection := range result.Decision.Rejections {
		log.Printf("inbound: %s rejected for %s: %s %s", cmdType, msg.ProjectID, rejection.Code, rejection.Message)
	}
	return nil
}
