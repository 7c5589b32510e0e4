package interfaces

import (
	"context"

	"ecosort-server/shared/models"
)

// ClientUpdatePublisher defines the interface for publishing session state
// updates destined for connected clients.
type ClientUpdatePublisher interface {
	// PublishClientUpdate sends the update to the client-updates queue.
	PublishClientUpdate(ctx context.Context, payload models.ClientSessionUpdate) error
}
