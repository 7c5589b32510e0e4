package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ecosort-server/shared/models"
)

// Mock ClientUpdatePublisher
type ClientUpdatePublisher struct {
	mock.Mock
}

func (m *ClientUpdatePublisher) PublishClientUpdate(ctx context.Context, payload models.ClientSessionUpdate) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
