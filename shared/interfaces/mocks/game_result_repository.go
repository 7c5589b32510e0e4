package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ecosort-server/shared/models"
)

// Mock GameResultRepository
type GameResultRepository struct {
	mock.Mock
}

func (m *GameResultRepository) Save(ctx context.Context, result *models.GameResult) (uuid.UUID, error) {
	args := m.Called(ctx, result)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Error(1)
}

func (m *GameResultRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error) {
	args := m.Called(ctx, userID, limit)
	res, _ := args.Get(0).([]models.GameResult)
	return res, args.Error(1)
}

func (m *GameResultRepository) TopScores(ctx context.Context, kind models.GameKind, limit int) ([]models.GameResult, error) {
	args := m.Called(ctx, kind, limit)
	res, _ := args.Get(0).([]models.GameResult)
	return res, args.Error(1)
}
