package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ecosort-server/shared/models"
)

// Mock LeaderboardRepository
type LeaderboardRepository struct {
	mock.Mock
}

func (m *LeaderboardRepository) RecordScore(ctx context.Context, kind models.GameKind, userID uuid.UUID, score int) error {
	args := m.Called(ctx, kind, userID, score)
	return args.Error(0)
}

func (m *LeaderboardRepository) Top(ctx context.Context, kind models.GameKind, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, kind, limit)
	res, _ := args.Get(0).([]models.LeaderboardEntry)
	return res, args.Error(1)
}

func (m *LeaderboardRepository) UserRank(ctx context.Context, kind models.GameKind, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, kind, userID)
	rank, _ := args.Get(0).(int64)
	return rank, args.Error(1)
}
