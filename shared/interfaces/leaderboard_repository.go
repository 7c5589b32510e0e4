package interfaces

import (
	"context"

	"github.com/google/uuid"

	"ecosort-server/shared/models"
)

// LeaderboardRepository defines the interface for the per-game leaderboard.
type LeaderboardRepository interface {
	// RecordScore записывает очки пользователя, если они выше уже сохраненных.
	RecordScore(ctx context.Context, kind models.GameKind, userID uuid.UUID, score int) error

	// Top возвращает лучших игроков по убыванию очков.
	Top(ctx context.Context, kind models.GameKind, limit int) ([]models.LeaderboardEntry, error)

	// UserRank возвращает место пользователя (с единицы).
	// Возвращает models.ErrNotFound, если пользователь еще не играл.
	UserRank(ctx context.Context, kind models.GameKind, userID uuid.UUID) (int64, error)
}
