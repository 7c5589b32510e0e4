package interfaces

import (
	"context"

	"github.com/google/uuid"

	"ecosort-server/shared/models"
)

// GameResultRepository defines the interface for persisting finished game results.
type GameResultRepository interface {
	// Save inserts a finished game result and returns its ID.
	Save(ctx context.Context, result *models.GameResult) (uuid.UUID, error)

	// ListByUser returns the user's results, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error)

	// TopScores returns the best results for a game kind, highest score first.
	TopScores(ctx context.Context, kind models.GameKind, limit int) ([]models.GameResult, error)
}
