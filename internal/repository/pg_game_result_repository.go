package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"ecosort-server/shared/interfaces"
	"ecosort-server/shared/models"
)

const (
	insertGameResultQuery = `
        INSERT INTO game_results (
            id, user_id, session_id, game_kind, score, accuracy,
            correct_count, total_answered, longest_streak, lives_left,
            completed_areas, duration_sec, finished_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	listGameResultsByUserQuery = `
        SELECT id, user_id, session_id, game_kind, score, accuracy,
               correct_count, total_answered, longest_streak, lives_left,
               completed_areas, duration_sec, finished_at
        FROM game_results
        WHERE user_id = $1
        ORDER BY finished_at DESC
        LIMIT $2
    `
	topGameResultsQuery = `
        SELECT id, user_id, session_id, game_kind, score, accuracy,
               correct_count, total_answered, longest_streak, lives_left,
               completed_areas, duration_sec, finished_at
        FROM game_results
        WHERE game_kind = $1
        ORDER BY score DESC, finished_at ASC
        LIMIT $2
    `
)

// pgGameResultRepository реализует интерфейс GameResultRepository для PostgreSQL.
type pgGameResultRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.GameResultRepository = (*pgGameResultRepository)(nil)

// NewPgGameResultRepository создает новый экземпляр репозитория результатов игр.
func NewPgGameResultRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.GameResultRepository {
	return &pgGameResultRepository{
		db:     db,
		logger: logger.Named("PgGameResultRepo"),
	}
}

// Save вставляет итог завершенной партии.
func (r *pgGameResultRepository) Save(ctx context.Context, result *models.GameResult) (uuid.UUID, error) {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	logFields := []zap.Field{
		zap.String("resultID", result.ID.String()),
		zap.String("userID", result.UserID.String()),
		zap.String("gameKind", string(result.GameKind)),
	}
	r.logger.Debug("Saving game result", logFields...)

	_, err := r.db.Exec(ctx, insertGameResultQuery,
		result.ID, result.UserID, result.SessionID, result.GameKind,
		result.Score, result.Accuracy, result.CorrectCount, result.TotalAnswered,
		result.LongestStreak, result.LivesLeft, pq.Array(result.CompletedAreas),
		result.DurationSec, result.FinishedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save game result", append(logFields, zap.Error(err))...)
		return uuid.Nil, fmt.Errorf("failed to save game result: %w", err)
	}

	r.logger.Info("Game result saved", logFields...)
	return result.ID, nil
}

// ListByUser возвращает результаты пользователя, свежие в начале.
func (r *pgGameResultRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	err := pgxscan.Select(ctx, r.db, &results, listGameResultsByUserQuery, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list game results by user",
			zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list game results: %w", err)
	}
	return results, nil
}

// TopScores возвращает лучшие результаты по игре.
func (r *pgGameResultRepository) TopScores(ctx context.Context, kind models.GameKind, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	err := pgxscan.Select(ctx, r.db, &results, topGameResultsQuery, kind, limit)
	if err != nil {
		r.logger.Error("Failed to select top game results",
			zap.String("gameKind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("failed to select top results: %w", err)
	}
	return results, nil
}
