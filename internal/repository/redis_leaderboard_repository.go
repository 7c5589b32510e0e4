package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecosort-server/shared/interfaces"
	"ecosort-server/shared/models"
)

// redisLeaderboardRepository хранит таблицы лидеров в сортированных
// множествах Redis, по одному на каждую мини-игру.
type redisLeaderboardRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.LeaderboardRepository = (*redisLeaderboardRepository)(nil)

// NewRedisLeaderboardRepository создает новый экземпляр репозитория таблицы лидеров.
func NewRedisLeaderboardRepository(client *redis.Client, logger *zap.Logger) interfaces.LeaderboardRepository {
	return &redisLeaderboardRepository{
		client: client,
		logger: logger.Named("RedisLeaderboardRepo"),
	}
}

func leaderboardKey(kind models.GameKind) string {
	return fmt.Sprintf("leaderboard:%s", kind)
}

// RecordScore записывает очки через ZADD GT: сохраненное значение только растет.
func (r *redisLeaderboardRepository) RecordScore(ctx context.Context, kind models.GameKind, userID uuid.UUID, score int) error {
	key := leaderboardKey(kind)
	err := r.client.ZAddGT(ctx, key, redis.Z{
		Score:  float64(score),
		Member: userID.String(),
	}).Err()
	if err != nil {
		r.logger.Error("Failed to record leaderboard score",
			zap.String("key", key), zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// Top возвращает limit лучших игроков по убыванию очков.
func (r *redisLeaderboardRepository) Top(ctx context.Context, kind models.GameKind, limit int) ([]models.LeaderboardEntry, error) {
	key := leaderboardKey(kind)
	zs, err := r.client.ZRevRangeWithScores(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		r.logger.Error("Failed to read leaderboard", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, models.LeaderboardEntry{
			UserID: member,
			Score:  int(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// UserRank возвращает место пользователя, начиная с единицы.
func (r *redisLeaderboardRepository) UserRank(ctx context.Context, kind models.GameKind, userID uuid.UUID) (int64, error) {
	key := leaderboardKey(kind)
	rank, err := r.client.ZRevRank(ctx, key, userID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, models.ErrNotFound
		}
		r.logger.Error("Failed to read user rank",
			zap.String("key", key), zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to read user rank: %w", err)
	}
	return rank + 1, nil
}
