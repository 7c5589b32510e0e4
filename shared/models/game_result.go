package models

import (
	"time"

	"github.com/google/uuid"
)

// GameKind идентифицирует одну из трех мини-игр.
type GameKind string

const (
	GameKindAreaSort GameKind = "area_sort"
	GameKindLab      GameKind = "lab"
	GameKindScanner  GameKind = "scanner"
)

// IsValid проверяет, что значение GameKind известно серверу.
func (k GameKind) IsValid() bool {
	switch k {
	case GameKindAreaSort, GameKindLab, GameKindScanner:
		return true
	}
	return false
}

// GameResult - итог завершенной игровой сессии, сохраняемый в БД.
type GameResult struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"userId" db:"user_id"`
	SessionID      uuid.UUID `json:"sessionId" db:"session_id"`
	GameKind       GameKind  `json:"gameKind" db:"game_kind"`
	Score          int       `json:"score" db:"score"`
	Accuracy       int       `json:"accuracy" db:"accuracy"` // 0-100
	CorrectCount   int       `json:"correctCount" db:"correct_count"`
	TotalAnswered  int       `json:"totalAnswered" db:"total_answered"`
	LongestStreak  int       `json:"longestStreak" db:"longest_streak"`
	LivesLeft      int       `json:"livesLeft" db:"lives_left"`
	CompletedAreas []string  `json:"completedAreas,omitempty" db:"completed_areas"` // Только для area_sort
	DurationSec    int       `json:"durationSec" db:"duration_sec"`
	FinishedAt     time.Time `json:"finishedAt" db:"finished_at"`
}

// LeaderboardEntry - одна строка таблицы лидеров.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}
