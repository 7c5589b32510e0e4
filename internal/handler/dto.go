package handler

import (
	"ecosort-server/internal/service"
	"ecosort-server/shared/models"
)

// Тела команд. Булевы и числовые обязательные поля - указатели, чтобы
// binding:"required" отличал отсутствующее поле от нулевого значения.

type enterAreaRequest struct {
	AreaID string `json:"areaId" binding:"required"`
}

type openPopupRequest struct {
	ItemID string `json:"itemId" binding:"required"`
}

type identifyItemRequest struct {
	ItemID         string `json:"itemId" binding:"required"`
	SaysRecyclable *bool  `json:"saysRecyclable" binding:"required"`
	TimeToDecideMs int    `json:"timeToDecideMs" binding:"gte=0"`
}

type identifyItemResponse struct {
	IsCorrect   bool                 `json:"isCorrect"`
	StreakBonus int                  `json:"streakBonus"`
	Session     *service.SessionView `json:"session"`
}

type updateSettingsRequest struct {
	SoundEnabled *bool   `json:"soundEnabled"`
	Language     *string `json:"language"`
}

type completeStepRequest struct {
	Success *bool `json:"success" binding:"required"`
}

type holdProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

type identifySampleRequest struct {
	Guess string `json:"guess" binding:"required"`
}

type setDialRequest struct {
	Dial  string `json:"dial" binding:"required"`
	Value *int   `json:"value" binding:"required"`
}

type routeToLineRequest struct {
	Choice string `json:"choice" binding:"required"`
}

type leaderboardQuery struct {
	Limit int `form:"limit" binding:"gte=0,lte=100"`
}

type leaderboardResponse struct {
	Game    models.GameKind           `json:"game"`
	Entries []models.LeaderboardEntry `json:"entries"`
}
