package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecosort-server/internal/game/areasort"
	"ecosort-server/shared/models"
)

func (h *GameHandler) enterArea(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req enterAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.EnterArea(c.Request.Context(), userID, req.AreaID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) exitArea(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.ExitArea(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) openItemPopup(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req openPopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.OpenItemPopup(c.Request.Context(), userID, req.ItemID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) closeItemPopup(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.CloseItemPopup(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) identifyItem(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req identifyItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	result, view, err := h.sessionService.IdentifyItem(c.Request.Context(), userID, req.ItemID, *req.SaysRecyclable, req.TimeToDecideMs)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, identifyItemResponse{
		IsCorrect:   result.IsCorrect,
		StreakBonus: result.StreakBonus,
		Session:     view,
	})
}

func (h *GameHandler) dismissFeedback(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.DismissFeedback(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) endGame(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.EndGame(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) togglePause(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.TogglePause(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) updateSettings(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	patch := areasort.SettingsPatch{
		SoundEnabled: req.SoundEnabled,
		Language:     req.Language,
	}
	view, err := h.sessionService.UpdateSettings(c.Request.Context(), userID, patch)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}
