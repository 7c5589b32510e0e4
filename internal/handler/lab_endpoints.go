package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecosort-server/shared/models"
)

func (h *GameHandler) performStep(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.PerformStep(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) completeStep(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req completeStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.CompleteStep(c.Request.Context(), userID, *req.Success)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) updateHoldProgress(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req holdProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.UpdateHoldProgress(c.Request.Context(), userID, *req.Progress)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) identifySample(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req identifySampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.IdentifySample(c.Request.Context(), userID, req.Guess)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) nextSample(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.NextSample(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}
