package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecosort-server/internal/catalog"
	"ecosort-server/internal/game/scanner"
	"ecosort-server/shared/models"
)

func (h *GameHandler) setDial(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req setDialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	view, err := h.sessionService.SetDial(c.Request.Context(), userID, scanner.Dial(req.Dial), *req.Value)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) scan(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.Scan(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) routeToLine(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var req routeToLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	choice := catalog.PlasticType(req.Choice)
	if !choice.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Unknown plastic type: " + req.Choice})
		return
	}
	view, err := h.sessionService.RouteToLine(c.Request.Context(), userID, choice)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GameHandler) nextItem(c *gin.Context) {
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	view, err := h.sessionService.NextItem(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}
