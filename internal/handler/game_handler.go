package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecosort-server/internal/catalog"
	"ecosort-server/internal/service"
	"ecosort-server/shared/models"
)

// GameHandler - HTTP-поверхность команд игровых сессий.
type GameHandler struct {
	sessionService service.SessionService
	catalog        *catalog.Catalog
	logger         *zap.Logger
}

// NewGameHandler создает новый обработчик игровых команд.
func NewGameHandler(sessionService service.SessionService, cat *catalog.Catalog, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		sessionService: sessionService,
		catalog:        cat,
		logger:         logger.Named("GameHandler"),
	}
}

// RegisterRoutes регистрирует все маршруты под /api.
// authMiddleware - middleware проверки JWT; каждая команда привязана к
// userID из токена.
func (h *GameHandler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := router.Group("/api")
	api.Use(authMiddleware)

	games := map[string]models.GameKind{
		"areasort": models.GameKindAreaSort,
		"lab":      models.GameKindLab,
		"scanner":  models.GameKindScanner,
	}
	for path, kind := range games {
		g := api.Group("/" + path)
		g.POST("/session", h.startGame(kind))
		g.GET("/session", h.getSession(kind))
		g.DELETE("/session", h.resetSession(kind))
		g.GET("/leaderboard", h.leaderboard(kind))
	}

	areaCmd := api.Group("/areasort/session/commands")
	{
		areaCmd.POST("/enter-area", h.enterArea)
		areaCmd.POST("/exit-area", h.exitArea)
		areaCmd.POST("/open-popup", h.openItemPopup)
		areaCmd.POST("/close-popup", h.closeItemPopup)
		areaCmd.POST("/identify", h.identifyItem)
		areaCmd.POST("/dismiss-feedback", h.dismissFeedback)
		areaCmd.POST("/end", h.endGame)
		areaCmd.POST("/toggle-pause", h.togglePause)
		areaCmd.POST("/settings", h.updateSettings)
	}

	labCmd := api.Group("/lab/session/commands")
	{
		labCmd.POST("/perform-step", h.performStep)
		labCmd.POST("/complete-step", h.completeStep)
		labCmd.POST("/hold-progress", h.updateHoldProgress)
		labCmd.POST("/identify", h.identifySample)
		labCmd.POST("/next-sample", h.nextSample)
	}

	scanCmd := api.Group("/scanner/session/commands")
	{
		scanCmd.POST("/set-dial", h.setDial)
		scanCmd.POST("/scan", h.scan)
		scanCmd.POST("/route", h.routeToLine)
		scanCmd.POST("/next-item", h.nextItem)
	}

	cat := api.Group("/catalog")
	{
		cat.GET("/areas", h.catalogAreas)
		cat.GET("/items", h.catalogItems)
		cat.GET("/lab-tests", h.catalogLabTests)
		cat.GET("/samples", h.catalogSamples)
		cat.GET("/plastics", h.catalogPlastics)
	}
}

// getUserID извлекает userID, положенный auth-middleware в контекст Gin.
func (h *GameHandler) getUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(string(models.UserContextKey))
	if !exists {
		h.logger.Error("UserID missing from context on authenticated route", zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		h.logger.Error("UserID in context has unexpected type", zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return uuid.Nil, false
	}
	return userID, true
}

// --- Жизненный цикл сессии ---

func (h *GameHandler) startGame(kind models.GameKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.getUserID(c)
		if !ok {
			return
		}
		view, err := h.sessionService.StartGame(c.Request.Context(), userID, kind)
		if err != nil {
			handleServiceError(c, err, h.logger)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func (h *GameHandler) getSession(kind models.GameKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.getUserID(c)
		if !ok {
			return
		}
		view, err := h.sessionService.GetSession(c.Request.Context(), userID, kind)
		if err != nil {
			handleServiceError(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *GameHandler) resetSession(kind models.GameKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.getUserID(c)
		if !ok {
			return
		}
		view, err := h.sessionService.ResetSession(c.Request.Context(), userID, kind)
		if err != nil {
			handleServiceError(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *GameHandler) leaderboard(kind models.GameKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query leaderboardQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
			return
		}
		entries, err := h.sessionService.Leaderboard(c.Request.Context(), kind, query.Limit)
		if err != nil {
			handleServiceError(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, leaderboardResponse{Game: kind, Entries: entries})
	}
}

// --- Справочники ---

func (h *GameHandler) catalogAreas(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Areas())
}

func (h *GameHandler) catalogItems(c *gin.Context) {
	// Необязательный фильтр по зоне
	if areaID := c.Query("area"); areaID != "" {
		if h.catalog.AreaByID(areaID) == nil {
			handleServiceError(c, models.ErrCatalogNotFound, h.logger)
			return
		}
		c.JSON(http.StatusOK, h.catalog.ItemsForArea(areaID))
		return
	}
	c.JSON(http.StatusOK, h.catalog.Items())
}

func (h *GameHandler) catalogLabTests(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Tests())
}

func (h *GameHandler) catalogSamples(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Samples())
}

func (h *GameHandler) catalogPlastics(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Plastics())
}
