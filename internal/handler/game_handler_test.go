package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecosort-server/internal/catalog"
	"ecosort-server/internal/handler"
	"ecosort-server/internal/service"
	"ecosort-server/shared/interfaces/mocks"
	"ecosort-server/shared/models"
)

// testEnv - поднятый in-memory стек: реальный каталог, реальный сервис,
// моки хранилищ. Auth-middleware подменен на подстановку фиксированного userID.
type testEnv struct {
	router    *gin.Engine
	userID    uuid.UUID
	boardRepo *mocks.LeaderboardRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Load()
	require.NoError(t, err)

	resultRepo := new(mocks.GameResultRepository)
	boardRepo := new(mocks.LeaderboardRepository)
	resultRepo.On("Save", mock.Anything, mock.Anything).Return(uuid.New(), nil).Maybe()
	boardRepo.On("RecordScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	logger := zap.NewNop()
	svc := service.NewSessionService(cat, resultRepo, boardRepo, nil, nil, logger)
	h := handler.NewGameHandler(svc, cat, logger)

	env := &testEnv{
		router:    gin.New(),
		userID:    uuid.New(),
		boardRepo: boardRepo,
	}
	fakeAuth := func(c *gin.Context) {
		c.Set(string(models.UserContextKey), env.userID)
		c.Next()
	}
	h.RegisterRoutes(env.router, fakeAuth)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func stateOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	view := decodeView(t, rec)
	state, ok := view["state"].(map[string]interface{})
	require.True(t, ok, "response has no state object: %s", rec.Body.String())
	return state
}

func TestSessionLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("GetBeforeStartReturns404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/areasort/session", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("StartReturnsSnapshot", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session", nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		view := decodeView(t, rec)
		assert.NotEmpty(t, view["sessionId"])
		assert.Equal(t, string(models.GameKindAreaSort), view["gameKind"])
		state := view["state"].(map[string]interface{})
		assert.Equal(t, "map", state["phase"])
		assert.EqualValues(t, 3, state["lives"])
	})

	t.Run("GetAfterStartReturnsSameSession", func(t *testing.T) {
		started := decodeView(t, env.do(t, http.MethodPost, "/api/areasort/session", nil))
		rec := env.do(t, http.MethodGet, "/api/areasort/session", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, started["sessionId"], decodeView(t, rec)["sessionId"])
	})

	t.Run("DeleteResets", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/areasort/session", nil)
		rec := env.do(t, http.MethodDelete, "/api/areasort/session", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		state := stateOf(t, rec)
		assert.Equal(t, false, state["isPlaying"])
	})
}

func TestAreaSortCommands(t *testing.T) {
	env := setupTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/areasort/session", nil).Code)

	t.Run("EnterArea", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/enter-area",
			gin.H{"areaId": "kitchen"})
		require.Equal(t, http.StatusOK, rec.Code)
		state := stateOf(t, rec)
		assert.Equal(t, "zooming", state["phase"])
		assert.Equal(t, "kitchen", state["currentArea"])
	})

	t.Run("EnterAreaMissingBody", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/enter-area", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("IdentifyItem", func(t *testing.T) {
		cat, err := catalog.Load()
		require.NoError(t, err)
		items := cat.ItemsForArea("kitchen")
		require.NotEmpty(t, items)
		item := items[0]

		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/identify",
			gin.H{"itemId": item.ID, "saysRecyclable": item.IsRecyclable, "timeToDecideMs": 1200})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			IsCorrect   bool                 `json:"isCorrect"`
			StreakBonus int                  `json:"streakBonus"`
			Session     *service.SessionView `json:"session"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsCorrect)
		assert.NotNil(t, resp.Session)
	})

	t.Run("IdentifyItemMissingAnswer", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/identify",
			gin.H{"itemId": "some-item"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TogglePauseAndSettings", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/toggle-pause", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, stateOf(t, rec)["isPaused"])

		rec = env.do(t, http.MethodPost, "/api/areasort/session/commands/settings",
			gin.H{"language": "ru"})
		require.Equal(t, http.StatusOK, rec.Code)
		settings := stateOf(t, rec)["settings"].(map[string]interface{})
		assert.Equal(t, "ru", settings["language"])
	})

	t.Run("ExitAreaAndEnd", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/areasort/session/commands/exit-area", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/areasort/session/commands/end", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "results", stateOf(t, rec)["phase"])
	})
}

func TestLabCommands(t *testing.T) {
	env := setupTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/lab/session", nil).Code)

	t.Run("PerformAndCompleteStep", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/lab/session/commands/perform-step", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/lab/session/commands/complete-step",
			gin.H{"success": true})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("HoldProgressMissingBody", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/lab/session/commands/hold-progress", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("CommandWithoutSessionReturns404", func(t *testing.T) {
		env.do(t, http.MethodDelete, "/api/lab/session", nil)
		env2 := setupTestEnv(t)
		rec := env2.do(t, http.MethodPost, "/api/lab/session/commands/next-sample", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestScannerCommands(t *testing.T) {
	env := setupTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/scanner/session", nil).Code)
	// Гасим таймер обратного отсчета
	defer env.do(t, http.MethodDelete, "/api/scanner/session", nil)

	t.Run("SetDialClamps", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/scanner/session/commands/set-dial",
			gin.H{"dial": "density", "value": 250})
		require.Equal(t, http.StatusOK, rec.Code)
		dials := stateOf(t, rec)["dialReadings"].(map[string]interface{})
		assert.EqualValues(t, 100, dials["density"])
	})

	t.Run("RouteUnknownPlasticType", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/scanner/session/commands/route",
			gin.H{"choice": "VINYL"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Route", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/scanner/session/commands/route",
			gin.H{"choice": "PET"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "feedback", stateOf(t, rec)["phase"])
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	entries := []models.LeaderboardEntry{
		{UserID: uuid.NewString(), Score: 300, Rank: 1},
		{UserID: uuid.NewString(), Score: 120, Rank: 2},
	}
	env.boardRepo.On("Top", mock.Anything, models.GameKindScanner, 10).Return(entries, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/scanner/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Game    models.GameKind           `json:"game"`
		Entries []models.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.GameKindScanner, resp.Game)
	assert.Equal(t, entries, resp.Entries)

	t.Run("LimitOutOfRange", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/scanner/leaderboard?limit=500", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCatalogEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("Areas", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/catalog/areas", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var areas []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &areas))
		assert.NotEmpty(t, areas)
	})

	t.Run("ItemsFilteredByArea", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/catalog/items?area=kitchen", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var items []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		for _, item := range items {
			assert.Equal(t, "kitchen", item["area"])
		}
	})

	t.Run("ItemsUnknownArea", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/catalog/items?area=basement", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Plastics", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/catalog/plastics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var plastics []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plastics))
		assert.NotEmpty(t, plastics)
	})
}

func TestAuthMiddlewareIsApplied(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cat, err := catalog.Load()
	require.NoError(t, err)
	logger := zap.NewNop()
	svc := service.NewSessionService(cat, new(mocks.GameResultRepository), new(mocks.LeaderboardRepository), nil, nil, logger)
	h := handler.NewGameHandler(svc, cat, logger)

	router := gin.New()
	rejectAll := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
	}
	h.RegisterRoutes(router, rejectAll)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/areasort/session", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
