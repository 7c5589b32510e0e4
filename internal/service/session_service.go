package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecosort-server/internal/catalog"
	"ecosort-server/internal/game/areasort"
	"ecosort-server/internal/game/lab"
	"ecosort-server/internal/game/scanner"
	"ecosort-server/shared/interfaces"
	"ecosort-server/shared/models"
)

// persistTimeout ограничивает фоновое сохранение итогов завершенной партии.
const persistTimeout = 10 * time.Second

// SessionView - снимок сессии, отдаваемый наружу вместе с ее идентификатором.
type SessionView struct {
	SessionID uuid.UUID       `json:"sessionId"`
	GameKind  models.GameKind `json:"gameKind"`
	State     interface{}     `json:"state"`
}

// ClientNotifier доставляет сообщение конкретному пользователю
// (реализуется websocket-хабом).
type ClientNotifier interface {
	SendToUser(userID uuid.UUID, message []byte)
}

// SessionService defines the interface for driving game sessions.
// На пользователя и игру живет максимум одна сессия; новый StartGame
// заменяет предыдущую, предварительно остановив ее таймеры.
type SessionService interface {
	StartGame(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error)
	GetSession(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error)
	ResetSession(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error)

	// AreaSort commands
	EnterArea(ctx context.Context, userID uuid.UUID, areaID string) (*SessionView, error)
	ExitArea(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	OpenItemPopup(ctx context.Context, userID uuid.UUID, itemID string) (*SessionView, error)
	CloseItemPopup(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	IdentifyItem(ctx context.Context, userID uuid.UUID, itemID string, saysRecyclable bool, timeToDecideMs int) (*areasort.IdentifyResult, *SessionView, error)
	DismissFeedback(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	EndGame(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	TogglePause(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, patch areasort.SettingsPatch) (*SessionView, error)

	// Lab commands
	PerformStep(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	CompleteStep(ctx context.Context, userID uuid.UUID, success bool) (*SessionView, error)
	UpdateHoldProgress(ctx context.Context, userID uuid.UUID, progress int) (*SessionView, error)
	IdentifySample(ctx context.Context, userID uuid.UUID, guess string) (*SessionView, error)
	NextSample(ctx context.Context, userID uuid.UUID) (*SessionView, error)

	// Scanner commands
	SetDial(ctx context.Context, userID uuid.UUID, dial scanner.Dial, value int) (*SessionView, error)
	Scan(ctx context.Context, userID uuid.UUID) (*SessionView, error)
	RouteToLine(ctx context.Context, userID uuid.UUID, choice catalog.PlasticType) (*SessionView, error)
	NextItem(ctx context.Context, userID uuid.UUID) (*SessionView, error)

	// Leaderboard возвращает лучших игроков по игре.
	Leaderboard(ctx context.Context, kind models.GameKind, limit int) ([]models.LeaderboardEntry, error)
}

// gameSession - одна живая сессия в реестре. Заполнено ровно одно из трех
// полей игр, по kind.
type gameSession struct {
	id     uuid.UUID
	userID uuid.UUID
	kind   models.GameKind

	area *areasort.Session
	lab  *lab.Session
	scan *scanner.Session

	persistOnce sync.Once
}

type sessionServiceImpl struct {
	catalog    *catalog.Catalog
	resultRepo interfaces.GameResultRepository
	boardRepo  interfaces.LeaderboardRepository
	publisher  interfaces.ClientUpdatePublisher
	notifier   ClientNotifier
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[models.GameKind]*gameSession
}

// NewSessionService creates a new instance of SessionService.
// publisher и notifier могут быть nil (например, в тестах).
func NewSessionService(
	cat *catalog.Catalog,
	resultRepo interfaces.GameResultRepository,
	boardRepo interfaces.LeaderboardRepository,
	publisher interfaces.ClientUpdatePublisher,
	notifier ClientNotifier,
	logger *zap.Logger,
) SessionService {
	return &sessionServiceImpl{
		catalog:    cat,
		resultRepo: resultRepo,
		boardRepo:  boardRepo,
		publisher:  publisher,
		notifier:   notifier,
		logger:     logger.Named("SessionService"),
		sessions:   make(map[uuid.UUID]map[models.GameKind]*gameSession),
	}
}

// StartGame создает свежую сессию и запускает игру. Предыдущая сессия того
// же вида останавливается и заменяется.
func (s *sessionServiceImpl) StartGame(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error) {
	if !kind.IsValid() {
		return nil, models.ErrUnknownGameKind
	}

	gs := &gameSession{
		id:     uuid.New(),
		userID: userID,
		kind:   kind,
	}
	switch kind {
	case models.GameKindAreaSort:
		gs.area = areasort.New(s.catalog, areasort.DefaultRules())
		gs.area.OnChange(func(st areasort.State) {
			s.handleUpdate(gs, string(st.Phase), st.Phase == areasort.PhaseResults, st)
		})
	case models.GameKindLab:
		gs.lab = lab.New(s.catalog, lab.DefaultRules())
		gs.lab.OnChange(func(st lab.State) {
			s.handleUpdate(gs, string(st.Phase), st.Phase == lab.PhaseResults, st)
		})
	case models.GameKindScanner:
		gs.scan = scanner.New(s.catalog, scanner.DefaultRules())
		gs.scan.OnChange(func(st scanner.State) {
			s.handleUpdate(gs, string(st.Phase), st.Phase == scanner.PhaseResults, st)
		})
	}

	s.mu.Lock()
	byKind := s.sessions[userID]
	if byKind == nil {
		byKind = make(map[models.GameKind]*gameSession)
		s.sessions[userID] = byKind
	}
	if old := byKind[kind]; old != nil {
		// Отцепляем публикацию и гасим таймеры вытесняемой сессии
		old.detach()
		old.reset()
	}
	byKind[kind] = gs
	s.mu.Unlock()

	s.logger.Info("Session started",
		zap.String("userID", userID.String()),
		zap.String("sessionID", gs.id.String()),
		zap.String("gameKind", string(kind)))
	sessionsStartedTotal.WithLabelValues(string(kind)).Inc()

	switch kind {
	case models.GameKindAreaSort:
		gs.area.StartGame()
	case models.GameKindLab:
		gs.lab.StartGame()
	case models.GameKindScanner:
		gs.scan.StartGame()
	}
	return gs.view(), nil
}

func (g *gameSession) detach() {
	switch {
	case g.area != nil:
		g.area.OnChange(nil)
	case g.lab != nil:
		g.lab.OnChange(nil)
	case g.scan != nil:
		g.scan.OnChange(nil)
	}
}

func (g *gameSession) reset() {
	switch {
	case g.area != nil:
		g.area.Reset()
	case g.lab != nil:
		g.lab.Reset()
	case g.scan != nil:
		g.scan.Reset()
	}
}

func (g *gameSession) view() *SessionView {
	v := &SessionView{SessionID: g.id, GameKind: g.kind}
	switch {
	case g.area != nil:
		v.State = g.area.Snapshot()
	case g.lab != nil:
		v.State = g.lab.Snapshot()
	case g.scan != nil:
		v.State = g.scan.Snapshot()
	}
	return v
}

func (s *sessionServiceImpl) lookup(userID uuid.UUID, kind models.GameKind) (*gameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gs := s.sessions[userID][kind]
	if gs == nil {
		return nil, models.ErrSessionNotFound
	}
	return gs, nil
}

// GetSession возвращает снимок текущей сессии.
func (s *sessionServiceImpl) GetSession(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error) {
	if !kind.IsValid() {
		return nil, models.ErrUnknownGameKind
	}
	gs, err := s.lookup(userID, kind)
	if err != nil {
		return nil, err
	}
	return gs.view(), nil
}

// ResetSession возвращает сессию к начальному состоянию.
func (s *sessionServiceImpl) ResetSession(ctx context.Context, userID uuid.UUID, kind models.GameKind) (*SessionView, error) {
	if !kind.IsValid() {
		return nil, models.ErrUnknownGameKind
	}
	gs, err := s.lookup(userID, kind)
	if err != nil {
		return nil, err
	}
	gs.reset()
	return gs.view(), nil
}

// --- AreaSort commands ---

func (s *sessionServiceImpl) areaSession(userID uuid.UUID) (*gameSession, error) {
	return s.lookup(userID, models.GameKindAreaSort)
}

func (s *sessionServiceImpl) EnterArea(ctx context.Context, userID uuid.UUID, areaID string) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.EnterArea(areaID)
	return gs.view(), nil
}

func (s *sessionServiceImpl) ExitArea(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.ExitArea()
	return gs.view(), nil
}

func (s *sessionServiceImpl) OpenItemPopup(ctx context.Context, userID uuid.UUID, itemID string) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.OpenItemPopup(itemID)
	return gs.view(), nil
}

func (s *sessionServiceImpl) CloseItemPopup(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.CloseItemPopup()
	return gs.view(), nil
}

func (s *sessionServiceImpl) IdentifyItem(ctx context.Context, userID uuid.UUID, itemID string, saysRecyclable bool, timeToDecideMs int) (*areasort.IdentifyResult, *SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, nil, err
	}
	res := gs.area.IdentifyItem(itemID, saysRecyclable, timeToDecideMs)
	return &res, gs.view(), nil
}

func (s *sessionServiceImpl) DismissFeedback(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.DismissFeedback()
	return gs.view(), nil
}

func (s *sessionServiceImpl) EndGame(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.EndGame()
	return gs.view(), nil
}

func (s *sessionServiceImpl) TogglePause(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.TogglePause()
	return gs.view(), nil
}

func (s *sessionServiceImpl) UpdateSettings(ctx context.Context, userID uuid.UUID, patch areasort.SettingsPatch) (*SessionView, error) {
	gs, err := s.areaSession(userID)
	if err != nil {
		return nil, err
	}
	gs.area.UpdateSettings(patch)
	return gs.view(), nil
}

// --- Lab commands ---

func (s *sessionServiceImpl) labSession(userID uuid.UUID) (*gameSession, error) {
	return s.lookup(userID, models.GameKindLab)
}

func (s *sessionServiceImpl) PerformStep(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.labSession(userID)
	if err != nil {
		return nil, err
	}
	gs.lab.PerformStep()
	return gs.view(), nil
}

func (s *sessionServiceImpl) CompleteStep(ctx context.Context, userID uuid.UUID, success bool) (*SessionView, error) {
	gs, err := s.labSession(userID)
	if err != nil {
		return nil, err
	}
	gs.lab.CompleteStep(success)
	return gs.view(), nil
}

func (s *sessionServiceImpl) UpdateHoldProgress(ctx context.Context, userID uuid.UUID, progress int) (*SessionView, error) {
	gs, err := s.labSession(userID)
	if err != nil {
		return nil, err
	}
	gs.lab.UpdateHoldProgress(progress)
	return gs.view(), nil
}

func (s *sessionServiceImpl) IdentifySample(ctx context.Context, userID uuid.UUID, guess string) (*SessionView, error) {
	gs, err := s.labSession(userID)
	if err != nil {
		return nil, err
	}
	gs.lab.IdentifySample(guess)
	return gs.view(), nil
}

func (s *sessionServiceImpl) NextSample(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.labSession(userID)
	if err != nil {
		return nil, err
	}
	gs.lab.NextSample()
	return gs.view(), nil
}

// --- Scanner commands ---

func (s *sessionServiceImpl) scannerSession(userID uuid.UUID) (*gameSession, error) {
	return s.lookup(userID, models.GameKindScanner)
}

func (s *sessionServiceImpl) SetDial(ctx context.Context, userID uuid.UUID, dial scanner.Dial, value int) (*SessionView, error) {
	gs, err := s.scannerSession(userID)
	if err != nil {
		return nil, err
	}
	gs.scan.SetDial(dial, value)
	return gs.view(), nil
}

func (s *sessionServiceImpl) Scan(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.scannerSession(userID)
	if err != nil {
		return nil, err
	}
	gs.scan.Scan()
	return gs.view(), nil
}

func (s *sessionServiceImpl) RouteToLine(ctx context.Context, userID uuid.UUID, choice catalog.PlasticType) (*SessionView, error) {
	gs, err := s.scannerSession(userID)
	if err != nil {
		return nil, err
	}
	gs.scan.RouteToLine(choice)
	return gs.view(), nil
}

func (s *sessionServiceImpl) NextItem(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	gs, err := s.scannerSession(userID)
	if err != nil {
		return nil, err
	}
	gs.scan.NextItem()
	return gs.view(), nil
}

// Leaderboard возвращает лучших игроков по игре.
func (s *sessionServiceImpl) Leaderboard(ctx context.Context, kind models.GameKind, limit int) ([]models.LeaderboardEntry, error) {
	if !kind.IsValid() {
		return nil, models.ErrUnknownGameKind
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.boardRepo.Top(ctx, kind, limit)
}

// handleUpdate вызывается сессией после каждого изменения состояния:
// рассылает снимок клиенту и на терминальном переходе сохраняет итог.
func (s *sessionServiceImpl) handleUpdate(gs *gameSession, phase string, isTerminal bool, state interface{}) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("Failed to marshal session state",
			zap.String("sessionID", gs.id.String()), zap.Error(err))
		return
	}

	update := models.ClientSessionUpdate{
		SessionID:  gs.id.String(),
		UserID:     gs.userID.String(),
		GameKind:   gs.kind,
		Phase:      phase,
		IsTerminal: isTerminal,
		State:      raw,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if s.publisher != nil {
		if err := s.publisher.PublishClientUpdate(ctx, update); err != nil {
			s.logger.Warn("Failed to publish client update",
				zap.String("sessionID", gs.id.String()), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if body, err := json.Marshal(update); err == nil {
			s.notifier.SendToUser(gs.userID, body)
		}
	}

	if isTerminal {
		gs.persistOnce.Do(func() {
			s.persistResult(ctx, gs, state)
		})
	}
}

// persistResult сохраняет итог партии в БД и таблицу лидеров.
func (s *sessionServiceImpl) persistResult(ctx context.Context, gs *gameSession, state interface{}) {
	result := buildGameResult(gs, state)
	gamesFinishedTotal.WithLabelValues(string(gs.kind)).Inc()

	if s.resultRepo != nil {
		if _, err := s.resultRepo.Save(ctx, result); err != nil {
			resultsPersistErrorsTotal.Inc()
			s.logger.Error("Failed to persist game result",
				zap.String("sessionID", gs.id.String()), zap.Error(err))
		}
	}
	if s.boardRepo != nil {
		if err := s.boardRepo.RecordScore(ctx, gs.kind, gs.userID, result.Score); err != nil {
			s.logger.Error("Failed to record leaderboard score",
				zap.String("sessionID", gs.id.String()), zap.Error(err))
		}
	}
	s.logger.Info("Game finished",
		zap.String("sessionID", gs.id.String()),
		zap.String("gameKind", string(gs.kind)),
		zap.Int("score", result.Score),
		zap.Int("accuracy", result.Accuracy))
}

// buildGameResult собирает строку game_results из снимка конкретной игры.
func buildGameResult(gs *gameSession, state interface{}) *models.GameResult {
	result := &models.GameResult{
		UserID:     gs.userID,
		SessionID:  gs.id,
		GameKind:   gs.kind,
		FinishedAt: time.Now(),
	}
	switch st := state.(type) {
	case areasort.State:
		result.Score = st.Score
		result.Accuracy = st.Accuracy()
		result.CorrectCount = st.CorrectCount()
		result.TotalAnswered = st.TotalItemsIdentified
		result.LongestStreak = st.LongestStreak
		result.LivesLeft = st.Lives
		result.CompletedAreas = st.CompletedAreas
		result.DurationSec = st.TimeElapsed()
	case lab.State:
		correct := 0
		for _, r := range st.Results {
			if r.IsCorrect {
				correct++
			}
		}
		result.Score = st.Score
		result.Accuracy = st.Accuracy()
		result.CorrectCount = correct
		result.TotalAnswered = len(st.Results)
		result.LivesLeft = st.Lives
		if !st.StartTime.IsZero() {
			result.DurationSec = int(time.Since(st.StartTime).Seconds())
		}
	case scanner.State:
		correct := 0
		for _, r := range st.Results {
			if r.IsCorrect {
				correct++
			}
		}
		result.Score = st.Score
		result.Accuracy = st.Accuracy()
		result.CorrectCount = correct
		result.TotalAnswered = len(st.Results)
		result.LongestStreak = st.LongestStreak
		result.LivesLeft = st.Lives
		result.DurationSec = st.TimeLimit - st.TimeRemaining
	}
	return result
}
