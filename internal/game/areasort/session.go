package areasort

import (
	"math"
	"sync"
	"time"

	"ecosort-server/internal/catalog"
)

// Phase - фаза игровой сессии сортировки по зонам.
type Phase string

const (
	PhaseMap      Phase = "map"
	PhaseZooming  Phase = "zooming"
	PhaseArea     Phase = "area"
	PhasePopup    Phase = "popup"
	PhaseFeedback Phase = "feedback"
	PhaseResults  Phase = "results"
)

// Rules - настраиваемые константы игры. Вынесены из кода, чтобы тесты
// могли уменьшить пороги и задержки.
type Rules struct {
	MaxLives          int
	CorrectPoints     int
	StreakBonusPoints int
	StreakBonusAt     int // бонус начисляется, когда серия равна ровно этому значению
	ZoomDelay         time.Duration
}

// DefaultRules возвращает боевые значения правил.
func DefaultRules() Rules {
	return Rules{
		MaxLives:          3,
		CorrectPoints:     10,
		StreakBonusPoints: 50,
		StreakBonusAt:     5,
		ZoomDelay:         800 * time.Millisecond,
	}
}

// Settings - пользовательские настройки. Переживают Reset.
type Settings struct {
	SoundEnabled bool   `json:"soundEnabled"`
	Language     string `json:"language"`
}

// SettingsPatch - частичное обновление настроек: nil-поля не трогаются.
type SettingsPatch struct {
	SoundEnabled *bool
	Language     *string
}

// AreaProgress - прогресс по одной зоне.
type AreaProgress struct {
	Total   int `json:"total"`
	Found   int `json:"found"`
	Correct int `json:"correct"`
}

// IdentifiedItem - зафиксированный ответ игрока по предмету.
type IdentifiedItem struct {
	IsCorrect      bool `json:"isCorrect"`
	SaidRecyclable bool `json:"saidRecyclable"`
	TimeToDecideMs int  `json:"timeToDecideMs"`
}

// IdentifyResult - немедленный результат ответа для UI, отдельный от
// публикуемого состояния сессии.
type IdentifyResult struct {
	IsCorrect   bool `json:"isCorrect"`
	StreakBonus int  `json:"streakBonus"`
}

// State - публикуемый снимок состояния сессии.
type State struct {
	Phase                Phase                     `json:"phase"`
	Score                int                       `json:"score"`
	Lives                int                       `json:"lives"`
	MaxLives             int                       `json:"maxLives"`
	CurrentStreak        int                       `json:"currentStreak"`
	LongestStreak        int                       `json:"longestStreak"`
	TotalItemsIdentified int                       `json:"totalItemsIdentified"`
	TotalItems           int                       `json:"totalItems"`
	CurrentArea          string                    `json:"currentArea,omitempty"`
	AreaProgress         map[string]AreaProgress   `json:"areaProgress"`
	CompletedAreas       []string                  `json:"completedAreas"`
	InspectedItem        string                    `json:"inspectedItem,omitempty"`
	IdentifiedItems      map[string]IdentifiedItem `json:"identifiedItems"`
	IsPlaying            bool                      `json:"isPlaying"`
	IsPaused             bool                      `json:"isPaused"`
	GameStartTime        time.Time                 `json:"gameStartTime,omitempty"`
	GameEndTime          time.Time                 `json:"gameEndTime,omitempty"`
	Settings             Settings                  `json:"settings"`
}

// CorrectCount возвращает число правильных ответов.
func (st State) CorrectCount() int {
	n := 0
	for _, rec := range st.IdentifiedItems {
		if rec.IsCorrect {
			n++
		}
	}
	return n
}

// Accuracy - точность в процентах, 0 если ответов еще не было.
func (st State) Accuracy() int {
	if st.TotalItemsIdentified == 0 {
		return 0
	}
	return int(math.Round(100 * float64(st.CorrectCount()) / float64(st.TotalItemsIdentified)))
}

// IsGameOver - игра закончена, если сессия остановлена и был хотя бы один ответ.
func (st State) IsGameOver() bool {
	return !st.IsPlaying && st.TotalItemsIdentified > 0
}

// TimeElapsed - прошедшие секунды от старта до конца игры (или до текущего момента).
func (st State) TimeElapsed() int {
	if st.GameStartTime.IsZero() {
		return 0
	}
	end := st.GameEndTime
	if end.IsZero() {
		end = time.Now()
	}
	return int(end.Sub(st.GameStartTime).Seconds())
}

// Session - сессия игры "сортировка по зонам". Все команды выполняются
// целиком под мьютексом; Snapshot возвращает глубокую копию.
type Session struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	rules   Rules
	state   State

	// gen растет при каждом startGame/reset: отложенный переход из zooming
	// сверяет поколение и фазу перед применением.
	gen       int
	zoomTimer *time.Timer

	notify func(State)
}

// New создает сессию в начальном состоянии (фаза map, игра не запущена).
func New(cat *catalog.Catalog, rules Rules) *Session {
	s := &Session{catalog: cat, rules: rules}
	s.state = s.initialState(Settings{SoundEnabled: true, Language: "en"})
	return s
}

// OnChange регистрирует колбэк, вызываемый после каждого изменения состояния
// (в том числе асинхронного, как отложенный переход zooming → area).
// Колбэк вызывается без удержания мьютекса сессии.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Session) initialState(settings Settings) State {
	progress := make(map[string]AreaProgress, len(s.catalog.Areas()))
	total := 0
	for _, a := range s.catalog.Areas() {
		n := len(s.catalog.ItemsForArea(a.ID))
		progress[a.ID] = AreaProgress{Total: n}
		total += n
	}
	return State{
		Phase:           PhaseMap,
		Lives:           s.rules.MaxLives,
		MaxLives:        s.rules.MaxLives,
		TotalItems:      total,
		AreaProgress:    progress,
		CompletedAreas:  []string{},
		IdentifiedItems: make(map[string]IdentifiedItem),
		Settings:        settings,
	}
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	snap.AreaProgress = make(map[string]AreaProgress, len(s.state.AreaProgress))
	for k, v := range s.state.AreaProgress {
		snap.AreaProgress[k] = v
	}
	snap.IdentifiedItems = make(map[string]IdentifiedItem, len(s.state.IdentifiedItems))
	for k, v := range s.state.IdentifiedItems {
		snap.IdentifiedItems[k] = v
	}
	snap.CompletedAreas = append([]string{}, s.state.CompletedAreas...)
	return snap
}

// Snapshot возвращает глубокую копию текущего состояния.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// publish снимает копию под мьютексом и зовет notify уже без него.
func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (s *Session) stopZoomTimerLocked() {
	if s.zoomTimer != nil {
		s.zoomTimer.Stop()
		s.zoomTimer = nil
	}
}

// StartGame начинает новую партию: сбрасывает счетчики, пересчитывает
// прогресс по каталогу и ставит фазу map.
func (s *Session) StartGame() {
	s.mu.Lock()
	s.gen++
	s.stopZoomTimerLocked()
	settings := s.state.Settings
	s.state = s.initialState(settings)
	s.state.IsPlaying = true
	s.state.GameStartTime = time.Now()
	s.publishLocked()
}

// EnterArea переводит сессию в зону. Фаза area наступает после задержки
// анимации и только если фаза к тому моменту все еще zooming.
func (s *Session) EnterArea(areaID string) {
	s.mu.Lock()
	if !s.state.IsPlaying || s.catalog.AreaByID(areaID) == nil {
		s.mu.Unlock()
		return
	}
	s.state.CurrentArea = areaID
	s.state.Phase = PhaseZooming
	s.stopZoomTimerLocked()
	gen := s.gen
	s.zoomTimer = time.AfterFunc(s.rules.ZoomDelay, func() {
		s.completeZoom(gen)
	})
	s.publishLocked()
}

// completeZoom - отложенный переход zooming → area. Проверка поколения и
// фазы защищает от устаревшего срабатывания, когда игрок успел выйти.
func (s *Session) completeZoom(gen int) {
	s.mu.Lock()
	if s.gen != gen || s.state.Phase != PhaseZooming {
		s.mu.Unlock()
		return
	}
	s.state.Phase = PhaseArea
	s.publishLocked()
}

// ExitArea возвращает игрока на карту.
func (s *Session) ExitArea() {
	s.mu.Lock()
	s.state.CurrentArea = ""
	s.state.InspectedItem = ""
	s.state.Phase = PhaseMap
	s.publishLocked()
}

// OpenItemPopup открывает карточку предмета.
func (s *Session) OpenItemPopup(itemID string) {
	s.mu.Lock()
	if s.catalog.ItemByID(itemID) == nil {
		s.mu.Unlock()
		return
	}
	s.state.InspectedItem = itemID
	s.state.Phase = PhasePopup
	s.publishLocked()
}

// CloseItemPopup закрывает карточку и возвращает в зону.
func (s *Session) CloseItemPopup() {
	s.mu.Lock()
	s.state.InspectedItem = ""
	s.state.Phase = PhaseArea
	s.publishLocked()
}

// IdentifyItem - основная команда подсчета очков. При невыполненных
// предусловиях (нет текущей зоны, неизвестный или уже отвеченный предмет)
// состояние не меняется и возвращается нейтральный результат.
func (s *Session) IdentifyItem(itemID string, saysRecyclable bool, timeToDecideMs int) IdentifyResult {
	s.mu.Lock()
	item := s.catalog.ItemByID(itemID)
	if !s.state.IsPlaying || s.state.CurrentArea == "" || item == nil {
		s.mu.Unlock()
		return IdentifyResult{}
	}
	if _, done := s.state.IdentifiedItems[itemID]; done {
		s.mu.Unlock()
		return IdentifyResult{}
	}

	isCorrect := item.IsRecyclable == saysRecyclable
	streakBonus := 0
	if isCorrect {
		s.state.CurrentStreak++
		if s.state.CurrentStreak > s.state.LongestStreak {
			s.state.LongestStreak = s.state.CurrentStreak
		}
		s.state.Score += s.rules.CorrectPoints
		// Бонус срабатывает ровно на пороговом значении серии, один раз за подход
		if s.state.CurrentStreak == s.rules.StreakBonusAt {
			s.state.Score += s.rules.StreakBonusPoints
			streakBonus = s.rules.StreakBonusPoints
		}
	} else {
		s.state.CurrentStreak = 0
		if s.state.Lives > 0 {
			s.state.Lives--
		}
	}

	s.state.IdentifiedItems[itemID] = IdentifiedItem{
		IsCorrect:      isCorrect,
		SaidRecyclable: saysRecyclable,
		TimeToDecideMs: timeToDecideMs,
	}
	s.state.TotalItemsIdentified++
	// Ответ закрывает попап осмотра
	s.state.InspectedItem = ""

	ap := s.state.AreaProgress[item.Area]
	ap.Found++
	if isCorrect {
		ap.Correct++
	}
	s.state.AreaProgress[item.Area] = ap
	if ap.Found >= ap.Total && !containsArea(s.state.CompletedAreas, item.Area) {
		s.state.CompletedAreas = append(s.state.CompletedAreas, item.Area)
	}

	if s.state.Lives <= 0 || len(s.state.CompletedAreas) == len(s.catalog.Areas()) {
		s.state.IsPlaying = false
		s.state.GameEndTime = time.Now()
	}
	s.state.Phase = PhaseFeedback
	s.publishLocked()
	return IdentifyResult{IsCorrect: isCorrect, StreakBonus: streakBonus}
}

// DismissFeedback закрывает экран обратной связи и ведет игрока дальше:
// к результатам, на карту (если зона закрыта) или обратно в зону.
func (s *Session) DismissFeedback() {
	s.mu.Lock()
	if s.state.Phase != PhaseFeedback {
		s.mu.Unlock()
		return
	}
	switch {
	case s.state.IsGameOver():
		s.state.Phase = PhaseResults
	case s.state.CurrentArea != "" && containsArea(s.state.CompletedAreas, s.state.CurrentArea):
		s.state.CurrentArea = ""
		s.state.Phase = PhaseMap
	default:
		s.state.Phase = PhaseArea
	}
	s.publishLocked()
}

// EndGame досрочно завершает партию.
func (s *Session) EndGame() {
	s.mu.Lock()
	if !s.state.IsPlaying {
		s.mu.Unlock()
		return
	}
	s.state.IsPlaying = false
	s.state.GameEndTime = time.Now()
	s.state.Phase = PhaseResults
	s.publishLocked()
}

// TogglePause переключает паузу.
func (s *Session) TogglePause() {
	s.mu.Lock()
	s.state.IsPaused = !s.state.IsPaused
	s.publishLocked()
}

// UpdateSettings применяет частичное обновление настроек.
func (s *Session) UpdateSettings(patch SettingsPatch) {
	s.mu.Lock()
	if patch.SoundEnabled != nil {
		s.state.Settings.SoundEnabled = *patch.SoundEnabled
	}
	if patch.Language != nil {
		s.state.Settings.Language = *patch.Language
	}
	s.publishLocked()
}

// Reset возвращает сессию к начальному состоянию. Настройки сохраняются.
func (s *Session) Reset() {
	s.mu.Lock()
	s.gen++
	s.stopZoomTimerLocked()
	s.state = s.initialState(s.state.Settings)
	s.publishLocked()
}

func containsArea(areas []string, id string) bool {
	for _, a := range areas {
		if a == id {
			return true
		}
	}
	return false
}
