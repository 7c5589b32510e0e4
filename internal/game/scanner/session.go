package scanner

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"ecosort-server/internal/catalog"
)

// Phase - фаза сессии сканера пластика.
type Phase string

const (
	PhaseReady    Phase = "ready"
	PhaseScanning Phase = "scanning"
	PhaseFeedback Phase = "feedback"
	PhaseResults  Phase = "results"
)

// Dial - имя одного из четырех датчиков.
type Dial string

const (
	DialMeltingPoint   Dial = "meltingPoint"
	DialDensity        Dial = "density"
	DialSofteningPoint Dial = "softeningPoint"
	DialChlorine       Dial = "chlorine"
)

// RouteResult - тройственный исход последней маршрутизации.
type RouteResult string

const (
	RouteNone      RouteResult = ""
	RouteCorrect   RouteResult = "correct"
	RouteIncorrect RouteResult = "incorrect"
)

const defaultDialValue = 50

// Rules - настраиваемые константы сканера.
type Rules struct {
	MaxLives           int
	BasePoints         int
	StreakBonusPoints  int
	StreakBonusAt      int // бонус при серии не меньше этого значения
	DialBonusThreshold int // бонус точности при accuracy строго выше порога
	TimeLimitSec       int
	TickInterval       time.Duration
	ScanDelay          time.Duration
}

// DefaultRules возвращает боевые значения правил.
func DefaultRules() Rules {
	return Rules{
		MaxLives:           3,
		BasePoints:         15,
		StreakBonusPoints:  5,
		StreakBonusAt:      3,
		DialBonusThreshold: 70,
		TimeLimitSec:       120,
		TickInterval:       time.Second,
		ScanDelay:          600 * time.Millisecond,
	}
}

// ItemResult - итог маршрутизации одного предмета с показаниями датчиков
// на момент решения.
type ItemResult struct {
	ItemID          string              `json:"itemId"`
	Choice          catalog.PlasticType `json:"choice"`
	CorrectType     catalog.PlasticType `json:"correctType"`
	IsCorrect       bool                `json:"isCorrect"`
	DialReadings    map[Dial]int        `json:"dialReadings"`
	DialAccuracy    int                 `json:"dialAccuracy"`
	PointsEarned    int                 `json:"pointsEarned"`
	TimeToDecideSec float64             `json:"timeToDecideSec"`
}

// State - публикуемый снимок состояния сессии.
type State struct {
	Phase            Phase               `json:"phase"`
	Score            int                 `json:"score"`
	Lives            int                 `json:"lives"`
	MaxLives         int                 `json:"maxLives"`
	CurrentItemIndex int                 `json:"currentItemIndex"`
	TotalItems       int                 `json:"totalItems"`
	CurrentItemID    string              `json:"currentItemId,omitempty"`
	DialReadings     map[Dial]int        `json:"dialReadings"`
	IsScanning       bool                `json:"isScanning"`
	LastResult       RouteResult         `json:"lastResult"`
	LastCorrectType  catalog.PlasticType `json:"lastCorrectType,omitempty"`
	Streak           int                 `json:"streak"`
	LongestStreak    int                 `json:"longestStreak"`
	Results          []ItemResult        `json:"results"`
	StartTime        time.Time           `json:"startTime,omitempty"`
	TimeLimit        int                 `json:"timeLimit"`
	TimeRemaining    int                 `json:"timeRemaining"`
}

// Accuracy - точность в процентах по отвеченным предметам, 0 если их нет.
func (st State) Accuracy() int {
	if len(st.Results) == 0 {
		return 0
	}
	correct := 0
	for _, r := range st.Results {
		if r.IsCorrect {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(st.Results))))
}

// DialAccuracy - чистая функция близости показаний к эталону: 100 минус
// средняя абсолютная ошибка по четырем датчикам, с полом в ноль.
func DialAccuracy(readings map[Dial]int, ref catalog.PlasticProperties) int {
	diff := math.Abs(float64(readings[DialMeltingPoint]-ref.MeltingPoint)) +
		math.Abs(float64(readings[DialDensity]-ref.Density)) +
		math.Abs(float64(readings[DialSofteningPoint]-ref.SofteningPoint)) +
		math.Abs(float64(readings[DialChlorine]-ref.Chlorine))
	acc := 100 - diff/4
	if acc < 0 {
		return 0
	}
	return int(math.Round(acc))
}

// Session - сессия игры "сканер пластика". Таймер обратного отсчета -
// ресурс, принадлежащий сессии: живым может быть максимум один, он
// останавливается на reset, на терминальных переходах и перед новым стартом.
type Session struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	rules   Rules
	rng     *rand.Rand

	itemOrder []string
	state     State

	// gen сверяется отложенными колбэками (scan, тик таймера)
	gen       int
	timerStop chan struct{}
	scanTimer *time.Timer

	notify func(State)
}

// New создает сессию в начальном состоянии (фаза ready, таймер не запущен).
func New(cat *catalog.Catalog, rules Rules) *Session {
	s := &Session{
		catalog: cat,
		rules:   rules,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.state = s.initialState()
	return s
}

// OnChange регистрирует колбэк публикации состояния.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func defaultDials() map[Dial]int {
	return map[Dial]int{
		DialMeltingPoint:   defaultDialValue,
		DialDensity:        defaultDialValue,
		DialSofteningPoint: defaultDialValue,
		DialChlorine:       defaultDialValue,
	}
}

func (s *Session) initialState() State {
	return State{
		Phase:         PhaseReady,
		Lives:         s.rules.MaxLives,
		MaxLives:      s.rules.MaxLives,
		TotalItems:    len(s.catalog.Plastics()),
		DialReadings:  defaultDials(),
		Results:       []ItemResult{},
		TimeLimit:     s.rules.TimeLimitSec,
		TimeRemaining: s.rules.TimeLimitSec,
	}
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	snap.DialReadings = make(map[Dial]int, len(s.state.DialReadings))
	for k, v := range s.state.DialReadings {
		snap.DialReadings[k] = v
	}
	snap.Results = make([]ItemResult, len(s.state.Results))
	for i, r := range s.state.Results {
		readings := make(map[Dial]int, len(r.DialReadings))
		for k, v := range r.DialReadings {
			readings[k] = v
		}
		r.DialReadings = readings
		snap.Results[i] = r
	}
	return snap
}

// Snapshot возвращает глубокую копию текущего состояния.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) publishLocked() {
	snap := s.snapshotLocked()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (s *Session) currentItemLocked() *catalog.PlasticItem {
	if s.state.CurrentItemIndex >= len(s.itemOrder) {
		return nil
	}
	return s.catalog.PlasticByID(s.itemOrder[s.state.CurrentItemIndex])
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
	if s.scanTimer != nil {
		s.scanTimer.Stop()
		s.scanTimer = nil
	}
}

// startTimerLocked запускает единственный таймер обратного отсчета.
// Предыдущий, если был, уже остановлен вызывающей стороной.
func (s *Session) startTimerLocked() {
	stop := make(chan struct{})
	s.timerStop = stop
	interval := s.rules.TickInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !s.tick(stop) {
					return
				}
			}
		}
	}()
}

// tick уменьшает оставшееся время; на нуле принудительно переводит сессию
// к результатам и сообщает горутине таймера, что пора остановиться.
func (s *Session) tick(stop chan struct{}) bool {
	s.mu.Lock()
	if s.timerStop != stop || s.state.Phase == PhaseResults {
		s.mu.Unlock()
		return false
	}
	s.state.TimeRemaining--
	if s.state.TimeRemaining <= 0 {
		s.state.TimeRemaining = 0
		s.state.Phase = PhaseResults
		// Таймер останавливает сам себя
		close(stop)
		s.timerStop = nil
		s.publishLocked()
		return false
	}
	s.publishLocked()
	return true
}

// StartGame перемешивает порядок предметов, сбрасывает датчики и запускает
// обратный отсчет.
func (s *Session) StartGame() {
	s.mu.Lock()
	s.gen++
	s.stopTimerLocked()
	s.itemOrder = make([]string, 0, len(s.catalog.Plastics()))
	for _, p := range s.catalog.Plastics() {
		s.itemOrder = append(s.itemOrder, p.ID)
	}
	s.rng.Shuffle(len(s.itemOrder), func(i, j int) {
		s.itemOrder[i], s.itemOrder[j] = s.itemOrder[j], s.itemOrder[i]
	})
	s.state = s.initialState()
	s.state.Phase = PhaseScanning
	s.state.StartTime = time.Now()
	if len(s.itemOrder) > 0 {
		s.state.CurrentItemID = s.itemOrder[0]
	}
	s.startTimerLocked()
	s.publishLocked()
}

// SetDial выставляет показание датчика, зажимая его в [0,100].
func (s *Session) SetDial(dial Dial, value int) {
	s.mu.Lock()
	if s.state.Phase != PhaseScanning {
		s.mu.Unlock()
		return
	}
	if _, ok := s.state.DialReadings[dial]; !ok {
		s.mu.Unlock()
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	s.state.DialReadings[dial] = value
	s.publishLocked()
}

// Scan запускает косметическую анимацию сканирования: на очки не влияет.
func (s *Session) Scan() {
	s.mu.Lock()
	if s.state.Phase != PhaseScanning || s.state.IsScanning {
		s.mu.Unlock()
		return
	}
	s.state.IsScanning = true
	gen := s.gen
	s.scanTimer = time.AfterFunc(s.rules.ScanDelay, func() {
		s.finishScan(gen)
	})
	s.publishLocked()
}

func (s *Session) finishScan(gen int) {
	s.mu.Lock()
	if s.gen != gen || !s.state.IsScanning {
		s.mu.Unlock()
		return
	}
	s.state.IsScanning = false
	s.publishLocked()
}

// RouteToLine - основная команда подсчета очков: отправка предмета на
// линию переработки выбранного типа.
func (s *Session) RouteToLine(choice catalog.PlasticType) {
	s.mu.Lock()
	item := s.currentItemLocked()
	if s.state.Phase != PhaseScanning || item == nil {
		s.mu.Unlock()
		return
	}

	isCorrect := item.CorrectType == choice
	points := 0
	if isCorrect {
		s.state.Streak++
		if s.state.Streak > s.state.LongestStreak {
			s.state.LongestStreak = s.state.Streak
		}
		points += s.rules.BasePoints
		if s.state.Streak >= s.rules.StreakBonusAt {
			points += s.rules.StreakBonusPoints
		}
	} else {
		s.state.Streak = 0
		if s.state.Lives > 0 {
			s.state.Lives--
		}
	}

	accuracy := DialAccuracy(s.state.DialReadings, item.Properties)
	if isCorrect && accuracy > s.rules.DialBonusThreshold {
		points += int(math.Round(float64(accuracy) / 10))
	}
	s.state.Score += points

	readings := make(map[Dial]int, len(s.state.DialReadings))
	for k, v := range s.state.DialReadings {
		readings[k] = v
	}
	timeToDecide := 0.0
	if !s.state.StartTime.IsZero() {
		timeToDecide = time.Since(s.state.StartTime).Seconds()
	}
	s.state.Results = append(s.state.Results, ItemResult{
		ItemID:          item.ID,
		Choice:          choice,
		CorrectType:     item.CorrectType,
		IsCorrect:       isCorrect,
		DialReadings:    readings,
		DialAccuracy:    accuracy,
		PointsEarned:    points,
		TimeToDecideSec: timeToDecide,
	})
	if isCorrect {
		s.state.LastResult = RouteCorrect
	} else {
		s.state.LastResult = RouteIncorrect
	}
	s.state.LastCorrectType = item.CorrectType
	s.state.IsScanning = false
	s.state.Phase = PhaseFeedback
	s.publishLocked()
}

// NextItem переходит к следующему предмету или к результатам, если
// жизни, предметы или время закончились.
func (s *Session) NextItem() {
	s.mu.Lock()
	if s.state.Phase != PhaseFeedback {
		s.mu.Unlock()
		return
	}
	if s.state.Lives <= 0 || s.state.CurrentItemIndex >= len(s.itemOrder)-1 || s.state.TimeRemaining <= 0 {
		s.stopTimerLocked()
		s.state.Phase = PhaseResults
		s.publishLocked()
		return
	}
	s.state.CurrentItemIndex++
	s.state.CurrentItemID = s.itemOrder[s.state.CurrentItemIndex]
	s.state.DialReadings = defaultDials()
	s.state.LastResult = RouteNone
	s.state.LastCorrectType = ""
	s.state.IsScanning = false
	s.state.Phase = PhaseScanning
	s.publishLocked()
}

// Reset останавливает таймер и возвращает сессию к начальному состоянию.
func (s *Session) Reset() {
	s.mu.Lock()
	s.gen++
	s.stopTimerLocked()
	s.itemOrder = nil
	s.state = s.initialState()
	s.publishLocked()
}
