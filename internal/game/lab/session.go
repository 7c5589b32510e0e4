package lab

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"ecosort-server/internal/catalog"
)

// Phase - фаза сессии домашней лаборатории.
type Phase string

const (
	PhaseIntro    Phase = "intro"
	PhaseTesting  Phase = "testing"
	PhaseIdentify Phase = "identify"
	PhaseFeedback Phase = "feedback"
	PhaseResults  Phase = "results"
)

// Rules - настраиваемые константы лаборатории.
type Rules struct {
	MaxLives       int
	TestsPerSample int
	CorrectPoints  int
}

// DefaultRules возвращает боевые значения правил.
func DefaultRules() Rules {
	return Rules{
		MaxLives:       3,
		TestsPerSample: 3,
		CorrectPoints:  20,
	}
}

// SampleResult - итог по одному образцу.
type SampleResult struct {
	SampleID       string `json:"sampleId"`
	Guess          string `json:"guess"`
	CorrectType    string `json:"correctType"`
	IsCorrect      bool   `json:"isCorrect"`
	TestsCompleted int    `json:"testsCompleted"`
	TimeSpentSec   int    `json:"timeSpentSec"`
}

// State - публикуемый снимок состояния сессии.
type State struct {
	Phase              Phase                         `json:"phase"`
	Score              int                           `json:"score"`
	Lives              int                           `json:"lives"`
	MaxLives           int                           `json:"maxLives"`
	CurrentSampleIndex int                           `json:"currentSampleIndex"`
	TotalSamples       int                           `json:"totalSamples"`
	CurrentSampleID    string                        `json:"currentSampleId,omitempty"`
	CurrentTestIndex   int                           `json:"currentTestIndex"`
	CurrentStepIndex   int                           `json:"currentStepIndex"`
	TestSequence       []catalog.TestType            `json:"testSequence"`
	CompletedTests     []catalog.TestType            `json:"completedTests"`
	TestResults        map[catalog.TestType]string   `json:"testResults"`
	StepProgress       int                           `json:"stepProgress"`
	IsPerformingStep   bool                          `json:"isPerformingStep"`
	LastStepSuccess    bool                          `json:"lastStepSuccess"`
	Results            []SampleResult                `json:"results"`
	StartTime          time.Time                     `json:"startTime,omitempty"`
}

// Accuracy - точность в процентах по завершенным образцам, 0 если их нет.
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

// Session - сессия игры "домашняя лаборатория". Перемешанный порядок
// образцов - поле сессии, а не глобальное состояние: параллельные сессии
// друг другу не мешают.
type Session struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	rules   Rules
	rng     *rand.Rand

	sampleOrder []string
	state       State

	notify func(State)
}

// New создает сессию в начальном состоянии (фаза intro).
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

func (s *Session) initialState() State {
	return State{
		Phase:          PhaseIntro,
		Lives:          s.rules.MaxLives,
		MaxLives:       s.rules.MaxLives,
		TotalSamples:   len(s.catalog.Samples()),
		TestSequence:   []catalog.TestType{},
		CompletedTests: []catalog.TestType{},
		TestResults:    make(map[catalog.TestType]string),
		Results:        []SampleResult{},
	}
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	snap.TestSequence = append([]catalog.TestType{}, s.state.TestSequence...)
	snap.CompletedTests = append([]catalog.TestType{}, s.state.CompletedTests...)
	snap.TestResults = make(map[catalog.TestType]string, len(s.state.TestResults))
	for k, v := range s.state.TestResults {
		snap.TestResults[k] = v
	}
	snap.Results = append([]SampleResult{}, s.state.Results...)
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

// rollTestSequence выбирает случайные тесты без повторов.
func (s *Session) rollTestSequence() []catalog.TestType {
	tests := s.catalog.Tests()
	order := s.rng.Perm(len(tests))
	n := s.rules.TestsPerSample
	if n > len(tests) {
		n = len(tests)
	}
	seq := make([]catalog.TestType, 0, n)
	for _, i := range order[:n] {
		seq = append(seq, tests[i].ID)
	}
	return seq
}

func (s *Session) currentSampleLocked() *catalog.PlasticSample {
	if s.state.CurrentSampleIndex >= len(s.sampleOrder) {
		return nil
	}
	return s.catalog.SampleByID(s.sampleOrder[s.state.CurrentSampleIndex])
}

// StartGame перемешивает порядок образцов, выбирает свежую
// последовательность тестов и ставит фазу testing.
func (s *Session) StartGame() {
	s.mu.Lock()
	s.sampleOrder = make([]string, 0, len(s.catalog.Samples()))
	for _, smp := range s.catalog.Samples() {
		s.sampleOrder = append(s.sampleOrder, smp.ID)
	}
	s.rng.Shuffle(len(s.sampleOrder), func(i, j int) {
		s.sampleOrder[i], s.sampleOrder[j] = s.sampleOrder[j], s.sampleOrder[i]
	})
	s.state = s.initialState()
	s.state.Phase = PhaseTesting
	s.state.TestSequence = s.rollTestSequence()
	s.state.StartTime = time.Now()
	if len(s.sampleOrder) > 0 {
		s.state.CurrentSampleID = s.sampleOrder[0]
	}
	s.publishLocked()
}

// PerformStep отмечает начало выполнения шага теста.
func (s *Session) PerformStep() {
	s.mu.Lock()
	if s.state.Phase != PhaseTesting {
		s.mu.Unlock()
		return
	}
	s.state.IsPerformingStep = true
	s.state.StepProgress = 0
	s.publishLocked()
}

// CompleteStep завершает текущий шаг. Последний шаг теста фиксирует
// результат образца; последний тест последовательности ведет к identify.
func (s *Session) CompleteStep(success bool) {
	s.mu.Lock()
	if s.state.Phase != PhaseTesting || s.state.CurrentTestIndex >= len(s.state.TestSequence) {
		s.mu.Unlock()
		return
	}
	testID := s.state.TestSequence[s.state.CurrentTestIndex]
	test := s.catalog.TestByID(testID)
	sample := s.currentSampleLocked()
	if test == nil || sample == nil {
		s.mu.Unlock()
		return
	}

	s.state.IsPerformingStep = false
	s.state.LastStepSuccess = success

	steps := len(test.Steps)
	if s.state.CurrentStepIndex < steps-1 {
		// Прогресс считается по только что завершенному шагу
		s.state.StepProgress = int(math.Round(100 * float64(s.state.CurrentStepIndex+1) / float64(steps)))
		s.state.CurrentStepIndex++
		s.publishLocked()
		return
	}

	// Тест пройден целиком: записываем заготовленный результат образца
	s.state.StepProgress = 100
	s.state.TestResults[testID] = sample.TestResults[testID]
	s.state.CompletedTests = append(s.state.CompletedTests, testID)
	if s.state.CurrentTestIndex == len(s.state.TestSequence)-1 {
		s.state.Phase = PhaseIdentify
	} else {
		s.state.CurrentTestIndex++
		s.state.CurrentStepIndex = 0
	}
	s.publishLocked()
}

// UpdateHoldProgress выставляет прогресс удержания (для шагов hold).
func (s *Session) UpdateHoldProgress(progress int) {
	s.mu.Lock()
	if s.state.Phase != PhaseTesting {
		s.mu.Unlock()
		return
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	s.state.StepProgress = progress
	s.publishLocked()
}

// IdentifySample принимает версию игрока о типе пластика.
func (s *Session) IdentifySample(guess string) {
	s.mu.Lock()
	sample := s.currentSampleLocked()
	if s.state.Phase != PhaseIdentify || sample == nil {
		s.mu.Unlock()
		return
	}

	isCorrect := guess == sample.ActualType
	if isCorrect {
		s.state.Score += s.rules.CorrectPoints
	} else if s.state.Lives > 0 {
		s.state.Lives--
	}
	s.state.Results = append(s.state.Results, SampleResult{
		SampleID:       sample.ID,
		Guess:          guess,
		CorrectType:    sample.ActualType,
		IsCorrect:      isCorrect,
		TestsCompleted: len(s.state.CompletedTests),
		TimeSpentSec:   int(time.Since(s.state.StartTime).Seconds()),
	})
	s.state.Phase = PhaseFeedback
	s.publishLocked()
}

// NextSample переходит к следующему образцу или к результатам, если
// жизни или образцы закончились.
func (s *Session) NextSample() {
	s.mu.Lock()
	if s.state.Phase != PhaseFeedback {
		s.mu.Unlock()
		return
	}
	if s.state.Lives <= 0 || s.state.CurrentSampleIndex >= len(s.sampleOrder)-1 {
		s.state.Phase = PhaseResults
		s.publishLocked()
		return
	}
	s.state.CurrentSampleIndex++
	s.state.CurrentSampleID = s.sampleOrder[s.state.CurrentSampleIndex]
	s.state.CurrentTestIndex = 0
	s.state.CurrentStepIndex = 0
	s.state.TestSequence = s.rollTestSequence()
	s.state.CompletedTests = []catalog.TestType{}
	s.state.TestResults = make(map[catalog.TestType]string)
	s.state.StepProgress = 0
	s.state.IsPerformingStep = false
	s.state.Phase = PhaseTesting
	s.publishLocked()
}

// Reset возвращает сессию к начальному состоянию.
func (s *Session) Reset() {
	s.mu.Lock()
	s.sampleOrder = nil
	s.state = s.initialState()
	s.publishLocked()
}
