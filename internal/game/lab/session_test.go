package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort-server/internal/catalog"
)

func newTestSession(t *testing.T) (*Session, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(cat, DefaultRules()), cat
}

// completeCurrentTest прогоняет все шаги текущего теста.
func completeCurrentTest(t *testing.T, s *Session, cat *catalog.Catalog) {
	t.Helper()
	st := s.Snapshot()
	require.Less(t, st.CurrentTestIndex, len(st.TestSequence))
	test := cat.TestByID(st.TestSequence[st.CurrentTestIndex])
	require.NotNil(t, test)
	for range test.Steps {
		s.PerformStep()
		s.CompleteStep(true)
	}
}

// correctGuess возвращает настоящий тип текущего образца.
func correctGuess(t *testing.T, s *Session, cat *catalog.Catalog) string {
	t.Helper()
	st := s.Snapshot()
	sample := cat.SampleByID(st.CurrentSampleID)
	require.NotNil(t, sample)
	return sample.ActualType
}

func TestStartGame(t *testing.T) {
	s, _ := newTestSession(t)
	s.StartGame()

	st := s.Snapshot()
	assert.Equal(t, PhaseTesting, st.Phase)
	assert.Equal(t, 3, st.Lives)
	assert.NotEmpty(t, st.CurrentSampleID)
	assert.False(t, st.StartTime.IsZero())

	t.Run("SequenceOfThreeWithoutDuplicates", func(t *testing.T) {
		known := map[catalog.TestType]bool{
			catalog.TestFloat: true, catalog.TestBend: true, catalog.TestHeat: true,
			catalog.TestScratch: true, catalog.TestTransparency: true,
		}
		// Повторяем: последовательность случайная при каждом старте
		for i := 0; i < 20; i++ {
			s.StartGame()
			seq := s.Snapshot().TestSequence
			require.Len(t, seq, 3)
			seen := map[catalog.TestType]bool{}
			for _, id := range seq {
				assert.True(t, known[id], "unknown test %s", id)
				assert.False(t, seen[id], "duplicate test %s", id)
				seen[id] = true
			}
		}
	})
}

func TestStepProgression(t *testing.T) {
	s, cat := newTestSession(t)

	// Добиваемся, чтобы первым шел трехшаговый тест: на нем видны
	// промежуточные значения прогресса.
	var test *catalog.LabTest
	for i := 0; i < 200; i++ {
		s.StartGame()
		test = cat.TestByID(s.Snapshot().TestSequence[0])
		require.NotNil(t, test)
		if len(test.Steps) == 3 {
			break
		}
	}
	require.Len(t, test.Steps, 3)

	s.PerformStep()
	st := s.Snapshot()
	assert.True(t, st.IsPerformingStep)
	assert.Zero(t, st.StepProgress)

	// Первый шаг из трех: прогресс считается по завершенному шагу
	s.CompleteStep(true)
	st = s.Snapshot()
	assert.False(t, st.IsPerformingStep)
	assert.True(t, st.LastStepSuccess)
	assert.Equal(t, 1, st.CurrentStepIndex)
	assert.Equal(t, 33, st.StepProgress)

	// Второй шаг из трех
	s.PerformStep()
	s.CompleteStep(true)
	st = s.Snapshot()
	assert.Equal(t, 2, st.CurrentStepIndex)
	assert.Equal(t, 67, st.StepProgress)

	// Последний шаг: тест завершен, прогресс фиксируется на 100
	s.PerformStep()
	s.CompleteStep(true)
	st = s.Snapshot()
	assert.Equal(t, 100, st.StepProgress)
	assert.Equal(t, 1, st.CurrentTestIndex)
	assert.Equal(t, 0, st.CurrentStepIndex)
	assert.Len(t, st.CompletedTests, 1)
}

func TestCompletingAllTestsLeadsToIdentify(t *testing.T) {
	s, cat := newTestSession(t)
	s.StartGame()

	for i := 0; i < 3; i++ {
		assert.Equal(t, PhaseTesting, s.Snapshot().Phase)
		completeCurrentTest(t, s, cat)
	}

	st := s.Snapshot()
	assert.Equal(t, PhaseIdentify, st.Phase)
	assert.Len(t, st.CompletedTests, 3)
	// Записаны заготовленные наблюдения по каждому пройденному тесту
	for _, id := range st.CompletedTests {
		assert.Contains(t, st.TestResults, id)
	}
}

func TestIdentifySample(t *testing.T) {
	t.Run("CorrectGuessScores", func(t *testing.T) {
		s, cat := newTestSession(t)
		s.StartGame()
		for i := 0; i < 3; i++ {
			completeCurrentTest(t, s, cat)
		}
		s.IdentifySample(correctGuess(t, s, cat))

		st := s.Snapshot()
		assert.Equal(t, PhaseFeedback, st.Phase)
		assert.Equal(t, 20, st.Score)
		assert.Equal(t, 3, st.Lives)
		require.Len(t, st.Results, 1)
		assert.True(t, st.Results[0].IsCorrect)
		assert.Equal(t, 3, st.Results[0].TestsCompleted)
	})

	t.Run("WrongGuessCostsLife", func(t *testing.T) {
		s, cat := newTestSession(t)
		s.StartGame()
		for i := 0; i < 3; i++ {
			completeCurrentTest(t, s, cat)
		}
		actual := correctGuess(t, s, cat)
		guess := "PET"
		if actual == "PET" {
			guess = "HDPE"
		}
		s.IdentifySample(guess)

		st := s.Snapshot()
		assert.Zero(t, st.Score)
		assert.Equal(t, 2, st.Lives)
		require.Len(t, st.Results, 1)
		assert.False(t, st.Results[0].IsCorrect)
		assert.Equal(t, actual, st.Results[0].CorrectType)
	})
}

func TestNextSample(t *testing.T) {
	s, cat := newTestSession(t)
	s.StartGame()
	for i := 0; i < 3; i++ {
		completeCurrentTest(t, s, cat)
	}
	s.IdentifySample(correctGuess(t, s, cat))
	firstSample := s.Snapshot().CurrentSampleID

	s.NextSample()
	st := s.Snapshot()
	assert.Equal(t, PhaseTesting, st.Phase)
	assert.Equal(t, 1, st.CurrentSampleIndex)
	assert.NotEqual(t, firstSample, st.CurrentSampleID)
	assert.Len(t, st.TestSequence, 3)
	assert.Empty(t, st.CompletedTests)
	assert.Empty(t, st.TestResults)
	assert.Zero(t, st.CurrentTestIndex)
	assert.Zero(t, st.CurrentStepIndex)
}

func TestNextSample_ResultsOnExhaustedLives(t *testing.T) {
	s, cat := newTestSession(t)
	s.StartGame()

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			completeCurrentTest(t, s, cat)
		}
		actual := correctGuess(t, s, cat)
		guess := "PET"
		if actual == "PET" {
			guess = "HDPE"
		}
		s.IdentifySample(guess)
		s.NextSample()
	}

	st := s.Snapshot()
	assert.Zero(t, st.Lives)
	assert.Equal(t, PhaseResults, st.Phase)
	assert.Len(t, st.Results, 3)
}

func TestNextSample_ResultsOnExhaustedSamples(t *testing.T) {
	s, cat := newTestSession(t)
	s.StartGame()
	total := s.Snapshot().TotalSamples
	require.Greater(t, total, 0)

	for i := 0; i < total; i++ {
		for j := 0; j < 3; j++ {
			completeCurrentTest(t, s, cat)
		}
		s.IdentifySample(correctGuess(t, s, cat))
		s.NextSample()
	}

	st := s.Snapshot()
	assert.Equal(t, PhaseResults, st.Phase)
	assert.Len(t, st.Results, total)
	assert.Equal(t, 100, st.Accuracy())
	assert.Equal(t, total*20, st.Score)
}

func TestUpdateHoldProgress_Clamps(t *testing.T) {
	s, _ := newTestSession(t)
	s.StartGame()

	s.UpdateHoldProgress(150)
	assert.Equal(t, 100, s.Snapshot().StepProgress)
	s.UpdateHoldProgress(-10)
	assert.Equal(t, 0, s.Snapshot().StepProgress)
	s.UpdateHoldProgress(42)
	assert.Equal(t, 42, s.Snapshot().StepProgress)
}

func TestDefensiveNoOps(t *testing.T) {
	s, _ := newTestSession(t)

	t.Run("CommandsBeforeStart", func(t *testing.T) {
		before := s.Snapshot()
		s.PerformStep()
		s.CompleteStep(true)
		s.IdentifySample("PET")
		s.NextSample()
		s.UpdateHoldProgress(50)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("IdentifyDuringTesting", func(t *testing.T) {
		s.StartGame()
		before := s.Snapshot()
		s.IdentifySample("PET")
		assert.Equal(t, before, s.Snapshot())
	})
}

func TestReset_RestoresInitialState(t *testing.T) {
	s, cat := newTestSession(t)
	pristine := s.Snapshot()

	s.StartGame()
	completeCurrentTest(t, s, cat)
	s.Reset()

	assert.Equal(t, pristine, s.Snapshot())
}

func TestAccuracy(t *testing.T) {
	var st State
	assert.Zero(t, st.Accuracy())

	st.Results = []SampleResult{{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: true}}
	assert.Equal(t, 67, st.Accuracy())
}
