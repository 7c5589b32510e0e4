package areasort

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecosort-server/internal/catalog"
)

func testRules() Rules {
	r := DefaultRules()
	r.ZoomDelay = 10 * time.Millisecond
	return r
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return New(cat, testRules())
}

// Пять правильных ответов в зоне кухни и далее по каталогу.
var correctAnswers = []struct {
	itemID     string
	recyclable bool
}{
	{"water-bottle", true},
	{"soup-can", true},
	{"greasy-pizza-box", false},
	{"banana-peel", false},
	{"shampoo-bottle", true},
}

func TestIdentifyItem_Scoring(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()
	s.EnterArea("kitchen")

	t.Run("FirstCorrectAnswer", func(t *testing.T) {
		res := s.IdentifyItem("water-bottle", true, 1200)
		assert.True(t, res.IsCorrect)
		assert.Zero(t, res.StreakBonus)

		st := s.Snapshot()
		assert.Equal(t, 10, st.Score)
		assert.Equal(t, 1, st.TotalItemsIdentified)
		assert.Equal(t, 3, st.Lives)
		assert.Equal(t, 1, st.CurrentStreak)
		assert.Equal(t, PhaseFeedback, st.Phase)
	})

	t.Run("BonusAtStreakOfFive", func(t *testing.T) {
		for _, ans := range correctAnswers[1:4] {
			s.DismissFeedback()
			res := s.IdentifyItem(ans.itemID, ans.recyclable, 500)
			assert.True(t, res.IsCorrect)
			assert.Zero(t, res.StreakBonus)
		}
		s.DismissFeedback()
		res := s.IdentifyItem("shampoo-bottle", true, 500)
		assert.True(t, res.IsCorrect)
		assert.Equal(t, 50, res.StreakBonus)

		st := s.Snapshot()
		assert.Equal(t, 100, st.Score) // 10×5 + 50
		assert.Equal(t, 5, st.CurrentStreak)
		assert.Equal(t, 5, st.LongestStreak)
	})

	t.Run("NoSecondBonusBeyondThreshold", func(t *testing.T) {
		s.DismissFeedback()
		res := s.IdentifyItem("glass-jar", true, 500)
		assert.True(t, res.IsCorrect)
		assert.Zero(t, res.StreakBonus)
		assert.Equal(t, 110, s.Snapshot().Score)
	})

	t.Run("IncorrectResetsStreakAndCostsLife", func(t *testing.T) {
		s.DismissFeedback()
		res := s.IdentifyItem("toothpaste-tube", true, 500)
		assert.False(t, res.IsCorrect)

		st := s.Snapshot()
		assert.Equal(t, 110, st.Score)
		assert.Equal(t, 0, st.CurrentStreak)
		assert.Equal(t, 6, st.LongestStreak)
		assert.Equal(t, 2, st.Lives)
	})
}

func TestIdentifyItem_ProgressInvariants(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()
	s.EnterArea("kitchen")

	answers := []struct {
		itemID     string
		recyclable bool
	}{
		{"water-bottle", true},
		{"soup-can", false}, // неправильно
		{"greasy-pizza-box", false},
		{"shampoo-bottle", true},
		{"toothpaste-tube", true}, // неправильно
	}
	for _, ans := range answers {
		s.IdentifyItem(ans.itemID, ans.recyclable, 100)
		s.DismissFeedback()
		st := s.Snapshot()
		for areaID, ap := range st.AreaProgress {
			assert.LessOrEqual(t, ap.Correct, ap.Found, "area %s", areaID)
			assert.LessOrEqual(t, ap.Found, ap.Total, "area %s", areaID)
		}
	}
}

func TestIdentifyItem_NoOpOnInvalidInput(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()

	t.Run("UnknownItem", func(t *testing.T) {
		s.EnterArea("kitchen")
		require.Eventually(t, func() bool {
			return s.Snapshot().Phase == PhaseArea
		}, time.Second, 5*time.Millisecond)
		before := s.Snapshot()
		res := s.IdentifyItem("no-such-item", true, 100)
		assert.Equal(t, IdentifyResult{}, res)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("NoCurrentArea", func(t *testing.T) {
		s.ExitArea()
		before := s.Snapshot()
		res := s.IdentifyItem("water-bottle", true, 100)
		assert.Equal(t, IdentifyResult{}, res)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("AlreadyIdentified", func(t *testing.T) {
		s.EnterArea("kitchen")
		s.IdentifyItem("water-bottle", true, 100)
		before := s.Snapshot()
		res := s.IdentifyItem("water-bottle", false, 100)
		assert.Equal(t, IdentifyResult{}, res)
		assert.Equal(t, before, s.Snapshot())
	})
}

func TestLivesExhaustionEndsGame(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()
	s.EnterArea("kitchen")

	wrong := []string{"water-bottle", "soup-can", "glass-jar"} // все перерабатываемые
	for _, id := range wrong {
		s.IdentifyItem(id, false, 100)
		s.DismissFeedback()
	}

	st := s.Snapshot()
	assert.Equal(t, 0, st.Lives, "lives never published negative")
	assert.False(t, st.IsPlaying)
	assert.True(t, st.IsGameOver())
	assert.False(t, st.GameEndTime.IsZero())
	assert.Equal(t, PhaseResults, st.Phase)

	// После конца игры команда ответа - no-op
	before := s.Snapshot()
	s.IdentifyItem("soda-can", true, 100)
	assert.Equal(t, before, s.Snapshot())
}

func TestCompletingAllAreasEndsGame(t *testing.T) {
	cat := writeMiniCatalog(t)
	s := New(cat, testRules())
	s.StartGame()
	s.EnterArea("yard")
	s.IdentifyItem("can", true, 100)
	s.DismissFeedback()
	s.IdentifyItem("wrapper", false, 100)
	s.DismissFeedback()

	s.EnterArea("garage")
	s.IdentifyItem("bolt", true, 100)

	st := s.Snapshot()
	assert.ElementsMatch(t, []string{"yard", "garage"}, st.CompletedAreas)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 3, st.Lives)

	s.DismissFeedback()
	assert.Equal(t, PhaseResults, s.Snapshot().Phase)
}

func TestDismissFeedback_CompletedAreaReturnsToMap(t *testing.T) {
	cat := writeMiniCatalog(t)
	s := New(cat, testRules())
	s.StartGame()
	s.EnterArea("yard")

	s.IdentifyItem("can", true, 100)
	s.DismissFeedback()
	s.IdentifyItem("wrapper", false, 100)
	st := s.Snapshot()
	assert.Contains(t, st.CompletedAreas, "yard")
	assert.True(t, st.IsPlaying) // осталась незакрытая зона

	s.DismissFeedback()
	st = s.Snapshot()
	assert.Equal(t, PhaseMap, st.Phase)
	assert.Empty(t, st.CurrentArea)
}

func TestEnterArea_DeferredTransition(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()

	t.Run("AdvancesToAreaAfterDelay", func(t *testing.T) {
		s.EnterArea("kitchen")
		assert.Equal(t, PhaseZooming, s.Snapshot().Phase)
		assert.Eventually(t, func() bool {
			return s.Snapshot().Phase == PhaseArea
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("StaleTransitionIsDiscarded", func(t *testing.T) {
		s.EnterArea("bathroom")
		s.ExitArea() // игрок вышел до конца анимации
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, PhaseMap, s.Snapshot().Phase)
	})

	t.Run("StaleAfterReset", func(t *testing.T) {
		s.StartGame()
		s.EnterArea("kitchen")
		s.Reset()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, PhaseMap, s.Snapshot().Phase)
	})
}

func TestPopupAndPause(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()
	s.EnterArea("kitchen")

	s.OpenItemPopup("water-bottle")
	st := s.Snapshot()
	assert.Equal(t, PhasePopup, st.Phase)
	assert.Equal(t, "water-bottle", st.InspectedItem)

	s.CloseItemPopup()
	st = s.Snapshot()
	assert.Equal(t, PhaseArea, st.Phase)
	assert.Empty(t, st.InspectedItem)

	// Ответ из попапа тоже закрывает его
	s.OpenItemPopup("water-bottle")
	s.IdentifyItem("water-bottle", true, 150)
	st = s.Snapshot()
	assert.Equal(t, PhaseFeedback, st.Phase)
	assert.Empty(t, st.InspectedItem)

	s.TogglePause()
	assert.True(t, s.Snapshot().IsPaused)
	s.TogglePause()
	assert.False(t, s.Snapshot().IsPaused)
}

func TestReset_RestoresInitialState(t *testing.T) {
	s := newTestSession(t)
	pristine := s.Snapshot()

	s.StartGame()
	s.EnterArea("kitchen")
	s.IdentifyItem("water-bottle", true, 100)
	s.Reset()

	assert.Equal(t, pristine, s.Snapshot())
}

func TestUpdateSettings_SurvivesReset(t *testing.T) {
	s := newTestSession(t)
	lang := "zh-HK"
	sound := false
	s.UpdateSettings(SettingsPatch{Language: &lang, SoundEnabled: &sound})
	s.Reset()

	st := s.Snapshot()
	assert.Equal(t, "zh-HK", st.Settings.Language)
	assert.False(t, st.Settings.SoundEnabled)
}

func TestDerivedProjections(t *testing.T) {
	s := newTestSession(t)
	assert.Zero(t, s.Snapshot().Accuracy())
	assert.Zero(t, s.Snapshot().TimeElapsed())
	assert.False(t, s.Snapshot().IsGameOver())

	s.StartGame()
	s.EnterArea("kitchen")
	s.IdentifyItem("water-bottle", true, 100)
	s.DismissFeedback()
	s.IdentifyItem("soup-can", false, 100)

	st := s.Snapshot()
	assert.Equal(t, 1, st.CorrectCount())
	assert.Equal(t, 50, st.Accuracy())
	assert.GreaterOrEqual(t, st.TimeElapsed(), 0)
}

func TestEndGame(t *testing.T) {
	s := newTestSession(t)
	s.StartGame()
	s.EnterArea("kitchen")
	s.IdentifyItem("water-bottle", true, 100)
	s.EndGame()

	st := s.Snapshot()
	assert.False(t, st.IsPlaying)
	assert.Equal(t, PhaseResults, st.Phase)
	assert.True(t, st.IsGameOver())

	// Повторный вызов ничего не меняет
	before := s.Snapshot()
	s.EndGame()
	assert.Equal(t, before.Phase, s.Snapshot().Phase)
}

func TestOnChange_PublishesSnapshots(t *testing.T) {
	s := newTestSession(t)
	var (
		mu  sync.Mutex
		got []State
	)
	s.OnChange(func(st State) {
		mu.Lock()
		got = append(got, st)
		mu.Unlock()
	})

	s.StartGame()
	s.EnterArea("kitchen")
	s.IdentifyItem("water-bottle", true, 100)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, PhaseFeedback, got[len(got)-1].Phase)
}

// writeMiniCatalog собирает маленький каталог с одной зоной из двух предметов.
func writeMiniCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"areas.json": `[
			{"id":"yard","name":"Yard","nameZhHK":"庭院","icon":"🏡","difficulty":"easy","background":"yard.png"},
			{"id":"garage","name":"Garage","nameZhHK":"車庫","icon":"🚗","difficulty":"easy","background":"garage.png"}
		]`,
		"items.json": `[
			{"id":"can","name":"Can","nameZhHK":"罐","category":"metal","isRecyclable":true,"difficulty":"easy","image":"can.png","description":"","descriptionZhHK":"","funFact":"","area":"yard","position":{"x":1,"y":1}},
			{"id":"wrapper","name":"Wrapper","nameZhHK":"包裝紙","category":"plastic","isRecyclable":false,"difficulty":"easy","image":"wrapper.png","description":"","descriptionZhHK":"","funFact":"","area":"yard","position":{"x":2,"y":2}},
			{"id":"bolt","name":"Bolt","nameZhHK":"螺絲","category":"metal","isRecyclable":true,"difficulty":"easy","image":"bolt.png","description":"","descriptionZhHK":"","funFact":"","area":"garage","position":{"x":3,"y":3}}
		]`,
		"lab-tests.json": `{"tests":[{"id":"float","name":"Float","nameZhHK":"浮","icon":"💧","instruction":"","description":"","steps":[{"id":"s1","action":"tap","instruction":"","icon":""}]}],"samples":[]}`,
		"plastics.json":  `[]`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	cat, err := catalog.LoadFromDir(dir)
	require.NoError(t, err)
	return cat
}
