package catalog

// Difficulty - сложность предмета или зоны.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ItemCategory - категория предмета для сортировки.
type ItemCategory string

const (
	CategoryPlastic ItemCategory = "plastic"
	CategoryMetal   ItemCategory = "metal"
	CategoryGlass   ItemCategory = "glass"
	CategoryPaper   ItemCategory = "paper"
	CategoryOrganic ItemCategory = "organic"
	CategoryOther   ItemCategory = "other"
)

// Position - координаты предмета на карте зоны (проброс для UI).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Item - предмет, который игрок находит в зоне и сортирует.
type Item struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	NameZhHK        string       `json:"nameZhHK"`
	Category        ItemCategory `json:"category"`
	IsRecyclable    bool         `json:"isRecyclable"`
	Difficulty      Difficulty   `json:"difficulty"`
	Image           string       `json:"image"`
	Description     string       `json:"description"`
	DescriptionZhHK string       `json:"descriptionZhHK"`
	FunFact         string       `json:"funFact"`
	Area            string       `json:"area"` // FK на Area.ID
	Position        Position     `json:"position"`
}

// Area - зона на карте (кухня, улица и т.д.).
type Area struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	NameZhHK   string     `json:"nameZhHK"`
	Icon       string     `json:"icon"`
	Difficulty Difficulty `json:"difficulty"`
	Background string     `json:"background"`
	Gradient   string     `json:"gradient,omitempty"`
	Scenery    []string   `json:"scenery,omitempty"`
}

// TestType - тип лабораторного теста.
type TestType string

const (
	TestFloat        TestType = "float"
	TestBend         TestType = "bend"
	TestHeat         TestType = "heat"
	TestScratch      TestType = "scratch"
	TestTransparency TestType = "transparency"
)

// StepAction - жест, который выполняет игрок на шаге теста.
type StepAction string

const (
	ActionTap        StepAction = "tap"
	ActionSwipeDown  StepAction = "swipe-down"
	ActionSwipeRight StepAction = "swipe-right"
	ActionHold       StepAction = "hold"
	ActionDrag       StepAction = "drag"
)

// LabStep - один шаг лабораторного теста.
type LabStep struct {
	ID          string     `json:"id"`
	Action      StepAction `json:"action"`
	Instruction string     `json:"instruction"`
	Icon        string     `json:"icon"`
	DurationMs  int        `json:"duration,omitempty"` // Только для hold
}

// LabTest - лабораторный тест с упорядоченными шагами.
type LabTest struct {
	ID          TestType  `json:"id"`
	Name        string    `json:"name"`
	NameZhHK    string    `json:"nameZhHK"`
	Icon        string    `json:"icon"`
	Instruction string    `json:"instruction"`
	Description string    `json:"description"`
	Steps       []LabStep `json:"steps"`
}

// PlasticSample - образец для лаборатории с заготовленными результатами тестов.
type PlasticSample struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	NameZhHK     string              `json:"nameZhHK"`
	Icon         string              `json:"icon"`
	ActualType   string              `json:"actualType"` // PET, HDPE, PVC, PP и т.д.
	TestResults  map[TestType]string `json:"testResults"`
	TestOutcomes map[TestType]string `json:"testOutcomes"`
}

// PlasticType - код пластика для сканера.
type PlasticType string

const (
	PlasticPET  PlasticType = "PET"
	PlasticHDPE PlasticType = "HDPE"
	PlasticPVC  PlasticType = "PVC"
	PlasticLDPE PlasticType = "LDPE"
	PlasticPP   PlasticType = "PP"
	PlasticPS   PlasticType = "PS"
)

// IsValid проверяет, что код пластика известен.
func (p PlasticType) IsValid() bool {
	switch p {
	case PlasticPET, PlasticHDPE, PlasticPVC, PlasticLDPE, PlasticPP, PlasticPS:
		return true
	}
	return false
}

// PlasticProperties - эталонные показания четырех датчиков (0-100).
type PlasticProperties struct {
	MeltingPoint   int `json:"meltingPoint"`
	Density        int `json:"density"`
	SofteningPoint int `json:"softeningPoint"`
	Chlorine       int `json:"chlorine"`
}

// PlasticHints - качественные подсказки для игрока.
type PlasticHints struct {
	FloatSink     string `json:"floatSink"` // float | sink
	MeltPeak      string `json:"meltPeak"`  // sharp | broad
	BendCue       string `json:"bendCue"`   // flexible | rigid | brittle
	ChlorineAlert bool   `json:"chlorineAlert"`
}

// PlasticItem - предмет для сканера с эталонными свойствами.
type PlasticItem struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	NameZhHK    string            `json:"nameZhHK"`
	Type        PlasticType       `json:"type"`
	RecycleCode int               `json:"recycleCode"` // 1-6
	Icon        string            `json:"icon"`
	Color       string            `json:"color"`
	Properties  PlasticProperties `json:"properties"`
	Hints       PlasticHints      `json:"hints"`
	CorrectType PlasticType       `json:"correctType"`
	FunFact     string            `json:"funFact"`
}
