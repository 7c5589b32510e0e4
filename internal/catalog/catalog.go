package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
)

//go:embed data/*.json
var embeddedData embed.FS

// labTestsFile - формат файла lab-tests.json: тесты и образцы вместе,
// как в исходных данных игры.
type labTestsFile struct {
	Tests   []LabTest       `json:"tests"`
	Samples []PlasticSample `json:"samples"`
}

// Catalog - неизменяемый набор справочных данных всех трех мини-игр.
// Загружается один раз при старте процесса и далее только читается.
type Catalog struct {
	items    []Item
	areas    []Area
	tests    []LabTest
	samples  []PlasticSample
	plastics []PlasticItem

	itemsByID    map[string]*Item
	areasByID    map[string]*Area
	testsByID    map[TestType]*LabTest
	samplesByID  map[string]*PlasticSample
	plasticsByID map[string]*PlasticItem
	itemsByArea  map[string][]Item
}

// Load загружает каталоги из встроенных JSON файлов.
func Load() (*Catalog, error) {
	return loadFS(embeddedData, "data")
}

// LoadFromDir загружает каталоги из внешней директории (override для разработки).
func LoadFromDir(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog dir %s is not accessible: %w", dir, err)
	}
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, root string) (*Catalog, error) {
	c := &Catalog{}

	if err := readJSON(fsys, path.Join(root, "items.json"), &c.items); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, path.Join(root, "areas.json"), &c.areas); err != nil {
		return nil, err
	}
	var lab labTestsFile
	if err := readJSON(fsys, path.Join(root, "lab-tests.json"), &lab); err != nil {
		return nil, err
	}
	c.tests = lab.Tests
	c.samples = lab.Samples
	if err := readJSON(fsys, path.Join(root, "plastics.json"), &c.plastics); err != nil {
		return nil, err
	}

	if err := c.buildIndexes(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readJSON(fsys fs.FS, name string, dst interface{}) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", name, err)
	}
	return nil
}

func (c *Catalog) buildIndexes() error {
	c.itemsByID = make(map[string]*Item, len(c.items))
	c.areasByID = make(map[string]*Area, len(c.areas))
	c.testsByID = make(map[TestType]*LabTest, len(c.tests))
	c.samplesByID = make(map[string]*PlasticSample, len(c.samples))
	c.plasticsByID = make(map[string]*PlasticItem, len(c.plastics))
	c.itemsByArea = make(map[string][]Item)

	for i := range c.areas {
		a := &c.areas[i]
		if _, dup := c.areasByID[a.ID]; dup {
			return fmt.Errorf("duplicate area id %q", a.ID)
		}
		c.areasByID[a.ID] = a
	}
	for i := range c.items {
		it := &c.items[i]
		if _, dup := c.itemsByID[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		c.itemsByID[it.ID] = it
		c.itemsByArea[it.Area] = append(c.itemsByArea[it.Area], *it)
	}
	for i := range c.tests {
		t := &c.tests[i]
		if _, dup := c.testsByID[t.ID]; dup {
			return fmt.Errorf("duplicate lab test id %q", t.ID)
		}
		c.testsByID[t.ID] = t
	}
	for i := range c.samples {
		s := &c.samples[i]
		if _, dup := c.samplesByID[s.ID]; dup {
			return fmt.Errorf("duplicate sample id %q", s.ID)
		}
		c.samplesByID[s.ID] = s
	}
	for i := range c.plastics {
		p := &c.plastics[i]
		if _, dup := c.plasticsByID[p.ID]; dup {
			return fmt.Errorf("duplicate plastic item id %q", p.ID)
		}
		c.plasticsByID[p.ID] = p
	}
	return nil
}

// validate проверяет ссылочную целостность загруженных каталогов.
// Любое нарушение фатально: с битым каталогом сервер не стартует.
func (c *Catalog) validate() error {
	for _, it := range c.items {
		if _, ok := c.areasByID[it.Area]; !ok {
			return fmt.Errorf("item %q references unknown area %q", it.ID, it.Area)
		}
	}
	for _, t := range c.tests {
		if len(t.Steps) == 0 {
			return fmt.Errorf("lab test %q has no steps", t.ID)
		}
	}
	for _, s := range c.samples {
		for testID := range s.TestResults {
			if _, ok := c.testsByID[testID]; !ok {
				return fmt.Errorf("sample %q has result for unknown test %q", s.ID, testID)
			}
		}
	}
	for _, p := range c.plastics {
		if !p.CorrectType.IsValid() {
			return fmt.Errorf("plastic item %q has invalid correct type %q", p.ID, p.CorrectType)
		}
		for name, v := range map[string]int{
			"meltingPoint":   p.Properties.MeltingPoint,
			"density":        p.Properties.Density,
			"softeningPoint": p.Properties.SofteningPoint,
			"chlorine":       p.Properties.Chlorine,
		} {
			if v < 0 || v > 100 {
				return fmt.Errorf("plastic item %q property %s out of range [0,100]: %d", p.ID, name, v)
			}
		}
	}
	return nil
}

// Items возвращает все предметы в порядке каталога.
func (c *Catalog) Items() []Item { return c.items }

// Areas возвращает все зоны в порядке каталога.
func (c *Catalog) Areas() []Area { return c.areas }

// Tests возвращает все лабораторные тесты.
func (c *Catalog) Tests() []LabTest { return c.tests }

// Samples возвращает все образцы лаборатории.
func (c *Catalog) Samples() []PlasticSample { return c.samples }

// Plastics возвращает все предметы сканера.
func (c *Catalog) Plastics() []PlasticItem { return c.plastics }

// ItemByID ищет предмет по ID. Возвращает nil, если не найден.
func (c *Catalog) ItemByID(id string) *Item { return c.itemsByID[id] }

// AreaByID ищет зону по ID. Возвращает nil, если не найдена.
func (c *Catalog) AreaByID(id string) *Area { return c.areasByID[id] }

// TestByID ищет лабораторный тест по типу. Возвращает nil, если не найден.
func (c *Catalog) TestByID(id TestType) *LabTest { return c.testsByID[id] }

// SampleByID ищет образец по ID. Возвращает nil, если не найден.
func (c *Catalog) SampleByID(id string) *PlasticSample { return c.samplesByID[id] }

// PlasticByID ищет предмет сканера по ID. Возвращает nil, если не найден.
func (c *Catalog) PlasticByID(id string) *PlasticItem { return c.plasticsByID[id] }

// ItemsForArea возвращает предметы, принадлежащие зоне (в порядке каталога).
func (c *Catalog) ItemsForArea(areaID string) []Item { return c.itemsByArea[areaID] }
