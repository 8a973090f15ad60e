package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region embedded
//go:embed catalog.yaml
var defaultYAML []byte

// FallbackLanguage is used when a survey text has no entry for the requested language.
const FallbackLanguage = "en"

// #endregion embedded

// #region errors
var (
	ErrUnknownTask    = errors.New("unknown task")
	ErrInvalidTable   = errors.New("invalid amount table")
	ErrNoIndifference = errors.New("no staircase tasks to derive an indifference value")
)

// #endregion errors

// #region file-types
type fileCatalog struct {
	Amounts   map[string][]int64 `yaml:"amounts"`
	Tasks     []fileTask         `yaml:"tasks"`
	Staircase fileStaircase      `yaml:"staircase"`
	Anomaly   []fileAnomaly      `yaml:"anomaly"`
	Survey    []fileSurveyItem   `yaml:"survey"`
}

type fileTask struct {
	ID       string `yaml:"id"`
	Base     int64  `yaml:"base"`
	Amounts  string `yaml:"amounts"`
	Kind     string `yaml:"kind"`
	Polarity string `yaml:"polarity"`
}

type fileStaircase struct {
	Tasks      []string `yaml:"tasks"`
	StartIndex int      `yaml:"start_index"`
	Steps      int      `yaml:"steps"`
}

type fileAnomaly struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Base  int64  `yaml:"base"`
	Rule  string `yaml:"rule"`
	Later int64  `yaml:"later"`
}

type fileSurveyItem struct {
	ID      string              `yaml:"id"`
	Type    string              `yaml:"type"`
	Min     int64               `yaml:"min"`
	Max     int64               `yaml:"max"`
	Default int64               `yaml:"default"`
	Text    map[string]string   `yaml:"text"`
	Options map[string][]string `yaml:"options"`
}

// #endregion file-types

// #region catalog
// Catalog is the static experiment material: tasks, anomaly items and survey.
type Catalog struct {
	Tasks     []Task
	Staircase StaircaseDesign
	Anomaly   []AnomalyItem

	survey []fileSurveyItem
	byID   map[string]Task
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		byID: make(map[string]Task, len(fc.Tasks)),
		Staircase: StaircaseDesign{
			TaskIDs:    fc.Staircase.Tasks,
			StartIndex: fc.Staircase.StartIndex,
			Steps:      fc.Staircase.Steps,
		},
		survey: fc.Survey,
	}

	for _, ft := range fc.Tasks {
		table, ok := fc.Amounts[ft.Amounts]
		if !ok {
			return nil, fmt.Errorf("task %s: amount table %q: %w", ft.ID, ft.Amounts, ErrInvalidTable)
		}
		if len(table) != AmountCount {
			return nil, fmt.Errorf("task %s: %d amounts, want %d: %w", ft.ID, len(table), AmountCount, ErrInvalidTable)
		}
		kind := Kind(ft.Kind)
		if !kind.valid() {
			return nil, fmt.Errorf("task %s: unknown kind %q", ft.ID, ft.Kind)
		}
		polarity := Polarity(ft.Polarity)
		switch polarity {
		case "":
			polarity = DefaultPolarity(kind)
		case PolarityDirect, PolarityInverted:
		default:
			return nil, fmt.Errorf("task %s: unknown polarity %q", ft.ID, ft.Polarity)
		}

		t := Task{ID: ft.ID, Base: ft.Base, Kind: kind, Polarity: polarity}
		copy(t.Amounts[:], table)
		c.Tasks = append(c.Tasks, t)
		c.byID[t.ID] = t
	}

	for _, fa := range fc.Anomaly {
		kind := Kind(fa.Kind)
		if !kind.valid() {
			return nil, fmt.Errorf("anomaly %s: unknown kind %q", fa.ID, fa.Kind)
		}
		rule := LaterRule(fa.Rule)
		switch rule {
		case LaterIndifference, LaterDoubledGap:
		case LaterFixed:
			if fa.Later <= 0 {
				return nil, fmt.Errorf("anomaly %s: fixed rule needs a later amount", fa.ID)
			}
		default:
			return nil, fmt.Errorf("anomaly %s: unknown rule %q", fa.ID, fa.Rule)
		}
		c.Anomaly = append(c.Anomaly, AnomalyItem{
			ID: fa.ID, Kind: kind, Base: fa.Base, Rule: rule, Later: fa.Later,
		})
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// #endregion catalog

// #region validate
func (c *Catalog) validate() error {
	if len(c.Tasks) == 0 {
		return errors.New("catalog has no tasks")
	}
	for _, id := range c.Staircase.TaskIDs {
		if _, ok := c.byID[id]; !ok {
			return fmt.Errorf("staircase task %s: %w", id, ErrUnknownTask)
		}
	}
	if c.Staircase.StartIndex < 0 || c.Staircase.StartIndex >= AmountCount {
		return fmt.Errorf("staircase start index %d out of range", c.Staircase.StartIndex)
	}
	if len(c.Staircase.TaskIDs) > 0 && c.Staircase.Steps <= 0 {
		return errors.New("staircase needs at least one step")
	}
	for _, a := range c.Anomaly {
		if a.Rule != LaterFixed && len(c.Staircase.TaskIDs) == 0 {
			return fmt.Errorf("anomaly %s: rule %s: %w", a.ID, a.Rule, ErrNoIndifference)
		}
	}
	if len(c.survey) == 0 {
		return errors.New("catalog has no survey items")
	}
	for _, s := range c.survey {
		switch AnswerType(s.Type) {
		case AnswerNumber, AnswerSlider:
			if s.Min > s.Max {
				return fmt.Errorf("survey %s: min %d > max %d", s.ID, s.Min, s.Max)
			}
		case AnswerSelect:
			if len(s.Options[FallbackLanguage]) == 0 {
				return fmt.Errorf("survey %s: select without options", s.ID)
			}
		default:
			return fmt.Errorf("survey %s: unknown type %q", s.ID, s.Type)
		}
		if s.Text[FallbackLanguage] == "" {
			return fmt.Errorf("survey %s: missing %s text", s.ID, FallbackLanguage)
		}
	}
	return nil
}

// #endregion validate

// #region lookups
// Task returns the task with the given id.
func (c *Catalog) Task(id string) (Task, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// StaircaseTasks returns the adaptive phases in presentation order.
func (c *Catalog) StaircaseTasks() []Task {
	out := make([]Task, 0, len(c.Staircase.TaskIDs))
	for _, id := range c.Staircase.TaskIDs {
		out = append(out, c.byID[id])
	}
	return out
}

// Survey returns the survey items localized to lang.
func (c *Catalog) Survey(lang string) []SurveyItem {
	out := make([]SurveyItem, 0, len(c.survey))
	for _, s := range c.survey {
		text, ok := s.Text[lang]
		if !ok {
			text = s.Text[FallbackLanguage]
		}
		opts, ok := s.Options[lang]
		if !ok {
			opts = s.Options[FallbackLanguage]
		}
		def := s.Default
		if AnswerType(s.Type) == AnswerSlider && (def < s.Min || def > s.Max) {
			def = s.Min
		}
		out = append(out, SurveyItem{
			ID:      s.ID,
			Type:    AnswerType(s.Type),
			Text:    text,
			Options: opts,
			Min:     s.Min,
			Max:     s.Max,
			Default: def,
		})
	}
	return out
}

// #endregion lookups
