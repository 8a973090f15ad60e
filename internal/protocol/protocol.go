package protocol

import (
	"fmt"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/staircase"
)

// AnomalyBlock is the block id of the fixed anomaly questions.
const AnomalyBlock = "anomaly"

// #region factory
// New builds the protocol selected by name.
func New(name Name, cat *catalog.Catalog, r *question.Renderer) (Protocol, error) {
	switch name {
	case NameFixed:
		return NewFixed(cat, r), nil
	case NameStaircase:
		return NewStaircase(cat, r), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
}

// #endregion factory

// #region fixed
// Fixed presents every candidate amount of every task in order, without adaptivity.
type Fixed struct {
	tasks    []catalog.Task
	blocks   []Block
	renderer *question.Renderer
}

// NewFixed returns the 6x5 fixed design over all catalog tasks.
func NewFixed(cat *catalog.Catalog, r *question.Renderer) *Fixed {
	f := &Fixed{tasks: cat.Tasks, renderer: r}
	for _, t := range cat.Tasks {
		f.blocks = append(f.blocks, Block{ID: t.ID, Items: catalog.AmountCount})
	}
	return f
}

func (f *Fixed) Name() Name      { return NameFixed }
func (f *Fixed) Blocks() []Block { return f.blocks }
func (f *Fixed) Start() Cursor   { return Cursor{} }

// Question uses the step as the candidate index.
func (f *Fixed) Question(c Cursor) question.Question {
	t := f.tasks[c.Block]
	return f.renderer.Task(t.ID, c.Step, t, c.Step)
}

// Advance moves to the next item, or to the first item of the next task.
func (f *Fixed) Advance(c Cursor, _ record.Side) Cursor {
	if c.Step < f.blocks[c.Block].Items-1 {
		c.Step++
		c.Index = c.Step
		return c
	}
	return Cursor{Block: c.Block + 1}
}

// #endregion fixed

// #region staircase
// Staircase titrates each adaptive phase toward an indifference point, then
// probes anomalies calibrated by the indifference value of the first phase.
type Staircase struct {
	tasks    []catalog.Task
	anomaly  []catalog.AnomalyItem
	design   catalog.StaircaseDesign
	blocks   []Block
	renderer *question.Renderer
}

// NewStaircase returns the adaptive design described by the catalog.
func NewStaircase(cat *catalog.Catalog, r *question.Renderer) *Staircase {
	s := &Staircase{
		tasks:    cat.StaircaseTasks(),
		anomaly:  cat.Anomaly,
		design:   cat.Staircase,
		renderer: r,
	}
	for _, t := range s.tasks {
		s.blocks = append(s.blocks, Block{ID: t.ID, Items: s.design.Steps, Adaptive: true})
	}
	if len(s.anomaly) > 0 {
		s.blocks = append(s.blocks, Block{ID: AnomalyBlock, Items: len(s.anomaly)})
	}
	return s
}

func (s *Staircase) Name() Name      { return NameStaircase }
func (s *Staircase) Blocks() []Block { return s.blocks }

func (s *Staircase) Start() Cursor {
	return Cursor{Index: s.design.StartIndex}
}

func (s *Staircase) Question(c Cursor) question.Question {
	if c.Block < len(s.tasks) {
		t := s.tasks[c.Block]
		return s.renderer.Task(t.ID, c.Step, t, staircase.Clamp(c.Index))
	}
	return s.renderer.Anomaly(AnomalyBlock, c.Step, s.anomaly[c.Step], c.Indifference)
}

// Advance applies the staircase update and, on the last step of the first
// phase, stores the indifference value derived from the choice just made.
func (s *Staircase) Advance(c Cursor, side record.Side) Cursor {
	if c.Block >= len(s.tasks) {
		if c.Step < len(s.anomaly)-1 {
			c.Step++
			return c
		}
		c.Block++
		c.Step = 0
		return c
	}

	t := s.tasks[c.Block]
	used := staircase.Clamp(c.Index)
	lastStep := c.Step == s.design.Steps-1

	if lastStep && c.Block == 0 {
		c.Indifference = staircase.Indifference(t.Amounts, used, side)
		c.HasIndifference = true
	}

	c.Index = staircase.NextIndex(t.Polarity, side, used)
	if !lastStep {
		c.Step++
		return c
	}

	c.Block++
	c.Step = 0
	c.Index = s.design.StartIndex
	return c
}

// #endregion staircase
