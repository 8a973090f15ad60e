package question

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region types
// Option is one clickable side of a choice.
type Option struct {
	Side   record.Side
	Label  string
	Amount int64
}

// Question is a (block, step) pair resolved to concrete text and amounts.
type Question struct {
	Block  string
	Step   int // 0-based
	Kind   catalog.Kind
	Prompt string
	SS     Option
	LL     Option
}

// Option returns the option for side.
func (q Question) Option(side record.Side) Option {
	if side == record.LL {
		return q.LL
	}
	return q.SS
}

// #endregion types

// #region renderer
// Renderer formats questions in one language with locale digit grouping.
type Renderer struct {
	lang    string
	printer *message.Printer
	phrases phrases
}

// NewRenderer returns a renderer for lang ("ko" or "en"); anything else falls back to English.
func NewRenderer(lang string) *Renderer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	base, _ := tag.Base()
	ph, ok := phraseBook[base.String()]
	if !ok {
		ph = phraseBook["en"]
		tag = language.English
		base, _ = tag.Base()
	}
	return &Renderer{
		lang:    base.String(),
		printer: message.NewPrinter(tag),
		phrases: ph,
	}
}

// Language returns the base language code in use.
func (r *Renderer) Language() string {
	return r.lang
}

// Amount formats n with thousands grouping.
func (r *Renderer) Amount(n int64) string {
	return r.printer.Sprintf("%d", n)
}

// #endregion renderer

// #region task
// Task renders the question for a task at candidate index idx.
func (r *Renderer) Task(block string, step int, t catalog.Task, idx int) Question {
	return r.Frame(block, step, t.Kind, t.Base, t.Amounts[idx])
}

// Frame renders base versus later under the given framing.
func (r *Renderer) Frame(block string, step int, kind catalog.Kind, base, later int64) Question {
	p := r.printer
	ph := r.phrases
	q := Question{
		Block:  block,
		Step:   step,
		Kind:   kind,
		Prompt: ph.choose,
		SS:     Option{Side: record.SS, Amount: base},
		LL:     Option{Side: record.LL, Amount: later},
	}

	switch kind {
	case catalog.KindLoss:
		q.Prompt = p.Sprintf(ph.lossPrompt, base)
		q.SS.Label = p.Sprintf(ph.payNow, base)
		q.LL.Label = p.Sprintf(ph.payIn1y, later)
	case catalog.KindPresentBias:
		q.SS.Label = p.Sprintf(ph.receiveIn12m, base)
		q.LL.Label = p.Sprintf(ph.receiveIn24m, later)
	case catalog.KindSubadditivity:
		q.SS.Label = p.Sprintf(ph.receiveNow, base)
		q.LL.Label = p.Sprintf(ph.receiveIn24m, later)
	case catalog.KindSpeedup:
		q.SS.Label = p.Sprintf(ph.speedupSS, later, base)
		q.LL.Label = p.Sprintf(ph.speedupLL, later)
	case catalog.KindBonus:
		q.SS.Label = p.Sprintf(ph.receiveNow, base)
		q.LL.Label = p.Sprintf(ph.bonusLL, base, later-base)
	default:
		q.Prompt = p.Sprintf(ph.gainPrompt, base)
		q.SS.Label = p.Sprintf(ph.receiveNow, base)
		q.LL.Label = p.Sprintf(ph.receiveIn1y, later)
	}
	return q
}

// #endregion task

// #region anomaly
// AnomalyLater resolves the later-amount of an anomaly item.
func AnomalyLater(item catalog.AnomalyItem, indifference int64) int64 {
	switch item.Rule {
	case catalog.LaterIndifference:
		return indifference
	case catalog.LaterDoubledGap:
		return item.Base + 2*(indifference-item.Base)
	default:
		return item.Later
	}
}

// Anomaly renders one anomaly item using the stored indifference value.
func (r *Renderer) Anomaly(block string, step int, item catalog.AnomalyItem, indifference int64) Question {
	return r.Frame(block, step, item.Kind, item.Base, AnomalyLater(item, indifference))
}

// #endregion anomaly
