package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
	"github.com/danielpatrickdp/choice-experiment/internal/sheet"
)

// #region types
// Step is the outcome of replaying one event.
type Step struct {
	Index   int
	Event   session.Event
	Outcome session.Outcome
	Err     error
}

// Summary provides aggregate results of a replay run.
type Summary struct {
	Events          int
	Decisions       map[session.Decision]int
	Phase           session.Phase
	Indifference    int64
	HasIndifference bool
	Records         []record.Response
	Submission      *gate.Result
}

// #endregion types

// #region replay
// Replay feeds events to a fresh session of m, one at a time, in order.
// Rejected events are reported in their Step and do not stop the run.
func Replay(ctx context.Context, m *session.Machine, events []session.Event) ([]Step, Summary) {
	s := m.NewSession()
	steps := make([]Step, 0, len(events))
	sum := Summary{Decisions: make(map[session.Decision]int)}

	for i, ev := range events {
		out, err := m.Handle(ctx, s, ev)
		steps = append(steps, Step{Index: i, Event: ev, Outcome: out, Err: err})
		sum.Decisions[out.Decision]++
		if out.Submission != nil {
			sum.Submission = out.Submission
		}
	}

	sum.Events = len(events)
	sum.Phase = s.Phase()
	sum.Indifference, sum.HasIndifference = s.Indifference()
	sum.Records = s.Records()
	return steps, sum
}

// Machine builds the machine a fixture runs against: its protocol and
// language over cat, submitting to sh.
func (f *Fixture) Machine(cat *catalog.Catalog, sh sheet.Sheet, opts ...session.Option) (*session.Machine, error) {
	r := question.NewRenderer(f.Lang)
	p, err := protocol.New(protocol.Name(f.Protocol), cat, r)
	if err != nil {
		return nil, fmt.Errorf("fixture protocol: %w", err)
	}
	return session.NewMachine(p, cat.Survey(r.Language()), gate.New(sh), opts...), nil
}

// Run replays f against an in-memory sheet.
func Run(ctx context.Context, f *Fixture, cat *catalog.Catalog, opts ...session.Option) ([]Step, Summary, error) {
	sh := sheet.NewMemory()
	sh.SetFail(f.SheetUnavailable)
	m, err := f.Machine(cat, sh, opts...)
	if err != nil {
		return nil, Summary{}, err
	}
	steps, sum := Replay(ctx, m, f.SessionEvents())
	return steps, sum, nil
}

// #endregion replay
