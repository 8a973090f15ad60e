package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

// #region fixture-types

// Fixture is a scripted participant: the events to feed a session and what
// the run must produce.
type Fixture struct {
	Description      string          `json:"description"`
	Protocol         string          `json:"protocol"`
	Lang             string          `json:"lang"`
	SheetUnavailable bool            `json:"sheet_unavailable"`
	Events           []FixtureEvent  `json:"events"`
	Expected         FixtureExpected `json:"expected"`
}

// FixtureEvent mirrors session.Event with JSON tags.
type FixtureEvent struct {
	Kind        string `json:"kind"`
	Participant string `json:"participant,omitempty"`
	Side        string `json:"side,omitempty"`
	Answer      string `json:"answer,omitempty"`
}

// FixtureExpected captures the expected end state. Zero-valued fields are
// not checked, except Phase which is always compared.
type FixtureExpected struct {
	Phase        string            `json:"phase"`
	Records      int               `json:"records"`
	Decisions    map[string]int    `json:"decisions,omitempty"`
	Indifference int64             `json:"indifference,omitempty"`
	Choices      []record.Response `json:"choices,omitempty"` // leading records, rt_sec ignored
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToEvent converts a FixtureEvent to a session event.
func (fe FixtureEvent) ToEvent() session.Event {
	return session.Event{
		Kind:          session.EventKind(fe.Kind),
		ParticipantID: fe.Participant,
		Side:          record.Side(fe.Side),
		Answer:        fe.Answer,
	}
}

// SessionEvents converts every scripted event.
func (f *Fixture) SessionEvents() []session.Event {
	out := make([]session.Event, len(f.Events))
	for i, fe := range f.Events {
		out[i] = fe.ToEvent()
	}
	return out
}

// #endregion fixture-loader

// #region verify

// Verify compares a run summary against the fixture expectations and returns
// one message per mismatch.
func (f *Fixture) Verify(sum Summary) []string {
	var diffs []string
	exp := f.Expected

	if string(sum.Phase) != exp.Phase {
		diffs = append(diffs, fmt.Sprintf("phase: expected %s, got %s", exp.Phase, sum.Phase))
	}
	if exp.Records > 0 && len(sum.Records) != exp.Records {
		diffs = append(diffs, fmt.Sprintf("records: expected %d, got %d", exp.Records, len(sum.Records)))
	}
	for d, n := range exp.Decisions {
		if got := sum.Decisions[session.Decision(d)]; got != n {
			diffs = append(diffs, fmt.Sprintf("decisions[%s]: expected %d, got %d", d, n, got))
		}
	}
	if exp.Indifference != 0 && sum.Indifference != exp.Indifference {
		diffs = append(diffs, fmt.Sprintf("indifference: expected %d, got %d", exp.Indifference, sum.Indifference))
	}
	if len(exp.Choices) > 0 {
		got := sum.Records
		if len(got) > len(exp.Choices) {
			got = got[:len(exp.Choices)]
		}
		if d := cmp.Diff(exp.Choices, got, cmpopts.IgnoreFields(record.Response{}, "RTSec")); d != "" {
			diffs = append(diffs, "choices (-want +got):\n"+d)
		}
	}
	return diffs
}

// #endregion verify
