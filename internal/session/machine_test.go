package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/sheet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region helpers
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 19, 14, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingObserver struct {
	mu  sync.Mutex
	all []Transition
}

func (o *recordingObserver) Observe(_ context.Context, t Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.all = append(o.all, t)
}

type fixture struct {
	machine *Machine
	sheet   *sheet.Memory
	clock   *fakeClock
	events  *recordingObserver
}

func newFixture(t *testing.T, name protocol.Name) *fixture {
	t.Helper()
	cat := catalog.Default()
	p, err := protocol.New(name, cat, question.NewRenderer("en"))
	require.NoError(t, err)

	f := &fixture{sheet: sheet.NewMemory(), clock: newFakeClock(), events: &recordingObserver{}}
	g := gate.New(f.sheet, gate.WithClock(f.clock.Now))
	f.machine = NewMachine(p, cat.Survey("en"), g, WithClock(f.clock.Now), WithObserver(f.events))
	return f
}

var surveyAnswers = []string{"34", "Female", "3", "Student", "30,000,000", "0", "100000000", "7", "Will improve", "2"}

func mustHandle(t *testing.T, m *Machine, s *Session, ev Event) Outcome {
	t.Helper()
	out, err := m.Handle(context.Background(), s, ev)
	require.NoError(t, err)
	return out
}

// runChoices answers every choice question with side and returns the count.
func runChoices(t *testing.T, m *Machine, s *Session, side record.Side) int {
	t.Helper()
	n := 0
	for s.Phase() == PhaseChoice {
		out := mustHandle(t, m, s, Choose(side))
		require.Equal(t, DecisionRecorded, out.Decision)
		n++
	}
	return n
}

func runSurvey(t *testing.T, m *Machine, s *Session) Outcome {
	t.Helper()
	var out Outcome
	for _, a := range surveyAnswers {
		out = mustHandle(t, m, s, Answer(a))
		require.Equal(t, DecisionRecorded, out.Decision, "answer %q", a)
	}
	return out
}

// #endregion helpers

// #region full-run-tests
func TestHandle_FixedFullRun(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()

	out := mustHandle(t, f.machine, s, Start("  p-01 "))
	assert.Equal(t, DecisionStarted, out.Decision)
	assert.Equal(t, "p-01", s.Participant())

	assert.Equal(t, 30, runChoices(t, f.machine, s, record.LL))
	require.Equal(t, PhaseSurvey, s.Phase())

	last := runSurvey(t, f.machine, s)
	require.NotNil(t, last.Submission)
	assert.True(t, last.Submission.OK)
	assert.Equal(t, PhaseDone, last.Phase)

	recs := s.Records()
	assert.Len(t, recs, 40)
	assert.Equal(t, 40, f.machine.TotalRecords())

	rows, err := f.sheet.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 41)
	for _, r := range rows[1:] {
		assert.Equal(t, "p-01", r[0])
		assert.Equal(t, last.Submission.SubmittedAt, r[7])
	}
	assert.Equal(t, 1, f.sheet.Batches())

	at, done := s.FinishedAt()
	assert.True(t, done)
	assert.Equal(t, f.clock.Now(), at)
}

func TestHandle_StaircaseFullRun(t *testing.T) {
	f := newFixture(t, protocol.NameStaircase)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-02"))

	assert.Equal(t, 13, runChoices(t, f.machine, s, record.SS))
	out := runSurvey(t, f.machine, s)
	assert.Equal(t, PhaseDone, out.Phase)

	recs := s.Records()
	require.Len(t, recs, 23)

	indiff, ok := s.Indifference()
	require.True(t, ok)
	assert.Equal(t, protocol.AnomalyBlock, recs[9].Block)
	assert.Equal(t, 1, recs[9].Item)
	assert.Equal(t, indiff, recs[9].LLAmount, "present-bias item is calibrated by the first phase")
}

func TestHandle_FixedRecordsFollowTable(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-03"))
	runChoices(t, f.machine, s, record.SS)

	task := catalog.Default().Tasks[0]
	recs := s.Records()
	for i := 0; i < catalog.AmountCount; i++ {
		assert.Equal(t, task.ID, recs[i].Block)
		assert.Equal(t, i+1, recs[i].Item)
		assert.Equal(t, "SS", recs[i].Choice)
	}
}

// #endregion full-run-tests

// #region guard-tests
func TestHandle_EmptyParticipantRejected(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()

	out, err := f.machine.Handle(context.Background(), s, Start("   "))
	assert.ErrorIs(t, err, ErrEmptyParticipant)
	assert.Equal(t, DecisionRejected, out.Decision)
	assert.Equal(t, PhaseIntro, s.Phase())
	assert.Empty(t, s.Records())
}

func TestHandle_WrongPhaseIgnored(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()

	out := mustHandle(t, f.machine, s, Choose(record.LL))
	assert.Equal(t, DecisionIgnored, out.Decision)

	mustHandle(t, f.machine, s, Start("p-04"))
	out = mustHandle(t, f.machine, s, Answer("34"))
	assert.Equal(t, DecisionIgnored, out.Decision)
	out = mustHandle(t, f.machine, s, Start("p-05"))
	assert.Equal(t, DecisionIgnored, out.Decision)
	assert.Equal(t, "p-04", s.Participant())
	assert.Empty(t, s.Records())
}

func TestHandle_InvalidChoiceRejected(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-06"))

	out, err := f.machine.Handle(context.Background(), s, Choose("MID"))
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.Equal(t, DecisionRejected, out.Decision)
	assert.Empty(t, s.Records())
}

func TestHandle_BusyEventIgnored(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-07"))

	require.True(t, s.guard.TryAcquire(1))
	out := mustHandle(t, f.machine, s, Choose(record.LL))
	s.guard.Release(1)

	assert.Equal(t, DecisionIgnored, out.Decision)
	assert.Equal(t, "busy", out.Reason)
	assert.Empty(t, s.Records())
}

func TestHandle_ConcurrentChoicesNeverDuplicate(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-08"))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.machine.Handle(context.Background(), s, Choose(record.LL))
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, r := range s.Records() {
		key := fmt.Sprintf("%s/%d", r.Block, r.Item)
		assert.False(t, seen[key], "duplicate record for %s", key)
		seen[key] = true
	}
	assert.LessOrEqual(t, len(s.Records()), 30)
}

func TestHandle_ProtocolMismatch(t *testing.T) {
	fixed := newFixture(t, protocol.NameFixed)
	stair := newFixture(t, protocol.NameStaircase)
	s := stair.machine.NewSession()

	_, err := fixed.machine.Handle(context.Background(), s, Start("p-09"))
	assert.ErrorIs(t, err, ErrProtocolMismatch)
	assert.Equal(t, PhaseIntro, s.Phase())
}

// #endregion guard-tests

// #region survey-tests
func TestHandle_InvalidAnswerRePrompts(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-10"))
	runChoices(t, f.machine, s, record.LL)

	for _, bad := range []string{"", "abc", "17", "101", "3.5"} {
		out, err := f.machine.Handle(context.Background(), s, Answer(bad))
		assert.ErrorIs(t, err, ErrInvalidAnswer, "answer %q", bad)
		assert.Equal(t, DecisionRejected, out.Decision)
	}
	assert.Len(t, s.Records(), 30)
	assert.Equal(t, "age", f.machine.View(s).Survey.ID)

	mustHandle(t, f.machine, s, Answer("40"))
	assert.Equal(t, "gender", f.machine.View(s).Survey.ID)
}

func TestHandle_SubmissionFailureEndsUnsaved(t *testing.T) {
	f := newFixture(t, protocol.NameStaircase)
	f.sheet.SetFail(true)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Start("p-11"))
	runChoices(t, f.machine, s, record.LL)

	out := runSurvey(t, f.machine, s)
	require.NotNil(t, out.Submission)
	assert.False(t, out.Submission.OK)
	assert.ErrorIs(t, out.Submission.Err, sheet.ErrUnavailable)
	assert.Equal(t, PhaseDoneUnsaved, s.Phase())
	assert.Len(t, s.Records(), 23)

	// Finished sessions accept nothing, including a second submission.
	f.sheet.SetFail(false)
	again := mustHandle(t, f.machine, s, Answer("2"))
	assert.Equal(t, DecisionIgnored, again.Decision)
	assert.Equal(t, 0, f.sheet.Batches())

	res, ok := s.Submission()
	require.True(t, ok)
	assert.False(t, res.OK)
}

// #endregion survey-tests

// #region timing-tests
func TestHandle_ReactionTimes(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()

	f.clock.Advance(time.Minute)
	mustHandle(t, f.machine, s, Start("p-12"))

	f.clock.Advance(1500 * time.Millisecond)
	first := mustHandle(t, f.machine, s, Choose(record.LL))
	f.clock.Advance(2250 * time.Millisecond)
	second := mustHandle(t, f.machine, s, Choose(record.SS))

	assert.Equal(t, 1.5, first.Record.RTSec, "timer starts when the first question is shown")
	assert.Equal(t, 2.25, second.Record.RTSec)
}

// #endregion timing-tests

// #region observer-tests
func TestHandle_ObserverSeesTransitions(t *testing.T) {
	f := newFixture(t, protocol.NameFixed)
	s := f.machine.NewSession()
	mustHandle(t, f.machine, s, Choose(record.LL))
	mustHandle(t, f.machine, s, Start("p-13"))
	mustHandle(t, f.machine, s, Choose(record.LL))

	require.Len(t, f.events.all, 3)
	assert.Equal(t, DecisionIgnored, f.events.all[0].Decision)
	assert.Equal(t, PhaseIntro, f.events.all[1].From)
	assert.Equal(t, PhaseChoice, f.events.all[1].To)
	assert.Equal(t, "t1_small_gain", f.events.all[2].Block)
	assert.Equal(t, 0, f.events.all[2].Step)
	assert.Equal(t, "p-13", f.events.all[2].Participant)
}

// #endregion observer-tests

// #region view-tests
func TestView_Progress(t *testing.T) {
	f := newFixture(t, protocol.NameStaircase)
	s := f.machine.NewSession()

	v := f.machine.View(s)
	assert.Equal(t, PhaseIntro, v.Phase)
	assert.Nil(t, v.Question)
	assert.Equal(t, 23, v.Total)

	mustHandle(t, f.machine, s, Start("p-14"))
	mustHandle(t, f.machine, s, Choose(record.LL))
	v = f.machine.View(s)
	require.NotNil(t, v.Question)
	assert.Equal(t, 1, v.Answered)
	assert.Equal(t, 1, v.Step)
	assert.Equal(t, v.Block, v.Question.Block)
}

// #endregion view-tests
