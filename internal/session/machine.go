package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region machine
// Machine drives sessions of one protocol from intro to submission.
type Machine struct {
	protocol protocol.Protocol
	survey   []catalog.SurveyItem
	gate     Submitter
	observer Observer
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the clock used for reaction times.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithObserver receives every transition.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// WithLogger attaches a zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// NewMachine wires a protocol, its survey items and the submission gate.
func NewMachine(p protocol.Protocol, survey []catalog.SurveyItem, g Submitter, opts ...Option) *Machine {
	m := &Machine{
		protocol: p,
		survey:   survey,
		gate:     g,
		observer: nopObserver{},
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return m
}

// Protocol returns the protocol this machine drives.
func (m *Machine) Protocol() protocol.Protocol { return m.protocol }

// Survey returns the survey items in presentation order.
func (m *Machine) Survey() []catalog.SurveyItem { return m.survey }

// TotalRecords is the number of responses a complete session holds.
func (m *Machine) TotalRecords() int {
	return protocol.TotalItems(m.protocol) + len(m.survey)
}

// NewSession creates a session in the intro phase.
func (m *Machine) NewSession() *Session {
	return newSession(uuid.NewString(), m.protocol.Name(), m.now())
}

// #endregion machine

// #region handle
// Handle applies one event. Events are admitted one at a time per session; an
// event arriving while another is in flight, after completion, or in the wrong
// phase is ignored. Validation failures are returned with a rejected outcome
// and leave the session unchanged. Submission failures never escape: they move
// the session to done_unsaved.
func (m *Machine) Handle(ctx context.Context, s *Session, ev Event) (Outcome, error) {
	if s.protocol != m.protocol.Name() {
		return Outcome{Decision: DecisionRejected, Reason: ErrProtocolMismatch.Error()},
			fmt.Errorf("handle %s: %w", s.id, ErrProtocolMismatch)
	}
	if !s.guard.TryAcquire(1) {
		out := Outcome{Decision: DecisionIgnored, Reason: "busy"}
		m.logger.Debug("event ignored", zap.String("session_id", s.id), zap.String("event", string(ev.Kind)), zap.String("reason", out.Reason))
		return out, nil
	}
	defer s.guard.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.phase
	block, step := m.position(s)

	var out Outcome
	var err error
	switch {
	case s.phase.Terminal():
		out = Outcome{Decision: DecisionIgnored, Reason: "session finished"}
	default:
		switch ev.Kind {
		case EventStart:
			out, err = m.start(s, ev)
		case EventChoose:
			out, err = m.choose(s, ev)
		case EventAnswer:
			out, err = m.answer(ctx, s, ev)
		default:
			out, err = Outcome{Decision: DecisionRejected, Reason: "unknown event"}, fmt.Errorf("unknown event kind %q", ev.Kind)
		}
	}
	out.Phase = s.phase

	m.observer.Observe(ctx, Transition{
		SessionID:   s.id,
		Participant: s.participant,
		Event:       ev.Kind,
		Decision:    out.Decision,
		From:        from,
		To:          s.phase,
		Block:       block,
		Step:        step,
		Reason:      out.Reason,
		At:          m.now(),
	})
	m.logger.Debug("event handled",
		zap.String("session_id", s.id),
		zap.String("event", string(ev.Kind)),
		zap.String("decision", string(out.Decision)),
		zap.String("block", block),
		zap.Int("step", step))
	if from != s.phase {
		m.logger.Info("phase changed",
			zap.String("session_id", s.id),
			zap.String("from", string(from)),
			zap.String("to", string(s.phase)))
	}
	return out, err
}

func (m *Machine) start(s *Session, ev Event) (Outcome, error) {
	if s.phase != PhaseIntro {
		return Outcome{Decision: DecisionIgnored, Reason: "already started"}, nil
	}
	id := strings.TrimSpace(ev.ParticipantID)
	if id == "" {
		return Outcome{Decision: DecisionRejected, Reason: ErrEmptyParticipant.Error()}, ErrEmptyParticipant
	}
	s.participant = id
	s.cursor = m.protocol.Start()
	s.phase = PhaseChoice
	if protocol.Done(m.protocol, s.cursor) {
		s.phase = PhaseSurvey
	}
	s.questionStartedAt = m.now()
	return Outcome{Decision: DecisionStarted}, nil
}

func (m *Machine) choose(s *Session, ev Event) (Outcome, error) {
	if s.phase != PhaseChoice {
		return Outcome{Decision: DecisionIgnored, Reason: "not in choice phase"}, nil
	}
	if ev.Side != record.SS && ev.Side != record.LL {
		return Outcome{Decision: DecisionRejected, Reason: ErrInvalidChoice.Error()}, ErrInvalidChoice
	}

	q := m.protocol.Question(s.cursor)
	r := m.record(s, record.Response{
		Block:    q.Block,
		Item:     q.Step + 1,
		Choice:   string(ev.Side),
		SSAmount: q.SS.Amount,
		LLAmount: q.LL.Amount,
	})

	s.cursor = m.protocol.Advance(s.cursor, ev.Side)
	if protocol.Done(m.protocol, s.cursor) {
		s.phase = PhaseSurvey
		s.surveyStep = 0
	}
	return Outcome{Decision: DecisionRecorded, Record: &r}, nil
}

func (m *Machine) answer(ctx context.Context, s *Session, ev Event) (Outcome, error) {
	if s.phase != PhaseSurvey {
		return Outcome{Decision: DecisionIgnored, Reason: "not in survey phase"}, nil
	}
	item := m.survey[s.surveyStep]
	value, err := NormalizeAnswer(item, ev.Answer)
	if err != nil {
		return Outcome{Decision: DecisionRejected, Reason: err.Error()}, err
	}

	r := m.record(s, record.Response{
		Block:    record.SurveyBlock,
		Item:     s.surveyStep + 1,
		Choice:   value,
		Question: item.Text,
	})
	out := Outcome{Decision: DecisionRecorded, Record: &r}

	if s.surveyStep < len(m.survey)-1 {
		s.surveyStep++
		return out, nil
	}

	res := m.submit(ctx, s)
	out.Submission = &res
	return out, nil
}

// submit runs the gate exactly once per session.
func (m *Machine) submit(ctx context.Context, s *Session) gate.Result {
	if s.submission != nil {
		return *s.submission
	}
	res := m.gate.Submit(ctx, s.participant, append([]record.Response(nil), s.records...))
	s.submission = &res
	s.finishedAt = m.now()
	if res.OK {
		s.phase = PhaseDone
		m.logger.Info("session submitted",
			zap.String("session_id", s.id),
			zap.String("participant", s.participant),
			zap.Int("rows", res.Rows),
			zap.String("submitted_at", res.SubmittedAt))
	} else {
		s.phase = PhaseDoneUnsaved
		m.logger.Error("session submission failed",
			zap.String("session_id", s.id),
			zap.String("participant", s.participant),
			zap.Bool("spooled", res.Spooled),
			zap.Error(res.Err))
	}
	return res
}

// position reports the block and 0-based step the session is currently on.
func (m *Machine) position(s *Session) (string, int) {
	switch s.phase {
	case PhaseChoice:
		if protocol.Done(m.protocol, s.cursor) {
			return "", 0
		}
		return m.protocol.Blocks()[s.cursor.Block].ID, s.cursor.Step
	case PhaseSurvey:
		return record.SurveyBlock, s.surveyStep
	}
	return "", 0
}

// #endregion handle

// #region view
// View resolves the current question for display.
func (m *Machine) View(s *Session) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:   s.id,
		Protocol:    string(s.protocol),
		Participant: s.participant,
		Phase:       s.phase,
		Answered:    len(s.records),
		Total:       m.TotalRecords(),
	}
	v.Block, v.Step = m.position(s)

	switch s.phase {
	case PhaseChoice:
		q := m.protocol.Question(s.cursor)
		v.Question = &q
	case PhaseSurvey:
		item := m.survey[s.surveyStep]
		v.Survey = &item
	case PhaseDone, PhaseDoneUnsaved:
		if s.submission != nil {
			v.SubmittedAt = s.submission.SubmittedAt
		}
	}
	return v
}

// #endregion view
