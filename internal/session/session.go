package session

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region session
// Session is the mutable state of one participant run. It is only mutated by
// Machine.Handle; guard admits one in-flight event, mu protects reads.
type Session struct {
	guard *semaphore.Weighted
	mu    sync.Mutex

	id          string
	protocol    protocol.Name
	participant string
	phase       Phase
	cursor      protocol.Cursor
	surveyStep  int
	records     []record.Response

	questionStartedAt time.Time
	submission        *gate.Result
	createdAt         time.Time
	finishedAt        time.Time
}

func newSession(id string, p protocol.Name, now time.Time) *Session {
	return &Session{
		guard:             semaphore.NewWeighted(1),
		id:                id,
		protocol:          p,
		phase:             PhaseIntro,
		questionStartedAt: now,
		createdAt:         now,
	}
}

// #endregion session

// #region accessors
func (s *Session) ID() string              { return s.id }
func (s *Session) Protocol() protocol.Name { return s.protocol }

func (s *Session) Participant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Records returns a copy of the responses in presentation order.
func (s *Session) Records() []record.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Response(nil), s.records...)
}

// Indifference returns the stored indifference value, if the staircase set one.
func (s *Session) Indifference() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Indifference, s.cursor.HasIndifference
}

// Submission returns the gate result once the session has finished.
func (s *Session) Submission() (gate.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submission == nil {
		return gate.Result{}, false
	}
	return *s.submission, true
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// FinishedAt returns when the session reached a terminal phase.
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, s.phase.Terminal()
}

// #endregion accessors
