package session

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
)

// #region phase
// Phase is the coarse position of a session. Phases only move forward:
// intro → choice → survey → done | done_unsaved.
type Phase string

const (
	PhaseIntro       Phase = "intro"
	PhaseChoice      Phase = "choice"
	PhaseSurvey      Phase = "survey"
	PhaseDone        Phase = "done"
	PhaseDoneUnsaved Phase = "done_unsaved" // finished, but the submission failed
)

// Terminal reports whether p accepts no further events.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseDoneUnsaved
}

// #endregion phase

// #region event
// EventKind names the external events a session reacts to.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventChoose EventKind = "choose"
	EventAnswer EventKind = "answer"
)

// Event is a single participant action delivered by a render collaborator.
type Event struct {
	Kind          EventKind
	ParticipantID string      // EventStart
	Side          record.Side // EventChoose
	Answer        string      // EventAnswer, raw input
}

// Start, Choose and Answer build events.
func Start(participant string) Event { return Event{Kind: EventStart, ParticipantID: participant} }
func Choose(side record.Side) Event  { return Event{Kind: EventChoose, Side: side} }
func Answer(raw string) Event        { return Event{Kind: EventAnswer, Answer: raw} }

// #endregion event

// #region outcome
// Decision is what Handle did with an event.
type Decision string

const (
	DecisionStarted  Decision = "started"
	DecisionRecorded Decision = "recorded"
	DecisionIgnored  Decision = "ignored"  // no-op: busy, finished or wrong phase
	DecisionRejected Decision = "rejected" // validation failure, re-prompt
)

// Outcome reports the effect of one event.
type Outcome struct {
	Decision   Decision
	Phase      Phase
	Record     *record.Response
	Submission *gate.Result // set only on the final survey answer
	Reason     string
}

// #endregion outcome

// #region errors
var (
	ErrEmptyParticipant = errors.New("participant id is required")
	ErrInvalidAnswer    = errors.New("invalid answer")
	ErrInvalidChoice    = errors.New("choice must be SS or LL")
	ErrNotFound         = errors.New("session not found")
	ErrProtocolMismatch = errors.New("session belongs to another protocol")
)

// #endregion errors

// #region observer
// Transition describes one handled event for observers.
type Transition struct {
	SessionID   string
	Participant string
	Event       EventKind
	Decision    Decision
	From        Phase
	To          Phase
	Block       string
	Step        int
	Reason      string
	At          time.Time
}

// Observer receives every transition. Implementations must not block for long.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Transition) {}

// Submitter is the submission gate as seen by the machine.
type Submitter interface {
	Submit(ctx context.Context, participant string, records []record.Response) gate.Result
}

// #endregion observer

// #region view
// View is what a render collaborator needs to show the current step.
type View struct {
	SessionID   string
	Protocol    string
	Participant string
	Phase       Phase
	Block       string
	Step        int // 0-based within the block or survey
	Question    *question.Question
	Survey      *catalog.SurveyItem
	Answered    int
	Total       int
	SubmittedAt string
}

// #endregion view
