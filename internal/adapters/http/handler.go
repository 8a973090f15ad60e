package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

type Server struct {
	machines map[protocol.Name]*session.Machine
	fallback protocol.Name
	sessions *session.Registry
	logger   *zap.Logger
}

// NewServer serves sessions of every given machine. Sessions created without
// an explicit protocol use fallback.
func NewServer(reg *session.Registry, fallback protocol.Name, logger *zap.Logger, machines ...*session.Machine) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		machines: make(map[protocol.Name]*session.Machine, len(machines)),
		fallback: fallback,
		sessions: reg,
		logger:   logger,
	}
	for _, m := range machines {
		s.machines[m.Protocol().Name()] = m
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/start", s.handleStart)
	mux.HandleFunc("POST /sessions/{id}/choice", s.handleChoice)
	mux.HandleFunc("POST /sessions/{id}/answer", s.handleAnswer)

	return chainMiddlewares(mux, withLogging(logger), withCORS)
}

// #region dto

type createSessionRequest struct {
	Protocol string `json:"protocol,omitempty"`
}

type startRequest struct {
	ParticipantID string `json:"participant_id"`
}

type choiceRequest struct {
	Side string `json:"side"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type optionResponse struct {
	Side   string `json:"side"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type questionResponse struct {
	Block  string         `json:"block"`
	Step   int            `json:"step"`
	Kind   string         `json:"kind"`
	Prompt string         `json:"prompt"`
	SS     optionResponse `json:"ss"`
	LL     optionResponse `json:"ll"`
}

type surveyResponse struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Min     int64    `json:"min"`
	Max     int64    `json:"max"`
	Default int64    `json:"default,omitempty"`
}

type sessionResponse struct {
	ID          string            `json:"id"`
	Protocol    string            `json:"protocol"`
	Participant string            `json:"participant_id,omitempty"`
	Phase       string            `json:"phase"`
	Block       string            `json:"block,omitempty"`
	Step        int               `json:"step"`
	Answered    int               `json:"answered"`
	Total       int               `json:"total"`
	Question    *questionResponse `json:"question,omitempty"`
	Survey      *surveyResponse   `json:"survey,omitempty"`
	SubmittedAt string            `json:"submitted_at,omitempty"`
}

type eventResponse struct {
	Decision string           `json:"decision"`
	Record   *record.Response `json:"record,omitempty"`
	Session  sessionResponse  `json:"session"`
}

// #endregion dto

// #region handlers

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}

	name := s.fallback
	if p := strings.TrimSpace(req.Protocol); p != "" {
		name = protocol.Name(strings.ToLower(p))
	}
	m, ok := s.machines[name]
	if !ok {
		badRequest(w, "unknown protocol "+string(name))
		return
	}

	sess := m.NewSession()
	s.sessions.Put(sess)
	writeJSON(w, http.StatusCreated, toSessionResponse(m.View(sess)))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	m, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(m.View(sess)))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	s.handleEvent(w, r, session.Start(req.ParticipantID))
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	side, err := record.ParseSide(req.Side)
	if err != nil {
		badRequest(w, "side must be SS or LL")
		return
	}
	s.handleEvent(w, r, session.Choose(side))
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	s.handleEvent(w, r, session.Answer(req.Answer))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, ev session.Event) {
	m, sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	out, err := m.Handle(r.Context(), sess, ev)
	switch out.Decision {
	case session.DecisionRejected:
		if err == nil {
			err = errors.New(out.Reason)
		}
		badRequest(w, err.Error())
		return
	case session.DecisionIgnored:
		writeJSON(w, http.StatusConflict, map[string]string{"error": out.Reason})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Decision: string(out.Decision),
		Record:   out.Record,
		Session:  toSessionResponse(m.View(sess)),
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Machine, *session.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return nil, nil, false
		}
		internalError(w, err)
		return nil, nil, false
	}
	m, ok := s.machines[sess.Protocol()]
	if !ok {
		internalError(w, errors.New("no machine for protocol "+string(sess.Protocol())))
		return nil, nil, false
	}
	return m, sess, true
}

// #endregion handlers

// #region conversion

func toSessionResponse(v session.View) sessionResponse {
	resp := sessionResponse{
		ID:          v.SessionID,
		Protocol:    v.Protocol,
		Participant: v.Participant,
		Phase:       string(v.Phase),
		Block:       v.Block,
		Step:        v.Step,
		Answered:    v.Answered,
		Total:       v.Total,
		SubmittedAt: v.SubmittedAt,
	}
	if v.Question != nil {
		q := toQuestionResponse(*v.Question)
		resp.Question = &q
	}
	if v.Survey != nil {
		sv := toSurveyResponse(*v.Survey)
		resp.Survey = &sv
	}
	return resp
}

func toQuestionResponse(q question.Question) questionResponse {
	return questionResponse{
		Block:  q.Block,
		Step:   q.Step,
		Kind:   string(q.Kind),
		Prompt: q.Prompt,
		SS:     optionResponse{Side: string(q.SS.Side), Label: q.SS.Label, Amount: q.SS.Amount},
		LL:     optionResponse{Side: string(q.LL.Side), Label: q.LL.Label, Amount: q.LL.Amount},
	}
}

func toSurveyResponse(item catalog.SurveyItem) surveyResponse {
	return surveyResponse{
		ID:      item.ID,
		Type:    string(item.Type),
		Text:    item.Text,
		Options: item.Options,
		Min:     item.Min,
		Max:     item.Max,
		Default: item.Default,
	}
}

// #endregion conversion

// #region http-helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, _ error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

// #endregion http-helpers
