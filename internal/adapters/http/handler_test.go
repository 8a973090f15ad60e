package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	httpadapter "github.com/danielpatrickdp/choice-experiment/internal/adapters/http"
	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
	"github.com/danielpatrickdp/choice-experiment/internal/sheet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	handler http.Handler
	sheet   *sheet.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat := catalog.Default()
	r := question.NewRenderer("en")
	sh := sheet.NewMemory()
	g := gate.New(sh)

	var machines []*session.Machine
	for _, name := range []protocol.Name{protocol.NameFixed, protocol.NameStaircase} {
		p, err := protocol.New(name, cat, r)
		require.NoError(t, err)
		machines = append(machines, session.NewMachine(p, cat.Survey("en"), g))
	}

	return &testServer{
		handler: httpadapter.NewServer(session.NewRegistry(), protocol.NameStaircase, nil, machines...),
		sheet:   sh,
	}
}

type sessionBody struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Phase    string `json:"phase"`
	Block    string `json:"block"`
	Step     int    `json:"step"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
	Question *struct {
		Prompt string `json:"prompt"`
		SS     struct {
			Amount int64  `json:"amount"`
			Label  string `json:"label"`
		} `json:"ss"`
		LL struct {
			Amount int64  `json:"amount"`
			Label  string `json:"label"`
		} `json:"ll"`
	} `json:"question"`
	Survey *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"survey"`
	SubmittedAt string `json:"submitted_at"`
}

type eventBody struct {
	Decision string      `json:"decision"`
	Session  sessionBody `json:"session"`
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T, body string) sessionBody {
	t.Helper()
	w := s.do(t, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out sessionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeEvent(t *testing.T, w *httptest.ResponseRecorder) eventBody {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out eventBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSession_DefaultsAndExplicit(t *testing.T) {
	srv := newTestServer(t)

	def := srv.create(t, "")
	assert.Equal(t, "staircase", def.Protocol)
	assert.Equal(t, "intro", def.Phase)
	assert.Equal(t, 23, def.Total)
	assert.NotEmpty(t, def.ID)

	fixed := srv.create(t, `{"protocol":"fixed"}`)
	assert.Equal(t, "fixed", fixed.Protocol)
	assert.Equal(t, 40, fixed.Total)

	w := srv.do(t, http.MethodPost, "/sessions", `{"protocol":"bisection"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/sessions", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionFlow_FixedToDone(t *testing.T) {
	srv := newTestServer(t)
	s := srv.create(t, `{"protocol":"fixed"}`)
	base := "/sessions/" + s.ID

	ev := decodeEvent(t, srv.do(t, http.MethodPost, base+"/start", `{"participant_id":"p-01"}`))
	assert.Equal(t, "started", ev.Decision)
	require.NotNil(t, ev.Session.Question)
	assert.Equal(t, int64(500000), ev.Session.Question.SS.Amount)
	assert.Equal(t, int64(505000), ev.Session.Question.LL.Amount)
	assert.Contains(t, ev.Session.Question.LL.Label, "505,000")

	for i := 0; i < 30; i++ {
		ev = decodeEvent(t, srv.do(t, http.MethodPost, base+"/choice", `{"side":"ll"}`))
		assert.Equal(t, "recorded", ev.Decision)
	}
	require.Equal(t, "survey", ev.Session.Phase)
	require.NotNil(t, ev.Session.Survey)
	assert.Equal(t, "age", ev.Session.Survey.ID)

	for _, a := range []string{"34", "Female", "3", "Student", "30,000,000", "0", "100000000", "7", "Will improve", "2"} {
		body, _ := json.Marshal(map[string]string{"answer": a})
		ev = decodeEvent(t, srv.do(t, http.MethodPost, base+"/answer", string(body)))
	}
	assert.Equal(t, "done", ev.Session.Phase)
	assert.Equal(t, 40, ev.Session.Answered)
	assert.NotEmpty(t, ev.Session.SubmittedAt)
	assert.Equal(t, 1, srv.sheet.Batches())

	w := srv.do(t, http.MethodPost, base+"/choice", `{"side":"LL"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "finished sessions ignore events")
}

func TestSessionFlow_Errors(t *testing.T) {
	srv := newTestServer(t)
	s := srv.create(t, "")
	base := "/sessions/" + s.ID

	w := srv.do(t, http.MethodPost, base+"/choice", `{"side":"LL"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "choice before start")

	w = srv.do(t, http.MethodPost, base+"/start", `{"participant_id":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, base+"/start", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	decodeEvent(t, srv.do(t, http.MethodPost, base+"/start", `{"participant_id":"p-02"}`))

	w = srv.do(t, http.MethodPost, base+"/choice", `{"side":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, base+"/answer", `{"answer":"34"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "answer during choice phase")

	w = srv.do(t, http.MethodGet, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPost, "/sessions/missing/choice", `{"side":"SS"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionFlow_SubmissionFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.sheet.SetFail(true)
	s := srv.create(t, `{"protocol":"staircase"}`)
	base := "/sessions/" + s.ID

	decodeEvent(t, srv.do(t, http.MethodPost, base+"/start", `{"participant_id":"p-03"}`))
	for i := 0; i < 13; i++ {
		decodeEvent(t, srv.do(t, http.MethodPost, base+"/choice", `{"side":"SS"}`))
	}
	var ev eventBody
	for _, a := range []string{"34", "1", "1", "1", "0", "0", "0", "5", "1", "1"} {
		body, _ := json.Marshal(map[string]string{"answer": a})
		ev = decodeEvent(t, srv.do(t, http.MethodPost, base+"/answer", string(body)))
	}
	assert.Equal(t, "done_unsaved", ev.Session.Phase)
	assert.Equal(t, 23, ev.Session.Answered)

	w := srv.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got sessionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "done_unsaved", got.Phase)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodOptions, "/sessions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
