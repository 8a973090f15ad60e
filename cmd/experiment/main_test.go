package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/config"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/logging"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Protocol:                "staircase",
		Lang:                    "en",
		DB:                      filepath.Join(t.TempDir(), "experiment.db"),
		LogLevel:                "info",
		LogFormat:               "json",
		ResubmitMaxTries:        2,
		ResubmitInitialInterval: time.Millisecond,
		ResubmitMaxInterval:     2 * time.Millisecond,
	}
}

// finishSession runs a staircase session through to submission.
func finishSession(t *testing.T, m *session.Machine, participant string) *session.Session {
	t.Helper()
	ctx := context.Background()
	s := m.NewSession()
	_, err := m.Handle(ctx, s, session.Start(participant))
	require.NoError(t, err)
	for s.Phase() == session.PhaseChoice {
		_, err = m.Handle(ctx, s, session.Choose(record.LL))
		require.NoError(t, err)
	}
	for _, ans := range []string{"30", "1", "1", "1", "0", "0", "0", "5", "1", "1"} {
		_, err = m.Handle(ctx, s, session.Answer(ans))
		require.NoError(t, err)
	}
	return s
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("EXPERIMENT_PROTOCOL", "staircase")
	t.Setenv("EXPERIMENT_LANG", "ko")
	flagProtocol, flagLang = "fixed", ""
	t.Cleanup(func() { flagProtocol = "" })

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, protocol.NameFixed, c.ProtocolName())
	assert.Equal(t, "ko", c.Lang)
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	flagProtocol = "bisection"
	t.Cleanup(func() { flagProtocol = "" })

	_, err := loadConfig()
	assert.ErrorIs(t, err, protocol.ErrUnknownProtocol)
}

func TestApp_SessionIsLoggedAndSaved(t *testing.T) {
	ctx := context.Background()
	a, err := openApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	m, err := a.machine(protocol.NameStaircase)
	require.NoError(t, err)
	s := finishSession(t, m, "p-01")
	require.Equal(t, session.PhaseDone, s.Phase())

	rows, err := a.sheet.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 24)

	events, err := a.events.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 24, "start, 13 choices and 10 answers")
	assert.Equal(t, "done", events[0].ToPhase)
}

func TestPruneLoop_EvictsFinishedSessions(t *testing.T) {
	prev := logger
	logger = zap.NewNop()
	t.Cleanup(func() { logger = prev })

	a, err := openApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	m, err := a.machine(protocol.NameStaircase)
	require.NoError(t, err)

	reg := session.NewRegistry()
	done := finishSession(t, m, "p-01")
	live := m.NewSession()
	reg.Put(done)
	reg.Put(live)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pruneLoop(ctx, reg, 10*time.Millisecond, func() time.Time { return time.Now().Add(time.Hour) })
		close(stopped)
	}()

	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-stopped

	_, err = reg.Get(live.ID())
	assert.NoError(t, err)
	_, err = reg.Get(done.ID())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestBuildReport(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rep := buildReport("x.db", 41,
		[]gate.Pending{{ID: "sp-1", Participant: "p-01", SubmittedAt: "2026-10-19 09:00:00", Records: make([]record.Response, 23), Attempts: 2, LastError: "sheet unavailable"}},
		[]logging.EventEntry{
			{SessionID: "s2", Event: "choose", CreatedAt: at.Add(time.Second)},
			{SessionID: "s1", Event: "start", CreatedAt: at},
		})

	require.Len(t, rep.Pending, 1)
	assert.Equal(t, 23, rep.Pending[0].Records)
	require.Len(t, rep.Events, 2)
	assert.Equal(t, "start", rep.Events[0].Event, "chronological order")

	var buf bytes.Buffer
	printReport(&buf, rep)
	assert.Contains(t, buf.String(), "sp-1")
	assert.Contains(t, buf.String(), "sheet rows: 41")

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"sheet_rows":41`))
}

func TestRunReplay_Fixtures(t *testing.T) {
	cfg = testConfig(t)
	replayFixtures = []string{
		filepath.Join("..", "..", "internal", "replay", "testdata", "staircase_session.json"),
		filepath.Join("..", "..", "internal", "replay", "testdata", "fixed_unsaved.json"),
	}
	replayVerbose = true
	t.Cleanup(func() { replayFixtures, replayVerbose = nil, false })

	var out bytes.Buffer
	replayCmd.SetOut(&out)
	replayCmd.SetContext(context.Background())
	require.NoError(t, runReplay(replayCmd, nil))
	assert.Equal(t, 2, strings.Count(out.String(), "ok   "))
}
