package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/logging"
)

var (
	inspectLast int
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show saved rows, unsaved batches and recent session events",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent events")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of tables")
}

// #region report

type eventRow struct {
	SessionID   string `json:"session_id"`
	Participant string `json:"participant,omitempty"`
	Event       string `json:"event"`
	Decision    string `json:"decision"`
	From        string `json:"from"`
	To          string `json:"to"`
	Block       string `json:"block,omitempty"`
	Step        int    `json:"step"`
	Reason      string `json:"reason,omitempty"`
	At          string `json:"at"`
}

type pendingRow struct {
	ID          string `json:"id"`
	Participant string `json:"participant"`
	SubmittedAt string `json:"submitted_at"`
	Records     int    `json:"records"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"last_error,omitempty"`
}

type report struct {
	DB        string       `json:"db"`
	SheetRows int          `json:"sheet_rows"`
	Pending   []pendingRow `json:"pending"`
	Events    []eventRow   `json:"events"`
}

// #endregion report

func runInspect(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	rows, err := a.sheet.Rows(ctx)
	if err != nil {
		return err
	}
	pending, err := a.spool.List(ctx)
	if err != nil {
		return err
	}
	events, err := a.events.Recent(ctx, inspectLast)
	if err != nil {
		return err
	}

	rep := buildReport(cfg.DB, len(rows), pending, events)
	if inspectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func buildReport(db string, sheetRows int, pending []gate.Pending, events []logging.EventEntry) report {
	rep := report{DB: db, SheetRows: sheetRows, Pending: []pendingRow{}, Events: []eventRow{}}
	for _, p := range pending {
		rep.Pending = append(rep.Pending, pendingRow{
			ID:          p.ID,
			Participant: p.Participant,
			SubmittedAt: p.SubmittedAt,
			Records:     len(p.Records),
			Attempts:    p.Attempts,
			LastError:   p.LastError,
		})
	}
	// Recent returns newest first; show chronologically.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		rep.Events = append(rep.Events, eventRow{
			SessionID:   e.SessionID,
			Participant: e.Participant,
			Event:       e.Event,
			Decision:    e.Decision,
			From:        e.FromPhase,
			To:          e.ToPhase,
			Block:       e.Block,
			Step:        e.Step,
			Reason:      e.Reason,
			At:          e.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rep
}

func printReport(w io.Writer, rep report) {
	fmt.Fprintf(w, "db: %s\nsheet rows: %d (including header)\n\n", rep.DB, rep.SheetRows)

	if len(rep.Pending) == 0 {
		fmt.Fprintln(w, "unsaved batches: none")
	} else {
		t := table.New().Border(lipgloss.NormalBorder()).
			Headers("spool id", "participant", "submitted_at", "records", "attempts", "last error")
		for _, p := range rep.Pending {
			t.Row(p.ID, p.Participant, p.SubmittedAt, fmt.Sprint(p.Records), fmt.Sprint(p.Attempts), p.LastError)
		}
		fmt.Fprintln(w, "unsaved batches:")
		fmt.Fprintln(w, t.String())
	}
	fmt.Fprintln(w)

	if len(rep.Events) == 0 {
		fmt.Fprintln(w, "no session events")
		return
	}
	t := table.New().Border(lipgloss.NormalBorder()).
		Headers("at", "session", "participant", "event", "decision", "phase", "block/step", "reason")
	for _, e := range rep.Events {
		sess := e.SessionID
		if len(sess) > 8 {
			sess = sess[:8]
		}
		pos := ""
		if e.Block != "" {
			pos = fmt.Sprintf("%s/%d", e.Block, e.Step+1)
		}
		t.Row(e.At, sess, e.Participant, e.Event, e.Decision, e.From+"→"+e.To, pos, e.Reason)
	}
	fmt.Fprintln(w, t.String())
}
