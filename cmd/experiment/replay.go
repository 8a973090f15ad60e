package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/choice-experiment/internal/replay"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

var (
	replayFixtures []string
	replayVerbose  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay --fixture f.json [--fixture g.json]",
	Short: "Replay scripted participants and check their expected outcome",
	Long: `Feeds the events of each fixture to a fresh session backed by an in-memory
sheet, then compares phase, record count, decisions and choice amounts with the
fixture's expectations. Exits non-zero on any mismatch.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringSliceVar(&replayFixtures, "fixture", nil, "fixture JSON file (repeatable)")
	replayCmd.Flags().BoolVar(&replayVerbose, "steps", false, "print every replayed event")
	_ = replayCmd.MarkFlagRequired("fixture")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range replayFixtures {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		steps, sum, err := replay.Run(cmd.Context(), f, cat)
		if err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}

		if replayVerbose {
			fmt.Fprintln(out, stepsTable(steps))
		}

		diffs := f.Verify(sum)
		status := "ok"
		if len(diffs) > 0 {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "%-4s %s  phase=%s records=%d recorded=%d ignored=%d rejected=%d\n",
			status, path, sum.Phase, len(sum.Records),
			sum.Decisions[session.DecisionRecorded],
			sum.Decisions[session.DecisionIgnored],
			sum.Decisions[session.DecisionRejected])
		for _, d := range diffs {
			fmt.Fprintln(out, "     "+strings.ReplaceAll(d, "\n", "\n     "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, len(replayFixtures))
	}
	return nil
}

func stepsTable(steps []replay.Step) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "event", "input", "decision", "phase", "record")
	for _, s := range steps {
		input := s.Event.ParticipantID + string(s.Event.Side) + s.Event.Answer
		rec := ""
		if r := s.Outcome.Record; r != nil {
			rec = fmt.Sprintf("%s/%d %s", r.Block, r.Item, r.Choice)
			if !r.IsSurvey() {
				rec += fmt.Sprintf(" %d vs %d", r.SSAmount, r.LLAmount)
			}
		}
		decision := string(s.Outcome.Decision)
		if s.Err != nil {
			decision += ": " + s.Err.Error()
		}
		t.Row(fmt.Sprint(s.Index+1), string(s.Event.Kind), input, decision, string(s.Outcome.Phase), rec)
	}
	return t.String()
}
