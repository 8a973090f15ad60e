package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/adapters/tui"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one participant session in the terminal",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.machine(cfg.ProtocolName())
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(tui.New(cmd.Context(), m, cfg.Lang), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run terminal session: %w", err)
	}

	s := final.(tui.Model).Session()
	logger.Info("session ended",
		zap.String("session_id", s.ID()),
		zap.String("participant", s.Participant()),
		zap.String("phase", string(s.Phase())),
		zap.Int("records", len(s.Records())))
	if s.Phase() == session.PhaseDoneUnsaved {
		fmt.Fprintln(cmd.ErrOrStderr(), "session finished but was not saved; run `experiment resubmit` later")
	}
	return nil
}
