package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"AgentTreasury/internal/recorder"
	"AgentTreasury/internal/store"
)

var stateEvents int

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted treasury state",
	Long: `Prints the state file as JSON. With --events N, also prints the N most
recent events from the SQLite journal.`,
	RunE: runState,
}

func init() {
	stateCmd.Flags().IntVar(&stateEvents, "events", 0, "number of recent journal events to include")
}

func runState(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, ok, err := store.LoadState(cfg.Treasury.StateFile)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no state file at %s", cfg.Treasury.StateFile)
	}

	out := map[string]any{"state": st}
	if stateEvents > 0 {
		if _, err := os.Stat(cfg.Database.SQLitePath); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, zap.NewNop())
		if err != nil {
			return err
		}
		defer rec.Close()
		evts, err := rec.Recent(stateEvents)
		if err != nil {
			return err
		}
		out["events"] = evts
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
