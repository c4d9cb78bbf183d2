package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"archon/internal/engine"
	"archon/internal/engine/telemetry"
	"archon/internal/platform"
	"archon/internal/store"
	"archon/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	runConversationID string
	runCodebaseID     string
	runMessage        string
	runCwd            string
	runDBPath         string
	runIssueContext   string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Dispatch a workflow by name against the local working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		result, err := workflows.NewLoader(cfg.WorkflowDirs...).LoadAll()
		if err != nil {
			return fmt.Errorf("loading workflows: %w", err)
		}

		var def *workflows.Definition
		for _, wf := range result.Workflows {
			if wf.Definition.Name == name {
				def = wf.Definition
				break
			}
		}
		if def == nil {
			return fmt.Errorf("workflow %q not found under %v", name, cfg.WorkflowDirs)
		}

		st, err := openStore(runDBPath)
		if err != nil {
			return err
		}

		tel, err := telemetry.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "archon: telemetry disabled: %v\n", err)
			tel = nil
		}

		disp := engine.NewDispatcher(st, cfg, tel)
		plat := platform.NewConsolePlatform(true)

		cwd := runCwd
		if cwd == "" {
			cwd, err = os.Getwd()
			if err != nil {
				return err
			}
		}
		cwd, err = filepath.Abs(cwd)
		if err != nil {
			return err
		}

		issue := engine.IssueContext{Text: runIssueContext, Present: runIssueContext != ""}
		disp.Dispatch(context.Background(), def, plat, runConversationID, runCodebaseID, runMessage, cwd, issue)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConversationID, "conversation", "cli", "conversation id the run is scoped to (at-most-one-active-run)")
	runCmd.Flags().StringVar(&runCodebaseID, "codebase", "", "codebase id recorded on the run")
	runCmd.Flags().StringVar(&runMessage, "message", "", "user message substituted into the workflow's prompt(s)")
	runCmd.Flags().StringVar(&runCwd, "cwd", "", "working tree the assistant operates in (default: current directory)")
	runCmd.Flags().StringVar(&runDBPath, "db", "archon.db", "SQLite database path for run state")
	runCmd.Flags().StringVar(&runIssueContext, "context", "", "external context (issue/PR body) fed to $CONTEXT substitution")
}

func openStore(path string) (store.Store, error) {
	if path == ":memory:" {
		return store.NewMemoryStore(), nil
	}
	return store.Open(path)
}
