package main

import (
	"fmt"
	"os"

	"archon/internal/config"
	"archon/internal/logging"

	"github.com/spf13/cobra"
)

var (
	debugFlag bool
	cfg       *config.Config

	rootCmd = &cobra.Command{
		Use:   "archon",
		Short: "archon runs workflow definitions against an AI coding assistant",
		Long: `archon dispatches YAML-defined step and loop workflows against a
claude or codex subprocess, relaying progress to a chat/VCS platform and
persisting run state for at-most-one-active-run-per-conversation
semantics.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig, initLogging)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(workflowsListCmd)
	workflowsCmd.AddCommand(workflowsValidateCmd)
}

func initConfig() {
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "archon: loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
}

func initLogging() {
	logging.Initialize(debugFlag)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
