package main

import (
	"fmt"

	"archon/internal/workflows"

	"github.com/spf13/cobra"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Inspect workflow definitions under the configured search paths",
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every workflow that loads and validates successfully",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := workflows.NewLoader(cfg.WorkflowDirs...).LoadAll()
		if err != nil {
			return err
		}
		for _, wf := range result.Workflows {
			shape := "steps"
			if wf.Definition.IsLoop() {
				shape = "loop"
			}
			fmt.Printf("%-30s %-6s %s\n", wf.Definition.Name, shape, wf.FilePath)
		}
		if len(result.Errors) > 0 {
			fmt.Printf("\n%d file(s) skipped:\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Printf("  %s: %v\n", e.FilePath, e.Error)
			}
		}
		return nil
	},
}

var workflowsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a single workflow YAML file, printing every issue found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := workflows.NewLoader()
		wf, err := loader.LoadFile(args[0])
		if err != nil {
			fmt.Printf("invalid: %v\n", err)
			return err
		}
		fmt.Printf("valid: %s (%s)\n", wf.Definition.Name, args[0])
		return nil
	},
}
