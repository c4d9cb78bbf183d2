package main

import (
	"context"
	"fmt"
	"os"

	"archon/internal/assistant"
	"archon/internal/config"
	"archon/internal/router"
	"archon/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	routeMessage  string
	routePlatform string
	routeCwd      string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Pick a workflow for a free-text message via the router prompt",
	Long: `route sends --message through the workflow-selection prompt, asks the
configured assistant which workflow applies, and prints the chosen name
and any remaining message text. This is the Adapter -> Router step that
normally precedes 'archon run' in a platform integration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if routeMessage == "" {
			return fmt.Errorf("--message is required")
		}

		result, err := workflows.NewLoader(cfg.WorkflowDirs...).LoadAll()
		if err != nil {
			return fmt.Errorf("loading workflows: %w", err)
		}
		if len(result.Workflows) == 0 {
			return fmt.Errorf("no workflows found under %v", cfg.WorkflowDirs)
		}

		options := make([]router.WorkflowOption, len(result.Workflows))
		for i, wf := range result.Workflows {
			options[i] = router.WorkflowOption{Name: wf.Definition.Name, Description: wf.Definition.Description}
		}

		prompt := router.BuildPrompt(routeMessage, options, router.Context{PlatformType: routePlatform})

		asst := assistant.NewAssistant(assistant.ProviderClaude, assistant.Config{
			BinaryPath: cfg.Assistant.Claude.BinaryPath,
			Model:      cfg.Assistant.Claude.Model,
			MaxTurns:   cfg.Assistant.Claude.MaxTurns,
		})

		cwd := routeCwd
		if cwd == "" {
			var err error
			cwd, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		events, err := asst.SendQuery(context.Background(), prompt, cwd, "")
		if err != nil {
			return fmt.Errorf("routing query: %w", err)
		}

		var reply string
		for ev := range events {
			switch ev.Kind {
			case assistant.EventAssistant:
				reply += ev.Content
			case assistant.EventResult:
				if ev.Err != nil {
					return fmt.Errorf("routing query: %w", ev.Err)
				}
			}
		}

		parsed := router.Parse(reply, options)
		if parsed.WorkflowName == "" {
			fmt.Println("no workflow matched")
			return nil
		}
		fmt.Printf("workflow: %s\n", parsed.WorkflowName)
		if parsed.RemainingMessage != "" {
			fmt.Printf("remaining message: %s\n", parsed.RemainingMessage)
		}
		return nil
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeMessage, "message", "", "user message to route")
	routeCmd.Flags().StringVar(&routePlatform, "platform", "", "platform type hint (e.g. slack, github)")
	routeCmd.Flags().StringVar(&routeCwd, "cwd", "", "working tree passed to the assistant (default: current directory)")
}
