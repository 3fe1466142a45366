package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/bedrockchat/internal/budget"
	"github.com/user/bedrockchat/internal/session"
	"github.com/user/bedrockchat/pkg/agent/bedrockrt"
)

var askShowTrace bool

func init() {
	askCmd.Flags().BoolVar(&askShowTrace, "trace", false, "print the step-grouped trace after the answer")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask the agent a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		if cfg.Agent.ID == "" {
			return fmt.Errorf("agent id not configured (set agent.id or BEDROCK_AGENT_ID)")
		}

		prompt := strings.Join(args, " ")

		guard, err := budget.New(cfg.Agent.Model, cfg.Agent.MaxInputTokens)
		if err != nil {
			return fmt.Errorf("create budget guard: %w", err)
		}
		if err := guard.Check(prompt); err != nil {
			return err
		}

		provider := bedrockrt.New(&bedrockrt.Config{
			BaseURL: cfg.Agent.BaseURL,
			APIKey:  cfg.Agent.APIKey,
		})

		sess := session.New()
		sess.Initialize()
		epoch := sess.SubmitUserMessage(prompt)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		resp, err := provider.InvokeAgent(ctx, cfg.Agent.ID, cfg.Agent.AliasID, string(sess.ID()), prompt)
		if err != nil {
			return fmt.Errorf("invoke agent: %w", err)
		}

		text, err := sess.ApplyAgentResponse(epoch, resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, text)

		if askShowTrace {
			summary := sess.Trace()
			if summary == nil || summary.TotalSteps == 0 {
				fmt.Fprintln(os.Stdout, "\n(no trace)")
				return nil
			}
			fmt.Fprintln(os.Stdout)
			for _, phase := range summary.Phases {
				fmt.Fprintf(os.Stdout, "%s\n", phase.Phase)
				if !phase.HasTrace {
					fmt.Fprintln(os.Stdout, "  no trace")
					continue
				}
				for _, step := range phase.Steps {
					fmt.Fprintf(os.Stdout, "  Step %d: %d event(s)\n", step.Number, len(step.Events))
				}
			}
		}
		return nil
	},
}
