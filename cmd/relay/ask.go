package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/line-relay/backend/internal/service/ai"
	"github.com/zhouzirui/line-relay/backend/internal/service/postprocess"
)

func newAskCmd(rt *rootState) *cobra.Command {
	var personaKey string

	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Send one prompt through the provider chain and print the processed reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rt.cfg

			personas, err := loadPersonas(cfg)
			if err != nil {
				return err
			}
			gateway, err := newGateway(ctx, cfg, rt.logger)
			if err != nil {
				return err
			}

			p := personas.Resolve(personaKey)
			prompt := ai.NewPromptBuilder("").Build(&p, strings.Join(args, " "))

			res := gateway.Ask(ctx, prompt)
			out := cmd.OutOrStdout()
			for _, attempt := range res.Errors {
				fmt.Fprintf(out, "failed: %s: %s\n", attempt.Provider, attempt.Message)
			}
			if !res.OK() {
				return fmt.Errorf("all %d providers failed", len(gateway.Providers()))
			}

			fmt.Fprintf(out, "provider: %s\n\n%s\n", res.Provider, postprocess.Process(res.Text, replyPolicy(cfg)))
			return nil
		},
	}

	cmd.Flags().StringVar(&personaKey, "persona", "general", "persona key used for the system directive")
	return cmd
}
