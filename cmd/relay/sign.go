package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/line-relay/backend/internal/service/line"
)

func newSignCmd(rt *rootState) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign <body-file|->",
		Short: "Print the X-Line-Signature value for a webhook body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = rt.cfg.LINE.ChannelSecret
			}
			if secret == "" {
				return errors.New("channel secret required: pass --secret or set LINE_CHANNEL_SECRET")
			}

			var (
				body []byte
				err  error
			)
			if args[0] == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), line.Sign(body, secret))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "channel secret (defaults to LINE_CHANNEL_SECRET)")
	return cmd
}
