package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/config"
	"github.com/zhouzirui/line-relay/backend/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootState is shared by subcommands once the root pre-run has loaded it.
type rootState struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	rt := &rootState{}
	var (
		envFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "LINE conversational relay with multi-provider fallback",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envErr := godotenv.Load(envFile)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			level := cfg.LogLevel
			if strings.TrimSpace(logLevel) != "" {
				level = logLevel
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			if envErr != nil {
				logger.Debug("env file not loaded, using process environment only", zap.String("file", envFile), zap.Error(envErr))
			}

			rt.cfg = cfg
			rt.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newAskCmd(rt))
	cmd.AddCommand(newSignCmd(rt))
	return cmd
}
