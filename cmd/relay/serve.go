package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/line-relay/backend/internal/handler"
)

func newServeCmd(rt *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger := rt.cfg, rt.logger
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			secret := ""
			if cfg.LINE.Enabled() {
				secret = cfg.LINE.ChannelSecret
			} else {
				logger.Warn("LINE channel secret or access token missing, /callback will answer 500")
			}

			router := handler.NewRouter(handler.Services{
				Personas:      a.personas,
				Sessions:      a.sessions,
				Gateway:       a.gateway,
				Dispatcher:    a.dispatcher,
				ChannelSecret: secret,
				DevChannel:    cfg.DevChannel,
			}, logger)

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			logger.Info("LINE relay listening", zap.String("addr", cfg.Server.Addr), zap.String("mode", a.dispatcher.Mode()))
			err = runServer(ctx, srv)
			a.dispatcher.Wait()
			return err
		},
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
