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

	"signclient/internal/app"
	"signclient/internal/relay"
)

func main() {
	var (
		addr       string
		backlogTTL time.Duration
		backlogMax int
		logCfg     app.LogConfig
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the signclient WebSocket relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger(logCfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			hub := relay.NewHub(relay.WithBacklog(backlogTTL, backlogMax))
			srv := &http.Server{
				Addr:              addr,
				Handler:           relay.NewServer(hub, log).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()

			log.Info("relay listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&backlogTTL, "backlog-ttl", relay.DefaultBacklogTTL, "how long undelivered messages are kept")
	cmd.Flags().IntVar(&backlogMax, "backlog-max", relay.DefaultBacklogMax, "undelivered messages kept per topic")
	cmd.Flags().StringVar(&logCfg.Level, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().BoolVar(&logCfg.Development, "dev", false, "human-readable logs")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
