package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/waithttp/internal/config"
	"github.com/hamed0406/waithttp/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand runs the probe API until interrupted.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the probe API",
		Long: `Serve exposes POST /api/probes, which runs one bounded probe per request and
answers once it succeeds or gives up. Probe flags become request defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newRunLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return serve(cmd.Context(), cfg, log)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address (default 127.0.0.1:8090)")
	f.StringSlice("api-keys", nil, "keys accepted on /api, none disables auth")
	f.Int("rpm", 0, "requests per minute per client (default 120)")
	f.Int("burst", 0, "rate limit burst (default 30)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	api := httpapi.NewServer(log, cfg)
	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api_listen", zap.String("addr", cfg.Serve.Addr), zap.Bool("auth", len(cfg.Serve.APIKeys) > 0))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info("api_shutdown")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
