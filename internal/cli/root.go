// Package cli wires configuration, logging and the probe into the waithttp
// command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/config"
	"github.com/hamed0406/waithttp/internal/logging"
	"github.com/hamed0406/waithttp/internal/notify"
	"github.com/hamed0406/waithttp/internal/probe"
)

// DefaultConfigFile is read when present and --config is not given.
const DefaultConfigFile = "waithttp.yaml"

const notifyTimeout = 15 * time.Second

// NewRootCommand builds `waithttp`, which runs a single probe, together with
// its subcommands.
func NewRootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waithttp",
		Short: "Wait until a network endpoint is ready",
		Long: `waithttp probes an http, https or tcp endpoint (or a local file) until it
answers as expected, retrying with a fixed backoff.

Settings come from defaults, an optional YAML file, WAIT_* environment
variables and flags, in increasing order of priority.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
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
			return runWait(cmd.Context(), cfg, log, notify.FromConfig(cfg.Notify))
		},
	}

	addGlobalFlags(cmd)
	addProbeFlags(cmd)

	cmd.AddCommand(
		NewServeCommand(),
		NewConfigCommand(),
	)
	return cmd
}

func newRunLogger(cfg config.Log) (*zap.Logger, error) {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("run_id", uuid.NewString())), nil
}

func runWait(ctx context.Context, cfg *config.Config, log *zap.Logger, n notify.Notifier) error {
	w, err := probe.New(cfg.Probe, log)
	if err != nil {
		return err
	}

	rep, err := w.Wait(ctx)
	if err == nil {
		if !rep.Skipped {
			log.Info("wait_done",
				zap.String("url", rep.Endpoint),
				zap.Int("attempts", rep.Attempts),
				zap.Duration("elapsed", rep.Elapsed),
			)
		}
		return nil
	}

	if !errors.Is(err, context.Canceled) && n != nil {
		title, text := notify.GaveUp(rep.Endpoint, rep.Attempts, rep.Elapsed, err)
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if nerr := n.Send(nctx, title, text); nerr != nil {
			log.Warn("notify_failed", zap.Error(nerr))
		}
	}
	return err
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts, err := configOptions(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
