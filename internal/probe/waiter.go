package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/config"
	"github.com/hamed0406/waithttp/internal/endpoint"
)

// Waiter retries Checker against Endpoint until it succeeds or the attempt
// budget in Config.MaxCount runs out. Attempts never overlap.
type Waiter struct {
	Config   config.Probe
	Endpoint endpoint.Endpoint
	Checker  Checker
	Timer    Timer
	Logger   *zap.Logger
	// Diagnose, when set, classifies the host's DNS after a connect failure.
	// It only enriches the log line.
	Diagnose func(ctx context.Context, host string) DNSStatus
}

// New builds the endpoint and checker for p. Invalid components fail here,
// before any network activity. A skipped probe needs neither.
func New(p config.Probe, log *zap.Logger) (*Waiter, error) {
	w := &Waiter{Config: p, Timer: NewSleepTimer(), Logger: log}
	if p.Skip {
		return w, nil
	}

	ep, err := endpoint.Build(p.Protocol, p.Host, p.Port, p.File)
	if err != nil {
		return nil, err
	}
	chk, err := NewChecker(p, ep, log)
	if err != nil {
		return nil, err
	}
	w.Endpoint = ep
	w.Checker = chk
	if p.DNSDiagnose {
		w.Diagnose = CheckDNS
	}
	return w, nil
}

// Wait runs the probe to completion. It returns nil once an attempt
// succeeds, an *ExhaustedError when the budget is spent, or the context error
// if ctx is cancelled.
func (w *Waiter) Wait(ctx context.Context) (Report, error) {
	if !w.Config.Skip && (w.Endpoint.IsZero() || w.Checker == nil) {
		return Report{}, errors.New("probe: waiter has no endpoint or checker, use New")
	}
	start := time.Now()
	st := initial()

	var err error
	for st.phase != phaseDone {
		st, err = w.step(ctx, st)
		if err != nil {
			st = st.done()
		}
	}

	rep := Report{
		Endpoint: w.Endpoint.String(),
		Attempts: st.trial,
		Skipped:  st.skipped,
		Elapsed:  time.Since(start),
		Last:     st.last,
	}
	return rep, err
}

func (w *Waiter) step(ctx context.Context, st state) (state, error) {
	switch st.phase {
	case phaseInit:
		return w.init(ctx, st)
	case phaseAttempting:
		return w.attempt(ctx, st)
	default:
		return st, fmt.Errorf("probe: unexpected phase %s", st.phase)
	}
}

func (w *Waiter) init(ctx context.Context, st state) (state, error) {
	p := w.Config
	if p.Skip {
		w.Logger.Info("wait_skipped", zap.String("protocol", p.Protocol), zap.String("host", p.Host))
		st.skipped = true
		return st.done(), nil
	}

	w.Logger.Info("probe_config",
		zap.String("protocol", p.Protocol),
		zap.String("host", p.Host),
		zap.Int("port", p.Port),
		zap.String("file", p.File),
		zap.Bool("basic_auth", p.BasicAuth()),
		zap.String("regex", p.ResponseRegex),
		zap.Int("timeout_ms", p.TimeoutMS),
		zap.Int("maxcount", p.MaxCount),
	)

	if d := p.InitialWait(); d > 0 {
		w.Logger.Info("initial_wait", zap.Duration("wait", d))
		if err := w.Timer.Wait(ctx, d); err != nil {
			return st, w.aborted(err)
		}
	}
	return attempting(p.MaxCount), nil
}

func (w *Waiter) attempt(ctx context.Context, st state) (state, error) {
	url := w.Endpoint.String()
	w.Logger.Info("attempt", zap.Int("trial", st.trial), zap.String("url", url))

	res := w.Checker.Check(ctx, w.Endpoint)
	st.last = res

	switch res.Outcome {
	case Success:
		w.Logger.Info("reached",
			zap.String("url", url),
			zap.Int("trial", st.trial),
			zap.Float64("latency_ms", res.LatencyMS),
		)
		return st.done(), nil
	case FatalFailure:
		w.Logger.Warn("attempt_fatal", zap.String("url", url), zap.Error(res.Err))
		return st.done(), fmt.Errorf("probe %s: %w", url, res.Err)
	}

	if err := ctx.Err(); err != nil {
		return st, w.aborted(err)
	}

	remaining, ok := st.remaining.next()
	if !ok {
		err := &ExhaustedError{Endpoint: url, Attempts: st.trial, Cause: res.Err}
		w.Logger.Warn("cannot_connect", zap.String("url", url), zap.Int("trials", st.trial), zap.Error(res.Err))
		return st.done(), err
	}

	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("trial", st.trial),
		zap.Int("status", res.StatusCode),
		zap.Duration("backoff", w.Config.Timeout()),
		zap.Error(res.Err),
	}
	var connErr *ConnectError
	if w.Diagnose != nil && errors.As(res.Err, &connErr) && w.Endpoint.Hostname() != "" {
		fields = append(fields, zap.String("dns", w.Diagnose(ctx, w.Endpoint.Hostname()).Class))
	}
	w.Logger.Warn("attempt_failed", fields...)

	if err := w.Timer.Wait(ctx, w.Config.Timeout()); err != nil {
		return st, w.aborted(err)
	}
	return st.retry(remaining), nil
}

func (w *Waiter) aborted(err error) error {
	w.Logger.Warn("wait_aborted", zap.String("url", w.Endpoint.String()), zap.Error(err))
	return fmt.Errorf("wait for %s: %w", w.Endpoint.String(), err)
}
