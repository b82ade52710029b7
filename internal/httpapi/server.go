// Package httpapi exposes the probe loop over HTTP for long-running use,
// e.g. as a CI sidecar that other jobs ask "is X up yet?".
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/waithttp/internal/config"
	"github.com/hamed0406/waithttp/internal/endpoint"
	apimw "github.com/hamed0406/waithttp/internal/httpapi/middleware"
	"github.com/hamed0406/waithttp/internal/probe"
)

// defaultMaxCount applies when neither the request nor the server defaults
// bound the attempts. The API never runs an unlimited probe.
const defaultMaxCount = 10

// RunFunc executes one probe to completion.
type RunFunc func(ctx context.Context, p config.Probe, log *zap.Logger) (probe.Report, error)

type Server struct {
	Logger   *zap.Logger
	Defaults config.Probe
	Serve    config.Serve
	Run      RunFunc
}

func NewServer(l *zap.Logger, cfg *config.Config) *Server {
	return &Server{Logger: l, Defaults: cfg.Probe, Serve: cfg.Serve, Run: runProbe}
}

func runProbe(ctx context.Context, p config.Probe, log *zap.Logger) (probe.Report, error) {
	w, err := probe.New(p, log)
	if err != nil {
		return probe.Report{}, err
	}
	return w.Wait(ctx)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RequireKey(s.Serve.APIKeys))
		r.Use(apimw.RateLimit(s.Serve.RPM, s.Serve.Burst))
		r.Post("/probes", s.handleProbe)
	})

	return r
}

// probeRequest mirrors the probe keys of the configuration file. Fields left
// out of the JSON keep the server's defaults. Local files are not reachable
// over the API.
type probeRequest struct {
	Protocol      string `json:"protocol" validate:"required,oneof=http https tcp"`
	Host          string `json:"host"`
	Port          int    `json:"port" validate:"gte=0,lte=65535"`
	File          string `json:"file"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Timeout       int    `json:"timeout" validate:"gte=0,lte=600000"`
	MaxCount      int    `json:"maxcount" validate:"gte=1,lte=1000"`
	Read          bool   `json:"read"`
	InitialWait   int    `json:"initialwait" validate:"gte=0,lte=600000"`
	ResponseRegex string `json:"responseregex"`
	DNSDiagnose   bool   `json:"dnsdiagnose"`
}

// requestFrom seeds a request with the server defaults. Credentials are left
// out; see withDefaultCredentials.
func requestFrom(p config.Probe) probeRequest {
	maxCount := p.MaxCount
	if maxCount == 0 {
		maxCount = defaultMaxCount
	}
	return probeRequest{
		Protocol:      p.Protocol,
		Host:          p.Host,
		Port:          p.Port,
		File:          p.File,
		Timeout:       p.TimeoutMS,
		MaxCount:      maxCount,
		Read:          p.Read,
		InitialWait:   p.InitialWaitMS,
		ResponseRegex: p.ResponseRegex,
		DNSDiagnose:   p.DNSDiagnose,
	}
}

func (pr probeRequest) probe() config.Probe {
	return config.Probe{
		Protocol:      pr.Protocol,
		Host:          pr.Host,
		Port:          pr.Port,
		File:          pr.File,
		Username:      pr.Username,
		Password:      pr.Password,
		TimeoutMS:     pr.Timeout,
		MaxCount:      pr.MaxCount,
		Read:          pr.Read,
		InitialWaitMS: pr.InitialWait,
		ResponseRegex: pr.ResponseRegex,
		DNSDiagnose:   pr.DNSDiagnose,
	}
}

// withDefaultCredentials hands the server's own credentials to a request that
// brings none, but only when it targets the default endpoint.
func withDefaultCredentials(p, defaults config.Probe) config.Probe {
	if p.BasicAuth() || !defaults.BasicAuth() {
		return p
	}
	if !strings.EqualFold(p.Protocol, defaults.Protocol) || !strings.EqualFold(p.Host, defaults.Host) || p.Port != defaults.Port {
		return p
	}
	p.Username, p.Password = defaults.Username, defaults.Password
	return p
}

type probeResponse struct {
	Success   bool    `json:"success"`
	Endpoint  string  `json:"endpoint"`
	Attempts  int     `json:"attempts"`
	ElapsedMS float64 `json:"elapsed_ms"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(s.Defaults)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad payload: %v", err))
		return
	}
	p := withDefaultCredentials(req.probe(), s.Defaults)
	if err := multierr.Append(config.ValidateStruct(req), config.ValidateProbe(p)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := s.Logger.With(zap.String("probe_id", uuid.NewString()))
	rep, err := s.Run(r.Context(), p, log)

	var cfgErr *endpoint.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		log.Info("probe_request_gone", zap.String("endpoint", rep.Endpoint))
		return
	}

	resp := probeResponse{
		Success:   err == nil,
		Endpoint:  rep.Endpoint,
		Attempts:  rep.Attempts,
		ElapsedMS: float64(rep.Elapsed) / float64(time.Millisecond),
	}
	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	log.Info("probe_request",
		zap.String("endpoint", rep.Endpoint),
		zap.Bool("success", resp.Success),
		zap.Int("attempts", rep.Attempts),
	)
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
