package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	p := cfg.Probe
	assert.Equal(t, "http", p.Protocol)
	assert.Equal(t, "localhost", p.Host)
	assert.Equal(t, 8080, p.Port)
	assert.Equal(t, "/", p.File)
	assert.Equal(t, 30000, p.TimeoutMS)
	assert.Equal(t, 0, p.MaxCount)
	assert.Equal(t, 0, p.InitialWaitMS)
	assert.False(t, p.Skip)
	assert.False(t, p.Read)
	assert.False(t, p.BasicAuth())
	assert.Empty(t, p.ResponseRegex)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8090", cfg.Serve.Addr)
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wait.yaml")
	yml := `
host: app.internal
port: 9000
file: /ready
maxcount: 3
responseregex: "UP"
log:
  level: debug
serve:
  apikeys: [k1]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("WAIT_PORT", "9100")
	t.Setenv("WAIT_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("WAIT_SERVE_APIKEYS", "a, b")
	t.Setenv("WAIT_SKIP", "true")

	cfg, err := Load(Options{
		File:      path,
		Overrides: map[string]any{"maxcount": 5, "username": "ci"},
	})
	require.NoError(t, err)

	assert.Equal(t, "app.internal", cfg.Probe.Host)
	assert.Equal(t, 9100, cfg.Probe.Port, "env wins over file")
	assert.Equal(t, "/ready", cfg.Probe.File)
	assert.Equal(t, 5, cfg.Probe.MaxCount, "override wins over file")
	assert.Equal(t, "UP", cfg.Probe.ResponseRegex)
	assert.True(t, cfg.Probe.Skip)
	assert.True(t, cfg.Probe.BasicAuth())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "logs"), cfg.Log.Dir)
	assert.Equal(t, []string{"a", "b"}, cfg.Serve.APIKeys)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(Options{File: missing})
	require.NoError(t, err, "optional file may be absent")

	_, err = Load(Options{File: missing, Required: true})
	require.Error(t, err)
}

func TestLoad_InvalidReportsEveryProblem(t *testing.T) {
	_, err := Load(Options{Overrides: map[string]any{
		"protocol":      "gopher",
		"timeout":       -1,
		"responseregex": "(",
		"log.level":     "loud",
	}})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "unsupported protocol")
	assert.Contains(t, msg, "TimeoutMS")
	assert.Contains(t, msg, "responseregex")
	assert.Contains(t, msg, "Level")
}

func TestValidateProbe(t *testing.T) {
	ok := Probe{Protocol: "http", Host: "h", Port: 80, File: "/"}
	require.NoError(t, ValidateProbe(ok))

	bad := ok
	bad.Port = 0
	bad.ResponseRegex = "[a-"
	err := ValidateProbe(bad)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)

	skipped := bad
	skipped.Skip = true
	assert.NoError(t, ValidateProbe(skipped), "a skipped probe is never built")
}

func TestProbe_Durations(t *testing.T) {
	p := Probe{TimeoutMS: 1500, InitialWaitMS: 250}
	assert.Equal(t, "1.5s", p.Timeout().String())
	assert.Equal(t, "250ms", p.InitialWait().String())
}

func TestDump_MasksSecrets(t *testing.T) {
	cfg, err := Load(Options{Overrides: map[string]any{
		"password":             "s3cret",
		"notify.slack.webhook": "https://hooks.slack.com/services/x",
		"serve.apikeys":        []string{"key-one"},
	}})
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)

	s := string(out)
	assert.NotContains(t, s, "s3cret")
	assert.NotContains(t, s, "hooks.slack.com")
	assert.NotContains(t, s, "key-one")
	assert.True(t, strings.Contains(s, "protocol: http"), s)
	assert.Contains(t, s, "maxcount: 0")
}

func TestRead_DoesNotValidate(t *testing.T) {
	cfg, err := Read(Options{Overrides: map[string]any{"protocol": "gopher", "log.level": "loud"}})
	require.NoError(t, err)
	assert.Equal(t, "gopher", cfg.Probe.Protocol)

	err = Validate(cfg)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}
