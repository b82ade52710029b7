package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides, e.g. WAIT_HOST or WAIT_LOG_LEVEL.
const EnvPrefix = "WAIT_"

type Config struct {
	Probe  Probe  `koanf:"-" yaml:",inline"`
	Log    Log    `koanf:"log" yaml:"log"`
	Notify Notify `koanf:"notify" yaml:"notify"`
	Serve  Serve  `koanf:"serve" yaml:"serve"`
}

// Probe holds the parameters of a single wait invocation. Keys are flat so
// they read the same in YAML, env (WAIT_MAXCOUNT) and flags.
type Probe struct {
	Protocol      string `koanf:"protocol" yaml:"protocol" validate:"required"`
	Host          string `koanf:"host" yaml:"host"`
	Port          int    `koanf:"port" yaml:"port" validate:"gte=0,lte=65535"`
	File          string `koanf:"file" yaml:"file"`
	Username      string `koanf:"username" yaml:"username,omitempty"`
	Password      string `koanf:"password" yaml:"password,omitempty"`
	TimeoutMS     int    `koanf:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxCount      int    `koanf:"maxcount" yaml:"maxcount" validate:"gte=0"`
	Skip          bool   `koanf:"skip" yaml:"skip"`
	Read          bool   `koanf:"read" yaml:"read"`
	InitialWaitMS int    `koanf:"initialwait" yaml:"initialwait" validate:"gte=0"`
	ResponseRegex string `koanf:"responseregex" yaml:"responseregex,omitempty"`
	DNSDiagnose   bool   `koanf:"dnsdiagnose" yaml:"dnsdiagnose"`
}

// Timeout is the connect timeout, reused as the backoff between attempts.
func (p Probe) Timeout() time.Duration { return time.Duration(p.TimeoutMS) * time.Millisecond }

func (p Probe) InitialWait() time.Duration {
	return time.Duration(p.InitialWaitMS) * time.Millisecond
}

// BasicAuth reports whether credentials should be attached.
func (p Probe) BasicAuth() bool { return p.Username != "" || p.Password != "" }

type Log struct {
	Level string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir" yaml:"dir,omitempty"` // rotating JSON file log; empty = console only
}

type Notify struct {
	Slack Slack `koanf:"slack" yaml:"slack"`
}

type Slack struct {
	Webhook string `koanf:"webhook" yaml:"webhook,omitempty" validate:"omitempty,url"`
}

type Serve struct {
	Addr    string   `koanf:"addr" yaml:"addr" validate:"required"`
	APIKeys []string `koanf:"apikeys" yaml:"apikeys,omitempty"`
	RPM     int      `koanf:"rpm" yaml:"rpm" validate:"gte=0"`
	Burst   int      `koanf:"burst" yaml:"burst" validate:"gte=0"`
}

// Options controls where Load reads from besides defaults and env.
type Options struct {
	// File is an optional YAML file. A missing file is an error only when
	// Required is set.
	File     string
	Required bool
	// Overrides win over every other source (explicitly set CLI flags).
	Overrides map[string]any
}

func defaults() map[string]any {
	return map[string]any{
		"protocol":      "http",
		"host":          "localhost",
		"port":          8080,
		"file":          "/",
		"username":      "",
		"password":      "",
		"timeout":       30000,
		"maxcount":      0,
		"skip":          false,
		"read":          false,
		"initialwait":   0,
		"responseregex": "",
		"dnsdiagnose":   false,

		"log.level": "info",
		"log.dir":   "",

		"notify.slack.webhook": "",

		"serve.addr":  "127.0.0.1:8090",
		"serve.rpm":   120,
		"serve.burst": 30,
	}
}

// Load merges defaults, the YAML file, WAIT_* environment variables and
// overrides (lowest to highest priority), then validates the result.
func Load(opts Options) (*Config, error) {
	cfg, err := Read(opts)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		err := k.Load(file.Provider(opts.File), yaml.Parser())
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !opts.Required:
		default:
			return nil, fmt.Errorf("load %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := k.Unmarshal("", &cfg.Probe); err != nil {
		return nil, fmt.Errorf("unmarshal probe config: %w", err)
	}
	return &cfg, nil
}

// envKey maps WAIT_LOG_LEVEL to log.level. Comma separated values become lists.
func envKey(k, v string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
	if key == "serve.apikeys" {
		return key, splitList(v)
	}
	return key, v
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
