package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hamed0406/waithttp/internal/config"
)

const flagConfig = "config"

// flagKeys maps flag names to configuration keys. Only flags set on the
// command line override the other sources.
var flagKeys = map[string]string{
	"protocol":       "protocol",
	"host":           "host",
	"port":           "port",
	"file":           "file",
	"username":       "username",
	"password":       "password",
	"timeout":        "timeout",
	"maxcount":       "maxcount",
	"skip":           "skip",
	"read":           "read",
	"initial-wait":   "initialwait",
	"response-regex": "responseregex",
	"dns-diagnose":   "dnsdiagnose",
	"log-level":      "log.level",
	"log-dir":        "log.dir",
	"slack-webhook":  "notify.slack.webhook",
	"addr":           "serve.addr",
	"api-keys":       "serve.apikeys",
	"rpm":            "serve.rpm",
	"burst":          "serve.burst",
}

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(flagConfig, "", "YAML config file (default "+DefaultConfigFile+" if present)")
	f.String("log-level", "", "debug, info, warn or error (default info)")
	f.String("log-dir", "", "also write a rotating JSON log to this directory")
	f.String("slack-webhook", "", "Slack incoming webhook notified when a wait gives up")
}

// addProbeFlags registers the probe parameters. They are persistent so that
// `serve` can use them as request defaults.
func addProbeFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("protocol", "", "http, https, tcp or file (default http)")
	f.String("host", "", "host to probe (default localhost)")
	f.Int("port", 0, "port to probe (default 8080)")
	f.String("file", "", "request path, or the local path for file (default /)")
	f.String("username", "", "basic auth user")
	f.String("password", "", "basic auth password")
	f.Int("timeout", 0, "connect timeout and delay between attempts in ms (default 30000)")
	f.Int("maxcount", 0, "attempts before giving up, 0 for unlimited")
	f.Bool("skip", false, "do not wait at all")
	f.Bool("read", false, "read the whole response body")
	f.Int("initial-wait", 0, "delay before the first attempt in ms")
	f.String("response-regex", "", "wait until a response line matches")
	f.Bool("dns-diagnose", false, "classify DNS of the host after connect failures")
}

func configOptions(cmd *cobra.Command) (config.Options, error) {
	fs := cmd.Flags()
	file, err := fs.GetString(flagConfig)
	if err != nil {
		return config.Options{}, err
	}
	opts := config.Options{File: file, Required: fs.Changed(flagConfig)}
	if opts.File == "" {
		opts.File = DefaultConfigFile
	}
	opts.Overrides = overrides(fs)
	return opts, nil
}

func overrides(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			out[key] = sv.GetSlice()
			return
		}
		out[key] = f.Value.String()
	})
	return out
}
