package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const masked = "********"

// Dump renders the effective configuration as YAML with secrets masked.
func Dump(cfg *Config) ([]byte, error) {
	c := *cfg
	if c.Probe.Password != "" {
		c.Probe.Password = masked
	}
	if c.Notify.Slack.Webhook != "" {
		c.Notify.Slack.Webhook = masked
	}
	if len(c.Serve.APIKeys) > 0 {
		keys := make([]string, len(c.Serve.APIKeys))
		for i := range keys {
			keys[i] = masked
		}
		c.Serve.APIKeys = keys
	}

	out, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
