// Package notify tells people when a wait gives up.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/waithttp/internal/config"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// FromConfig returns the notifiers enabled in cfg. The result may be empty.
func FromConfig(cfg config.Notify) Multi {
	var m Multi
	if s := NewSlack(cfg.Slack.Webhook); s != nil {
		m = append(m, s)
	}
	return m
}

// GaveUp formats the message sent when an endpoint never became ready.
func GaveUp(endpoint string, attempts int, elapsed time.Duration, cause error) (title, text string) {
	title = "waithttp gave up on " + endpoint
	text = fmt.Sprintf("%d attempt(s) over %s\nlast error: %v", attempts, elapsed.Round(time.Millisecond), cause)
	return title, text
}
