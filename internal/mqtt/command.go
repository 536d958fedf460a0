package mqtt

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweeney/bench-rover/internal/transport"
)

// CommandChannel is a command transport over the broker: lines published to
// TopicCommand are handled like console input, and replies go to
// TopicResponse.
type CommandChannel struct {
	m Messenger
}

// NewCommandChannel creates a channel on m.
func NewCommandChannel(m Messenger) *CommandChannel {
	return &CommandChannel{m: m}
}

// Name returns "MQTT".
func (c *CommandChannel) Name() string { return "MQTT" }

// IsConnected reports whether the broker connection is open.
func (c *CommandChannel) IsConnected() bool { return c.m.IsConnected() }

// Send publishes msg to the response topic.
func (c *CommandChannel) Send(msg string) error {
	if err := c.m.PublishRaw(TopicResponse, []byte(msg)); err != nil {
		return fmt.Errorf("mqtt: respond: %w", err)
	}
	return nil
}

// Run subscribes to the command topic and enqueues each non-blank line of
// every message until ctx is done.
func (c *CommandChannel) Run(ctx context.Context, out chan<- transport.Request) error {
	err := c.m.Subscribe(TopicCommand, func(payload []byte) {
		for _, line := range strings.FieldsFunc(string(payload), func(r rune) bool {
			return r == '\n' || r == '\r'
		}) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			select {
			case out <- transport.Request{Line: line, From: c}:
			case <-ctx.Done():
				return
			}
		}
	})
	if err != nil {
		return fmt.Errorf("mqtt: subscribe commands: %w", err)
	}
	<-ctx.Done()
	return ctx.Err()
}
