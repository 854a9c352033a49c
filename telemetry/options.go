package telemetry

import (
	"go.uber.org/zap"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/otelbridge"
	"github.com/namastexlabs/automagik-telemetry-go/store"
)

type Option func(*Client)

// WithTransport overrides the transport built from the configuration.
// Intended for tests and for embedding custom sinks.
func WithTransport(t backend.Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger replaces the internal logger. The default is a no-op logger
// unless verbose mode is on.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocalStore mirrors every tracked event into a local store for
// inspection during development. Writes are best-effort and never affect
// delivery.
func WithLocalStore(s store.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithOTelBridge mirrors span events into the application's own
// OpenTelemetry tracer provider, so product telemetry shows up alongside
// the app's traces.
func WithOTelBridge(b *otelbridge.Bridge) Option {
	return func(c *Client) { c.bridge = b }
}
