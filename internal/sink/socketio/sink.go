// Package socketio provides a result sink that pushes planned query
// metadata to a socket.io endpoint, typically a live dashboard that
// wants to know which result ids to expect before data flows.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/tsquery/internal/ctxlog"
)

// Config describes the sink endpoint.
type Config struct {
	// URL of the socket.io server, path included.
	URL string
	// Namespace to join. Empty means the root namespace.
	Namespace string
	// EmitEvent is the event name the payload is emitted under.
	// Defaults to "plan".
	EmitEvent string
	// AckEvent, when set, is the event to wait for after emitting.
	// When empty the sink resolves as soon as the emit is sent.
	AckEvent string
	// Timeout bounds the whole connect-emit-ack exchange. Defaults to
	// 10 seconds.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// Sink emits payloads to a socket.io endpoint.
type Sink struct {
	cfg Config
}

// New creates a sink, applying config defaults.
func New(cfg Config) *Sink {
	if cfg.EmitEvent == "" {
		cfg.EmitEvent = "plan"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Sink{cfg: cfg}
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	err error
}

// Emit connects, sends the payload and waits for the optional ack.
func (s *Sink) Emit(ctx context.Context, payload map[string]any) error {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", s.cfg.URL, "emitEvent", s.cfg.EmitEvent)
	logger.Debug("Sink emit started")
	defer logger.Debug("Sink emit finished")

	var isConnected atomic.Bool

	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	parsedURL, err := url.Parse(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)

	if s.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(s.cfg.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	// --- Event Listeners ---
	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", s.cfg.Namespace, "sid", io.Id())
		jsonData, _ := json.Marshal(payload)
		logger.Info("Emitting plan", "data", string(jsonData))
		io.Emit(s.cfg.EmitEvent, payload)
		if s.cfg.AckEvent == "" {
			done <- opResult{}
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				done <- opResult{err: err}
				return
			}
		}
		done <- opResult{err: fmt.Errorf("socket.io connect error")}
	})

	if s.cfg.AckEvent != "" {
		io.On(types.EventName(s.cfg.AckEvent), func(...any) {
			done <- opResult{}
		})
	}

	// --- Execution Block ---
	io.Connect()

	select {
	case <-opCtx.Done():
		var errMsg string
		if isConnected.Load() {
			errMsg = fmt.Sprintf("timed out after connecting while waiting for event '%s'", s.cfg.AckEvent)
		} else {
			errMsg = "timed out while waiting for initial connection"
		}
		return fmt.Errorf("%s after %s", errMsg, s.cfg.Timeout)
	case result := <-done:
		if result.err != nil {
			return fmt.Errorf("socket.io sink failed: %w", result.err)
		}
		return nil
	}
}
