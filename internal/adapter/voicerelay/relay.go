// Package voicerelay bridges a browser websocket to the realtime voice
// provider so the provider key never leaves the server.
package voicerelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	maxMessageSize = 1 << 20 // 1 MiB; audio arrives in small base64 chunks
	dialTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
)

// Upstream resolves the provider websocket endpoint.
type Upstream interface {
	RealtimeEndpoint() (string, http.Header, error)
}

type Relay struct {
	upstream Upstream
	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
}

func New(upstream Upstream, checkOrigin func(*http.Request) bool) *Relay {
	return &Relay{
		upstream: upstream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// Serve connects to the provider, upgrades the client connection and copies
// frames both ways until either side closes or ctx ends. instructions, when
// set, are sent upstream as a session.update before any client frame.
// Errors returned before the upgrade can still be written as HTTP responses.
func (r *Relay) Serve(ctx context.Context, w http.ResponseWriter, req *http.Request, instructions string) error {
	endpoint, header, err := r.upstream.RealtimeEndpoint()
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	upstream, resp, err := r.dialer.DialContext(dialCtx, endpoint, header)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial realtime provider: %w", err)
	}
	defer upstream.Close()

	if instructions != "" {
		if err := upstream.WriteMessage(websocket.TextMessage, sessionUpdate(instructions)); err != nil {
			return fmt.Errorf("failed to configure realtime session: %w", err)
		}
	}

	client, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil //nolint:nilerr
	}
	defer client.Close()

	client.SetReadLimit(maxMessageSize)
	upstream.SetReadLimit(maxMessageSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump(client, upstream) })
	g.Go(func() error { return pump(upstream, client) })
	g.Go(func() error {
		<-gctx.Done()
		_ = client.Close()
		_ = upstream.Close()
		return nil
	})

	start := time.Now()
	err = g.Wait()
	if errors.Is(err, errPeerClosed) {
		err = nil
	}
	slog.InfoContext(ctx, "Voice relay closed", "duration", time.Since(start).Round(time.Second), "error", err)
	return nil
}

var errPeerClosed = errors.New("peer closed")

// pump copies frames from src to dst. It is the only writer of dst.
func pump(src, dst *websocket.Conn) error {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			code := websocket.CloseNormalClosure
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				code = ce.Code
			}
			deadline := time.Now().Add(writeTimeout)
			_ = dst.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return err
			}
			return errPeerClosed
		}

		_ = dst.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := dst.WriteMessage(msgType, data); err != nil {
			return err
		}
	}
}

func sessionUpdate(instructions string) []byte {
	msg, _ := json.Marshal(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"instructions": instructions,
		},
	})
	return msg
}
