package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	eventsNamespace  = "/events"
	maxFrameBytes    = 1 << 20
	handshakeTimeout = 5 * time.Second
)

// ErrMalformedFrame marks a message that is not a routable frame. The
// connection stays usable after it.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one server push: the channel name and its JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type handshake struct {
	Auth struct {
		UserID string `json:"userId"`
	} `json:"auth"`
}

// Conn is a live duplex connection.
type Conn interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Dialer opens a Conn scoped to userID.
type Dialer interface {
	Dial(ctx context.Context, userID string) (Conn, error)
}

// WSDialer dials the events namespace over websocket.
type WSDialer struct {
	URL string
}

// Dial connects and sends the auth handshake.
func (d WSDialer) Dial(ctx context.Context, userID string) (Conn, error) {
	target, err := eventsURL(d.URL)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	conn.SetReadLimit(maxFrameBytes)

	var hs handshake
	hs.Auth.UserID = userID
	if err := wsjson.Write(dialCtx, conn, hs); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "handshake failed")
		return nil, fmt.Errorf("handshake: %w", err)
	}

	return &wsConn{conn: conn}, nil
}

func eventsURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("realtime url missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/") + eventsNamespace
	return u.String(), nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) (Frame, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	if typ != websocket.MessageText {
		return Frame{}, fmt.Errorf("%w: unexpected %v message", ErrMalformedFrame, typ)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}
	return f, nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
