package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/reps/codec"
	"github.com/xraph/reps/stream"
)

// Subscribe opens a websocket to the server's event stream and returns
// a channel of frames for the given topics (firehose when none are
// given). The connection reconnects with backoff until the context is
// cancelled; the channel closes when the context ends.
func (c *Client) Subscribe(ctx context.Context, topics ...string) (<-chan stream.Frame, error) {
	wsURL, err := c.streamURL(topics)
	if err != nil {
		return nil, err
	}

	frames := make(chan stream.Frame, stream.DefaultBufferSize)
	go c.streamLoop(ctx, wsURL, frames)
	return frames, nil
}

// streamURL converts the base URL to its websocket form and attaches
// the topic and codec query parameters.
func (c *Client) streamURL(topics []string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("reps/client: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/v1/stream"

	q := u.Query()
	if len(topics) > 0 {
		q.Set("topics", strings.Join(topics, ","))
	}
	q.Set("codec", c.codec.Name())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// streamLoop dials, reads frames, and reconnects with backoff on any
// failure. The attempt counter resets after a successful read.
func (c *Client) streamLoop(ctx context.Context, wsURL string, frames chan<- stream.Frame) {
	defer close(frames)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		attempt++

		conn, _, _, err := ws.Dial(ctx, wsURL)
		if err != nil {
			c.logger.Warn("stream dial failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			if !c.sleep(ctx, c.backoff.Delay(attempt)) {
				return
			}
			continue
		}

		// Close the connection when the context ends so blocked reads
		// unwind.
		connDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-connDone:
			}
		}()

		err = c.readFrames(ctx, conn, frames, &attempt)
		close(connDone)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("stream disconnected, reconnecting",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if !c.sleep(ctx, c.backoff.Delay(attempt)) {
			return
		}
	}
}

// readFrames pumps decoded frames into the channel until the
// connection fails.
func (c *Client) readFrames(ctx context.Context, conn net.Conn, frames chan<- stream.Frame, attempt *int) error {
	read := wsutil.ReadServerText
	if c.codec.Name() == codec.NameMsgpack {
		read = wsutil.ReadServerBinary
	}

	for {
		data, err := read(conn)
		if err != nil {
			return err
		}
		*attempt = 0

		var frame stream.Frame
		if err := c.codec.Unmarshal(data, &frame); err != nil {
			c.logger.Error("decode stream frame", slog.String("error", err.Error()))
			continue
		}

		select {
		case frames <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
