package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/reps/codec"
)

// handleStream upgrades the connection to a websocket and streams broker
// frames to the client. Topics come from the comma-separated "topics"
// query parameter (default firehose); the wire encoding from "codec"
// (json or msgpack).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	enc := codec.Lookup(r.URL.Query().Get("codec"))

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		for _, topic := range strings.Split(raw, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				topics = append(topics, topic)
			}
		}
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	sub := s.broker.Subscribe(topics...)
	s.logger.Info("stream client connected",
		slog.String("subscriber_id", sub.ID()),
		slog.Any("topics", sub.Topics()),
		slog.String("codec", enc.Name()),
	)

	// Reads only serve to detect the client going away. Control frames
	// (ping, close) are handled by the reader.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := wsutil.ReadClientText(conn); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.broker.RemoveSubscriber(sub.ID())
		_ = conn.Close()
		s.logger.Info("stream client disconnected",
			slog.String("subscriber_id", sub.ID()),
			slog.Int64("dropped", sub.Dropped()),
		)
	}()

	write := wsutil.WriteServerText
	if enc.Name() == codec.NameMsgpack {
		write = wsutil.WriteServerBinary
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case frame, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := enc.Marshal(frame)
			if err != nil {
				s.logger.Error("encode frame",
					slog.String("event", frame.Name),
					slog.Any("error", err),
				)
				continue
			}
			if err := write(conn, data); err != nil {
				return
			}
		}
	}
}
