package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tierstake/core"

	"nhooyr.io/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// eventFilter keeps updates whose type is listed. An empty filter keeps all.
type eventFilter map[string]struct{}

func parseEventFilter(raw string) eventFilter {
	filter := eventFilter{}
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			filter[t] = struct{}{}
		}
	}
	return filter
}

func (f eventFilter) allows(eventType string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[eventType]
	return ok
}

// handleEventsWS streams committed ledger events. cursor resumes after a
// previously seen sequence; types narrows the stream to a comma-separated
// list of event types.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query()
	cursor := strings.TrimSpace(query.Get("cursor"))
	if cursor != "" {
		if _, err := strconv.ParseUint(cursor, 10, 64); err != nil {
			http.Error(w, "cursor must be a sequence number", http.StatusBadRequest)
			return
		}
	}
	filter := parseEventFilter(query.Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Warn("events: websocket accept failed", slog.Any("error", err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	err = s.streamEvents(ctx, conn, cursor, filter)
	if err != nil && websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
		s.logger.Warn("events: stream aborted",
			slog.Any("error", err),
			slog.String("request_id", RequestIDFromContext(r.Context())))
		_ = conn.Close(websocket.StatusInternalError, "stream error")
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor string, filter eventFilter) error {
	updates, cancel, backlog, err := s.node.EventsSubscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, update := range backlog {
		if !filter.allows(update.Type) {
			continue
		}
		if err := writeEventUpdate(ctx, conn, update); err != nil {
			return err
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return err
			}
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if !filter.allows(update.Type) {
				continue
			}
			if err := writeEventUpdate(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeEventUpdate(ctx context.Context, conn *websocket.Conn, update core.EventUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
