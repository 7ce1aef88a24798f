package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tierstake/core/events"
	"tierstake/core/types"
	"tierstake/observability"
)

const eventHistoryLimit = 2048

const eventSubscriberBuffer = 32

// EventUpdate is one committed ledger event with its position in the stream.
type EventUpdate struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"timestamp"`
}

// eventSubscriber receives live updates with sequence numbers above since.
type eventSubscriber struct {
	ch    chan EventUpdate
	since uint64
}

type broadcastable interface {
	Event() *types.Event
}

func cloneEventUpdate(update EventUpdate) EventUpdate {
	cloned := update
	if update.Attributes != nil {
		cloned.Attributes = make(map[string]string, len(update.Attributes))
		for k, v := range update.Attributes {
			cloned.Attributes[k] = v
		}
	}
	return cloned
}

func (n *Node) publishEvents(ts int64, evts []events.Event) {
	for _, evt := range evts {
		update := EventUpdate{Type: evt.EventType(), Timestamp: ts}
		if b, ok := evt.(broadcastable); ok {
			if payload := b.Event().Clone(); payload != nil {
				update.Attributes = payload.Attributes
			}
		}
		n.publishEvent(update)
	}
}

func (n *Node) publishEvent(update EventUpdate) {
	if n == nil || update.Type == "" {
		return
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]*eventSubscriber)
	}
	n.streamSeq++
	update.Sequence = n.streamSeq
	update.Cursor = strconv.FormatUint(update.Sequence, 10)
	n.streamHistory = append(n.streamHistory, cloneEventUpdate(update))
	if len(n.streamHistory) > eventHistoryLimit {
		excess := len(n.streamHistory) - eventHistoryLimit
		trimmed := make([]EventUpdate, eventHistoryLimit)
		copy(trimmed, n.streamHistory[excess:])
		n.streamHistory = trimmed
	}
	subscribers := make([]*eventSubscriber, 0, len(n.streamSubs))
	for _, sub := range n.streamSubs {
		if update.Sequence > sub.since {
			subscribers = append(subscribers, sub)
		}
	}
	// Sends happen under the lock so cancel cannot close a channel mid-send.
	metrics := observability.Events()
	metrics.RecordPublished(update.Type)
	for _, sub := range subscribers {
		select {
		case sub.ch <- cloneEventUpdate(update):
		default:
			metrics.RecordDropped(update.Type)
		}
	}
	n.streamMu.Unlock()
}

// EventsSubscribe registers a subscriber for committed ledger events. Events
// retained in history after cursor are returned as the backlog and live
// updates at or below cursor are skipped; an empty or malformed cursor
// replays the whole retained history.
func (n *Node) EventsSubscribe(ctx context.Context, cursor string) (<-chan EventUpdate, func(), []EventUpdate, error) {
	if n == nil {
		return nil, nil, nil, fmt.Errorf("node not initialised")
	}
	updates := make(chan EventUpdate, eventSubscriberBuffer)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			since = parsed
		}
	}

	n.streamMu.Lock()
	if n.streamSubs == nil {
		n.streamSubs = make(map[uint64]*eventSubscriber)
	}
	id := n.streamNextID
	n.streamNextID++
	n.streamSubs[id] = &eventSubscriber{ch: updates, since: since}
	history := make([]EventUpdate, len(n.streamHistory))
	copy(history, n.streamHistory)
	n.streamMu.Unlock()

	backlog := make([]EventUpdate, 0, len(history))
	for _, entry := range history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneEventUpdate(entry))
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.streamMu.Lock()
			sub, ok := n.streamSubs[id]
			if ok {
				delete(n.streamSubs, id)
				close(sub.ch)
			}
			n.streamMu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}
