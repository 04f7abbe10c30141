package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Operator-facing messages.
const (
	MsgLoginSuccess       = "Login successful"
	MsgLoginPartial       = "Login successful, but couldn't load initial data"
	MsgInvalidCredentials = "Invalid email or password"
	MsgMissingCredentials = "Please enter both email and password"
	MsgLoggedOut          = "You have been logged out"
	MsgFetchFailed        = "Failed to fetch quotation data"
	MsgConnectionFailed   = "Error connecting to the API"
)

const defaultHistorySize = 20

// BroadcastNotifier fans out notifications to in-process subscribers and keeps a short history.
type BroadcastNotifier struct {
	mu      sync.RWMutex
	subs    map[int]chan Notification
	next    int
	history []Notification
	limit   int
	now     func() time.Time
}

// NewBroadcastNotifier creates a notifier that remembers the latest historySize notes.
func NewBroadcastNotifier(historySize int) *BroadcastNotifier {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &BroadcastNotifier{
		subs:  make(map[int]chan Notification),
		limit: historySize,
		now:   time.Now,
	}
}

// Notify records the note and delivers it to subscribers without blocking.
func (n *BroadcastNotifier) Notify(_ context.Context, note Notification) error {
	if note.At.IsZero() {
		note.At = n.now()
	}
	n.mu.Lock()
	n.history = append(n.history, note)
	if len(n.history) > n.limit {
		n.history = append([]Notification(nil), n.history[len(n.history)-n.limit:]...)
	}
	n.mu.Unlock()

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- note:
		default:
		}
	}
	return nil
}

// History returns the retained notifications, oldest first.
func (n *BroadcastNotifier) History() []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Notification(nil), n.history...)
}

// Subscribe returns a channel of notifications and a cancel func.
func (n *BroadcastNotifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan Notification, 8)
	n.subs[id] = ch
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams notifications as JSON.
func (n *BroadcastNotifier) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	notes, cancel := n.Subscribe()
	defer cancel()

	// The hijacked request context outlives the client, so the read loop ends the stream.
	// Reading also lets gorilla answer ping and close frames.
	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case note, ok := <-notes:
			if !ok {
				return
			}
			if err := conn.WriteJSON(note); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams notifications as Server-Sent Events.
func (n *BroadcastNotifier) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	notes, cancel := n.Subscribe()
	defer cancel()

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return
		case note, ok := <-notes:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			if err := encoder.Encode(note); err != nil {
				return
			}
			w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the note at a level matching its severity.
func (l LogNotifier) Notify(_ context.Context, note Notification) error {
	event := l.Logger.Info()
	switch note.Level {
	case LevelError:
		event = l.Logger.Error()
	case LevelWarning:
		event = l.Logger.Warn()
	}
	event.Str("code", note.Code).Msg(note.Message)
	return nil
}

// MultiNotifier delivers each note to every notifier, returning the first error.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, note Notification) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func notify(ctx context.Context, n Notifier, logger zerolog.Logger, level, code, message string) {
	if err := n.Notify(ctx, Notification{Level: level, Code: code, Message: message}); err != nil {
		logger.Warn().Err(err).Str("code", code).Msg("notification delivery failed")
	}
}
