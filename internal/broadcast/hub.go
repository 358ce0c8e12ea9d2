// Package broadcast fans live events out to connected dashboard viewers
// over Server-Sent Events.
package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/logging"
)

// Event names pushed to viewers.
const (
	EventConnected      = "connected"
	EventNewLog         = "new_log"
	EventNewAdminAction = "new_admin_action"
	EventNewGeneralLog  = "new_general_log"
	EventAlert          = "alert"
	EventSourceSilent   = "source_silent"
)

const (
	connectedGreeting = "Connected to hookwatch"
	clientBufferSize  = 64
	keepaliveInterval = 15 * time.Second
)

// Observer is notified of drops and viewer count changes. *metrics.Metrics
// satisfies it.
type Observer interface {
	BroadcastDropped(event string)
	SetViewers(n int)
}

// Event is a single message delivered to viewers.
type Event struct {
	ID   uint64
	Name string
	Data []byte // JSON-encoded payload
}

// Client is a single connected viewer.
type Client struct {
	events []string // event names to deliver (empty = all)
	ch     chan *Event
}

// C returns the channel on which events are delivered.
func (c *Client) C() <-chan *Event { return c.ch }

// Hub fans out published events to subscribed clients. Delivery is
// non-blocking: a client whose buffer is full misses the event. Late
// joiners receive nothing that was published before they subscribed.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	nextID  atomic.Uint64
	obs     Observer

	done      chan struct{}
	closeOnce sync.Once

	keepalive time.Duration
}

// NewHub returns an empty hub. obs may be nil.
func NewHub(obs Observer) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		obs:       obs,
		done:      make(chan struct{}),
		keepalive: keepaliveInterval,
	}
}

// Subscribe registers a new client. Call Unsubscribe when done.
func (h *Hub) Subscribe(events []string) *Client {
	c := &Client{
		events: events,
		ch:     make(chan *Event, clientBufferSize),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.setViewers(n)
	return c
}

// Unsubscribe removes a client. It is safe to call more than once.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.setViewers(n)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish marshals payload once and delivers it to every matching client.
func (h *Hub) Publish(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event, err)
	}
	h.PublishRaw(event, data)
	return nil
}

// PublishRaw delivers an already-encoded payload.
func (h *Hub) PublishRaw(event string, data []byte) {
	evt := &Event{ID: h.nextID.Add(1), Name: event, Data: data}

	// Snapshot so sends happen without holding the lock; clients may
	// subscribe or leave concurrently.
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.matches(event) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.ch <- evt:
		default:
			if h.obs != nil {
				h.obs.BroadcastDropped(event)
			}
		}
	}
}

// Close disconnects every streaming viewer. Publish keeps working but
// ServeHTTP returns immediately afterwards.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) setViewers(n int) {
	if h.obs != nil {
		h.obs.SetViewers(n)
	}
}

func (c *Client) matches(event string) bool {
	if len(c.events) == 0 {
		return true
	}
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

// ParseEventFilter splits a comma-separated ?events= value.
func ParseEventFilter(q string) []string {
	var events []string
	for _, e := range strings.Split(q, ",") {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}
	return events
}

// ServeHTTP streams events to a single viewer until it disconnects.
// The first frame is always a connected event.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	select {
	case <-h.done:
		http.Error(w, `{"error":"shutting down"}`, http.StatusServiceUnavailable)
		return
	default:
	}

	client := h.Subscribe(ParseEventFilter(r.URL.Query().Get("events")))
	defer h.Unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	greeting, _ := json.Marshal(map[string]string{"data": connectedGreeting})
	writeEvent(w, &Event{Name: EventConnected, Data: greeting})
	flusher.Flush()

	logging.Get(r.Context()).Debugw("viewer connected", "remote", r.RemoteAddr, "viewers", h.Count())

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case evt := <-client.ch:
			writeEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, evt *Event) {
	if evt.ID > 0 {
		fmt.Fprintf(w, "id:%d\n", evt.ID)
	}
	fmt.Fprintf(w, "event:%s\n", evt.Name)
	fmt.Fprintf(w, "data:%s\n\n", evt.Data)
}
