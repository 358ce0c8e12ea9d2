package broadcast

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingObserver struct {
	mu      sync.Mutex
	drops   map[string]int
	viewers int
}

func (o *countingObserver) BroadcastDropped(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.drops == nil {
		o.drops = make(map[string]int)
	}
	o.drops[event]++
}

func (o *countingObserver) SetViewers(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewers = n
}

func TestHub_PublishAndReceive(t *testing.T) {
	hub := NewHub(nil)

	client := hub.Subscribe(nil)
	defer hub.Unsubscribe(client)

	if err := hub.Publish(EventNewLog, map[string]any{"id": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case evt := <-client.C():
		if evt.Name != EventNewLog {
			t.Fatalf("expected name=%q, got %q", EventNewLog, evt.Name)
		}
		if string(evt.Data) != `{"id":1}` {
			t.Fatalf("expected data=%q, got %q", `{"id":1}`, string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_EveryViewerGetsEvent(t *testing.T) {
	hub := NewHub(nil)

	var clients []*Client
	for range 5 {
		c := hub.Subscribe(nil)
		defer hub.Unsubscribe(c)
		clients = append(clients, c)
	}

	hub.PublishRaw(EventAlert, []byte(`{}`))

	for i, c := range clients {
		select {
		case <-c.C():
		case <-time.After(time.Second):
			t.Fatalf("client %d did not receive event", i)
		}
	}
}

func TestHub_EventFilter(t *testing.T) {
	hub := NewHub(nil)

	client := hub.Subscribe([]string{EventAlert})
	defer hub.Unsubscribe(client)

	hub.PublishRaw(EventNewLog, []byte(`{}`))
	hub.PublishRaw(EventAlert, []byte(`{"severity":"high"}`))

	select {
	case evt := <-client.C():
		if evt.Name != EventAlert {
			t.Fatalf("expected %q, got %q", EventAlert, evt.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case evt := <-client.C():
		t.Fatalf("unexpected event: %q", evt.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(obs)

	client := hub.Subscribe(nil)
	if hub.Count() != 1 || obs.viewers != 1 {
		t.Fatalf("expected 1 viewer, got count=%d observed=%d", hub.Count(), obs.viewers)
	}
	hub.Unsubscribe(client)
	hub.Unsubscribe(client)

	hub.PublishRaw(EventNewLog, []byte(`{}`))

	select {
	case <-client.C():
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
	if hub.Count() != 0 || obs.viewers != 0 {
		t.Fatalf("expected 0 viewers, got count=%d observed=%d", hub.Count(), obs.viewers)
	}
}

func TestHub_SlowClientDropsWithoutBlocking(t *testing.T) {
	obs := &countingObserver{}
	hub := NewHub(obs)

	slow := hub.Subscribe(nil)
	defer hub.Unsubscribe(slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range clientBufferSize + 10 {
			hub.PublishRaw(EventNewGeneralLog, []byte(`{}`))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow client")
	}

	if len(slow.ch) != clientBufferSize {
		t.Fatalf("expected full buffer of %d, got %d", clientBufferSize, len(slow.ch))
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.drops[EventNewGeneralLog] != 10 {
		t.Fatalf("expected 10 drops, got %d", obs.drops[EventNewGeneralLog])
	}
}

func TestHub_ConcurrentSubscribeAndPublish(t *testing.T) {
	hub := NewHub(nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := hub.Subscribe(nil)
			hub.Unsubscribe(c)
		}()
		go func() {
			defer wg.Done()
			hub.PublishRaw(EventNewLog, []byte(`{}`))
		}()
	}
	wg.Wait()

	if hub.Count() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.Count())
	}
}

func TestHub_PublishMarshalError(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Publish(EventNewLog, make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestParseEventFilter(t *testing.T) {
	got := ParseEventFilter(" alert, new_log,,")
	if len(got) != 2 || got[0] != "alert" || got[1] != "new_log" {
		t.Fatalf("unexpected filter: %v", got)
	}
	if ParseEventFilter("") != nil {
		t.Fatal("expected nil filter for empty query")
	}
}

// readEvent reads one SSE frame (until a blank line), skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
}

func TestServeHTTP_ConnectedThenLive(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.PublishRaw(EventNewLog, []byte(`{"id":"before"}`))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	name, data := readEvent(t, r)
	if name != EventConnected || data != `{"data":"Connected to hookwatch"}` {
		t.Fatalf("first frame = %q %q", name, data)
	}

	// The greeting is written after Subscribe, so this is delivered.
	hub.PublishRaw(EventNewLog, []byte(`{"id":"after"}`))

	name, data = readEvent(t, r)
	if name != EventNewLog || data != `{"id":"after"}` {
		t.Fatalf("expected only the post-connect event, got %q %q", name, data)
	}
}

func TestServeHTTP_QueryFilter(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?events=alert")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readEvent(t, r) // connected

	hub.PublishRaw(EventNewLog, []byte(`{"skip":true}`))
	hub.PublishRaw(EventAlert, []byte(`{"severity":"high"}`))

	name, data := readEvent(t, r)
	if name != EventAlert || data != `{"severity":"high"}` {
		t.Fatalf("got %q %q", name, data)
	}
}

func TestServeHTTP_CloseEndsStreams(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	readEvent(t, bufio.NewReader(resp.Body))

	hub.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream did not end after Close")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp2, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET after close: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after Close, got %d", resp2.StatusCode)
	}
}

func TestServeHTTP_Keepalive(t *testing.T) {
	hub := NewHub(nil)
	hub.keepalive = 20 * time.Millisecond
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readEvent(t, r)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading keepalive: %v", err)
	}
	if line != ":keepalive\n" {
		t.Fatalf("expected keepalive comment, got %q", line)
	}
}
