package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicLogReport, EntryAppended{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestTopicForKind(t *testing.T) {
	for _, tc := range []struct {
		kind model.Kind
		want string
	}{
		{model.KindReport, TopicLogReport},
		{model.KindAdminAction, TopicLogAdminAction},
		{model.KindGeneral, TopicLogGeneral},
		{model.Kind("other"), TopicLogGeneral},
	} {
		if got := TopicForKind(tc.kind); got != tc.want {
			t.Errorf("TopicForKind(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicLogReport, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := EntryAppended{Entry: &model.LogEntry{ID: 7, Kind: model.KindReport, Content: "player report"}}
	if err := pub.Publish(context.Background(), TopicLogReport, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.Flush()

	select {
	case msg := <-ch:
		var got EntryAppended
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Entry.ID != 7 || got.Entry.Content != "player report" {
			t.Errorf("got entry %+v", got.Entry)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicLogReport, EntryAppended{Entry: &model.LogEntry{ID: 1}}},
		{TopicLogAdminAction, EntryAppended{Entry: &model.LogEntry{ID: 2}}},
		{TopicLogGeneral, EntryAppended{Entry: &model.LogEntry{ID: 3}}},
		{TopicAlert, AlertRaised{Alert: model.Alert{Type: model.AlertTypeSuspicious}}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.Flush()

	for i := 0; i < 4; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicAlert, AlertRaised{}); err == nil {
		t.Error("expected error publishing with canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	err = pub.Publish(context.Background(), TopicLogGeneral, EntryAppended{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
