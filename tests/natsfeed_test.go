package tests

import (
	"context"
	"errors"
	"testing"

	nats "github.com/nats-io/nats.go"
	"github.com/wehubfusion/Daedalus/pkg/process/natsfeed"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// mockSubscription implements natsfeed.Subscription for testing
type mockSubscription struct {
	msgs         []*nats.Msg
	fetchErr     error
	unsubscribed bool
}

func (m *mockSubscription) Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if batch > len(m.msgs) {
		batch = len(m.msgs)
	}
	return m.msgs[:batch], nil
}

func (m *mockSubscription) Unsubscribe() error {
	m.unsubscribed = true
	return nil
}

// mockJetStream implements natsfeed.JetStream for testing
type mockJetStream struct {
	sub      *mockSubscription
	bindErr  error
	consumer string
}

func (m *mockJetStream) PullSubscribe(subject, durable string, opts ...nats.SubOpt) (natsfeed.Subscription, error) {
	if m.bindErr != nil {
		return nil, m.bindErr
	}
	m.consumer = durable
	return m.sub, nil
}

func natsMsgs(payloads ...string) []*nats.Msg {
	msgs := make([]*nats.Msg, len(payloads))
	for i, p := range payloads {
		msgs[i] = &nats.Msg{Subject: "work.items", Data: []byte(p)}
	}
	return msgs
}

func TestFeedEmitsOneTuplePerMessage(t *testing.T) {
	js := &mockJetStream{sub: &mockSubscription{msgs: natsMsgs("one", "two", "three")}}
	feed, err := natsfeed.New(js, "WORK", "workers", 10, createTestLogger())
	if err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}

	var got []string
	err = feed.Produce(context.Background(), nil, func(tuple producer.Tuple) error {
		if len(tuple) != 1 {
			t.Fatalf("expected 1-tuples, got %d elements", len(tuple))
		}
		got = append(got, tuple[0].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("produce failed: %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if !js.sub.unsubscribed {
		t.Fatal("feed should unsubscribe after the batch")
	}
	if js.consumer != "workers" {
		t.Fatalf("feed bound to the wrong consumer: %q", js.consumer)
	}
}

func TestFeedRespectsBatchSize(t *testing.T) {
	js := &mockJetStream{sub: &mockSubscription{msgs: natsMsgs("a", "b", "c", "d")}}
	feed, err := natsfeed.New(js, "WORK", "workers", 2, createTestLogger())
	if err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}

	count := 0
	if err := feed.Produce(context.Background(), nil, func(tuple producer.Tuple) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 emitted tuples, got %d", count)
	}
}

func TestFeedIdleStreamEmitsNothing(t *testing.T) {
	js := &mockJetStream{sub: &mockSubscription{fetchErr: nats.ErrTimeout}}
	feed, err := natsfeed.New(js, "WORK", "workers", 10, createTestLogger())
	if err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}

	if err := feed.Produce(context.Background(), nil, func(tuple producer.Tuple) error {
		t.Fatal("nothing should be emitted")
		return nil
	}); err != nil {
		t.Fatalf("an idle stream is not an error: %v", err)
	}
}

func TestFeedSurfacesFetchErrors(t *testing.T) {
	js := &mockJetStream{sub: &mockSubscription{fetchErr: errors.New("connection lost")}}
	feed, err := natsfeed.New(js, "WORK", "workers", 10, createTestLogger())
	if err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}

	if err := feed.Produce(context.Background(), nil, func(tuple producer.Tuple) error {
		return nil
	}); err == nil {
		t.Fatal("expected the fetch error to surface")
	}
}

func TestFeedValidatesConstruction(t *testing.T) {
	if _, err := natsfeed.New(nil, "WORK", "workers", 10, createTestLogger()); err == nil {
		t.Fatal("expected error for nil JetStream")
	}
	js := &mockJetStream{sub: &mockSubscription{}}
	if _, err := natsfeed.New(js, "", "workers", 10, createTestLogger()); err == nil {
		t.Fatal("expected error for empty stream")
	}
	if _, err := natsfeed.New(js, "WORK", "", 10, createTestLogger()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
}
