// Package natsfeed provides an entry producer that drains one finite batch
// of pending messages from a NATS JetStream consumer into the pipeline.
// Each fetched message is emitted as a single-element tuple carrying its
// payload and acknowledged once routed. The engine itself stays
// single-process; the feed is an ordinary collaborator ingesting external
// data.
package natsfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wehubfusion/Daedalus/pkg/producer"
	"go.uber.org/zap"
)

// JetStream is the narrow JetStream surface the feed depends on. It is
// implemented by nats.JetStreamContext via Wrap and by mocks in tests.
type JetStream interface {
	PullSubscribe(subject, durable string, opts ...nats.SubOpt) (Subscription, error)
}

// Subscription is the pull-subscription surface the feed fetches from.
type Subscription interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
	Unsubscribe() error
}

// Wrap adapts a nats.JetStreamContext to the JetStream interface.
func Wrap(js nats.JetStreamContext) JetStream {
	return jsAdapter{js: js}
}

type jsAdapter struct {
	js nats.JetStreamContext
}

func (a jsAdapter) PullSubscribe(subject, durable string, opts ...nats.SubOpt) (Subscription, error) {
	return a.js.PullSubscribe(subject, durable, opts...)
}

// Feed fetches one batch of pending JetStream messages per invocation.
type Feed struct {
	js        JetStream
	stream    string
	consumer  string
	batchSize int
	fetchWait time.Duration
	logger    *zap.Logger
}

// New creates a Feed bound to an existing durable pull consumer.
// batchSize defaults to 10 when <= 0.
func New(js JetStream, stream, consumer string, batchSize int, logger *zap.Logger) (*Feed, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context cannot be nil")
	}
	if stream == "" || consumer == "" {
		return nil, fmt.Errorf("stream and consumer names are required")
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Feed{
		js:        js,
		stream:    stream,
		consumer:  consumer,
		batchSize: batchSize,
		fetchWait: 3 * time.Second,
		logger:    logger,
	}, nil
}

// Produce fetches up to the configured batch of pending messages and emits
// each payload as a (data,) tuple, acknowledging messages as they are
// routed. An empty stream emits nothing; that is not an error.
func (f *Feed) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	f.logger.Debug("Fetching messages",
		zap.String("stream", f.stream),
		zap.String("consumer", f.consumer),
		zap.Int("batch_size", f.batchSize))

	// Bind to the existing consumer
	sub, err := f.js.PullSubscribe("", f.consumer, nats.Bind(f.stream, f.consumer))
	if err != nil {
		return fmt.Errorf("failed to bind to consumer %s/%s: %w", f.stream, f.consumer, err)
	}
	defer sub.Unsubscribe()

	// Respect an earlier context deadline, if any
	wait := f.fetchWait
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < wait {
			wait = remaining
		}
	}

	msgs, err := sub.Fetch(f.batchSize, nats.MaxWait(wait))
	if err != nil {
		// Timeout with no pending messages is normal for an idle stream
		if err == nats.ErrTimeout {
			f.logger.Debug("No messages pending",
				zap.String("stream", f.stream),
				zap.String("consumer", f.consumer))
			return nil
		}
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	for _, msg := range msgs {
		if err := emit(producer.Tuple{string(msg.Data)}); err != nil {
			// Leave the message unacknowledged so it is redelivered
			if nakErr := msg.Nak(); nakErr != nil {
				f.logger.Warn("Failed to nak message", zap.Error(nakErr))
			}
			return err
		}
		if ackErr := msg.Ack(); ackErr != nil {
			f.logger.Warn("Failed to ack message", zap.Error(ackErr))
		}
	}

	f.logger.Debug("Batch routed",
		zap.String("stream", f.stream),
		zap.Int("messages", len(msgs)))
	return nil
}
