// Package producer defines the transformation capability contract consumed by
// stations. A producer maps one input item to a finite, ordered sequence of
// fixed-arity output tuples; stations route each tuple element to the
// downstream station configured for that position.
package producer

import "context"

// Tuple is one produced output row. Its length must equal the number of
// output names declared by the station invoking the producer.
type Tuple []any

// EmitFunc receives produced tuples one at a time, in order. It returns an
// error when the tuple cannot be routed; the producer must stop producing
// and return that error.
type EmitFunc func(tuple Tuple) error

// Producer is the transformation capability bound to a station.
// Implementations should handle the business logic for transforming
// individual items.
//
// Produce is invoked once per work unit. The item is nil for the seeding
// unit delivered to entry stations. Implementations may emit zero tuples;
// an empty sequence simply produces no downstream work.
type Producer interface {
	Produce(ctx context.Context, item any, emit EmitFunc) error
}

// ProducerFunc adapts a plain function to the Producer interface.
type ProducerFunc func(ctx context.Context, item any, emit EmitFunc) error

// Produce implements Producer
func (f ProducerFunc) Produce(ctx context.Context, item any, emit EmitFunc) error {
	return f(ctx, item, emit)
}
