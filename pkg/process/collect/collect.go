// Package collect provides a terminal producer that retains every item it
// receives in memory. It exists because the engine deliberately returns no
// aggregate outputs: a caller that wants the final products of a run binds
// a Collector to the terminal stations and reads the items back afterwards.
package collect

import (
	"context"
	"sync"

	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// Collector accumulates items and emits nothing.
type Collector struct {
	mu    sync.Mutex
	items []any
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{}
}

// Produce records the item. No tuples are emitted, so a collector station
// never creates downstream work.
func (c *Collector) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	return nil
}

// Items returns a copy of the collected items. Order reflects completion
// order, which is undefined across concurrent branches.
func (c *Collector) Items() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.items...)
}

// Len returns how many items have been collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
