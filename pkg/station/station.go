// Package station models the processing stages of a pipeline and the
// immutable routing graph connecting them. A station binds a name to a
// producer, an optional input name and an ordered list of output names;
// the graph resolves those names once, at construction, and is read-only
// afterwards so concurrent workers can route without locking.
package station

import (
	"context"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// Spec declares a single station. It is the unit callers assemble into the
// stations map handed to the engine, typically from configuration data.
type Spec struct {
	// Producer is the transformation capability executed for each item
	// delivered to this station.
	Producer producer.Producer

	// Input is the name items must be routed to for this station to
	// receive them. Empty for entry stations, which are seeded once at
	// run start instead.
	Input string

	// Outputs is the ordered list of input names the elements of each
	// produced tuple are routed to. Element i of every tuple goes to the
	// station whose Input equals Outputs[i].
	Outputs []string
}

// Station is one resolved processing stage inside a Graph.
type Station struct {
	name     string
	producer producer.Producer
	input    string
	outputs  []string

	// downstream[i] is the resolved destination for tuple position i.
	// Populated during graph construction and never mutated afterwards.
	downstream []*Station
}

// Name returns the station's declared name.
func (s *Station) Name() string { return s.name }

// Input returns the input name this station consumes, or "" for an entry
// station.
func (s *Station) Input() string { return s.input }

// Outputs returns the ordered output names this station routes to.
func (s *Station) Outputs() []string { return s.outputs }

// IsEntry reports whether this station is seeded at run start rather than
// fed by another station.
func (s *Station) IsEntry() bool { return s.input == "" }

// RouteFunc receives one routed element for the given destination station.
// The engine supplies an implementation that enqueues a new work unit.
type RouteFunc func(dest *Station, item any) error

// Execute runs the station's producer against one item and fans the
// produced tuples out to the downstream stations. Each tuple's arity is
// validated against the station's output names before any of its elements
// are routed; a mismatch aborts production with a routing error. Producer
// failures are wrapped as processing errors.
func (s *Station) Execute(ctx context.Context, item any, route RouteFunc) error {
	err := s.producer.Produce(ctx, item, func(tuple producer.Tuple) error {
		if len(tuple) != len(s.outputs) {
			return errors.NewRoutingError(
				fmt.Sprintf("station %q produced a tuple of %d elements for %d outputs",
					s.name, len(tuple), len(s.outputs)),
				errors.ErrArityMismatch)
		}
		for i, dest := range s.downstream {
			if routeErr := route(dest, tuple[i]); routeErr != nil {
				return routeErr
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.IsRouting(err) {
		return err
	}
	return errors.NewProcessingError(
		fmt.Sprintf("station %q failed to process item", s.name), err)
}
