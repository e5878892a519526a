package station

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/Daedalus/pkg/errors"
)

// Graph is the immutable routing table built once from a map of station
// specs. It resolves input names to stations and identifies the entry
// stations seeded at run start. After construction the graph is never
// mutated, so concurrent workers may use it without synchronization.
type Graph struct {
	byInput map[string]*Station
	entries []*Station
	all     []*Station
}

// NewGraph builds a Graph from the given specs. It fails with a
// configuration error when two specs share the same non-empty input name,
// when a spec has no producer, or when an output name does not resolve to
// a declared station. Output names are validated eagerly here so routing
// can never fail on an unknown destination at run time.
func NewGraph(specs map[string]Spec) (*Graph, error) {
	if len(specs) == 0 {
		return nil, errors.NewConfigurationError("at least one station is required", errors.ErrNoStations)
	}

	g := &Graph{byInput: make(map[string]*Station, len(specs))}

	// Sorted construction keeps entry-station seeding order deterministic
	// regardless of map iteration order.
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]
		if spec.Producer == nil {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("station %q has no producer", name), errors.ErrNilProducer)
		}
		st := &Station{
			name:     name,
			producer: spec.Producer,
			input:    spec.Input,
			outputs:  append([]string(nil), spec.Outputs...),
		}
		if spec.Input == "" {
			g.entries = append(g.entries, st)
		} else {
			if other, exists := g.byInput[spec.Input]; exists {
				return nil, errors.NewConfigurationError(
					fmt.Sprintf("stations %q and %q both declare input %q",
						other.name, name, spec.Input),
					errors.ErrDuplicateInput)
			}
			g.byInput[spec.Input] = st
		}
		g.all = append(g.all, st)
	}

	// Resolve every output position to its destination station.
	for _, st := range g.all {
		st.downstream = make([]*Station, len(st.outputs))
		for i, out := range st.outputs {
			dest, ok := g.byInput[out]
			if !ok {
				return nil, errors.NewConfigurationError(
					fmt.Sprintf("station %q output %q has no consumer", st.name, out),
					errors.ErrUnknownOutput)
			}
			st.downstream[i] = dest
		}
	}

	return g, nil
}

// Entries returns the entry stations in deterministic (name) order.
func (g *Graph) Entries() []*Station {
	return g.entries
}

// Resolve returns the station consuming the given input name.
func (g *Graph) Resolve(input string) (*Station, bool) {
	st, ok := g.byInput[input]
	return st, ok
}

// Stations returns every station in the graph in name order.
func (g *Graph) Stations() []*Station {
	return g.all
}

// Len returns the number of stations in the graph.
func (g *Graph) Len() int {
	return len(g.all)
}
