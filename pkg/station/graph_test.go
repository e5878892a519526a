package station

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

func noopProducer() producer.Producer {
	return producer.ProducerFunc(func(ctx context.Context, item any, emit producer.EmitFunc) error {
		return nil
	})
}

func TestNewGraphResolvesStations(t *testing.T) {
	specs := map[string]Spec{
		"source": {Producer: noopProducer(), Outputs: []string{"items"}},
		"sink":   {Producer: noopProducer(), Input: "items"},
	}

	g, err := NewGraph(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Len() != 2 {
		t.Fatalf("expected 2 stations, got %d", g.Len())
	}

	sink, ok := g.Resolve("items")
	if !ok {
		t.Fatal("expected input \"items\" to resolve")
	}
	if sink.Name() != "sink" {
		t.Fatalf("expected sink, got %q", sink.Name())
	}

	entries := g.Entries()
	if len(entries) != 1 || entries[0].Name() != "source" {
		t.Fatalf("expected single entry station \"source\", got %v", entries)
	}
	if !entries[0].IsEntry() {
		t.Fatal("source should be an entry station")
	}
	if sink.IsEntry() {
		t.Fatal("sink should not be an entry station")
	}
}

func TestNewGraphEntriesAreSortedByName(t *testing.T) {
	specs := map[string]Spec{
		"zeta":  {Producer: noopProducer()},
		"alpha": {Producer: noopProducer()},
		"mid":   {Producer: noopProducer()},
	}

	g, err := NewGraph(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, e := range g.Entries() {
		names = append(names, e.Name())
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("expected entries %v, got %v", want, names)
		}
	}
}

func TestNewGraphRejectsDuplicateInput(t *testing.T) {
	specs := map[string]Spec{
		"first":  {Producer: noopProducer(), Input: "shared"},
		"second": {Producer: noopProducer(), Input: "shared"},
		"source": {Producer: noopProducer(), Outputs: []string{"shared"}},
	}

	_, err := NewGraph(specs)
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !stderrors.Is(err, errors.ErrDuplicateInput) {
		t.Fatalf("expected ErrDuplicateInput, got %v", err)
	}
}

func TestNewGraphRejectsUnknownOutput(t *testing.T) {
	specs := map[string]Spec{
		"source": {Producer: noopProducer(), Outputs: []string{"missing"}},
	}

	_, err := NewGraph(specs)
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewGraphRejectsNilProducer(t *testing.T) {
	specs := map[string]Spec{
		"broken": {},
	}

	_, err := NewGraph(specs)
	if err == nil || !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewGraphRejectsEmptySpecs(t *testing.T) {
	_, err := NewGraph(nil)
	if err == nil || !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
