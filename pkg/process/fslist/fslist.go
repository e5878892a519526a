// Package fslist provides a filesystem-listing producer. Given a directory
// path as its item it emits one single-element tuple per regular file in
// that directory, making it a convenient entry producer for pipelines that
// fan file names out to downstream stations.
package fslist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wehubfusion/Daedalus/pkg/producer"
)

// Lister lists the regular files of a directory.
type Lister struct {
	// Root is the directory listed when the incoming item is nil, which is
	// the case when the lister is bound to an entry station and receives
	// the seeding unit.
	Root string
}

// New creates a Lister rooted at the given directory.
func New(root string) *Lister {
	return &Lister{Root: root}
}

// Produce lists the directory named by item (or the configured root for the
// nil seeding item) and emits one (name,) tuple per regular file, in
// directory order.
func (l *Lister) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	dir := l.Root
	if item != nil {
		s, ok := item.(string)
		if !ok {
			return fmt.Errorf("fslist expects a directory path string, got %T", item)
		}
		dir = s
	}
	if dir == "" {
		return fmt.Errorf("fslist has no directory to list")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := emit(producer.Tuple{entry.Name()}); err != nil {
			return err
		}
	}
	return nil
}
