package fslist

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

func listNames(t *testing.T, l *Lister, item any) []string {
	t.Helper()
	var names []string
	err := l.Produce(context.Background(), item, func(tuple producer.Tuple) error {
		require.Len(t, tuple, 1)
		names = append(names, tuple[0].(string))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(names)
	return names
}

func TestProduceEmitsRegularFilesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beta.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	names := listNames(t, New(dir), nil)
	assert.Equal(t, []string{"alpha.txt", "beta.txt"}, names)
}

func TestProducePrefersItemOverRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "from-item.txt"), []byte("x"), 0o644))

	names := listNames(t, New(root), other)
	assert.Equal(t, []string{"from-item.txt"}, names)
}

func TestProduceRejectsNonStringItem(t *testing.T) {
	err := New(t.TempDir()).Produce(context.Background(), 42, func(tuple producer.Tuple) error {
		t.Fatal("nothing should be emitted")
		return nil
	})
	assert.Error(t, err)
}

func TestProduceFailsOnMissingDirectory(t *testing.T) {
	err := New(filepath.Join(t.TempDir(), "missing")).Produce(context.Background(), nil, func(tuple producer.Tuple) error {
		return nil
	})
	assert.Error(t, err)
}

func TestProduceEmptyDirectoryEmitsNothing(t *testing.T) {
	names := listNames(t, New(t.TempDir()), nil)
	assert.Empty(t, names)
}
