package textops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wehubfusion/Daedalus/pkg/producer"
)

func transform(t *testing.T, tr *Transformer, item any) []string {
	t.Helper()
	var out []string
	err := tr.Produce(context.Background(), item, func(tuple producer.Tuple) error {
		require.Len(t, tuple, 1)
		out = append(out, tuple[0].(string))
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestUpperLower(t *testing.T) {
	assert.Equal(t, []string{"HELLO"}, transform(t, New(OpUpper, ""), "hello"))
	assert.Equal(t, []string{"hello"}, transform(t, New(OpLower, ""), "HELLO"))
}

func TestTitleCaseIsUnicodeAware(t *testing.T) {
	assert.Equal(t, []string{"Hello World"}, transform(t, New(OpTitle, ""), "hello world"))
}

func TestCapitalizeIsRuneSafe(t *testing.T) {
	assert.Equal(t, []string{"Über"}, transform(t, New(OpCapitalize, ""), "über"))
	assert.Equal(t, []string{"Go"}, transform(t, New(OpCapitalize, ""), "go"))
}

func TestTrimDefaultsToWhitespace(t *testing.T) {
	assert.Equal(t, []string{"padded"}, transform(t, New(OpTrim, ""), "  padded\t"))
	assert.Equal(t, []string{"core"}, transform(t, New(OpTrim, "-"), "--core--"))
}

func TestSplitEmitsOneTuplePerPart(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, transform(t, New(OpSplit, ","), "a,b,c"))
}

func TestPrefixSuffix(t *testing.T) {
	assert.Equal(t, []string{"pre-x"}, transform(t, New(OpPrefix, "pre-"), "x"))
	assert.Equal(t, []string{"x.txt"}, transform(t, New(OpSuffix, ".txt"), "x"))
}

func TestNilItemEmitsNothing(t *testing.T) {
	assert.Empty(t, transform(t, New(OpUpper, ""), nil))
}

func TestUnknownOperationFails(t *testing.T) {
	err := New("rot13", "").Produce(context.Background(), "x", func(tuple producer.Tuple) error {
		return nil
	})
	assert.Error(t, err)
}

func TestNonStringItemFails(t *testing.T) {
	err := New(OpUpper, "").Produce(context.Background(), 3.14, func(tuple producer.Tuple) error {
		return nil
	})
	assert.Error(t, err)
}
