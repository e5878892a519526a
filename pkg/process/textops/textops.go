// Package textops provides a string transformation producer. Each instance
// is configured with one operation and maps a string item to a single
// transformed tuple, or to one tuple per part for splitting operations.
package textops

import (
	"context"
	"fmt"
	stdstrings "strings"
	"unicode/utf8"

	"github.com/wehubfusion/Daedalus/pkg/producer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Operation names supported by the transformer.
const (
	OpUpper      = "upper"
	OpLower      = "lower"
	OpTitle      = "title"
	OpTrim       = "trim"
	OpSplit      = "split"
	OpPrefix     = "prefix"
	OpSuffix     = "suffix"
	OpCapitalize = "capitalize"
)

// Transformer applies a configured string operation to each incoming item.
type Transformer struct {
	// Operation selects the transformation.
	Operation string

	// Argument parameterizes the operation: the delimiter for split, the
	// affix for prefix/suffix, the cutset for trim (empty trims spaces).
	Argument string
}

// New creates a Transformer for the given operation.
func New(operation, argument string) *Transformer {
	return &Transformer{Operation: operation, Argument: argument}
}

// Produce transforms the string item and emits the result as a 1-tuple. The
// split operation emits one tuple per part. A nil item emits nothing.
func (t *Transformer) Produce(ctx context.Context, item any, emit producer.EmitFunc) error {
	if item == nil {
		return nil
	}
	s, ok := item.(string)
	if !ok {
		return fmt.Errorf("textops expects a string item, got %T", item)
	}

	switch t.Operation {
	case OpUpper:
		return emit(producer.Tuple{stdstrings.ToUpper(s)})
	case OpLower:
		return emit(producer.Tuple{stdstrings.ToLower(s)})
	case OpTitle:
		return emit(producer.Tuple{cases.Title(language.Und).String(s)})
	case OpTrim:
		return emit(producer.Tuple{trim(s, t.Argument)})
	case OpSplit:
		for _, part := range split(s, t.Argument) {
			if err := emit(producer.Tuple{part}); err != nil {
				return err
			}
		}
		return nil
	case OpPrefix:
		return emit(producer.Tuple{t.Argument + s})
	case OpSuffix:
		return emit(producer.Tuple{s + t.Argument})
	case OpCapitalize:
		return emit(producer.Tuple{capitalize(s)})
	default:
		return fmt.Errorf("unknown textops operation %q", t.Operation)
	}
}

// trim removes whitespace or the provided cutset from both ends.
// If cutset is empty, it trims unicode whitespace.
func trim(s, cutset string) string {
	if cutset == "" {
		return stdstrings.TrimSpace(s)
	}
	return stdstrings.Trim(s, cutset)
}

// split splits a string by the given delimiter.
func split(s, delimiter string) []string {
	if delimiter == "" {
		return []string{s}
	}
	return stdstrings.Split(s, delimiter)
}

// capitalize upper-cases the first letter (rune-safe) and leaves the rest
// unchanged.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(string(r)) + s[size:]
}
