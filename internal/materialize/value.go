package materialize

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"github.com/agentic-research/parda/internal/decode"
)

// ErrConsumed is yielded when a Batches sequence is ranged over a second time.
var ErrConsumed = errors.New("batch sequence already consumed")

// FilesKey holds the files found directly inside a subdir or tagdir that
// declares its own extensions.
const FilesKey = "files"

// Kind says which field of a Value is populated.
type Kind uint8

const (
	KindMapping Kind = iota
	KindFiles
	KindBatches
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindFiles:
		return "files"
	case KindBatches:
		return "batches"
	default:
		return "unknown"
	}
}

// Value is one position of a materialized tree: a nested mapping, an
// eagerly loaded file list, or a lazy batch sequence.
type Value struct {
	Kind    Kind
	Mapping *Mapping
	Files   []decode.Payload
	Batches *Batches
}

func MappingValue(m *Mapping) Value { return Value{Kind: KindMapping, Mapping: m} }

func FilesValue(files []decode.Payload) Value { return Value{Kind: KindFiles, Files: files} }

func BatchesValue(b *Batches) Value { return Value{Kind: KindBatches, Batches: b} }

// Mapping is a string-keyed map that remembers insertion order, so reports
// walk it in declared order.
type Mapping struct {
	keys   []string
	values map[string]Value
}

func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// Set stores v under key. Overwriting keeps the key's original position.
func (m *Mapping) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Mapping) Len() int { return len(m.keys) }

// All iterates entries in insertion order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

type loadFunc func(ctx context.Context, rel []string) ([]decode.Payload, error)

// Batches is a leaf's file list split into consecutive batches. Nothing is
// decoded until a batch is pulled, and the sequence can be ranged once.
type Batches struct {
	rel      []string
	display  []string
	size     int
	load     loadFunc
	consumed atomic.Bool
}

func newBatches(rel, display []string, size int, load loadFunc) *Batches {
	return &Batches{rel: rel, display: display, size: size, load: load}
}

// Len returns the number of batches.
func (b *Batches) Len() int {
	return (len(b.rel) + b.size - 1) / b.size
}

// Files returns the number of files across all batches.
func (b *Batches) Files() int { return len(b.rel) }

// Paths returns the file paths in batch order.
func (b *Batches) Paths() []string {
	return append([]string(nil), b.display...)
}

// All yields each batch's payloads in order, loading one batch per step.
// Iteration stops after the first error. A second call yields ErrConsumed.
func (b *Batches) All(ctx context.Context) iter.Seq2[[]decode.Payload, error] {
	return func(yield func([]decode.Payload, error) bool) {
		if !b.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrConsumed)
			return
		}
		for start := 0; start < len(b.rel); start += b.size {
			end := min(start+b.size, len(b.rel))
			payloads, err := b.load(ctx, b.rel[start:end])
			if !yield(payloads, err) || err != nil {
				return
			}
		}
	}
}
