// Package materialize walks a parsed definition against a source directory
// and loads every declared leaf into a nested Mapping.
//
// The walk is sequential and depth-first in declared order. Concurrency only
// happens inside a single leaf, where files are decoded by a bounded pool
// and collected in listing order.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"

	"github.com/agentic-research/parda/api"
	"github.com/agentic-research/parda/internal/decode"
	"github.com/agentic-research/parda/internal/pool"
	"github.com/agentic-research/parda/internal/source"
)

// ErrDirectoryNotFound is returned when a declared directory is missing.
var ErrDirectoryNotFound = errors.New("directory not found")

// Decoder loads one file from a source filesystem.
type Decoder interface {
	Decode(fsys billy.Filesystem, path string) (decode.Payload, error)
}

// Materializer turns definitions into loaded datasets.
type Materializer struct {
	opts    Options
	open    source.Opener
	decoder Decoder
	logger  *slog.Logger
}

// New returns a Materializer. A nil logger uses slog.Default().
func New(opts Options, open source.Opener, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{opts: opts, open: open, logger: logger}
}

// SetDecoder overrides the decoder. By default each call builds a
// decode.Registry from the definition's transformations.
func (m *Materializer) SetDecoder(d Decoder) {
	m.decoder = d
}

// Materialize loads every leaf of def. Subdirs and tagdirs become nested
// mappings; labeldirs, and the "files" key of directories that declare
// extensions, hold either the decoded payloads or a lazy Batches.
//
// A missing source directory returns a nil mapping. Failures further down
// return the mapping populated so far together with the error.
func (m *Materializer) Materialize(ctx context.Context, def *api.Definition) (*Mapping, error) {
	w, err := m.start(def)
	if err != nil {
		return nil, err
	}
	root := NewMapping()
	err = w.walk(def.Structure, "", nil, root, func(_ *api.Node, _ []string, _ string, rel []string) (Value, error) {
		display := w.displayAll(rel)
		if m.opts.Lazy {
			return BatchesValue(newBatches(rel, display, m.opts.BatchSize, w.load)), nil
		}
		payloads, err := w.load(ctx, rel)
		if err != nil {
			return Value{}, err
		}
		return FilesValue(payloads), nil
	})
	return root, err
}

// Leaf is one resolved leaf of a plan.
type Leaf struct {
	// Key is the chain of mapping keys leading to this leaf's value,
	// ending in FilesKey for directories with their own extensions.
	Key        []string
	Dir        string
	Extensions []string
	Files      []string
}

// Plan resolves every leaf's file list, with shuffling and truncation
// applied, without decoding anything.
func (m *Materializer) Plan(ctx context.Context, def *api.Definition) ([]Leaf, error) {
	w, err := m.start(def)
	if err != nil {
		return nil, err
	}
	var leaves []Leaf
	err = w.walk(def.Structure, "", nil, NewMapping(), func(n *api.Node, key []string, dir string, rel []string) (Value, error) {
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}
		leaves = append(leaves, Leaf{
			Key:        key,
			Dir:        w.display(dir),
			Extensions: n.Extensions,
			Files:      w.displayAll(rel),
		})
		return Value{}, nil
	})
	if err != nil {
		return nil, err
	}
	return leaves, nil
}

func (m *Materializer) start(def *api.Definition) (*walker, error) {
	if err := m.opts.Validate(); err != nil {
		return nil, err
	}
	fsys, err := m.open(def.SourceDir)
	if err != nil {
		if source.IsNotExist(err) || errors.Is(err, source.ErrNotDirectory) {
			return nil, fmt.Errorf("source %q: %w", def.SourceDir, ErrDirectoryNotFound)
		}
		return nil, fmt.Errorf("open source %q: %w", def.SourceDir, err)
	}

	dec := m.decoder
	if dec == nil {
		dec = decode.NewRegistry(def.Transformations...)
	}

	seed := m.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &walker{
		fsys:    fsys,
		root:    def.SourceDir,
		opts:    m.opts,
		decoder: dec,
		rng:     rand.New(rand.NewPCG(seed, seed)),
		logger:  m.logger.With("dataset", def.Name),
	}, nil
}

// leafFunc produces the value of one leaf from its resolved files.
type leafFunc func(n *api.Node, key []string, dir string, rel []string) (Value, error)

// walker carries the state of one Materialize or Plan call.
type walker struct {
	fsys    billy.Filesystem
	root    string
	opts    Options
	decoder Decoder
	rng     *rand.Rand
	logger  *slog.Logger
}

func (w *walker) walk(nodes []*api.Node, rel string, key []string, into *Mapping, leaf leafFunc) error {
	for _, n := range nodes {
		p := w.fsys.Join(rel, n.Name)
		k := append(append([]string(nil), key...), n.Name)

		switch n.Kind {
		case api.KindSubdir, api.KindTagdir:
			if err := w.requireDir(p); err != nil {
				return err
			}
			child := NewMapping()
			into.Set(n.Name, MappingValue(child))
			if err := w.walk(n.Children, p, k, child, leaf); err != nil {
				return err
			}
			if len(n.Extensions) > 0 {
				v, err := w.leaf(n, p, append(k, FilesKey), leaf)
				if err != nil {
					return err
				}
				child.Set(FilesKey, v)
			}

		case api.KindLabeldir:
			v, err := w.leaf(n, p, k, leaf)
			if err != nil {
				return err
			}
			into.Set(n.Name, v)
		}
	}
	return nil
}

func (w *walker) leaf(n *api.Node, dir string, key []string, fn leafFunc) (Value, error) {
	files, err := w.resolve(dir, n.Extensions)
	if err != nil {
		return Value{}, err
	}
	return fn(n, key, dir, files)
}

func (w *walker) requireDir(p string) error {
	info, err := w.fsys.Stat(p)
	if err != nil {
		if source.IsNotExist(err) {
			return fmt.Errorf("%s: %w", w.display(p), ErrDirectoryNotFound)
		}
		return fmt.Errorf("stat %s: %w", w.display(p), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", w.display(p), ErrDirectoryNotFound)
	}
	return nil
}

// resolve lists the files directly inside dir whose names end with one of
// exts, then shuffles and truncates per the options.
func (w *walker) resolve(dir string, exts []string) ([]string, error) {
	if err := w.requireDir(dir); err != nil {
		return nil, err
	}
	entries, err := w.fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", w.display(dir), err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !hasSuffix(e.Name(), exts) {
			continue
		}
		files = append(files, w.fsys.Join(dir, e.Name()))
	}
	matched := len(files)

	if w.opts.Shuffle {
		w.rng.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
	}
	if limit := w.opts.MaxFilesPerLeaf; limit != nil && len(files) > *limit {
		files = files[:*limit]
	}

	w.logger.Debug("resolved leaf", "dir", w.display(dir), "extensions", exts, "matched", matched, "kept", len(files))
	return files, nil
}

func hasSuffix(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// load decodes rel with the worker pool; results keep the order of rel.
func (w *walker) load(ctx context.Context, rel []string) ([]decode.Payload, error) {
	start := time.Now()
	payloads, err := pool.Map(ctx, w.opts.Workers, rel, func(_ context.Context, p string) (decode.Payload, error) {
		payload, err := w.decoder.Decode(w.fsys, p)
		if err != nil {
			return decode.Payload{}, err
		}
		payload.Path = w.display(p)
		return payload, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %d files: %w", len(rel), err)
	}
	w.logger.Debug("loaded files", "count", len(payloads), "workers", w.opts.Workers, "elapsed", time.Since(start))
	return payloads, nil
}

// display maps a path relative to the source root back to one the user
// recognizes.
func (w *walker) display(rel string) string {
	return filepath.Join(w.root, rel)
}

func (w *walker) displayAll(rel []string) []string {
	out := make([]string, len(rel))
	for i, r := range rel {
		out[i] = w.display(r)
	}
	return out
}
