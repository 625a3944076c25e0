// Package dataset reports on and reshapes materialized datasets.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/parda/api"
	"github.com/agentic-research/parda/internal/materialize"
)

var (
	// ErrLazyLeaf is returned by operations that need decoded payloads when
	// the dataset was materialized lazily.
	ErrLazyLeaf = errors.New("leaf holds lazy batches")
	// ErrInvalidRatio is returned for split ratios outside [0, 1].
	ErrInvalidRatio = errors.New("split ratio must be within [0, 1]")
)

// sampleDepth is the nesting depth below which leaves list sample files.
const sampleDepth = 2

// Visualize writes the definition's header followed by an indented tree of
// root. Leaves report their file count; leaves shallower than two levels
// also list up to samples payload summaries.
func Visualize(w io.Writer, def *api.Definition, root *materialize.Mapping, samples int) error {
	p := &printer{w: w}
	p.printf("Dataset: %s\n", def.Name)
	p.printf("Source Directory: %s\n", def.SourceDir)
	p.printf("Output Format: %s\n", def.OutputFormat)
	p.printf("Transformations: [%s]\n", strings.Join(def.Transformations, ", "))
	p.printf("Dataset Structure:\n")
	visualize(p, root, samples, 0)
	return p.err
}

// WriteTree writes only the indented tree part of Visualize.
func WriteTree(w io.Writer, root *materialize.Mapping, samples int) error {
	p := &printer{w: w}
	visualize(p, root, samples, 0)
	return p.err
}

func visualize(p *printer, m *materialize.Mapping, samples, depth int) {
	indent := strings.Repeat("    ", depth)
	for key, v := range m.All() {
		switch v.Kind {
		case materialize.KindMapping:
			p.printf("%s%s:\n", indent, key)
			visualize(p, v.Mapping, samples, depth+1)
		case materialize.KindFiles:
			p.printf("%s%s: %d files\n", indent, key, len(v.Files))
			if len(v.Files) > 0 && depth < sampleDepth && samples > 0 {
				p.printf("%s  Samples:\n", indent)
				for _, f := range v.Files[:min(samples, len(v.Files))] {
					p.printf("%s    %s\n", indent, f.Summary())
				}
			}
		case materialize.KindBatches:
			p.printf("%s%s: %d files in %d batches\n", indent, key, v.Batches.Files(), v.Batches.Len())
		}
	}
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Split divides every leaf of root: the first int(len*ratio) payloads go to
// train and the rest to validation. Both results mirror root's shape.
func Split(root *materialize.Mapping, ratio float64) (train, val *materialize.Mapping, err error) {
	if ratio < 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRatio, ratio)
	}
	train, val = materialize.NewMapping(), materialize.NewMapping()
	if err := split(root, train, val, ratio, ""); err != nil {
		return nil, nil, err
	}
	return train, val, nil
}

func split(m, train, val *materialize.Mapping, ratio float64, prefix string) error {
	for k, v := range m.All() {
		path := prefix + k
		switch v.Kind {
		case materialize.KindMapping:
			t, vl := materialize.NewMapping(), materialize.NewMapping()
			train.Set(k, materialize.MappingValue(t))
			val.Set(k, materialize.MappingValue(vl))
			if err := split(v.Mapping, t, vl, ratio, path+"/"); err != nil {
				return err
			}
		case materialize.KindFiles:
			n := int(float64(len(v.Files)) * ratio)
			train.Set(k, materialize.FilesValue(v.Files[:n:n]))
			val.Set(k, materialize.FilesValue(v.Files[n:]))
		case materialize.KindBatches:
			return fmt.Errorf("split %s: %w", path, ErrLazyLeaf)
		}
	}
	return nil
}

// ClassWeight is the inverse-frequency weight of one class.
type ClassWeight struct {
	Class  string  `json:"class"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// ClassWeights counts files per leaf name, summing leaves that share a name
// across branches, and weighs each class by total/count. Classes are returned
// in first-seen order; classes with no files are omitted.
func ClassWeights(root *materialize.Mapping) []ClassWeight {
	counts := make(map[string]int)
	var order []string
	eachLeaf(root, func(key string, v materialize.Value) {
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key] += leafLen(v)
	})

	total := 0
	for _, c := range counts {
		total += c
	}
	var out []ClassWeight
	for _, class := range order {
		c := counts[class]
		if c == 0 {
			continue
		}
		out = append(out, ClassWeight{Class: class, Count: c, Weight: float64(total) / float64(c)})
	}
	return out
}

// FilePaths returns the path of every file in root in walk order. Lazy leaves
// contribute their planned paths without loading anything.
func FilePaths(root *materialize.Mapping) []string {
	var out []string
	eachLeaf(root, func(_ string, v materialize.Value) {
		switch v.Kind {
		case materialize.KindFiles:
			for _, f := range v.Files {
				out = append(out, f.Path)
			}
		case materialize.KindBatches:
			out = append(out, v.Batches.Paths()...)
		}
	})
	return out
}

// Count returns the number of files across all leaves.
func Count(root *materialize.Mapping) int {
	n := 0
	eachLeaf(root, func(_ string, v materialize.Value) { n += leafLen(v) })
	return n
}

func eachLeaf(m *materialize.Mapping, fn func(key string, v materialize.Value)) {
	for k, v := range m.All() {
		if v.Kind == materialize.KindMapping {
			eachLeaf(v.Mapping, fn)
			continue
		}
		fn(k, v)
	}
}

func leafLen(v materialize.Value) int {
	if v.Kind == materialize.KindBatches {
		return v.Batches.Files()
	}
	return len(v.Files)
}
