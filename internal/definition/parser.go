package definition

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentic-research/parda/api"
)

// ErrMalformed is returned for definition text the parser cannot turn into
// a definition. Callers should match it with errors.Is.
var ErrMalformed = errors.New("malformed definition")

func malformed(l Line, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %w", l.Number, fmt.Sprintf(format, args...), ErrMalformed)
}

// Parse turns definition text into a Definition.
//
// The brace counter is reset to 1 by the dataset line and incremented by the
// structure line, so a dataset block's own braces participate in the count
// and the structure body ends when the dataset block closes. Lines outside
// the structure block that match no directive are ignored, except that a
// closing brace or structure entry after a block has already ended means the
// block closed early and is malformed.
func Parse(text string) (*api.Definition, error) {
	def := &api.Definition{}

	var (
		depth   int
		inBlock bool
		closed  Line // where the last structure block ended
		body    []Line
		start   Line
	)

	for _, l := range Scan(text) {
		switch l.Kind {
		case KindDataset:
			name, ok := l.FirstQuoted()
			if !ok {
				return nil, malformed(l, "dataset directive without a quoted name")
			}
			def.Name = name
			depth = 1
			closed = Line{}
			continue
		case KindSourceDir:
			v, ok := l.FirstQuoted()
			if !ok {
				return nil, malformed(l, "source_dir directive without a quoted path")
			}
			def.SourceDir = v
			continue
		case KindStructure:
			inBlock = true
			start = l
			closed = Line{}
			depth++
			continue
		case KindOutputFormat:
			v, ok := l.FirstQuoted()
			if !ok {
				return nil, malformed(l, "output_format directive without a quoted value")
			}
			def.OutputFormat = v
			continue
		case KindTransformations:
			quoted := l.Quoted()
			def.Transformations = make([]string, 0, len(quoted))
			for _, t := range quoted {
				def.Transformations = append(def.Transformations, strings.TrimSpace(t))
			}
			continue
		}

		if !inBlock {
			if closed.Number > 0 && (l.Closes || isEntry(l.Kind)) {
				return nil, malformed(l, "unbalanced braces: %s after the structure block closed at line %d", l.Kind, closed.Number)
			}
			continue
		}

		if l.Opens {
			depth++
		} else if l.Closes {
			depth--
			if depth == 0 {
				inBlock = false
				closed = l
				nodes, err := build(body)
				if err != nil {
					return nil, err
				}
				def.Structure = append(def.Structure, nodes...)
				body = nil
				continue
			}
		}
		body = append(body, l)
	}

	if inBlock {
		return nil, malformed(start, "structure block is never closed (depth %d at end of input)", depth)
	}
	return def, nil
}

func isEntry(k LineKind) bool {
	switch k {
	case KindSubdir, KindTagdir, KindLabeldir, KindFiles:
		return true
	}
	return false
}

// ParseFile reads and parses the definition at path.
func ParseFile(path string) (*api.Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition %s: %w", path, err)
	}
	def, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse definition %s: %w", path, err)
	}
	return def, nil
}
