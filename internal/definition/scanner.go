// Package definition parses dataset definition text into an api.Definition.
//
// Parsing runs in three single-pass stages: Scan classifies each trimmed
// line into a LineKind, Parse extracts the top-level fields and delimits the
// structure block by brace depth, and the builder turns the block body into
// a tree of api.Node using an explicit context stack.
package definition

import (
	"regexp"
	"strings"
)

// LineKind classifies a scanned line by its leading directive.
type LineKind uint8

const (
	KindBlank LineKind = iota
	KindDataset
	KindSourceDir
	KindStructure
	KindOutputFormat
	KindTransformations
	KindSubdir
	KindTagdir
	KindLabeldir
	KindFiles
	KindOpen  // a lone "{"
	KindClose // a lone "}"
	KindOther
)

var kindNames = [...]string{
	KindBlank:           "blank",
	KindDataset:         "dataset",
	KindSourceDir:       "source_dir",
	KindStructure:       "structure",
	KindOutputFormat:    "output_format",
	KindTransformations: "transformations",
	KindSubdir:          "subdir",
	KindTagdir:          "tagdir",
	KindLabeldir:        "labeldir",
	KindFiles:           "files",
	KindOpen:            "{",
	KindClose:           "}",
	KindOther:           "other",
}

func (k LineKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Line is one trimmed line of definition text.
type Line struct {
	Kind   LineKind
	Text   string
	Number int // 1-based

	// Opens is set when the line begins or ends with "{".
	Opens bool
	// Closes is set when the line begins or ends with "}".
	Closes bool
}

// Top-level directives match on prefix, in this order.
var topLevel = []struct {
	prefix string
	kind   LineKind
}{
	{"dataset", KindDataset},
	{"source_dir", KindSourceDir},
	{"structure", KindStructure},
	{"output_format", KindOutputFormat},
	{"transformations", KindTransformations},
}

// Structure entries match on the whole leading word.
var entries = map[string]LineKind{
	"subdir":   KindSubdir,
	"tagdir":   KindTagdir,
	"labeldir": KindLabeldir,
	"files":    KindFiles,
}

// Scan splits text into trimmed lines and classifies each one.
// Blank lines are kept so line numbers stay meaningful.
func Scan(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, r := range raw {
		lines = append(lines, classify(strings.TrimSpace(r), i+1))
	}
	return lines
}

func classify(text string, number int) Line {
	l := Line{
		Text:   text,
		Number: number,
		Opens:  strings.HasPrefix(text, "{") || strings.HasSuffix(text, "{"),
		Closes: strings.HasPrefix(text, "}") || strings.HasSuffix(text, "}"),
	}
	switch text {
	case "":
		l.Kind = KindBlank
		return l
	case "{":
		l.Kind = KindOpen
		return l
	case "}":
		l.Kind = KindClose
		return l
	}
	for _, d := range topLevel {
		if strings.HasPrefix(text, d.prefix) {
			l.Kind = d.kind
			return l
		}
	}
	if k, ok := entries[leadingWord(text)]; ok {
		l.Kind = k
		return l
	}
	l.Kind = KindOther
	return l
}

func leadingWord(text string) string {
	end := strings.IndexFunc(text, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if end < 0 {
		return text
	}
	return text[:end]
}

var quotedRe = regexp.MustCompile(`"(.+?)"`)

// Quoted returns every double-quoted literal on the line, in order.
func (l Line) Quoted() []string {
	matches := quotedRe.FindAllStringSubmatch(l.Text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// FirstQuoted returns the first quoted literal on the line.
func (l Line) FirstQuoted() (string, bool) {
	m := quotedRe.FindStringSubmatch(l.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
