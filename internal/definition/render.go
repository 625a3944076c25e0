package definition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/parda/api"
)

const indent = "    "

// ErrUnrenderable is returned by Render for a literal the line format cannot
// carry, such as one containing a newline or a quote that would end the
// literal early.
var ErrUnrenderable = errors.New("literal cannot be rendered")

// Render flattens def back into definition text. Parsing the result yields
// an equal definition. A definition without a name is rendered without the
// enclosing dataset block.
func Render(def *api.Definition) (string, error) {
	if err := checkLiterals(def); err != nil {
		return "", err
	}
	var b strings.Builder
	level := 0
	line := func(format string, args ...any) {
		b.WriteString(strings.Repeat(indent, level))
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	if def.Name != "" {
		line("dataset %s {", quote(def.Name))
		level++
	}
	if def.SourceDir != "" {
		line("source_dir = %s", quote(def.SourceDir))
	}
	if len(def.Structure) > 0 {
		line("structure {")
		level++
		var walk func(n *api.Node)
		walk = func(n *api.Node) {
			line("%s %s {", n.Kind, quote(n.Name))
			level++
			if len(n.Extensions) > 0 {
				line("files %s", quoteAll(n.Extensions))
			}
			for _, c := range n.Children {
				walk(c)
			}
			level--
			line("}")
		}
		for _, n := range def.Structure {
			walk(n)
		}
		level--
		line("}")
	}
	if def.OutputFormat != "" {
		line("output_format = %s", quote(def.OutputFormat))
	}
	if len(def.Transformations) > 0 {
		line("transformations = %s", quoteAll(def.Transformations))
	}
	if def.Name != "" {
		level--
		line("}")
	}
	return b.String(), nil
}

func checkLiterals(def *api.Definition) error {
	var lits []string
	if def.Name != "" {
		lits = append(lits, def.Name)
	}
	if def.SourceDir != "" {
		lits = append(lits, def.SourceDir)
	}
	if def.OutputFormat != "" {
		lits = append(lits, def.OutputFormat)
	}
	lits = append(lits, def.Transformations...)
	var walk func(n *api.Node)
	walk = func(n *api.Node) {
		lits = append(lits, n.Name)
		lits = append(lits, n.Extensions...)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range def.Structure {
		walk(n)
	}

	for _, s := range lits {
		if !survives(s) {
			return fmt.Errorf("%q: %w", s, ErrUnrenderable)
		}
	}
	return nil
}

// survives reports whether s reads back as the single literal s once quoted.
// Literals are captured by "(.+?)", which has no escapes and stops at the
// first closing quote.
func survives(s string) bool {
	m := quotedRe.FindAllStringSubmatch(quote(s), -1)
	return len(m) == 1 && m[0][1] == s
}

// quote wraps s in double quotes without escaping; the grammar has none.
func quote(s string) string {
	return `"` + s + `"`
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = quote(s)
	}
	return strings.Join(q, " ")
}
