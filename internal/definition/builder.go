package definition

import (
	"github.com/agentic-research/parda/api"
)

// parentKind is the kind a node must be nested under. Subdirs may also sit
// at the top level.
var parentKind = map[api.NodeKind]api.NodeKind{
	api.KindSubdir:   api.KindSubdir,
	api.KindTagdir:   api.KindSubdir,
	api.KindLabeldir: api.KindTagdir,
}

var nodeKinds = map[LineKind]api.NodeKind{
	KindSubdir:   api.KindSubdir,
	KindTagdir:   api.KindTagdir,
	KindLabeldir: api.KindLabeldir,
}

// build constructs the structure forest from the body of a structure block.
// The stack holds the currently open directories; each directory line
// attaches a new node to the top of the stack and pushes it.
func build(lines []Line) ([]*api.Node, error) {
	var (
		forest []*api.Node
		stack  []*api.Node
	)

	for _, l := range lines {
		switch l.Kind {
		case KindSubdir, KindTagdir, KindLabeldir:
			name, ok := l.FirstQuoted()
			if !ok {
				return nil, malformed(l, "%s directive without a quoted name", l.Kind)
			}
			n := &api.Node{Name: name, Kind: nodeKinds[l.Kind]}

			if len(stack) == 0 {
				if n.Kind != api.KindSubdir {
					return nil, malformed(l, "%s %q outside a %s", n.Kind, name, parentKind[n.Kind])
				}
				forest = append(forest, n)
			} else {
				top := stack[len(stack)-1]
				want := parentKind[n.Kind]
				if top.Kind != want {
					return nil, malformed(l, "%s %q inside %s %q, want a %s", n.Kind, name, top.Kind, top.Name, want)
				}
				top.Children = append(top.Children, n)
			}
			stack = append(stack, n)

		case KindFiles:
			if len(stack) == 0 {
				return nil, malformed(l, "files directive outside a directory")
			}
			stack[len(stack)-1].AddExtensions(l.Quoted()...)

		case KindClose:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return forest, nil
}
