package api

import "fmt"

// Definition is the parsed form of a dataset definition text.
// It maps a source directory to the declared directory structure.
type Definition struct {
	// Name of the dataset, from the `dataset "<name>"` directive.
	Name string `json:"name" yaml:"name"`
	// SourceDir is the root directory all structure paths are relative to.
	SourceDir string `json:"source_dir" yaml:"source_dir"`
	// OutputFormat is carried through untouched (e.g. "numpy").
	OutputFormat string `json:"output_format,omitempty" yaml:"output_format,omitempty"`
	// Transformations are applied to image payloads in declared order.
	Transformations []string `json:"transformations,omitempty" yaml:"transformations,omitempty"`
	// Structure holds the top-level nodes in declared order.
	Structure []*Node `json:"structure,omitempty" yaml:"structure,omitempty"`
}

// NodeKind tags a Node with the directive that introduced it.
type NodeKind uint8

const (
	KindSubdir NodeKind = iota
	KindTagdir
	KindLabeldir
)

func (k NodeKind) String() string {
	switch k {
	case KindSubdir:
		return "subdir"
	case KindTagdir:
		return "tagdir"
	case KindLabeldir:
		return "labeldir"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// MarshalText renders the kind as its directive keyword.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a directive keyword.
func (k *NodeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "subdir":
		*k = KindSubdir
	case "tagdir":
		*k = KindTagdir
	case "labeldir":
		*k = KindLabeldir
	default:
		return fmt.Errorf("unknown node kind %q", b)
	}
	return nil
}

// Node is a directory in the declared structure.
// Subdirs hold subdirs and tagdirs, tagdirs hold labeldirs, labeldirs are
// leaves.
type Node struct {
	Name string   `json:"name" yaml:"name"`
	Kind NodeKind `json:"type" yaml:"type"`
	// Children in declared order. Always empty for labeldirs.
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
	// Extensions are the dot-prefixed suffixes of files matched directly
	// inside this directory. Empty when no `files` directive was given.
	Extensions []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// AddExtensions appends suffixes not already present, keeping first-seen order.
func (n *Node) AddExtensions(exts ...string) {
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		seen := false
		for _, e := range n.Extensions {
			if e == ext {
				seen = true
				break
			}
		}
		if !seen {
			n.Extensions = append(n.Extensions, ext)
		}
	}
}

// IsLeaf reports whether files are resolved at this node.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindLabeldir || len(n.Extensions) > 0
}

// Info is the flat descriptor of a definition, obtainable without touching
// the filesystem.
type Info struct {
	DatasetName     string   `json:"dataset_name" yaml:"dataset_name"`
	SourceDirectory string   `json:"source_directory" yaml:"source_directory"`
	OutputFormat    string   `json:"output_format" yaml:"output_format"`
	Transformations []string `json:"transformations" yaml:"transformations"`
	Structure       []*Node  `json:"structure" yaml:"structure"`
}

// Info returns the descriptor for d.
func (d *Definition) Info() Info {
	transforms := d.Transformations
	if transforms == nil {
		transforms = []string{}
	}
	structure := d.Structure
	if structure == nil {
		structure = []*Node{}
	}
	return Info{
		DatasetName:     d.Name,
		SourceDirectory: d.SourceDir,
		OutputFormat:    d.OutputFormat,
		Transformations: transforms,
		Structure:       structure,
	}
}
