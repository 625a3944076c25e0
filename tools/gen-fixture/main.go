// Command gen-fixture writes a synthetic source tree for a dataset
// definition, for trying the parda commands without real data.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/parda/internal/definition"
	"github.com/agentic-research/parda/internal/fixture"
)

// Summary is written next to the generated tree.
type Summary struct {
	Definition string   `json:"definition"`
	SourceDir  string   `json:"source_dir"`
	Files      []string `json:"files"`
}

func main() {
	defPath := flag.String("def", "", "Path to a dataset definition")
	outDir := flag.String("out", "", "Directory to generate into (default: the definition's directory)")
	perLeaf := flag.Int("n", 4, "Files per extension per directory")
	flag.Parse()

	if *defPath == "" || *perLeaf < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*defPath)
	}

	def, err := definition.ParseFile(*defPath)
	if err != nil {
		fatal(err)
	}
	if filepath.IsAbs(def.SourceDir) {
		fatal(fmt.Errorf("source_dir %q is absolute; generate into a relative source_dir", def.SourceDir))
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatal(err)
	}

	written, err := fixture.Generate(osfs.New(*outDir), def, *perLeaf)
	if err != nil {
		fatal(err)
	}

	summary := Summary{Definition: *defPath, SourceDir: def.SourceDir, Files: written}
	jsonBytes, _ := json.MarshalIndent(summary, "", "  ")
	summaryPath := filepath.Join(*outDir, def.SourceDir, "fixture.json")
	if err := os.WriteFile(summaryPath, jsonBytes, 0o644); err != nil {
		fatal(err)
	}

	fmt.Printf("Generated %d files under %s\n", len(written), filepath.Join(*outDir, def.SourceDir))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
