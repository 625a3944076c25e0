package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/parda/internal/manifest"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index [definition] [output.db]",
		Short: "Record the files a definition resolves to in a SQLite manifest",
		Long: `Resolves every leaf without decoding and appends the result to
output.db as a new run. Each leaf stores a roaring bitmap of its file IDs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := args[1]
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}
			m, err := g.materializer(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			leaves, err := m.Plan(cmd.Context(), def)
			if err != nil {
				return err
			}
			catalog := manifest.New(def, leaves)

			w, err := manifest.Open(output)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			if err := w.Write(cmd.Context(), catalog); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "Indexed %d files in %d leaves as run %s (%v)\n",
				catalog.Len(), len(leaves), catalog.RunID, time.Since(start).Round(time.Millisecond)); err != nil {
				return err
			}
			for _, ext := range catalog.Extensions() {
				if _, err := fmt.Fprintf(out, "  %s: %d files\n", ext, catalog.ByExtension(ext).GetCardinality()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
