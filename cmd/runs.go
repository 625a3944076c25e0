package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/parda/internal/manifest"
)

func newRunsCmd() *cobra.Command {
	var runID, leaf string
	cmd := &cobra.Command{
		Use:   "runs [manifest.db]",
		Short: "List the runs stored in a manifest, or the files of one stored leaf",
		Long: `Without flags, prints one row per run written by "parda index".
With --run and --leaf, decodes that leaf's stored bitmap and prints its
file paths.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (runID == "") != (leaf == "") {
				return fmt.Errorf("--run and --leaf must be given together")
			}
			w, err := manifest.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			out := cmd.OutOrStdout()
			if runID != "" {
				files, err := w.LeafFiles(cmd.Context(), runID, leaf)
				if err != nil {
					return err
				}
				for _, p := range files {
					if _, err := fmt.Fprintln(out, p); err != nil {
						return err
					}
				}
				return nil
			}

			runs, err := w.Runs(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if _, err := fmt.Fprintln(tw, "RUN\tDATASET\tFILES\tCREATED"); err != nil {
				return err
			}
			for _, r := range runs {
				if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Dataset, r.Files, r.CreatedAt.Format(time.RFC3339)); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID, as printed by index")
	cmd.Flags().StringVar(&leaf, "leaf", "", "Joined leaf key, such as images/train/cat")
	return cmd
}
