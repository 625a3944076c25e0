package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentic-research/parda/internal/dataset"
	"github.com/agentic-research/parda/internal/manifest"
	"github.com/agentic-research/parda/internal/materialize"
)

func newLoadCmd(g *globalOptions) *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "load [definition]",
		Short: "Load a dataset and print its tree with per-leaf counts and samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}
			m, err := g.materializer(cmd)
			if err != nil {
				return err
			}
			root, err := m.Materialize(cmd.Context(), def)
			if err != nil {
				return err
			}
			return dataset.Visualize(cmd.OutOrStdout(), def, root, samples)
		},
	}
	cmd.Flags().IntVarP(&samples, "samples", "n", 5, "Samples to list per shallow leaf")
	return cmd
}

func newFilesCmd(g *globalOptions) *cobra.Command {
	var q manifest.Query
	cmd := &cobra.Command{
		Use:   "files [definition]",
		Short: "List the files each leaf resolves to, without decoding them",
		Long: `Resolves every leaf without decoding and prints the matched paths in
walk order. --ext and --leaf narrow the listing; each may be repeated and
matches any of its values. Leaves are named by their joined key, such as
images/train/cat or images/files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}
			m, err := g.materializer(cmd)
			if err != nil {
				return err
			}
			leaves, err := m.Plan(cmd.Context(), def)
			if err != nil {
				return err
			}
			for i, ext := range q.Extensions {
				if !strings.HasPrefix(ext, ".") {
					q.Extensions[i] = "." + ext
				}
			}
			out := cmd.OutOrStdout()
			for _, p := range manifest.New(def, leaves).Select(q) {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&q.Extensions, "ext", nil, "Only files with this extension")
	cmd.Flags().StringSliceVar(&q.Leaves, "leaf", nil, "Only files in this leaf")
	return cmd
}

func newSplitCmd(g *globalOptions) *cobra.Command {
	var ratio float64
	cmd := &cobra.Command{
		Use:   "split [definition]",
		Short: "Split every leaf into train and validation sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}
			m, err := g.materializer(cmd)
			if err != nil {
				return err
			}
			root, err := m.Materialize(cmd.Context(), def)
			if err != nil {
				return err
			}
			train, val, err := dataset.Split(root, ratio)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, part := range []struct {
				name string
				m    *materialize.Mapping
			}{{"Train", train}, {"Validation", val}} {
				if _, err := fmt.Fprintf(out, "%s (%d files):\n", part.name, dataset.Count(part.m)); err != nil {
					return err
				}
				if err := dataset.WriteTree(out, part.m, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&ratio, "ratio", "r", 0.8, "Fraction of each leaf assigned to train")
	return cmd
}

func newWeightsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weights [definition]",
		Short: "Print inverse-frequency class weights per leaf name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}
			m, err := g.materializer(cmd)
			if err != nil {
				return err
			}
			root, err := m.Materialize(cmd.Context(), def)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if _, err := fmt.Fprintln(tw, "CLASS\tFILES\tWEIGHT"); err != nil {
				return err
			}
			for _, w := range dataset.ClassWeights(root) {
				if _, err := fmt.Fprintf(tw, "%s\t%d\t%.4f\n", w.Class, w.Count, w.Weight); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
}
