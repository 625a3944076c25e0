package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/parda/api"
	"github.com/agentic-research/parda/internal/config"
	"github.com/agentic-research/parda/internal/definition"
	"github.com/agentic-research/parda/internal/materialize"
	"github.com/agentic-research/parda/internal/source"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	lazy       bool
	batchSize  int
	shuffle    bool
	seed       uint64
	workers    int
	maxFiles   int
	verbose    bool
}

// NewRootCmd builds the parda command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "parda",
		Short:         "Parda: declarative dataset definitions over directory trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Path to an HCL options file")
	flags.BoolVar(&g.lazy, "lazy", defaults.Lazy, "Defer decoding until batches are pulled")
	flags.IntVar(&g.batchSize, "batch-size", defaults.BatchSize, "Files per batch in lazy mode")
	flags.BoolVar(&g.shuffle, "shuffle", defaults.Shuffle, "Shuffle each leaf's files before truncation")
	flags.Uint64Var(&g.seed, "seed", defaults.Seed, "Shuffle seed (0 picks a random seed)")
	flags.IntVarP(&g.workers, "workers", "w", defaults.Workers, "Concurrent file loads per leaf")
	flags.IntVar(&g.maxFiles, "max-files", 0, "Keep at most N files per leaf")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newDescribeCmd(),
		newLoadCmd(g),
		newFilesCmd(g),
		newSplitCmd(g),
		newWeightsCmd(g),
		newIndexCmd(g),
		newRunsCmd(),
	)
	return root
}

// Execute runs the root command. An interrupt cancels in-flight loads.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolve returns the effective options: flags over environment over
// config file over defaults.
func (g *globalOptions) resolve(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()
	if g.configPath != "" {
		var err error
		if c, err = config.Load(g.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.LoadDotenv(); err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("lazy") {
		c.Lazy = g.lazy
	}
	if flags.Changed("batch-size") {
		c.BatchSize = g.batchSize
	}
	if flags.Changed("shuffle") {
		c.Shuffle = g.shuffle
	}
	if flags.Changed("seed") {
		c.Seed = g.seed
	}
	if flags.Changed("workers") {
		c.Workers = g.workers
	}
	if flags.Changed("max-files") {
		n := g.maxFiles
		c.MaxFilesPerLeaf = &n
	}
	return c, c.Validate()
}

func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// materializer builds a Materializer over the host filesystem.
func (g *globalOptions) materializer(cmd *cobra.Command) (*materialize.Materializer, error) {
	c, err := g.resolve(cmd)
	if err != nil {
		return nil, err
	}
	logger := g.logger(cmd.ErrOrStderr())
	logger.Debug("options resolved",
		"lazy", c.Lazy, "batch_size", c.BatchSize, "shuffle", c.Shuffle,
		"workers", c.Workers, "max_files_per_leaf", c.MaxFilesPerLeaf)
	return materialize.New(c.Options(), source.OS, logger), nil
}

// loadDefinition parses the definition file at path. A relative source_dir
// is taken relative to the definition file's directory.
func loadDefinition(path string) (*api.Definition, error) {
	def, err := definition.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if def.SourceDir != "" && !filepath.IsAbs(def.SourceDir) {
		def.SourceDir = filepath.Join(filepath.Dir(path), def.SourceDir)
	}
	return def, nil
}
