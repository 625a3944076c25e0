// Package config resolves materialization options from an HCL file, the
// environment (optionally seeded from a .env file) and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"

	"github.com/agentic-research/parda/internal/materialize"
)

// ErrInvalid is returned for option values that fail validation or parsing.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PARDA_"

// Config holds the options shared by every command that loads a dataset.
type Config struct {
	Lazy      bool
	BatchSize int
	Shuffle   bool
	Seed      uint64
	Workers   int
	// MaxFilesPerLeaf is nil when leaves are not truncated.
	MaxFilesPerLeaf *int
}

// file is the HCL shape of a config file. Every attribute is optional.
type file struct {
	Lazy            *bool `hcl:"lazy,optional"`
	BatchSize       *int  `hcl:"batch_size,optional"`
	Shuffle         *bool `hcl:"shuffle,optional"`
	Seed            *int  `hcl:"seed,optional"`
	Workers         *int  `hcl:"workers,optional"`
	MaxFilesPerLeaf *int  `hcl:"max_files_per_leaf,optional"`
}

// Default returns the defaults: eager, unshuffled, one worker, batches of 32.
func Default() *Config {
	d := materialize.DefaultOptions()
	return &Config{BatchSize: d.BatchSize, Workers: d.Workers}
}

// Load reads an HCL options file over the defaults.
func Load(path string) (*Config, error) {
	var f file
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	c := Default()
	if f.Lazy != nil {
		c.Lazy = *f.Lazy
	}
	if f.BatchSize != nil {
		c.BatchSize = *f.BatchSize
	}
	if f.Shuffle != nil {
		c.Shuffle = *f.Shuffle
	}
	if f.Seed != nil {
		if *f.Seed < 0 {
			return nil, fmt.Errorf("%s: seed must be >= 0: %w", path, ErrInvalid)
		}
		c.Seed = uint64(*f.Seed)
	}
	if f.Workers != nil {
		c.Workers = *f.Workers
	}
	if f.MaxFilesPerLeaf != nil {
		c.MaxFilesPerLeaf = f.MaxFilesPerLeaf
	}
	return c, c.Validate()
}

// LoadDotenv loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are
// skipped.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from PARDA_* variables found by lookup,
// normally os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("LAZY"); ok {
		b, err := parseBool("LAZY", v)
		if err != nil {
			return err
		}
		c.Lazy = b
	}
	if v, ok := get("SHUFFLE"); ok {
		b, err := parseBool("SHUFFLE", v)
		if err != nil {
			return err
		}
		c.Shuffle = b
	}
	if v, ok := get("BATCH_SIZE"); ok {
		n, err := parseInt("BATCH_SIZE", v)
		if err != nil {
			return err
		}
		c.BatchSize = n
	}
	if v, ok := get("WORKERS"); ok {
		n, err := parseInt("WORKERS", v)
		if err != nil {
			return err
		}
		c.Workers = n
	}
	if v, ok := get("MAX_FILES"); ok {
		n, err := parseInt("MAX_FILES", v)
		if err != nil {
			return err
		}
		c.MaxFilesPerLeaf = &n
	}
	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED=%q: %w", EnvPrefix, v, ErrInvalid)
		}
		c.Seed = n
	}
	return nil
}

func parseBool(name, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, ErrInvalid)
	}
	return b, nil
}

func parseInt(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, ErrInvalid)
	}
	return n, nil
}

// Validate checks that values are in range.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be > 0, got %d: %w", c.BatchSize, ErrInvalid)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be > 0, got %d: %w", c.Workers, ErrInvalid)
	}
	if c.MaxFilesPerLeaf != nil && *c.MaxFilesPerLeaf < 0 {
		return fmt.Errorf("max_files_per_leaf must be >= 0, got %d: %w", *c.MaxFilesPerLeaf, ErrInvalid)
	}
	return nil
}

// Options converts c to materializer options.
func (c *Config) Options() materialize.Options {
	return materialize.Options{
		Lazy:            c.Lazy,
		BatchSize:       c.BatchSize,
		Shuffle:         c.Shuffle,
		Seed:            c.Seed,
		Workers:         c.Workers,
		MaxFilesPerLeaf: c.MaxFilesPerLeaf,
	}
}
