package materialize

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid options")

// Options are the independent knobs of a materialization.
type Options struct {
	// Lazy exposes each leaf as a sequence of batches loaded on demand.
	Lazy bool
	// BatchSize is the number of files per batch. Used only when Lazy.
	BatchSize int
	// Shuffle randomizes each leaf's file order before truncation.
	Shuffle bool
	// Seed makes shuffling reproducible. Zero picks a random seed per call.
	Seed uint64
	// Workers bounds the number of files decoded concurrently.
	Workers int
	// MaxFilesPerLeaf truncates each leaf's file list after shuffling.
	// Nil means no limit.
	MaxFilesPerLeaf *int
}

// DefaultOptions returns eager loading with one worker and batches of 32.
func DefaultOptions() Options {
	return Options{
		BatchSize: 32,
		Workers:   1,
	}
}

// Validate checks that every knob is in range.
func (o Options) Validate() error {
	if o.Lazy && o.BatchSize < 1 {
		return fmt.Errorf("batch size must be > 0, got %d: %w", o.BatchSize, ErrInvalidOptions)
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be > 0, got %d: %w", o.Workers, ErrInvalidOptions)
	}
	if o.MaxFilesPerLeaf != nil && *o.MaxFilesPerLeaf < 0 {
		return fmt.Errorf("max files per leaf must be >= 0, got %d: %w", *o.MaxFilesPerLeaf, ErrInvalidOptions)
	}
	return nil
}
