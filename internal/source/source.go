// Package source opens dataset source directories as billy filesystems.
// Everything downstream (listing, stat, decoding) goes through the returned
// billy.Filesystem, so tests can swap the host filesystem for memfs.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrNotDirectory is returned when the source path exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// Opener returns a filesystem rooted at dir. A missing dir must yield an
// error matching fs.ErrNotExist.
type Opener func(dir string) (billy.Filesystem, error)

// OS opens dir on the host filesystem.
func OS(dir string) (billy.Filesystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: abs, Err: ErrNotDirectory}
	}
	return osfs.New(abs), nil
}

// Within returns an Opener that resolves dirs inside base, e.g. a memfs
// populated by a test.
func Within(base billy.Filesystem) Opener {
	return func(dir string) (billy.Filesystem, error) {
		info, err := base.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, &fs.PathError{Op: "open", Path: dir, Err: ErrNotDirectory}
		}
		return chroot.New(base, dir), nil
	}
}

// IsNotExist reports whether err means a path is missing. memfs and osfs
// disagree on the concrete error, so both forms are checked.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
