package store

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tphakala/motionsort/internal/errors"
)

// ErrListingConsumed is reported by a Listing that was iterated more than once.
var ErrListingConsumed = errors.NewStd("listing already consumed")

// Entry is a regular file found by a Listing.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Matcher selects directory entries by base name.
type Matcher func(name string) bool

// Glob matches base names against a filepath.Match pattern. A malformed pattern matches nothing.
func Glob(pattern string) Matcher {
	return func(name string) bool {
		ok, err := filepath.Match(pattern, name)
		return err == nil && ok
	}
}

// Ext matches base names ending in any of exts, ignoring case.
func Ext(exts ...string) Matcher {
	lowered := make([]string, 0, len(exts))
	for _, e := range exts {
		lowered = append(lowered, strings.ToLower(e))
	}
	return func(name string) bool {
		return slices.Contains(lowered, strings.ToLower(filepath.Ext(name)))
	}
}

// Listing is a single-use sequence of the regular files in a directory that satisfy a Matcher.
//
// Nothing is read until iteration starts. Names are read once, sorted, and then each entry
// is stat'd as it is yielded, so files removed mid-iteration are skipped rather than
// reported. A missing directory yields nothing. Iterating a second time yields nothing and
// sets Err to ErrListingConsumed.
type Listing struct {
	store *Store
	dir   string
	match Matcher
	used  atomic.Bool
	err   error
}

// Entries returns a Listing of dir filtered by match.
func (s *Store) Entries(dir string, match Matcher) *Listing {
	return &Listing{store: s, dir: dir, match: match}
}

// All returns the sequence. It may be ranged over once.
func (l *Listing) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if l.used.Swap(true) {
			l.err = ErrListingConsumed
			return
		}

		names, err := l.readNames()
		if err != nil {
			l.err = err
			return
		}

		for _, name := range names {
			if !l.match(name) {
				continue
			}
			path := filepath.Join(l.dir, name)
			info, err := l.store.fs.Stat(path)
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if !yield(Entry{Path: path, Name: name, Size: info.Size(), ModTime: info.ModTime()}) {
				return
			}
		}
	}
}

// Paths returns the sequence as bare paths.
func (l *Listing) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		for e := range l.All() {
			if !yield(e.Path) {
				return
			}
		}
	}
}

// Err returns the error that ended iteration early, if any.
func (l *Listing) Err() error {
	return l.err
}

func (l *Listing) readNames() ([]string, error) {
	d, err := l.store.fs.Open(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fileError(err, "open_dir", l.dir)
	}
	defer func() { _ = d.Close() }()

	info, err := d.Stat()
	if err != nil {
		return nil, fileError(err, "stat_dir", l.dir)
	}
	if !info.IsDir() {
		return nil, fileError(&fs.PathError{Op: "readdir", Path: l.dir, Err: errors.NewStd("not a directory")}, "read_dir", l.dir)
	}

	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, fileError(err, "read_dir", l.dir)
	}
	slices.Sort(names)
	return names, nil
}
