// Package store performs the file operations motionsort needs on top of an afero filesystem:
// listing capture directories, moving routed artifacts and deleting discarded ones.
package store

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

// ErrNotExist is returned when a file that must be present is missing.
var ErrNotExist = fs.ErrNotExist

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store wraps a filesystem. In dry-run mode mutations are logged and skipped.
type Store struct {
	fs     afero.Fs
	dryRun bool
	log    logger.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithDryRun makes moves and deletions log-only.
func WithDryRun(dryRun bool) Option {
	return func(s *Store) { s.dryRun = dryRun }
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns a Store over fsys.
func New(fsys afero.Fs, opts ...Option) *Store {
	s := &Store{fs: fsys, log: GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS returns a Store over the host filesystem.
func NewOS(opts ...Option) *Store {
	return New(afero.NewOsFs(), opts...)
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// DryRun reports whether mutations are skipped.
func (s *Store) DryRun() bool {
	return s.dryRun
}

// Exists reports whether path exists. Errors other than not-exist count as absent.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// FirstExisting returns the first dir/stem+ext that exists, trying exts in order.
func (s *Store) FirstExisting(dir, stem string, exts []string) (string, bool) {
	for _, ext := range exts {
		candidate := filepath.Join(dir, stem+ext)
		if s.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Move moves src into dstDir keeping its base name and returns the destination path.
// dstDir is created when missing, an existing destination file is replaced. When a
// rename is not possible, e.g. across devices, the file is copied and the source removed.
func (s *Store) Move(src, dstDir string) (string, error) {
	dst := filepath.Join(dstDir, filepath.Base(src))

	if !s.Exists(src) {
		return "", errors.New(ErrNotExist).
			Component("store").
			Category(errors.CategoryNotFound).
			Context("operation", "move").
			Context("source", src).
			Build()
	}

	if s.dryRun {
		s.log.Info("dry run: would move file",
			logger.String("source", src),
			logger.String("destination", dst))
		return dst, nil
	}

	if err := s.fs.MkdirAll(dstDir, dirPerm); err != nil {
		return "", fileError(err, "mkdir", dstDir)
	}

	if err := s.fs.Rename(src, dst); err == nil {
		s.log.Debug("moved file",
			logger.String("source", src),
			logger.String("destination", dst))
		return dst, nil
	}

	if err := s.copyFile(src, dst); err != nil {
		return "", err
	}

	if err := s.fs.Remove(src); err != nil {
		// the copy exists at dst, the caller still has to know the source remains
		return dst, fileError(err, "remove_after_copy", src)
	}

	s.log.Debug("moved file by copy",
		logger.String("source", src),
		logger.String("destination", dst))
	return dst, nil
}

// Remove deletes path. A file that is already gone is not an error.
func (s *Store) Remove(path string) error {
	if s.dryRun {
		s.log.Info("dry run: would delete file", logger.String("path", path))
		return nil
	}

	err := s.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fileError(err, "remove", path)
	}
	return nil
}

func (s *Store) copyFile(src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return fileError(err, "open", src)
	}
	defer func() {
		if err := in.Close(); err != nil {
			s.log.Warn("failed to close source file", logger.String("path", src), logger.Error(err))
		}
	}()

	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fileError(err, "create", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = s.fs.Remove(dst)
		return fileError(err, "copy", dst)
	}

	if err := out.Close(); err != nil {
		return fileError(err, "close", dst)
	}
	return nil
}

func fileError(err error, op, path string) error {
	return errors.New(err).
		Component("store").
		Category(errors.CategoryFileIO).
		Context("operation", op).
		Context("path", path).
		Build()
}
