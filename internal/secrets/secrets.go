// Package secrets resolves credentials that the configuration references instead
// of embedding: "${VAR}" or "${VAR:-default}" expands environment variables and
// "file:/run/secrets/name" reads a Docker or Kubernetes secret file.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
)

const (
	// FilePrefix marks a value as a path to a secret file.
	FilePrefix = "file:"

	// secrets are tokens, not documents
	maxSecretFileSize = 64 * 1024
)

// Resolver expands secret references.
type Resolver struct {
	fs     afero.Fs
	getenv func(string) string
	log    logger.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithFs reads secret files from fs.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// NewResolver returns a Resolver over the OS filesystem and environment.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{fs: afero.NewOsFs(), getenv: os.Getenv, log: GetLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the secret value. Literal values are returned unchanged. field
// names the setting in error messages; the value itself is never included.
func (r *Resolver) Resolve(field, value string) (string, error) {
	if path, ok := strings.CutPrefix(value, FilePrefix); ok {
		return r.readFile(field, path)
	}
	if !strings.Contains(value, "${") {
		return value, nil
	}
	return r.expand(field, value)
}

func (r *Resolver) expand(field, value string) (string, error) {
	var missing []string
	expanded := os.Expand(value, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := r.getenv(name); v != "" {
			return v
		}
		if !hasFallback {
			missing = append(missing, name)
		}
		return fallback
	})

	if len(missing) > 0 {
		return "", secretError(fmt.Errorf("%s: missing environment variable(s): %s", field, strings.Join(missing, ", ")), field)
	}
	return expanded, nil
}

func (r *Resolver) readFile(field, path string) (string, error) {
	if path == "" {
		return "", secretError(fmt.Errorf("%s: secret file path is empty", field), field)
	}
	cleanPath := filepath.Clean(path)

	info, err := r.fs.Stat(cleanPath)
	if err != nil {
		return "", secretError(fmt.Errorf("%s: secret file %s: %w", field, cleanPath, err), field)
	}
	if !info.Mode().IsRegular() {
		return "", secretError(fmt.Errorf("%s: secret path is not a regular file: %s", field, cleanPath), field)
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError(fmt.Errorf("%s: secret file too large (max %d bytes): %s", field, maxSecretFileSize, cleanPath), field)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		r.log.Warn("secret file is readable by group or others",
			logger.String("field", field),
			logger.String("path", cleanPath),
			logger.String("perm", fmt.Sprintf("%04o", perm)))
	}

	data, err := afero.ReadFile(r.fs, cleanPath)
	if err != nil {
		return "", secretError(fmt.Errorf("%s: failed to read secret file %s: %w", field, cleanPath, err), field)
	}

	// trailing newlines come from editors and echo, nothing else is trimmed
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError(fmt.Errorf("%s: secret file is empty: %s", field, cleanPath), field)
	}
	return secret, nil
}

func secretError(err error, field string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("field", field).
		Build()
}

// GetLogger returns the secrets module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("secrets")
}
