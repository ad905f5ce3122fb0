// policy_age.go - code for age retention policy
package diskmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/store"
)

// Skip reasons recorded for files the policy did not delete.
const (
	SkipMinFiles     = "min_files"
	SkipUnparsable   = "unparsable"
	SkipMaxDeletions = "max_deletions"
)

// Policy is an age retention policy for routed captures.
type Policy struct {
	MaxAge       time.Duration
	MinFiles     int // newest files kept per location and kind regardless of age
	MaxDeletions int // 0 means unlimited
}

// PolicyFromSettings parses the retention settings.
func PolicyFromSettings(s *conf.RetentionSettings) (Policy, error) {
	hours, err := conf.ParseRetentionPeriod(s.MaxAge)
	if err != nil {
		return Policy{}, errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryConfiguration).
			Context("maxage", s.MaxAge).
			Build()
	}
	if hours <= 0 {
		return Policy{}, errors.Newf("retention maxage must be positive, got %q", s.MaxAge).
			Component("diskmanager").
			Category(errors.CategoryValidation).
			Build()
	}
	return Policy{
		MaxAge:       time.Duration(hours) * time.Hour,
		MinFiles:     s.MinFiles,
		MaxDeletions: s.MaxDeletions,
	}, nil
}

// Recorder receives retention metrics. metrics.RetentionMetrics implements it.
type Recorder interface {
	RecordCleanup(status string, seconds float64)
	RecordDeleted(kind string, bytes int64)
	RecordSkipped(reason string)
}

// Result summarizes one cleanup pass.
type Result struct {
	Scanned    int
	Deleted    int
	BytesFreed int64
	Skipped    map[string]int // reason -> count
}

// Cleaner applies a Policy to the output directory.
type Cleaner struct {
	store    *store.Store
	dir      string
	kinds    map[string]string // lower-case extension -> kind
	policy   Policy
	recorder Recorder
	now      func() time.Time
	log      logger.Logger
}

// CleanerOption customizes a Cleaner.
type CleanerOption func(*Cleaner)

// WithRecorder records cleanup metrics into r.
func WithRecorder(r Recorder) CleanerOption {
	return func(c *Cleaner) { c.recorder = r }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) CleanerOption {
	return func(c *Cleaner) { c.now = now }
}

// WithLogger overrides the package logger.
func WithLogger(l logger.Logger) CleanerOption {
	return func(c *Cleaner) { c.log = l }
}

// NewCleaner returns a Cleaner for the images and clips in dir.
func NewCleaner(st *store.Store, dir, imageExt, videoExt string, policy Policy, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{
		store: st,
		dir:   dir,
		kinds: map[string]string{
			strings.ToLower(imageExt): "image",
			strings.ToLower(videoExt): "video",
		},
		policy:   policy,
		recorder: noopRecorder{},
		now:      time.Now,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AgeBasedCleanup deletes captures older than the policy's MaxAge, oldest first.
// Age comes from the capture name, which carries the camera's wall clock.
func (c *Cleaner) AgeBasedCleanup(ctx context.Context) (Result, error) {
	start := time.Now()
	log := c.log.WithContext(ctx)
	res := Result{Skipped: make(map[string]int)}

	status := "success"
	defer func() {
		c.recorder.RecordCleanup(status, time.Since(start).Seconds())
	}()

	files, unparsable, err := c.collectFiles(c.dir)
	if err != nil {
		status = "error"
		return res, errors.New(fmt.Errorf("failed to list %s: %w", c.dir, err)).
			Component("diskmanager").
			Category(errors.CategoryDiskCleanup).
			Context("operation", "age_cleanup").
			Build()
	}
	res.Scanned = len(files)
	for range unparsable {
		c.skip(&res, SkipUnparsable)
	}

	sortOldestFirst(files)
	counts := buildLocationCountMap(files)
	expiration := wallClock(c.now()).Add(-c.policy.MaxAge)

	log.Debug("starting age-based cleanup",
		logger.String("dir", c.dir),
		logger.Int("files", len(files)),
		logger.Duration("max_age", c.policy.MaxAge))

	for i := range files {
		if err := ctx.Err(); err != nil {
			status = "interrupted"
			log.Info("cleanup interrupted", logger.Int("files_deleted", res.Deleted))
			return res, nil
		}

		file := &files[i]
		// Oldest first: once one file is young enough, the rest are too.
		if !file.Name.Time.Before(expiration) {
			break
		}

		if !checkMinFiles(file, counts, c.policy.MinFiles) {
			c.skip(&res, SkipMinFiles)
			continue
		}

		if c.policy.MaxDeletions > 0 && res.Deleted >= c.policy.MaxDeletions {
			c.skip(&res, SkipMaxDeletions)
			log.Debug("reached maximum number of deletions", logger.Int("max", c.policy.MaxDeletions))
			break
		}

		if err := c.store.Remove(file.Path); err != nil {
			status = "error"
			log.Error("failed to remove file", logger.String("path", file.Path), logger.Error(err))
			return res, err
		}

		counts[file.Name.LocationKey()][file.Kind]--
		res.Deleted++
		res.BytesFreed += file.Size
		c.recorder.RecordDeleted(file.Kind, file.Size)
	}

	log.Info("age retention policy applied",
		logger.Int("files_deleted", res.Deleted),
		logger.Int64("bytes_freed", res.BytesFreed),
		logger.Int("files_scanned", res.Scanned))
	return res, nil
}

func (c *Cleaner) skip(res *Result, reason string) {
	res.Skipped[reason]++
	c.recorder.RecordSkipped(reason)
}

// wallClock reinterprets t's local wall clock as UTC, matching how capture names parse.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

type noopRecorder struct{}

func (noopRecorder) RecordCleanup(string, float64) {}
func (noopRecorder) RecordDeleted(string, int64)   {}
func (noopRecorder) RecordSkipped(string)          {}
