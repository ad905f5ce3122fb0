// Package capture understands the filenames written by the motion capture system.
//
// Images and video clips share one convention, MM-DD-YYYY_HH.MM.SS_Location, followed
// by the file extension. Timestamps are naive wall-clock times; they carry no zone and
// are compared as written.
package capture

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tphakala/motionsort/internal/errors"
)

// ErrMalformedName is returned by Parse when a stem does not follow the capture convention.
var ErrMalformedName = errors.NewStd("malformed capture filename")

const timestampLayout = "01-02-2006_15.04.05"

// Matches the timestamp and location at the start of a stem. Anything after the
// location letters is kept as a suffix, e.g. "-2" for a second event in the same second.
var namePattern = regexp.MustCompile(`^(\d{2}-\d{2}-\d{4}_\d{2}\.\d{2}\.\d{2})_([A-Za-z]+)`)

// Name is a parsed capture filename stem.
type Name struct {
	Time     time.Time // wall-clock capture time, UTC location
	Location string    // location tag as written, compare with SameLocation
	Suffix   string    // text following the location tag, usually empty
}

// Parse parses a filename stem (no directory, no extension).
func Parse(stem string) (Name, error) {
	m := namePattern.FindStringSubmatch(stem)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrMalformedName, stem)
	}

	// the pattern only checks digit counts, the layout rejects month 13 or hour 25
	ts, err := time.Parse(timestampLayout, m[1])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %v", ErrMalformedName, stem, err)
	}

	return Name{
		Time:     ts,
		Location: m[2],
		Suffix:   stem[len(m[0]):],
	}, nil
}

// ParsePath parses the stem of a file path.
func ParsePath(path string) (Name, error) {
	return Parse(Stem(path))
}

// Format renders a capture stem for a timestamp and location.
func Format(t time.Time, location string) string {
	return t.Format(timestampLayout) + "_" + location
}

// String renders the stem, suffix included.
func (n Name) String() string {
	return Format(n.Time, n.Location) + n.Suffix
}

// SameLocation reports whether two names carry the same location tag, ignoring case.
func (n Name) SameLocation(other Name) bool {
	return strings.EqualFold(n.Location, other.Location)
}

// LocationKey returns the location tag in its canonical, lower-cased form.
func (n Name) LocationKey() string {
	return strings.ToLower(n.Location)
}

// Distance returns the absolute time between two captures.
func (n Name) Distance(other Name) time.Duration {
	d := n.Time.Sub(other.Time)
	if d < 0 {
		return -d
	}
	return d
}

// Stem returns the base name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
