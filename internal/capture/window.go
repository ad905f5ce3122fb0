package capture

import (
	"iter"
	"time"
)

// Window decides whether a clip belongs to the event a still image records.
type Window struct {
	Tolerance time.Duration // inclusive, |image - clip| <= Tolerance
}

// NewWindow returns a window of the given number of seconds.
func NewWindow(seconds int) Window {
	return Window{Tolerance: time.Duration(seconds) * time.Second}
}

// Matches reports whether clip shares image's location and lies within the tolerance.
func (w Window) Matches(image, clip Name) bool {
	return image.SameLocation(clip) && image.Distance(clip) <= w.Tolerance
}

// Candidate is a file on disk together with its parsed name.
type Candidate struct {
	Path string
	Name Name
}

// Correlate yields the paths in seq whose names match image. Paths with malformed
// names are skipped; they are never part of an event.
func (w Window) Correlate(image Name, paths iter.Seq[string]) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for p := range paths {
			n, err := ParsePath(p)
			if err != nil {
				continue
			}
			if !w.Matches(image, n) {
				continue
			}
			if !yield(Candidate{Path: p, Name: n}) {
				return
			}
		}
	}
}
