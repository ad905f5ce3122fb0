package processor

import (
	"time"

	"github.com/tphakala/motionsort/internal/capture"
	"github.com/tphakala/motionsort/internal/detector"
)

// State is the branch a run took.
type State string

const (
	StateEmpty      State = "empty"      // no label files, pending captures purged
	StateDetections State = "detections" // at least one label file processed
	StateFailed     State = "failed"     // detector did not succeed, nothing touched
)

// RoutingOutcome is what happened to one image.
type RoutingOutcome string

const (
	OutcomeEmptyCleanup RoutingOutcome = "no-detections-cleanup"
	OutcomeMalformed    RoutingOutcome = "malformed-skip"
	OutcomeRouted       RoutingOutcome = "matched-and-routed"
)

// AnnotatedAction is what happened to the detector's annotated copy of an image.
type AnnotatedAction string

const (
	AnnotatedDeleted  AnnotatedAction = "deleted"
	AnnotatedRetained AnnotatedAction = "retained"
	AnnotatedMissing  AnnotatedAction = "missing"
)

// NotifyStatus is the result of the notification for one image.
type NotifyStatus string

const (
	NotifyNotAttempted NotifyStatus = "not-attempted" // no image was moved, or dry run
	NotifySent         NotifyStatus = "sent"
	NotifyFailed       NotifyStatus = "failed"
	NotifyDisabled     NotifyStatus = "disabled"
	NotifySuppressed   NotifyStatus = "suppressed"
)

// Outcome records how one label file was handled.
type Outcome struct {
	Label         string // label file path
	Result        RoutingOutcome
	Name          capture.Name // zero for malformed labels
	Image         string       // destination of the moved image, empty when it was missing
	Clips         []string     // destinations of moved clips
	Annotated     AnnotatedAction
	AnnotatedPath string
	Notify        NotifyStatus
	NotifyErr     error
	Detections    []detector.Detection // informational, from the label content
	Errors        []error              // recoverable file errors, logged and skipped
}

// Report summarizes a run.
type Report struct {
	State    State
	Detector detector.Result
	Outcomes []Outcome
	Purged   map[string]int // file kind -> deleted count, empty runs only
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Counts tallies outcomes by routing result.
func (r *Report) Counts() map[RoutingOutcome]int {
	counts := make(map[RoutingOutcome]int)
	for i := range r.Outcomes {
		counts[r.Outcomes[i].Result]++
	}
	return counts
}

// Moved returns the number of images and clips moved to the output directory.
func (r *Report) Moved() (images, clips int) {
	for i := range r.Outcomes {
		if r.Outcomes[i].Image != "" {
			images++
		}
		clips += len(r.Outcomes[i].Clips)
	}
	return images, clips
}
