// Package metrics defines the prometheus collectors motionsort records into.
package metrics

// Histogram bucket parameters.
const (
	BucketStart100ms = 0.1
	BucketStart10ms  = 0.01
	BucketFactor2    = 2
	BucketCount10    = 10
	BucketCount12    = 12
)

// Run states.
const (
	RunDetections = "detections"
	RunEmpty      = "empty"
	RunFailed     = "failed"
)

// File kinds.
const (
	KindImage     = "image"
	KindVideo     = "video"
	KindLabel     = "label"
	KindAnnotated = "annotated"
)

// File actions.
const (
	ActionMoved   = "moved"
	ActionDeleted = "deleted"
	ActionFailed  = "failed"
)
