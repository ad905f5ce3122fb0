package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/motionsort/internal/detector"
	"github.com/tphakala/motionsort/internal/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"detector failed", detector.Check(detector.Result{ExitCode: 1, Stderr: "boom"}), exitFailed},
		{"wrapped detector failure", fmt.Errorf("run: %w", detector.ErrDetectorFailed), exitFailed},
		{"configuration error", errors.NewStd("error validating settings"), exitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
