package capture

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsort/internal/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stem     string
		want     time.Time
		location string
		suffix   string
		wantErr  bool
	}{
		{"plain", "05-17-2024_14.03.22_Garage", time.Date(2024, 5, 17, 14, 3, 22, 0, time.UTC), "Garage", "", false},
		{"suffix kept", "05-17-2024_14.03.22_Garage-2", time.Date(2024, 5, 17, 14, 3, 22, 0, time.UTC), "Garage", "-2", false},
		{"midnight", "12-31-2023_00.00.00_yard", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "yard", "", false},
		{"missing location", "05-17-2024_14.03.22", time.Time{}, "", "", true},
		{"digits in location", "05-17-2024_14.03.22_9", time.Time{}, "", "", true},
		{"colon separators", "05-17-2024_14:03:22_Garage", time.Time{}, "", "", true},
		{"month 13", "13-17-2024_14.03.22_Garage", time.Time{}, "", "", true},
		{"hour 25", "05-17-2024_25.03.22_Garage", time.Time{}, "", "", true},
		{"garbage", "snapshot", time.Time{}, "", "", true},
		{"empty", "", time.Time{}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.stem)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedName))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
			assert.Equal(t, tt.location, got.Location)
			assert.Equal(t, tt.suffix, got.Suffix)
		})
	}
}

func TestNameStringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, stem := range []string{
		"05-17-2024_14.03.22_Garage",
		"01-02-2025_09.08.07_frontDoor",
		"05-17-2024_14.03.22_Garage-2",
	} {
		n, err := Parse(stem)
		require.NoError(t, err)
		assert.Equal(t, stem, n.String())
	}
}

func TestParsePathAndStem(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "05-17-2024_14.03.22_Garage", Stem("/tmp/motion/image/05-17-2024_14.03.22_Garage.webp"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))

	n, err := ParsePath("/tmp/motion/05-17-2024_14.03.22_Garage.mkv")
	require.NoError(t, err)
	assert.Equal(t, "Garage", n.Location)
}

func TestWindowMatches(t *testing.T) {
	t.Parallel()

	image := mustParse(t, "05-17-2024_14.03.22_Garage")
	w := NewWindow(40)

	tests := []struct {
		name string
		clip string
		want bool
	}{
		{"same second", "05-17-2024_14.03.22_Garage", true},
		{"40s later", "05-17-2024_14.04.02_Garage", true},
		{"40s earlier", "05-17-2024_14.02.42_Garage", true},
		{"41s later", "05-17-2024_14.04.03_Garage", false},
		{"41s earlier", "05-17-2024_14.02.41_Garage", false},
		{"location case differs", "05-17-2024_14.03.30_garage", true},
		{"other location", "05-17-2024_14.03.22_Driveway", false},
		{"across midnight", "05-18-2024_14.03.22_Garage", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.Matches(image, mustParse(t, tt.clip)))
		})
	}
}

func TestWindowZeroTolerance(t *testing.T) {
	t.Parallel()

	image := mustParse(t, "05-17-2024_14.03.22_Garage")
	w := NewWindow(0)

	assert.True(t, w.Matches(image, mustParse(t, "05-17-2024_14.03.22_GARAGE")))
	assert.False(t, w.Matches(image, mustParse(t, "05-17-2024_14.03.23_Garage")))
}

func TestWindowMatchesAcrossDayBoundary(t *testing.T) {
	t.Parallel()

	image := mustParse(t, "05-17-2024_23.59.50_Garage")
	clip := mustParse(t, "05-18-2024_00.00.20_Garage")

	assert.True(t, NewWindow(40).Matches(image, clip))
}

func TestCorrelate(t *testing.T) {
	t.Parallel()

	image := mustParse(t, "05-17-2024_14.03.22_Garage")
	paths := slices.Values([]string{
		"/v/05-17-2024_14.03.00_Garage.mkv",
		"/v/05-17-2024_14.03.50_garage.mkv",
		"/v/05-17-2024_14.05.00_Garage.mkv",
		"/v/05-17-2024_14.03.22_Driveway.mkv",
		"/v/notes.mkv",
	})

	var got []string
	for c := range NewWindow(40).Correlate(image, paths) {
		got = append(got, c.Path)
	}

	assert.Equal(t, []string{
		"/v/05-17-2024_14.03.00_Garage.mkv",
		"/v/05-17-2024_14.03.50_garage.mkv",
	}, got)
}

func TestCorrelateStopsEarly(t *testing.T) {
	t.Parallel()

	image := mustParse(t, "05-17-2024_14.03.22_Garage")
	paths := slices.Values([]string{
		"/v/05-17-2024_14.03.20_Garage.mkv",
		"/v/05-17-2024_14.03.21_Garage.mkv",
	})

	count := 0
	for range NewWindow(40).Correlate(image, paths) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func mustParse(t *testing.T, stem string) Name {
	t.Helper()
	n, err := Parse(stem)
	require.NoError(t, err)
	return n
}
