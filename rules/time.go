//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeDateTimeConstants suggests the named layouts added in Go 1.20.
func TimeDateTimeConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Where(m["t"].Type.Is("time.Time")).
		Report("use $t.Format(time.DateTime)").
		Suggest("$t.Format(time.DateTime)")

	m.Match(`$t.Format("2006-01-02")`).
		Where(m["t"].Type.Is("time.Time")).
		Report("use $t.Format(time.DateOnly)").
		Suggest("$t.Format(time.DateOnly)")

	m.Match(`time.Parse("2006-01-02 15:04:05", $s)`).
		Report("use time.Parse(time.DateTime, $s)").
		Suggest("time.Parse(time.DateTime, $s)")
}

// TimeSleepInTests reports sleeps in tests, which should wait on a channel
// or use require.Eventually.
func TimeSleepInTests(m dsl.Matcher) {
	m.Match(`time.Sleep($d)`).
		Where(m.File().Name.Matches(`_test\.go$`) && m.File().PkgPath.Matches(`/internal/processor$`)).
		Report("processor tests are synchronous; time.Sleep($d) hides a race")
}
