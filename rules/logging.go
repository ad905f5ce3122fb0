//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StructuredLogging reports the standard log and fmt.Print* helpers in library
// code. Packages log through their GetLogger() module logger.
func StructuredLogging(m dsl.Matcher) {
	m.Import("log")

	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatal($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report("use the package GetLogger() instead of the standard log package")

	m.Match(
		`fmt.Printf($*_)`,
		`fmt.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("internal packages must not print to stdout; log or return the value")
}

// LoggerErrorField catches errors formatted into the message instead of
// attached as a field.
func LoggerErrorField(m dsl.Matcher) {
	m.Match(
		`$log.$method(fmt.Sprintf($fmt, $*args), $*fields)`,
	).
		Where(m["log"].Type.Implements("github.com/tphakala/motionsort/internal/logger.Logger") &&
			m["method"].Text.Matches(`^(Debug|Info|Warn|Error)$`)).
		Report("log a constant message and attach values with logger fields")
}
