// Package buildinfo holds build-time metadata that is not user-configurable.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context carries the version and build date injected through -ldflags.
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata. Empty values read back as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the git version tag the binary was built from.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the time the binary was built.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Release is the Sentry release name.
func (c *Context) Release() string {
	return "motionsort@" + c.Version()
}

// String is the --version output.
func (c *Context) String() string {
	return fmt.Sprintf("motionsort %s (built %s)", c.Version(), c.BuildDate())
}
