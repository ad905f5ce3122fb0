// Package privacy scrubs credentials from text that ends up in logs, error
// reports and printed configuration.
package privacy

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	// any scheme, shoutrrr service URLs included
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.\-]*://\S+`)

	// Pushover application and user keys are 30 character alphanumerics
	pushoverKeyPattern = regexp.MustCompile(`\b[a-zA-Z0-9]{30}\b`)

	keyValuePattern = regexp.MustCompile(`(?i)\b(token|user|api[_-]?key|secret|password)(["']?\s*[:=]\s*["']?)([^\s&"',;]+)`)
)

// ScrubMessage removes credentials from a free-form message. URLs keep their
// scheme and host so the message still says where a call went.
func ScrubMessage(message string) string {
	if message == "" {
		return message
	}

	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = keyValuePattern.ReplaceAllString(message, "${1}${2}"+redacted)
	return pushoverKeyPattern.ReplaceAllString(message, redacted)
}

// AnonymizeURL strips user info, query and fragment from a URL.
// Unparsable input collapses to its scheme.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		scheme, _, found := strings.Cut(rawURL, "://")
		if !found {
			return redacted
		}
		return scheme + "://" + redacted
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(redacted)
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		b.WriteString("/")
		b.WriteString(redacted)
	}
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(redacted)
	}
	return b.String()
}

// MaskSecret keeps the first four characters of a secret, enough to tell two
// configured keys apart.
func MaskSecret(secret string) string {
	const visible = 4
	switch {
	case secret == "":
		return ""
	case len(secret) <= visible*2:
		return strings.Repeat("*", len(secret))
	default:
		return secret[:visible] + strings.Repeat("*", len(secret)-visible)
	}
}
