// Package device derives a stable fingerprint for callers that refuse the
// session cookie.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprint hashes the browser family, its major version, the platform
// and the client IP. Minor browser updates keep the fingerprint.
func Fingerprint(userAgent, clientIP string) string {
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	if major, _, ok := strings.Cut(version, "."); ok {
		version = major
	}
	parts := []string{
		strings.ToLower(browser),
		version,
		strings.ToLower(ua.OS()),
		strings.TrimSpace(clientIP),
	}
	if ua.Bot() {
		parts = append(parts, "bot")
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}
