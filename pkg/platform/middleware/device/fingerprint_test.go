package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chrome120  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	chrome120b = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36"
	chrome121  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.6167.85 Safari/537.36"
)

func TestFingerprint(t *testing.T) {
	base := Fingerprint(chrome120, "192.0.2.1")
	assert.Len(t, base, 32)

	assert.Equal(t, base, Fingerprint(chrome120b, "192.0.2.1"), "patch updates keep the fingerprint")
	assert.NotEqual(t, base, Fingerprint(chrome121, "192.0.2.1"), "major updates change it")
	assert.NotEqual(t, base, Fingerprint(chrome120, "192.0.2.2"), "another address changes it")
}
