package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientAddress(t *testing.T) {
	// Explicit client IP wins over every header.
	assert.Equal(t, "198.51.100.7", ClientAddress("198.51.100.7", "203.0.113.1", "203.0.113.2", "10.0.0.1:4444"))

	// X-Forwarded-For contributes only its first hop.
	assert.Equal(t, "203.0.113.1", ClientAddress("", "203.0.113.1, 10.0.0.1, 10.0.0.2", "203.0.113.2", ""))

	assert.Equal(t, "203.0.113.2", ClientAddress("", "", "203.0.113.2", "10.0.0.1:4444"))
	assert.Equal(t, "10.0.0.1:4444", ClientAddress("", "", "", "10.0.0.1:4444"))
	assert.Equal(t, "unknown", ClientAddress("", "", "", ""))

	// Loopback is kept as-is.
	assert.Equal(t, "127.0.0.1", ClientAddress("127.0.0.1", "", "", ""))
}

func TestUserAgentOrUnknown(t *testing.T) {
	assert.Equal(t, "unknown", UserAgentOrUnknown(""))
	assert.Equal(t, "curl/8.0", UserAgentOrUnknown("curl/8.0"))
}
