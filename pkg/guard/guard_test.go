package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidOrigin(t *testing.T) {
	g := New(DefaultAllowedHosts)

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"http://0.0.0.0:8080", true},
		{"https://mcpcentral.io", true},
		{"https://app.mcpcentral.io", true},
		{"https://mcp.time.mcpcentral.io", true},
		{"https://MCPCENTRAL.IO", true},
		{"https://evil.example", false},
		{"https://mcpcentral.io.evil.example", false},
		{"https://evilmcpcentral.io", false},
		{"http://[::1]:8080", false},
		{"not a url", false},
		{"http://%zz", false},
		{"null", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsValidOrigin(tt.origin))
		})
	}
}

func TestCustomAllowList(t *testing.T) {
	g := New([]string{" Example.COM ", ""})

	assert.True(t, g.IsValidOrigin("https://api.example.com"))
	assert.True(t, g.IsValidOrigin("http://localhost"))
	assert.False(t, g.IsValidOrigin("https://mcpcentral.io"))
}

func TestIsSupportedProtocolVersion(t *testing.T) {
	assert.True(t, IsSupportedProtocolVersion("2025-06-18"))
	assert.True(t, IsSupportedProtocolVersion("2025-03-26"))
	assert.True(t, IsSupportedProtocolVersion("2024-11-05"))
	assert.False(t, IsSupportedProtocolVersion("2023-01-01"))
	assert.False(t, IsSupportedProtocolVersion(""))
}

func TestNegotiateProtocolVersion(t *testing.T) {
	assert.Equal(t, "2025-03-26", NegotiateProtocolVersion("2025-03-26"))
	assert.Equal(t, "2024-11-05", NegotiateProtocolVersion("1999-01-01"))
	assert.Equal(t, "2025-06-18", NegotiateProtocolVersion(""))
}
