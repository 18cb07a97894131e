// Package guard validates the Origin and MCP-Protocol-Version request headers.
package guard

import (
	"net/url"
	"strings"

	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
)

const (
	OriginHeader          = "Origin"
	ProtocolVersionHeader = "MCP-Protocol-Version"
)

// DefaultAllowedHosts are the production hosts accepted in addition to localhost.
var DefaultAllowedHosts = []string{
	"0.0.0.0",
	"mcpcentral.io",
	"mcp.time.mcpcentral.io",
}

// Guard checks request origins against an allow-list of hostnames.
type Guard struct {
	allowed []string
}

// New returns a Guard that accepts localhost, 127.0.0.1 and the given hosts with their subdomains.
func New(allowedHosts []string) *Guard {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Guard{allowed: hosts}
}

// IsValidOrigin reports whether origin may call the server. Malformed origins are rejected.
func (g *Guard) IsValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return false
	}
	if hostname == "localhost" || hostname == "127.0.0.1" {
		return true
	}
	for _, h := range g.allowed {
		if hostname == h || strings.HasSuffix(hostname, "."+h) {
			return true
		}
	}
	return false
}

// IsSupportedProtocolVersion reports whether v is a protocol version this server speaks.
func IsSupportedProtocolVersion(v string) bool {
	for _, s := range mcp.SupportedProtocolVersions {
		if v == s {
			return true
		}
	}
	return false
}

// NegotiateProtocolVersion picks the version to answer initialize with.
// A supported proposal is echoed, an empty one gets the latest version,
// anything else degrades to the fallback version.
func NegotiateProtocolVersion(proposed string) string {
	switch {
	case proposed == "":
		return mcp.ProtocolVersionLatest
	case IsSupportedProtocolVersion(proposed):
		return proposed
	default:
		return mcp.ProtocolVersionFallback
	}
}
