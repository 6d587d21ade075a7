package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/emailpreview/internal/core"
)

// withRequestMetadata puts the client IP and User-Agent on ctx so confirmed
// mappings record who made them.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}

// clientIP strips the port from r.RemoteAddr. TrustedRealIP has already
// replaced it with the forwarded address when the proxy is trusted.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
