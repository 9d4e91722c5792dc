package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// proxyHeaders are consulted in order; the first non-empty address wins.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// getClientIP keys rate limits and request logs by the originating client.
func getClientIP(c *gin.Context) string {
	for _, header := range proxyHeaders {
		// X-Forwarded-For lists the client first, then each proxy.
		first, _, _ := strings.Cut(c.GetHeader(header), ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}
