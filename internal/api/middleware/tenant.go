package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const HostKey = "tenant_host"

// TenantHost records the host the tenant is resolved from. Behind a trusted
// proxy the first X-Forwarded-Host entry wins over Host.
func TenantHost(trustForwarded bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if trustForwarded {
			if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				host = strings.TrimSpace(first)
			}
		}
		c.Set(HostKey, host)
		c.Next()
	}
}
