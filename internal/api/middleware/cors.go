package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser submissions from https pages on the root domain or any
// of its subdomains.
func CORS(rootDomain string) gin.HandlerFunc {
	root := strings.ToLower(strings.TrimSuffix(rootDomain, "."))

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return OriginAllowed(origin, root)
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

func OriginAllowed(origin, rootDomain string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == rootDomain || strings.HasSuffix(host, "."+rootDomain)
}
