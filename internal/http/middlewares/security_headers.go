package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

const (
	defaultCSP = "default-src 'none'; frame-ancestors 'none'"
	// Swagger UI page needs CDN assets + inline bootstrap script/style.
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func secureOptions(csp string, production bool) secure.Options {
	return secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: csp,
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	}
}

// SecurityHeaders sets the hardening headers on every response. Pages under
// /docs get a CSP that lets the Swagger UI load.
func SecurityHeaders(production bool) gin.HandlerFunc {
	api := secure.New(secureOptions(defaultCSP, production))
	docs := secure.New(secureOptions(docsCSP, production))

	return func(c *gin.Context) {
		s := api
		if strings.HasPrefix(c.Request.URL.Path, "/docs") {
			s = docs
		}

		if err := s.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}

		c.Next()
	}
}
