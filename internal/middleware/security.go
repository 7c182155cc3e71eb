package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// hopByHopHeaders are headers that should not be forwarded by proxies.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// contentSecurityPolicy restricts the single-page client to same-origin
// scripts and API calls.
const contentSecurityPolicy = "default-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// SecurityHeaders returns an Echo middleware that strips hop-by-hop
// request headers and adds security headers to responses. Responses under
// noStorePrefix are marked uncacheable so browsers always see fresh API data.
func SecurityHeaders(noStorePrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range hopByHopHeaders {
				c.Request().Header.Del(h)
			}

			// Set before next: handlers commit the response when they write.
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Content-Security-Policy", contentSecurityPolicy)

			p := c.Request().URL.Path
			if noStorePrefix != "" && (p == noStorePrefix || strings.HasPrefix(p, noStorePrefix+"/")) {
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
