package middleware

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// apiContentSecurityPolicy forbids every resource load; the API only ever
// returns JSON.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityConfig holds the cross-origin policy of the control API.
type SecurityConfig struct {
	AllowedOrigins []string
	MaxAge         int // preflight cache seconds
}

// DefaultSecurityConfig allows any origin; controllers on a stage network
// are driven from tablets with changing addresses.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins: []string{"*"},
		MaxAge:         600,
	}
}

// NewCORS allows reads and control posts from the configured origins.
// Credentials are never allowed since the API has no sessions.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       config.MaxAge,
	})
}

// NewSecureHeaders sets response headers for a JSON-only API. HSTS is left
// to a TLS-terminating proxy.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: apiContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
	})
}

// NoStore marks every response uncacheable; controller state changes with
// each request.
func NoStore() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
			return next(c)
		}
	}
}

// RequireJSON rejects request bodies that are not declared as JSON. Bodyless
// posts such as preset or reset calls pass through.
func RequireJSON() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength == 0 || req.Method == http.MethodGet || req.Method == http.MethodHead {
				return next(c)
			}
			mediaType, _, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
			if err != nil || mediaType != echo.MIMEApplicationJSON {
				return echo.ErrUnsupportedMediaType
			}
			return next(c)
		}
	}
}

// NewBodyLimit caps request bodies, e.g. "64K".
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
