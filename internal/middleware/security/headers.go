package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string

	// NoStorePrefix marks responses under this path as uncacheable.
	NoStorePrefix string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no
// documents of its own.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:     "same-origin",
		CrossOriginResource:   "same-origin",
		NoStorePrefix:         "/api/",
	}
}

type HeadersMiddleware struct {
	config HeadersConfig
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{config: config}
	if config.HSTSMaxAge > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()
	setIf := func(key, value string) {
		if value != "" {
			headers.Set(key, value)
		}
	}

	setIf("Content-Security-Policy", h.config.CSP)
	setIf("X-Content-Type-Options", h.config.XContentTypeOptions)
	setIf("X-Frame-Options", h.config.XFrameOptions)
	setIf("Referrer-Policy", h.config.ReferrerPolicy)
	setIf("Permissions-Policy", h.config.PermissionsPolicy)
	setIf("Cross-Origin-Opener-Policy", h.config.CrossOriginOpener)
	setIf("Cross-Origin-Resource-Policy", h.config.CrossOriginResource)

	if h.hsts != "" && r.TLS != nil {
		headers.Set("Strict-Transport-Security", h.hsts)
	}
	if h.config.NoStorePrefix != "" && strings.HasPrefix(r.URL.Path, h.config.NoStorePrefix) {
		headers.Set("Cache-Control", "no-store")
	}
}
