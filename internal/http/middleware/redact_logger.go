// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger for the
// webhook surface. It scrubs identifiers from request metadata before
// emitting logs and installs a request-scoped logger that handlers and
// services pick up from the Gin context or via zerolog.Ctx.
//
// Request and response bodies are never logged: webhook payloads carry user
// ids and message text.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]". Matching is case-insensitive and merged with the built-ins
// (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// LINE user, group and room ids: one letter plus 32 hex digits.
	lineIDRE = regexp.MustCompile(`\b[UCR][0-9a-f]{32}\b`)
	uuidRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// redact replaces LINE ids, UUIDs and e-mail addresses in s.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = lineIDRE.ReplaceAllString(s, "[REDACTED:line_id]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// RedactingLogger returns a Gin middleware that logs each request with
// sensitive values scrubbed, at INFO for 2xx/3xx, WARN for 4xx and ERROR for
// 5xx. Before the handler runs it attaches a logger carrying request_id,
// method and path to both the Gin context and the request context.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		lg := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &lg)
		c.Request = c.Request.WithContext(lg.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := lg.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
