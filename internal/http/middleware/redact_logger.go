// This file implements RedactingLogger, the access logger for the API. Besides
// emitting one structured line per request it builds the request-scoped
// logger (request_id, method, route) and attaches it both to the Gin context
// and to the request's context.Context, so services deeper in the call chain
// log with the same correlation fields via zerolog.Ctx.
//
// Bodies are never logged. Query strings and header values are scrubbed of
// emails, phone numbers and UUIDs; credentials, cookies and webhook
// signatures are masked entirely.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]" (case-insensitive, merged with the built-ins). MaskParams
// does the same for query parameters. QuietPaths are logged at debug level
// instead of info when they succeed (health checks, scrapes).
type RedactOptions struct {
	MaskHeaders []string
	MaskParams  []string
	QuietPaths  []string
}

var (
	redactUUID = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	redactMail = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only so hex runs inside UUIDs are never mistaken for numbers.
	redactPhone = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redact scrubs ids, then emails, then phone numbers. The order matters:
// the phone pattern is the loosest and would eat UUID segments.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = redactUUID.ReplaceAllString(s, "[REDACTED:id]")
	s = redactMail.ReplaceAllString(s, "[REDACTED:email]")
	return redactPhone.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(defaults []string, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(defaults)+len(extra))
	for _, v := range append(defaults, extra...) {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}

// redactQuery masks listed parameters entirely and scrubs the rest.
func redactQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return redact(truncate(raw, maxQueryLogLength))
	}
	for k, vv := range vals {
		if _, ok := mask[strings.ToLower(k)]; ok {
			vals[k] = []string{"[REDACTED]"}
			continue
		}
		for i := range vv {
			vv[i] = redact(vv[i])
		}
	}
	return truncate(vals.Encode(), maxQueryLogLength)
}

// RedactingLogger returns the access-log middleware. Level follows the
// outcome: error for 5xx or collected Gin errors, warn for 4xx, info
// otherwise (debug for successful QuietPaths).
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"authorization", "cookie", "set-cookie", "x-signature"}, opts.MaskHeaders)
	maskParams := lowerSet([]string{"token", "access_token", "signature"}, opts.MaskParams)
	quiet := make(map[string]struct{}, len(opts.QuietPaths))
	for _, p := range opts.QuietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}
		query := redactQuery(c.Request.URL.RawQuery, maskParams)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = l.Warn()
		default:
			if _, ok := quiet[path]; ok {
				ev = l.Debug()
			}
		}

		ev.
			Str("user_id", c.GetString("userID")).
			Str("remote_ip", c.ClientIP()).
			Str("query", query).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
