// This file implements Idempotency-Key support for unsafe endpoints.
//
// For the routes it guards, the middleware validates the header, fingerprints
// the request (method, path and body) and consults an IdempotencyStore:
//
//   - no record: the handler runs; a 2xx response is captured and stored
//   - record with the same fingerprint: the stored response is replayed with
//     Idempotency-Replayed: true, and the rate limiter is told to skip it
//   - record with a different fingerprint: 409 idempotency_conflict
//
// Store failures never block the request; the call proceeds without
// idempotency and the failure is logged.
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed marks responses served from the store.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemReplay   = "idem.replay"
	ctxKeyIdemResource = "idem.resource"
	ctxKeyRateBypass   = "rate.bypass"
)

// ErrIdempotencyRecordExists is returned by stores when a concurrent request
// saved the same key first.
var ErrIdempotencyRecordExists = errors.New("idempotency record exists")

// IdempotencyStore persists completed responses. Get returns (nil, nil) when
// no live record exists.
type IdempotencyStore interface {
	Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	Save(ctx context.Context, rec domain.Idempotency) error
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// Routes lists the gin route patterns (c.FullPath()) guarded for POST.
	Routes []string
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// MaxBody caps the bytes read for fingerprinting. Values <= 0 default
	// to 1 MiB; larger bodies get 413.
	MaxBody int64
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the response was served from the store.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// SetIdempotentResource lets a handler name the resource it created, so the
// stored record can point at it.
func SetIdempotentResource(c *gin.Context, id string) {
	c.Set(ctxKeyIdemResource, id)
}

// Idempotency returns the middleware. It must run after Auth so records are
// scoped per user.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	routes := make(map[string]struct{}, len(opts.Routes))
	for _, r := range opts.Routes {
		routes[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		scope := c.FullPath()
		if _, ok := routes[scope]; !ok {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortIdem(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
		if err != nil {
			abortIdem(c, http.StatusBadRequest, "invalid_request", "unreadable request body")
			return
		}
		if int64(len(body)) > maxBody {
			abortIdem(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		fp := fingerprint(c.Request.Method, c.Request.URL.Path, body)

		if store == nil {
			c.Next()
			return
		}
		uid := UserID(c)
		ctx := c.Request.Context()
		lg := LoggerFrom(c)

		rec, err := store.Get(ctx, uid, scope, key, time.Now().UTC())
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency lookup failed")
			c.Next()
			return
		}
		if rec != nil {
			if rec.Fingerprint != fp {
				abortIdem(c, http.StatusConflict, "idempotency_conflict",
					"Idempotency-Key was already used with a different request")
				return
			}
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotencyReplayed, "true")
			c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Body))
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 {
			return
		}
		err = store.Save(context.WithoutCancel(ctx), domain.Idempotency{
			UserID:      uid,
			Scope:       scope,
			Key:         key,
			Fingerprint: fp,
			ResourceID:  c.GetString(ctxKeyIdemResource),
			Status:      status,
			Body:        cw.buf.String(),
		})
		switch {
		case errors.Is(err, ErrIdempotencyRecordExists):
			lg.Debug().Str("key", key).Msg("idempotency record saved concurrently")
		case err != nil:
			lg.Warn().Err(err).Str("key", key).Msg("idempotency save failed")
		}
	}
}

func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func abortIdem(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
