package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/auth"
)

type stubAuthenticator struct {
	authenticate func(token string) (*auth.UserIdentity, error)
}

func (s stubAuthenticator) Authenticate(token string) (*auth.UserIdentity, error) {
	return s.authenticate(token)
}

var acceptGood = stubAuthenticator{authenticate: func(token string) (*auth.UserIdentity, error) {
	if token == "Bearer good" {
		return &auth.UserIdentity{ID: "u-1", Email: "u1@example.com"}, nil
	}
	return nil, auth.ErrUnauthenticated
}}

func authEngine(v Authenticator, opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Auth(v, opts))
	r.GET("/me", func(c *gin.Context) {
		id, _ := Identity(c)
		c.String(http.StatusOK, UserID(c)+"|"+id.Email)
	})
	return r
}

func TestAuth(t *testing.T) {
	cases := []struct {
		name     string
		verifier Authenticator
		header   bool
		authz    string
		userHdr  string
		want     int
		body     string
	}{
		{"valid token", acceptGood, false, "Bearer good", "", http.StatusOK, "u-1|u1@example.com"},
		{"invalid token", acceptGood, false, "Bearer bad", "", http.StatusUnauthorized, "unauthenticated"},
		{"missing credentials", acceptGood, false, "", "", http.StatusUnauthorized, "unauthenticated"},
		{"header identity disabled", acceptGood, false, "", "u-9", http.StatusUnauthorized, "unauthenticated"},
		{"header identity enabled", nil, true, "", "u-9", http.StatusOK, "u-9|"},
		{"token beats header", acceptGood, true, "Bearer bad", "u-9", http.StatusUnauthorized, "unauthenticated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := authEngine(tc.verifier, AuthOptions{HeaderIdentity: tc.header})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			if tc.userHdr != "" {
				req.Header.Set(HeaderUserID, tc.userHdr)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want || !strings.Contains(w.Body.String(), tc.body) {
				t.Fatalf("got %d %q; want %d containing %q", w.Code, w.Body.String(), tc.want, tc.body)
			}
			if tc.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("missing WWW-Authenticate")
			}
		})
	}
}

func TestAuth_Provision(t *testing.T) {
	var got []string
	r := authEngine(acceptGood, AuthOptions{Provision: func(_ context.Context, id auth.UserIdentity) error {
		got = append(got, id.ID)
		return nil
	}})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if len(got) != 1 || got[0] != "u-1" {
		t.Fatalf("provisioned %v", got)
	}

	failing := authEngine(acceptGood, AuthOptions{Provision: func(context.Context, auth.UserIdentity) error {
		return errors.New("db down")
	}})
	w := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	failing.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("provision failure -> %d %s", w.Code, w.Body.String())
	}
}

func TestAuth_Optional(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provisioned := 0
	r := gin.New()
	r.Use(RequestID(), Auth(acceptGood, AuthOptions{Optional: true, Provision: func(context.Context, auth.UserIdentity) error {
		provisioned++
		return nil
	}}))
	r.GET("/contact", func(c *gin.Context) { c.String(http.StatusOK, "user="+UserID(c)) })

	cases := []struct {
		name  string
		authz string
		body  string
	}{
		{"anonymous", "", "user="},
		{"rejected token falls back to anonymous", "Bearer bad", "user="},
		{"valid token", "Bearer good", "user=u-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/contact", nil)
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK || w.Body.String() != tc.body {
				t.Fatalf("got %d %q; want 200 %q", w.Code, w.Body.String(), tc.body)
			}
		})
	}
	if provisioned != 1 {
		t.Fatalf("provisioned %d times; want 1", provisioned)
	}
}
