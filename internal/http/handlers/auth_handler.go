package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/auth"
)

// DevTokenRequest names the identity to mint a token for.
type DevTokenRequest struct {
	UserID  string `json:"user_id" binding:"required,max=128" example:"dev-user-1"`
	Email   string `json:"email,omitempty"   example:"dev@example.com"`
	Name    string `json:"name,omitempty"    example:"Dev User"`
	Picture string `json:"picture,omitempty"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DevToken godoc
// @ID          devToken
// @Summary     Issue a development token
// @Description Mints a signed token for any identity. Only mounted when development login is enabled.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.DevTokenRequest  true  "Identity"
//
// @Success     200  {object} handlers.TokenResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /auth/dev-token [post]
func (h *Handlers) DevToken(c *gin.Context) {
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required (1-128 chars)")
		return
	}
	if h.tokens == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "development login is disabled")
		return
	}
	tok, exp, err := h.tokens.Issue(auth.UserIdentity{
		ID:      strings.TrimSpace(req.UserID),
		Email:   req.Email,
		Name:    req.Name,
		Picture: req.Picture,
	}, h.tokenTTL)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresAt: exp})
}
