// Credit HTTP handlers.
//
//   - GET /me                     (profile and quota state)
//   - GET /credits/preview        (side-effect-free cost split)
//   - GET /credits/quote          (purchase pricing with bulk discounts)
//   - GET /credits/transactions   (ledger history, paginated)
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/services"
)

//
// DTOs
//

// MeResponse is the caller's profile and quota.
type MeResponse struct {
	ID            string `json:"id"             example:"google-oauth2|1093"`
	Email         string `json:"email"          example:"ada@example.com"`
	Name          string `json:"name,omitempty" example:"Ada"`
	Picture       string `json:"picture,omitempty"`
	Credits       string `json:"credits"         example:"12"`
	FreePages     int    `json:"free_pages"      example:"3"`
	FreePagesUsed int    `json:"free_pages_used" example:"1"`
	FreeRemaining int    `json:"free_remaining"  example:"2"`
}

// ListTransactionsResponse wraps a page of ledger entries.
type ListTransactionsResponse struct {
	Transactions []domain.CreditTransaction `json:"transactions"`
	Pagination   Pagination                 `json:"pagination"`
}

// pagesQuery parses the required positive ?pages=N.
func pagesQuery(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("pages")))
	if err != nil || n <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pages must be a positive integer")
		return 0, false
	}
	return n, true
}

//
// Handlers
//

// Me godoc
// @ID          me
// @Summary     Current user and balance
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.MeResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object} handlers.ErrorResponse "Unknown user"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	b, err := h.credits.Balance(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MeResponse{
		ID:            b.User.ID,
		Email:         b.User.Email,
		Name:          b.User.Name,
		Picture:       b.User.Picture,
		Credits:       b.User.Credits.String(),
		FreePages:     b.FreePages,
		FreePagesUsed: b.User.FreePagesUsed,
		FreeRemaining: b.FreeRemaining,
	})
}

// PreviewCost godoc
// @ID          previewCost
// @Summary     Preview the cost of processing N pages
// @Description Splits N pages between the remaining free allowance and paid credits without changing anything. sufficient=false means a process request of that size would be refused with 402.
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Param       pages  query  int  true  "Number of pages"  minimum(1)
//
// @Success     200  {object} services.Allowance
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /credits/preview [get]
func (h *Handlers) PreviewCost(c *gin.Context) {
	pages, valid := pagesQuery(c)
	if !valid {
		return
	}
	a, err := h.credits.Authorize(c.Request.Context(), userID(c), pages)
	if err != nil && !errors.Is(err, services.ErrInsufficientCredits) {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// QuoteCredits godoc
// @ID          quoteCredits
// @Summary     Price a credit purchase
// @Description Unit price with bulk discounts (10% from 10 pages, 20% from 50, 30% from 200 by default).
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Param       pages  query  int  true  "Number of page credits"  minimum(1)
//
// @Success     200  {object} services.Quote
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /credits/quote [get]
func (h *Handlers) QuoteCredits(c *gin.Context) {
	pages, valid := pagesQuery(c)
	if !valid {
		return
	}
	q, err := h.pricing.Quote(pages)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}

// ListTransactions godoc
// @ID          listTransactions
// @Summary     Credit history (paginated)
// @Tags        Credits
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTransactionsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /credits/transactions [get]
func (h *Handlers) ListTransactions(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.credits.Transactions(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListTransactionsResponse{
		Transactions: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}
