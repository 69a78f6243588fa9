// This file declares the service contracts the HTTP handlers consume, the
// Handlers wiring and helpers shared by every endpoint.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including
// conditional responses).
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/auth"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/http/middleware"
	"github.com/tbourn/go-page-restore/internal/payments"
	"github.com/tbourn/go-page-restore/internal/services"
	"github.com/tbourn/go-page-restore/internal/utils"
)

//
// Service contracts (context-aware)
//

// FileService covers uploads, processing and result retrieval. Every call
// that names an artifact checks that ownerID owns it.
type FileService interface {
	SubmitUpload(ctx context.Context, ownerID, filename string, data []byte, declaredPages int) (*domain.Artifact, error)
	Submit(ctx context.Context, ownerID string, req services.ProcessRequest) (*services.Batch, error)
	Retry(ctx context.Context, ownerID, artifactID, quality, groundTruth string) (*services.Batch, error)
	GetStatus(ctx context.Context, ownerID, artifactID string) (*domain.ProcessStatus, error)
	GetResult(ctx context.Context, ownerID, artifactID string, index int) ([]byte, string, error)
	Bundle(ctx context.Context, ownerID, artifactID string) ([]byte, *domain.Artifact, error)
	ExtractText(ctx context.Context, ownerID, artifactID string, index int) (string, error)
	Get(ctx context.Context, ownerID, artifactID string) (*domain.Artifact, error)
	List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Artifact, int64, error)
	Delete(ctx context.Context, ownerID, artifactID string) error
}

// CreditService exposes the read side of the quota ledger.
type CreditService interface {
	Balance(ctx context.Context, userID string) (*services.Balance, error)
	Authorize(ctx context.Context, userID string, pages int) (services.Allowance, error)
	Transactions(ctx context.Context, userID string, page, pageSize int) ([]domain.CreditTransaction, int64, error)
}

// Quoter prices credit purchases.
type Quoter interface {
	Quote(pages int) (services.Quote, error)
}

// WebhookProcessor verifies and applies payment provider deliveries.
type WebhookProcessor interface {
	Handle(ctx context.Context, body []byte, signature string) (*payments.Event, string, error)
}

// TokenIssuer mints API tokens for the development login.
type TokenIssuer interface {
	Issue(id auth.UserIdentity, ttl time.Duration) (string, time.Time, error)
}

//
// Handler wiring
//

// Deps lists what New needs. Tokens may be nil when dev login is off.
// Contact may be nil when the contact form is not routed.
type Deps struct {
	Files    FileService
	Credits  CreditService
	Pricing  Quoter
	Webhooks WebhookProcessor
	Tokens   TokenIssuer
	Contact  ContactSubmitter

	TokenTTL       time.Duration
	MaxUploadBytes int64
	MaxBatchPages  int
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	files    FileService
	credits  CreditService
	pricing  Quoter
	webhooks WebhookProcessor
	tokens   TokenIssuer
	contact  ContactSubmitter

	tokenTTL       time.Duration
	maxUploadBytes int64
	maxBatchPages  int
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handlers{
		files:          d.Files,
		credits:        d.Credits,
		pricing:        d.Pricing,
		webhooks:       d.Webhooks,
		tokens:         d.Tokens,
		contact:        d.Contact,
		tokenTTL:       ttl,
		maxUploadBytes: d.MaxUploadBytes,
		maxBatchPages:  d.MaxBatchPages,
	}
}

// userID returns the caller set by the Auth middleware.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// statsDB returns the database behind the file service when it is the
// concrete orchestrator, for cheap ETag pre-checks. Nil otherwise.
func (h *Handlers) statsDB() *gorm.DB {
	if svc, ok := h.files.(*services.Orchestrator); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	tp := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: tp,
		HasNext:    page < tp,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		defaultPageSize, maxPageSize,
	)
}
