package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/auth"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/payments"
	"github.com/tbourn/go-page-restore/internal/services"
)

// ---------- flexible service stubs ----------

type stubFiles struct {
	upload   func(ctx context.Context, owner, name string, data []byte, declared int) (*domain.Artifact, error)
	submit   func(ctx context.Context, owner string, req services.ProcessRequest) (*services.Batch, error)
	retry    func(ctx context.Context, owner, id, quality, truth string) (*services.Batch, error)
	status   func(ctx context.Context, owner, id string) (*domain.ProcessStatus, error)
	result   func(ctx context.Context, owner, id string, index int) ([]byte, string, error)
	bundle   func(ctx context.Context, owner, id string) ([]byte, *domain.Artifact, error)
	ocr      func(ctx context.Context, owner, id string, index int) (string, error)
	get      func(ctx context.Context, owner, id string) (*domain.Artifact, error)
	list     func(ctx context.Context, owner string, page, pageSize int) ([]domain.Artifact, int64, error)
	deleteFn func(ctx context.Context, owner, id string) error
}

func (s stubFiles) SubmitUpload(ctx context.Context, owner, name string, data []byte, declared int) (*domain.Artifact, error) {
	if s.upload != nil {
		return s.upload(ctx, owner, name, data, declared)
	}
	return &domain.Artifact{ID: "a", UserID: owner, Filename: name}, nil
}

func (s stubFiles) Submit(ctx context.Context, owner string, req services.ProcessRequest) (*services.Batch, error) {
	if s.submit != nil {
		return s.submit(ctx, owner, req)
	}
	return &services.Batch{ID: "b", UserID: owner, ArtifactID: req.ArtifactID, Pages: req.Pages}, nil
}

func (s stubFiles) Retry(ctx context.Context, owner, id, quality, truth string) (*services.Batch, error) {
	if s.retry != nil {
		return s.retry(ctx, owner, id, quality, truth)
	}
	return &services.Batch{ID: "b", UserID: owner, ArtifactID: id}, nil
}

func (s stubFiles) GetStatus(ctx context.Context, owner, id string) (*domain.ProcessStatus, error) {
	if s.status != nil {
		return s.status(ctx, owner, id)
	}
	return &domain.ProcessStatus{FileID: id, Status: domain.StatusPending}, nil
}

func (s stubFiles) GetResult(ctx context.Context, owner, id string, index int) ([]byte, string, error) {
	if s.result != nil {
		return s.result(ctx, owner, id, index)
	}
	return nil, "", services.ErrNotReady
}

func (s stubFiles) Bundle(ctx context.Context, owner, id string) ([]byte, *domain.Artifact, error) {
	if s.bundle != nil {
		return s.bundle(ctx, owner, id)
	}
	return nil, nil, services.ErrNotReady
}

func (s stubFiles) ExtractText(ctx context.Context, owner, id string, index int) (string, error) {
	if s.ocr != nil {
		return s.ocr(ctx, owner, id, index)
	}
	return "", nil
}

func (s stubFiles) Get(ctx context.Context, owner, id string) (*domain.Artifact, error) {
	if s.get != nil {
		return s.get(ctx, owner, id)
	}
	return &domain.Artifact{ID: id, UserID: owner}, nil
}

func (s stubFiles) List(ctx context.Context, owner string, page, pageSize int) ([]domain.Artifact, int64, error) {
	if s.list != nil {
		return s.list(ctx, owner, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubFiles) Delete(ctx context.Context, owner, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, owner, id)
	}
	return nil
}

type stubCredits struct {
	balance      func(ctx context.Context, userID string) (*services.Balance, error)
	authorize    func(ctx context.Context, userID string, pages int) (services.Allowance, error)
	transactions func(ctx context.Context, userID string, page, pageSize int) ([]domain.CreditTransaction, int64, error)
}

func (s stubCredits) Balance(ctx context.Context, userID string) (*services.Balance, error) {
	if s.balance != nil {
		return s.balance(ctx, userID)
	}
	return &services.Balance{User: domain.User{ID: userID}}, nil
}

func (s stubCredits) Authorize(ctx context.Context, userID string, pages int) (services.Allowance, error) {
	if s.authorize != nil {
		return s.authorize(ctx, userID, pages)
	}
	return services.Allowance{Pages: pages, Sufficient: true}, nil
}

func (s stubCredits) Transactions(ctx context.Context, userID string, page, pageSize int) ([]domain.CreditTransaction, int64, error) {
	if s.transactions != nil {
		return s.transactions(ctx, userID, page, pageSize)
	}
	return nil, 0, nil
}

type stubQuoter func(pages int) (services.Quote, error)

func (f stubQuoter) Quote(pages int) (services.Quote, error) { return f(pages) }

type stubWebhooks func(ctx context.Context, body []byte, sig string) (*payments.Event, string, error)

func (f stubWebhooks) Handle(ctx context.Context, body []byte, sig string) (*payments.Event, string, error) {
	return f(ctx, body, sig)
}

type stubTokens func(id auth.UserIdentity, ttl time.Duration) (string, time.Time, error)

func (f stubTokens) Issue(id auth.UserIdentity, ttl time.Duration) (string, time.Time, error) {
	return f(id, ttl)
}

type stubContact func(ctx context.Context, userID string, in services.ContactInput) (*domain.ContactMessage, error)

func (f stubContact) Submit(ctx context.Context, userID string, in services.ContactInput) (*domain.ContactMessage, error) {
	return f(ctx, userID, in)
}

// ---------- engine helpers ----------

const testUser = "user-1"

// newEngine returns an engine that authenticates every request as testUser.
func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", testUser)
		c.Next()
	})
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
