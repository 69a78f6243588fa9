// Processing HTTP handlers.
//
//   - POST /files/process       (claim pages and enhance them in the background)
//   - POST /files/{id}/retry    (resubmit exactly the failed pages)
//   - GET  /files/{id}/status   (derived progress, ETag support)
//
// Submission is synchronous up to the claim, so validation, ownership,
// quota and conflict errors come back on the request; the enhancement itself
// runs after the 202 and is observed by polling status.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/http/middleware"
	"github.com/tbourn/go-page-restore/internal/repo"
	"github.com/tbourn/go-page-restore/internal/services"
	"github.com/tbourn/go-page-restore/internal/utils"
)

//
// DTOs
//

// ProcessFileRequest is the JSON payload for POST /files/process. Pages can
// be given as a list (page_indices) or a selection string (pages), not both.
type ProcessFileRequest struct {
	FileID      string `json:"file_id"      binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	PageIndices []int  `json:"page_indices,omitempty" example:"0,1,2"`
	Pages       string `json:"pages,omitempty"        example:"0-2,5"`
	// Quality is standard (1K), high (2K) or ultra (4K, default).
	Quality string `json:"quality,omitempty" example:"ultra" enums:"standard,high,ultra"`
	// GroundTruth overrides what the model reads on the page.
	GroundTruth string `json:"ground_truth,omitempty" example:"Dear Margaret,"`
}

// RetryFileRequest is the optional JSON payload for POST /files/{id}/retry.
type RetryFileRequest struct {
	Quality     string `json:"quality,omitempty"      example:"high"`
	GroundTruth string `json:"ground_truth,omitempty"`
}

// ProcessAccepted acknowledges a claimed batch.
type ProcessAccepted struct {
	BatchID   string          `json:"batch_id"   example:"7b0f3c9e-54b1-4a51-9f55-8d3f3c1d2e10"`
	FileID    string          `json:"file_id"    example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Pages     []int           `json:"pages"      example:"0,1,2"`
	Quality   string          `json:"quality"    example:"ultra"`
	FreePages int             `json:"free_pages" example:"2"`
	PaidPages int             `json:"paid_pages" example:"1"`
	Cost      decimal.Decimal `json:"cost"       swaggertype:"string" example:"1"`
	Status    string          `json:"status"     example:"processing"`
}

func accepted(b *services.Batch) ProcessAccepted {
	return ProcessAccepted{
		BatchID:   b.ID,
		FileID:    b.ArtifactID,
		Pages:     b.Pages,
		Quality:   string(b.Quality),
		FreePages: b.Allowance.FreePages,
		PaidPages: b.Allowance.PaidPages,
		Cost:      b.Allowance.Cost,
		Status:    domain.StatusProcessing,
	}
}

// selection resolves the requested indices from either form.
func (h *Handlers) selection(req ProcessFileRequest) ([]int, error) {
	sel := strings.TrimSpace(req.Pages)
	switch {
	case sel != "" && len(req.PageIndices) > 0:
		return nil, fmt.Errorf("%w: give page_indices or pages, not both", services.ErrInvalidRequest)
	case sel != "":
		idx, err := utils.ParseIndices(sel, h.maxBatchPages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", services.ErrInvalidRequest, err)
		}
		return idx, nil
	default:
		return req.PageIndices, nil
	}
}

//
// Handlers
//

// ProcessFile godoc
// @ID          processFile
// @Summary     Enhance pages of a file
// @Description Validates the request, holds the cost against the free allowance and credits, and claims the pages. Enhancement runs in the background; poll the status endpoint. Pages that do not complete are handed back to the balance. Send Idempotency-Key to make retries safe.
// @Tags        Processing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Replay-safe key"  example(upload-42-run-1)
// @Param       body             body    handlers.ProcessFileRequest  true  "Pages to enhance"
//
// @Success     202  {object}  handlers.ProcessAccepted
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient credits"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "File not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Pages already processing or completed; or Idempotency-Key reused"
// @Failure     503  {object}  handlers.ErrorResponse  "Shutting down"
// @Router      /files/process [post]
func (h *Handlers) ProcessFile(c *gin.Context) {
	var req ProcessFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: file_id is required")
		return
	}
	if _, err := uuid.Parse(req.FileID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file_id must be a UUID")
		return
	}
	pages, err := h.selection(req)
	if err != nil {
		failErr(c, err)
		return
	}

	b, err := h.files.Submit(c.Request.Context(), userID(c), services.ProcessRequest{
		ArtifactID:  req.FileID,
		Pages:       pages,
		Quality:     req.Quality,
		GroundTruth: req.GroundTruth,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.SetIdempotentResource(c, b.ID)
	ok(c, http.StatusAccepted, accepted(b))
}

// RetryFile godoc
// @ID          retryFile
// @Summary     Retry failed pages
// @Description Resubmits exactly the pages currently in the failed state, through the same path as a new request.
// @Tags        Processing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true   "File ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RetryFileRequest  false  "Optional quality and ground truth"
//
// @Success     202  {object}  handlers.ProcessAccepted
// @Failure     400  {object}  handlers.ErrorResponse  "No failed pages"
// @Failure     402  {object}  handlers.ErrorResponse  "Insufficient credits"
// @Failure     404  {object}  handlers.ErrorResponse  "File not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Conflict"
// @Router      /files/{id}/retry [post]
func (h *Handlers) RetryFile(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	var req RetryFileRequest
	// The body is optional.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	b, err := h.files.Retry(c.Request.Context(), userID(c), id, req.Quality, req.GroundTruth)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.SetIdempotentResource(c, b.ID)
	ok(c, http.StatusAccepted, accepted(b))
}

// FileStatus godoc
// @ID          fileStatus
// @Summary     Processing status of a file
// @Description Derived from page states: processing while any page is in flight, error when any page failed, completed when every requested page completed. Supports weak ETag via If-None-Match.
// @Tags        Processing
// @Produce     json
// @Security    BearerAuth
//
// @Param       id             path    string  true   "File ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object} domain.ProcessStatus
// @Header      200  {string} ETag  "Weak ETag for current status"
// @Success     304  {string} string "Not Modified"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "File not found"
// @Router      /files/{id}/status [get]
func (h *Handlers) FileStatus(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	st, err := h.files.GetStatus(ctx, userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}

	var ts int64
	if db := h.statsDB(); db != nil {
		if _, maxTS, err := repo.PagesStats(ctx, db, id); err == nil && maxTS != nil {
			ts = maxTS.UnixNano()
		}
	}
	etag := fmt.Sprintf(`W/"status:%s:%s:%d:%d:%d:%d:%d"`,
		id, st.Status, st.Pending, st.Processing, st.Completed, st.Failed, ts)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, st)
}
