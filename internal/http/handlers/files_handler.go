// File HTTP handlers.
//
// This file exposes REST endpoints for uploaded artifacts:
//   - POST   /files/upload                  (store an upload)
//   - GET    /files                         (list, paginated, ETag support)
//   - GET    /files/{id}                    (detail with per-page states)
//   - DELETE /files/{id}                    (remove rows and blobs)
//   - GET    /files/{id}/download?page=N    (one enhanced page)
//   - GET    /files/{id}/download.zip       (all completed pages)
//   - POST   /files/{id}/pages/{page}/ocr   (source text extraction)
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/repo"
)

//
// DTOs
//

// UploadResponse describes a stored upload.
type UploadResponse struct {
	FileID      string `json:"file_id"      example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Filename    string `json:"filename"     example:"letters-1921.pdf"`
	Kind        string `json:"kind"         example:"document"`
	ContentType string `json:"content_type" example:"application/pdf"`
	SizeBytes   int64  `json:"size_bytes"   example:"482113"`
	TotalPages  int    `json:"total_pages"  example:"12"`
	Status      string `json:"status"       example:"pending"`
}

// ListFilesResponse wraps a page of artifacts and pagination information.
type ListFilesResponse struct {
	Files      []domain.Artifact `json:"files"`
	Pagination Pagination        `json:"pagination"`
}

// OCRResponse carries text extracted from a source page.
type OCRResponse struct {
	FileID string `json:"file_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Page   int    `json:"page"    example:"0"`
	Text   string `json:"text"    example:"Dear Margaret, the harvest this year..."`
}

//
// Helpers
//

// fileID validates the :id path parameter.
func fileID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file id must be a UUID")
		return "", false
	}
	return id, true
}

// pageIndex parses a zero-based page index from s.
func pageIndex(c *gin.Context, s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "page must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// attachment sets a Content-Disposition that survives non-ASCII names.
func attachment(c *gin.Context, name string) {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		c.Header("Content-Disposition", v)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="download"`)
}

// extFor returns the file extension for a content type.
func extFor(ctype string) string {
	if m := mimetype.Lookup(ctype); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

//
// Handlers
//

// UploadFile godoc
// @ID          uploadFile
// @Summary     Upload a document or image
// @Description Stores a PDF or image (PNG, JPEG, WebP) and creates one pending page per document page. Nothing is charged.
// @Tags        Files
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       file   formData  file  true   "PDF or image"
// @Param       pages  formData  int   false  "Expected page count; rejected when it disagrees with the file"
//
// @Success     201  {object}  handlers.UploadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     413  {object}  handlers.ErrorResponse  "Upload too large"
// @Failure     415  {object}  handlers.ErrorResponse  "Unsupported content type"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /files/upload [post]
func (h *Handlers) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload exceeds size limit")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `multipart field "file" is required`)
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload exceeds size limit")
		return
	}

	declared := 0
	if s := strings.TrimSpace(c.PostForm("pages")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pages must be a positive integer")
			return
		}
		declared = n
	}

	f, err := fh.Open()
	if err != nil {
		failErr(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		failErr(c, err)
		return
	}

	a, err := h.files.SubmitUpload(c.Request.Context(), userID(c), fh.Filename, data, declared)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, UploadResponse{
		FileID:      a.ID,
		Filename:    a.Filename,
		Kind:        a.Kind,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		TotalPages:  a.TotalPages,
		Status:      domain.StatusPending,
	})
}

// ListFiles godoc
// @ID          listFiles
// @Summary     List uploaded files (paginated)
// @Description Returns a page of the caller's uploads, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Files
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFilesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /files [get]
func (h *Handlers) ListFiles(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.statsDB(); db != nil {
		count, maxTS, err := repo.ArtifactsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"files:%s:%d:%d:%d:%d"`, uid, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.files.List(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListFilesResponse{
		Files:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetFile godoc
// @ID          getFile
// @Summary     Get a file with its pages
// @Tags        Files
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "File ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Artifact
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "File not found"
// @Router      /files/{id} [get]
func (h *Handlers) GetFile(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	a, err := h.files.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteFile godoc
// @ID          deleteFile
// @Summary     Delete a file
// @Description Removes the file, its pages and stored images. Refused while any page is processing.
// @Tags        Files
// @Security    BearerAuth
//
// @Param       id  path  string  true  "File ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the owner"
// @Failure     404  {object} handlers.ErrorResponse "File not found"
// @Failure     409  {object} handlers.ErrorResponse "Pages are processing"
// @Router      /files/{id} [delete]
func (h *Handlers) DeleteFile(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	if err := h.files.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// DownloadPage godoc
// @ID          downloadPage
// @Summary     Download one enhanced page
// @Tags        Files
// @Produce     image/png,image/jpeg,image/webp
// @Security    BearerAuth
//
// @Param       id    path   string  true  "File ID (UUID)"  format(uuid)
// @Param       page  query  int     true  "Zero-based page index"  minimum(0)
//
// @Success     200  {file}   binary
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "File or page not found"
// @Failure     409  {object} handlers.ErrorResponse "Page not completed yet"
// @Router      /files/{id}/download [get]
func (h *Handlers) DownloadPage(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	idx, valid := pageIndex(c, c.Query("page"))
	if !valid {
		return
	}
	data, ctype, err := h.files.GetResult(c.Request.Context(), userID(c), id, idx)
	if err != nil {
		failErr(c, err)
		return
	}
	attachment(c, fmt.Sprintf("page_%04d%s", idx+1, extFor(ctype)))
	c.Data(http.StatusOK, ctype, data)
}

// DownloadBundle godoc
// @ID          downloadBundle
// @Summary     Download all completed pages as a zip
// @Tags        Files
// @Produce     application/zip
// @Security    BearerAuth
//
// @Param       id  path  string  true  "File ID (UUID)"  format(uuid)
//
// @Success     200  {file}   binary
// @Failure     404  {object} handlers.ErrorResponse "File not found"
// @Failure     409  {object} handlers.ErrorResponse "No completed pages"
// @Router      /files/{id}/download.zip [get]
func (h *Handlers) DownloadBundle(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	data, a, err := h.files.Bundle(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	base := strings.TrimSuffix(a.Filename, path.Ext(a.Filename))
	attachment(c, base+"_restored.zip")
	c.Data(http.StatusOK, "application/zip", data)
}

// ExtractText godoc
// @ID          extractText
// @Summary     Extract the text of a source page
// @Description Runs OCR on the original page so the result can be corrected and sent back as ground_truth.
// @Tags        Files
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "File ID (UUID)"  format(uuid)
// @Param       page  path  int     true  "Zero-based page index"  minimum(0)
//
// @Success     200  {object} handlers.OCRResponse
// @Failure     404  {object} handlers.ErrorResponse "File or page not found"
// @Failure     500  {object} handlers.ErrorResponse "Provider error"
// @Router      /files/{id}/pages/{page}/ocr [post]
func (h *Handlers) ExtractText(c *gin.Context) {
	id, valid := fileID(c)
	if !valid {
		return
	}
	idx, valid := pageIndex(c, c.Param("page"))
	if !valid {
		return
	}
	text, err := h.files.ExtractText(c.Request.Context(), userID(c), id, idx)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, OCRResponse{FileID: id, Page: idx, Text: text})
}
