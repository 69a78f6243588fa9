// Contact HTTP handler.
//
//   - POST /contact   (leave a message; sign-in optional)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/services"
)

// ContactSubmitter stores contact form messages.
type ContactSubmitter interface {
	Submit(ctx context.Context, userID string, in services.ContactInput) (*domain.ContactMessage, error)
}

// ContactRequest is the JSON payload for POST /contact.
type ContactRequest struct {
	Email   string `json:"email"   binding:"required,email,max=320"  example:"ada@example.com"`
	Subject string `json:"subject" binding:"required,max=200"        example:"Question about bulk pricing"`
	Message string `json:"message" binding:"required,max=5000"       example:"Do discounts stack with free pages?"`
}

// SubmitContact godoc
// @ID          submitContact
// @Summary     Leave a contact message
// @Description Stores a message for the operators. A bearer token is optional; when present the message is linked to the caller.
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ContactRequest  true  "Message"
//
// @Success     201  {object}  domain.ContactMessage
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: email, subject and message are required")
		return
	}
	m, err := h.contact.Submit(c.Request.Context(), userID(c), services.ContactInput{
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}
