// Package services – ContactService
//
// ContactService records messages left through the public contact form.
// Senders may be anonymous; a signed-in sender's id is kept with the message.
package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/repo"
)

const (
	contactSubjectMaxLen = 200
	contactMessageMaxLen = 5000
	contactEmailMaxLen   = 320
)

// ContactService persists contact form submissions.
type ContactService struct {
	DB *gorm.DB
}

// ContactInput is one contact form submission.
type ContactInput struct {
	Email   string
	Subject string
	Message string
}

// Submit validates in and stores it. userID is empty for anonymous senders.
// Blank fields, an unparsable address or oversized text yield ErrInvalidRequest.
func (s *ContactService) Submit(ctx context.Context, userID string, in ContactInput) (*domain.ContactMessage, error) {
	email := strings.TrimSpace(in.Email)
	subject := strings.TrimSpace(in.Subject)
	body := strings.TrimSpace(in.Message)

	switch {
	case email == "" || subject == "" || body == "":
		return nil, fmt.Errorf("%w: email, subject and message are required", ErrInvalidRequest)
	case len(email) > contactEmailMaxLen:
		return nil, fmt.Errorf("%w: email too long", ErrInvalidRequest)
	case utf8.RuneCountInString(subject) > contactSubjectMaxLen:
		return nil, fmt.Errorf("%w: subject exceeds %d characters", ErrInvalidRequest, contactSubjectMaxLen)
	case utf8.RuneCountInString(body) > contactMessageMaxLen:
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidRequest, contactMessageMaxLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	}

	m := &domain.ContactMessage{Email: email, Subject: subject, Message: body, UserID: userID}
	if err := repo.CreateContactMessage(ctx, s.DB, m); err != nil {
		return nil, err
	}
	loggerFrom(ctx).Info().Str("contact_id", m.ID).Bool("anonymous", userID == "").Msg("contact message stored")
	return m, nil
}
