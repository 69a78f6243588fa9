package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// CreateContactMessage inserts a contact form submission, assigning ID and
// CreatedAt when empty.
func CreateContactMessage(ctx context.Context, db *gorm.DB, m *domain.ContactMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(m).Error
}
