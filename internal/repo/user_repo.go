package repo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser returns the user with profile.ID, creating it with a zero
// balance on first sight. Profile fields (email, name, picture) are refreshed
// when they changed; balance fields are never touched here.
func EnsureUser(ctx context.Context, db *gorm.DB, profile domain.User) (*domain.User, error) {
	u, err := GetUser(ctx, db, profile.ID)
	if errors.Is(err, ErrNotFound) {
		now := time.Now().UTC()
		u = &domain.User{
			ID:        profile.ID,
			Email:     profile.Email,
			Name:      profile.Name,
			Picture:   profile.Picture,
			Credits:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		cerr := db.WithContext(ctx).Create(u).Error
		if cerr == nil {
			return u, nil
		}
		if !isUniqueViolation(cerr) {
			return nil, cerr
		}
		// Lost a race with a concurrent first login.
		return GetUser(ctx, db, profile.ID)
	}
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if profile.Email != "" && profile.Email != u.Email {
		changes["email"] = profile.Email
	}
	if profile.Name != "" && profile.Name != u.Name {
		changes["name"] = profile.Name
	}
	if profile.Picture != "" && profile.Picture != u.Picture {
		changes["picture"] = profile.Picture
	}
	if len(changes) > 0 {
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", u.ID).Updates(changes).Error; err != nil {
			return nil, err
		}
		return GetUser(ctx, db, u.ID)
	}
	return u, nil
}

// UpdateUserBalance writes a new balance only if the row still carries
// expectVersion, bumping the version. It reports whether the row was updated;
// false means a concurrent writer got there first.
func UpdateUserBalance(ctx context.Context, db *gorm.DB, id string, expectVersion int64, credits decimal.Decimal, freePagesUsed int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND version = ?", id, expectVersion).
		Updates(map[string]any{
			"credits":         credits,
			"free_pages_used": freePagesUsed,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
