package domain

import "time"

// Idempotency records the outcome of a previously accepted unsafe request,
// keyed by (user_id, scope, key). Scope names the operation (for example
// "process"), Fingerprint hashes the request payload so a reused key with a
// different body can be rejected, and Body holds the JSON response to replay.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	Fingerprint string    `gorm:"type:TEXT NOT NULL"`
	ResourceID  string    `gorm:"type:TEXT NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	Body        string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
