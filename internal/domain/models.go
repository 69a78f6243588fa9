// Package domain defines the persistence models for users, uploaded
// artifacts, their pages, and the credit ledger. These types are mapped with
// GORM and form the core data layer of the page restoration service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Artifact kinds.
const (
	KindDocument = "document"
	KindImage    = "image"
)

// PageState values. Transitions are Pending -> Processing -> Completed|Failed,
// plus Failed -> Processing on retry and Processing -> Pending when a claimed
// page is released before it was started.
const (
	PagePending    = "pending"
	PageProcessing = "processing"
	PageCompleted  = "completed"
	PageFailed     = "failed"
)

// Credit transaction sources.
const (
	SourceProcessing = "processing" // hold taken when a batch is claimed (free + paid portions)
	SourceRelease    = "release"    // unused part of a processing hold handed back
	SourcePurchase   = "purchase"
	SourceRefund     = "refund"
	SourceAdjustment = "adjustment"
)

// User is an authenticated account and its quota state. Users are created on
// first successful authentication and never deleted.
//
// Fields:
//   - ID: provider-issued identity (e.g. Google subject).
//   - Credits: purchased balance; never negative (CHECK constraint + ledger CAS).
//   - FreePagesUsed: lifetime counter of free pages consumed; decreases only
//     when a processing hold hands back pages that were never delivered.
//   - Version: optimistic concurrency token bumped on every balance change.
type User struct {
	ID            string          `json:"id"              gorm:"type:varchar(128);primaryKey"`
	Email         string          `json:"email"           gorm:"type:varchar(320);index"`
	Name          string          `json:"name"            gorm:"type:varchar(255)"`
	Picture       string          `json:"picture,omitempty" gorm:"type:text"`
	Credits       decimal.Decimal `json:"credits"         gorm:"type:decimal(12,2);not null;default:0;check:credits >= 0"`
	FreePagesUsed int             `json:"free_pages_used" gorm:"not null;default:0;check:free_pages_used >= 0"`
	Version       int64           `json:"-"               gorm:"not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Artifact is an uploaded document or image. The owner is fixed at creation
// and the page set (TotalPages rows in pages) never changes afterwards.
type Artifact struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(128);not null;index:idx_user_artifacts,priority:1"`
	Filename    string    `json:"filename"     gorm:"type:varchar(255);not null"`
	Kind        string    `json:"kind"         gorm:"type:varchar(16);not null;check:kind IN ('document','image')"`
	ContentType string    `json:"content_type" gorm:"type:varchar(64);not null"`
	SizeBytes   int64     `json:"size_bytes"   gorm:"not null"`
	TotalPages  int       `json:"total_pages"  gorm:"not null"`
	SourceKey   string    `json:"-"            gorm:"type:varchar(512);not null"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index:idx_user_artifacts,priority:2"`
	UpdatedAt   time.Time `json:"updated_at"`

	Pages []Page `json:"pages,omitempty" gorm:"foreignKey:ArtifactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Artifact.
func (Artifact) TableName() string { return "artifacts" }

// Page is the processing state of one page of an artifact.
//
// Fields:
//   - Index: zero-based page number (column page_index).
//   - Requested: set once the page has been claimed by any batch; used to
//     tell "never asked for" apart from "released back to pending".
//   - Width/Height: source dimensions (points for PDFs, pixels for images),
//     used to select the aspect preset.
//   - ResultKey: blob key of the enhanced output, set only when Completed.
//   - Error: summary of the last failure, set only when Failed.
type Page struct {
	ArtifactID string    `json:"-"                     gorm:"type:char(36);primaryKey"`
	Index      int       `json:"index"                 gorm:"column:page_index;primaryKey;autoIncrement:false"`
	State      string    `json:"state"                 gorm:"type:varchar(16);not null;default:'pending';index;check:state IN ('pending','processing','completed','failed')"`
	Requested  bool      `json:"requested"             gorm:"not null;default:false"`
	Attempts   int       `json:"attempts"              gorm:"not null;default:0"`
	BatchID    string    `json:"-"                     gorm:"type:char(36)"`
	SourceKey  string    `json:"-"                     gorm:"type:varchar(512);not null"`
	SourceMIME string    `json:"source_mime"           gorm:"type:varchar(64);not null"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	ResultKey  string    `json:"-"                     gorm:"type:varchar(512)"`
	ResultMIME string    `json:"result_mime,omitempty" gorm:"type:varchar(64)"`
	Error      string    `json:"error,omitempty"       gorm:"type:text"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Page.
func (Page) TableName() string { return "pages" }

// AspectRatio returns width/height, or 0 when dimensions are unknown.
func (p Page) AspectRatio() float64 {
	if p.Width <= 0 || p.Height <= 0 {
		return 0
	}
	return p.Width / p.Height
}

// CreditTransaction is one atomic change to a user's balance. Reference is
// unique and makes application at-most-once: processing holds use
// "batch:<id>", their releases "batch:<id>:release", webhook deliveries use
// the provider's order reference.
//
// Amount is the signed change to Credits; FreePages is the signed change to
// the free allowance consumed (positive for holds, negative for releases).
// Open marks a processing hold whose batch has not been settled yet.
type CreditTransaction struct {
	ID           string          `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string          `json:"user_id"       gorm:"type:varchar(128);not null;index:idx_user_tx,priority:1"`
	Reference    string          `json:"reference"     gorm:"type:varchar(191);not null;uniqueIndex:ux_credit_tx_reference"`
	Source       string          `json:"source"        gorm:"type:varchar(32);not null"`
	Amount       decimal.Decimal `json:"amount"        gorm:"type:decimal(12,2);not null"`
	FreePages    int             `json:"free_pages"    gorm:"not null;default:0"`
	Pages        int             `json:"pages"         gorm:"not null;default:0"`
	BalanceAfter decimal.Decimal `json:"balance_after" gorm:"type:decimal(12,2);not null"`
	ArtifactID   string          `json:"artifact_id,omitempty" gorm:"type:char(36)"`
	Open         bool            `json:"open,omitempty" gorm:"column:hold_open;not null;default:false;index"`
	CreatedAt    time.Time       `json:"created_at"    gorm:"index:idx_user_tx,priority:2"`
}

// TableName returns the database table name for CreditTransaction.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// ContactMessage is a note left through the public contact form. UserID is
// set only when the sender was signed in.
type ContactMessage struct {
	ID        string    `json:"id"                gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email"             gorm:"type:varchar(320);not null;index"`
	Subject   string    `json:"subject"           gorm:"type:varchar(200);not null"`
	Message   string    `json:"message"           gorm:"type:text;not null"`
	UserID    string    `json:"user_id,omitempty" gorm:"type:varchar(128);index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ContactMessage.
func (ContactMessage) TableName() string { return "contact_messages" }
