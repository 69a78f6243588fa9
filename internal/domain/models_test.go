package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_models_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so the PRAGMA below applies to every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&User{}, &Artifact{}, &Page{}, &CreditTransaction{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(User{}).TableName():              "users",
		(Artifact{}).TableName():          "artifacts",
		(Page{}).TableName():              "pages",
		(CreditTransaction{}).TableName(): "credit_transactions",
		(Idempotency{}).TableName():       "idempotency",
		(ContactMessage{}).TableName():    "contact_messages",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	if !m.HasIndex(&Artifact{}, "idx_user_artifacts") {
		t.Fatalf("expected index idx_user_artifacts on artifacts")
	}
	if !m.HasIndex(&CreditTransaction{}, "ux_credit_tx_reference") {
		t.Fatalf("expected unique index ux_credit_tx_reference")
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected unique index ux_user_scope_key")
	}
	if !m.HasColumn(&Page{}, "page_index") {
		t.Fatalf("expected pages.page_index column")
	}
}

func TestUser_CreditsCheckConstraint(t *testing.T) {
	db := newDomainDB(t)

	u := &User{ID: "u1", Email: "a@b.c", Credits: decimal.NewFromFloat(2.5)}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	var got User
	if err := db.First(&got, "id = ?", "u1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if !got.Credits.Equal(decimal.NewFromFloat(2.5)) {
		t.Fatalf("credits roundtrip = %s; want 2.5", got.Credits)
	}

	err := db.Model(&User{}).Where("id = ?", "u1").Update("credits", decimal.NewFromInt(-1)).Error
	if err == nil {
		t.Fatalf("expected CHECK violation for negative credits")
	}
}

func TestPage_StateCheck_AndCascade(t *testing.T) {
	db := newDomainDB(t)

	a := &Artifact{
		ID: uuid.NewString(), UserID: "u1", Filename: "scan.pdf", Kind: KindDocument,
		ContentType: "application/pdf", TotalPages: 2, SourceKey: "k",
		Pages: []Page{
			{Index: 0, State: PagePending, SourceKey: "s0", SourceMIME: "application/pdf"},
			{Index: 1, State: PagePending, SourceKey: "s1", SourceMIME: "application/pdf"},
		},
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create artifact: %v", err)
	}

	if err := db.Model(&Page{}).
		Where("artifact_id = ? AND page_index = ?", a.ID, 0).
		Update("state", "exploded").Error; err == nil {
		t.Fatalf("expected CHECK violation for unknown state")
	}

	if err := db.Delete(&Artifact{}, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("delete artifact: %v", err)
	}
	var n int64
	db.Model(&Page{}).Where("artifact_id = ?", a.ID).Count(&n)
	if n != 0 {
		t.Fatalf("expected pages to cascade, %d left", n)
	}
}

func TestCreditTransaction_ReferenceUnique(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	mk := func(id string) *CreditTransaction {
		return &CreditTransaction{
			ID: id, UserID: "u1", Reference: "lemonsqueezy:order_created:42",
			Source: SourcePurchase, Amount: decimal.NewFromInt(5), BalanceAfter: decimal.NewFromInt(5),
			CreatedAt: now,
		}
	}
	if err := db.Create(mk("t1")).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := db.Create(mk("t2")).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on reference")
	}
}

func TestIdempotency_UniqueUserScopeKey(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	rec := func(id, scope string) *Idempotency {
		return &Idempotency{
			ID: id, UserID: "u1", Scope: scope, Key: "k1", Fingerprint: "f",
			ResourceID: "b1", Status: 202, Body: "{}", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}
	}
	if err := db.Create(rec("i1", "process")).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Create(rec("i2", "retry")).Error; err != nil {
		t.Fatalf("same key in a different scope should be allowed: %v", err)
	}
	if err := db.Create(rec("i3", "process")).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (user_id, scope, key)")
	}
}

func TestPage_AspectRatio(t *testing.T) {
	if r := (Page{Width: 600, Height: 800}).AspectRatio(); r != 0.75 {
		t.Fatalf("AspectRatio = %v; want 0.75", r)
	}
	if r := (Page{}).AspectRatio(); r != 0 {
		t.Fatalf("AspectRatio of unknown dims = %v; want 0", r)
	}
}
