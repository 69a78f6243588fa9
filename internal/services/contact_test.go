package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-page-restore/internal/domain"
)

func TestContactService_Submit(t *testing.T) {
	db := newTestDB(t)
	svc := &ContactService{DB: db}
	ctx := context.Background()

	m, err := svc.Submit(ctx, "", ContactInput{Email: " ada@example.com ", Subject: " Hello ", Message: "Great tool\n"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.ID == "" || m.Email != "ada@example.com" || m.Subject != "Hello" || m.Message != "Great tool" || m.UserID != "" {
		t.Fatalf("unexpected message: %+v", m)
	}

	m, err = svc.Submit(ctx, "u1", ContactInput{Email: "bob@example.com", Subject: "Billing", Message: "Where is my invoice?"})
	if err != nil {
		t.Fatalf("submit signed in: %v", err)
	}
	var stored domain.ContactMessage
	if err := db.Where("id = ?", m.ID).First(&stored).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.UserID != "u1" {
		t.Fatalf("user id not kept: %+v", stored)
	}
}

func TestContactService_SubmitRejectsBadInput(t *testing.T) {
	svc := &ContactService{DB: newTestDB(t)}
	cases := []struct {
		name string
		in   ContactInput
	}{
		{"blank email", ContactInput{Email: " ", Subject: "s", Message: "m"}},
		{"blank subject", ContactInput{Email: "a@example.com", Subject: "", Message: "m"}},
		{"blank message", ContactInput{Email: "a@example.com", Subject: "s", Message: "\t"}},
		{"bad address", ContactInput{Email: "not-an-address", Subject: "s", Message: "m"}},
		{"display name", ContactInput{Email: "Ada <a@example.com>", Subject: "s", Message: "m"}},
		{"long subject", ContactInput{Email: "a@example.com", Subject: strings.Repeat("x", contactSubjectMaxLen+1), Message: "m"}},
		{"long message", ContactInput{Email: "a@example.com", Subject: "s", Message: strings.Repeat("é", contactMessageMaxLen+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), "", tc.in); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err=%v; want ErrInvalidRequest", err)
			}
		})
	}
	var n int64
	svc.DB.Model(&domain.ContactMessage{}).Count(&n)
	if n != 0 {
		t.Fatalf("rejected input stored %d rows", n)
	}
}
