// Package payments verifies and decodes Lemon Squeezy webhook deliveries and
// turns them into ledger credit deltas.
//
// Deliveries are signed with HMAC-SHA256 over the raw body using the store's
// webhook secret; the hex digest arrives in the X-Signature header. The buyer
// and the number of pages bought travel in meta.custom_data, which the
// checkout link sets.
package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-page-restore/internal/domain"
)

// SignatureHeader carries the hex HMAC of the body.
const SignatureHeader = "X-Signature"

// Event names acted upon.
const (
	EventOrderCreated  = "order_created"
	EventRefundCreated = "refund_created"
)

var (
	// ErrInvalidSignature is returned for missing, malformed or wrong
	// signatures, and for every delivery when no secret is configured.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedEvent is returned when the body cannot be decoded or an
	// actionable event lacks its user, page count or order id.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// Verify checks signature against the HMAC-SHA256 of body.
func Verify(secret string, body []byte, signature string) error {
	if secret == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex signature of body; used by tests and local tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Event is the decoded part of a delivery this service cares about.
type Event struct {
	Name     string
	OrderID  string
	UserID   string
	Pages    int
	TestMode bool
}

// Sign is +1 for purchases, -1 for refunds and 0 for events that do not move
// credits.
func (e Event) Sign() int {
	switch e.Name {
	case EventOrderCreated:
		return 1
	case EventRefundCreated:
		return -1
	}
	return 0
}

// Reference is the ledger idempotency key of the event.
func (e Event) Reference() string {
	return fmt.Sprintf("lemonsqueezy:%s:%s", e.Name, e.OrderID)
}

// Source is the ledger source tag of the event.
func (e Event) Source() string {
	if e.Sign() < 0 {
		return domain.SourceRefund
	}
	return domain.SourcePurchase
}

type payload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		TestMode   bool   `json:"test_mode"`
		CustomData struct {
			UserID flexString `json:"user_id"`
			Pages  flexString `json:"pages"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         flexString `json:"id"`
		Attributes struct {
			OrderID flexString `json:"order_id"`
		} `json:"attributes"`
	} `json:"data"`
}

// flexString accepts JSON strings and numbers; custom data values arrive as
// either depending on how the checkout was created.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Parse decodes a delivery. Events that do not move credits are returned
// without validation of their custom data.
func Parse(body []byte) (*Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	ev := &Event{
		Name:     strings.TrimSpace(p.Meta.EventName),
		UserID:   string(p.Meta.CustomData.UserID),
		TestMode: p.Meta.TestMode,
		OrderID:  string(p.Data.ID),
	}
	if ev.Name == EventRefundCreated && p.Data.Attributes.OrderID != "" {
		ev.OrderID = string(p.Data.Attributes.OrderID)
	}
	if ev.Sign() == 0 {
		return ev, nil
	}

	if ev.UserID == "" || ev.OrderID == "" {
		return nil, fmt.Errorf("%w: missing user id or order id", ErrMalformedEvent)
	}
	pages, err := strconv.Atoi(string(p.Meta.CustomData.Pages))
	if err != nil || pages <= 0 {
		return nil, fmt.Errorf("%w: pages must be a positive integer", ErrMalformedEvent)
	}
	ev.Pages = pages
	return ev, nil
}

// CreditApplier is the ledger operation the webhook drives.
type CreditApplier interface {
	ApplyDelta(ctx context.Context, userID string, pages, sign int, reference, source string) (*domain.CreditTransaction, bool, error)
}

// Outcome values reported back to the webhook caller.
const (
	OutcomeApplied   = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// Processor verifies, decodes and applies deliveries.
type Processor struct {
	Secret string
	Ledger CreditApplier
}

// Handle processes one raw delivery and reports the decoded event and what
// happened to it.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) (*Event, string, error) {
	if err := Verify(p.Secret, body, signature); err != nil {
		return nil, "", err
	}
	ev, err := Parse(body)
	if err != nil {
		return nil, "", err
	}
	if ev.Sign() == 0 {
		return ev, OutcomeIgnored, nil
	}
	_, applied, err := p.Ledger.ApplyDelta(ctx, ev.UserID, ev.Pages, ev.Sign(), ev.Reference(), ev.Source())
	if err != nil {
		return ev, "", err
	}
	if !applied {
		return ev, OutcomeDuplicate, nil
	}
	return ev, OutcomeApplied, nil
}
