package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
)

func dec(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestAuthorize_SplitsFreeAndPaidWithoutSideEffects(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 2)
	before := h.balance(t, "u1")

	a, err := h.ledger.Authorize(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if a.FreePages != 1 || a.PaidPages != 2 || !a.Cost.Equal(dec(2)) || !a.Sufficient {
		t.Fatalf("unexpected allowance: %+v", a)
	}

	after := h.balance(t, "u1")
	if !after.Credits.Equal(before.Credits) || after.FreePagesUsed != before.FreePagesUsed || after.Version != before.Version {
		t.Fatalf("authorize mutated the user: before=%+v after=%+v", before, after)
	}
}

func TestAuthorize_Denied(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 0)

	a, err := h.ledger.Authorize(context.Background(), "u1", 3)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if a.PaidPages != 2 || a.Sufficient {
		t.Fatalf("denied allowance should still carry the split: %+v", a)
	}
}

func TestAuthorize_Errors(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 0)

	if _, err := h.ledger.Authorize(context.Background(), "ghost", 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := h.ledger.Authorize(context.Background(), "u1", -1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCommit_ChargesFreeThenPaidOnce(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 5)
	ctx := context.Background()

	tx, err := h.ledger.Commit(ctx, "u1", Allowance{Pages: 3}, "batch:b1", "a1")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.FreePages != 1 || !tx.Amount.Equal(dec(-2)) || !tx.BalanceAfter.Equal(dec(3)) {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	// replay is a no-op returning the original row
	again, err := h.ledger.Commit(ctx, "u1", Allowance{Pages: 3}, "batch:b1", "a1")
	if err != nil {
		t.Fatalf("Commit replay: %v", err)
	}
	if again.ID != tx.ID {
		t.Fatalf("replay returned a different transaction: %s vs %s", again.ID, tx.ID)
	}

	u := h.balance(t, "u1")
	if !u.Credits.Equal(dec(3)) || u.FreePagesUsed != 1 {
		t.Fatalf("balance = %s free=%d, want 3 free=1", u.Credits, u.FreePagesUsed)
	}
}

func TestCommit_RevalidatesAgainstCurrentBalance(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 2)
	ctx := context.Background()

	a, err := h.ledger.Authorize(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if _, _, err := h.ledger.ApplyDelta(ctx, "u1", 2, -1, "refund:r1", ""); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	if _, err := h.ledger.Commit(ctx, "u1", a, "batch:b1", "a1"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	u := h.balance(t, "u1")
	if !u.Credits.IsZero() || u.FreePagesUsed != 0 {
		t.Fatalf("failed commit changed balance: %+v", u)
	}
}

func TestCommit_ZeroPagesIsNoop(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 0)
	tx, err := h.ledger.Commit(context.Background(), "u1", Allowance{}, "batch:empty", "")
	if err != nil || tx != nil {
		t.Fatalf("expected nil, nil; got %v, %v", tx, err)
	}
}

func TestApplyDelta_SameReferenceAppliesOnce(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 0)
	ctx := context.Background()

	_, applied, err := h.ledger.ApplyDelta(ctx, "u1", 10, 1, "lemonsqueezy:order_created:42", "")
	if err != nil || !applied {
		t.Fatalf("first apply: applied=%v err=%v", applied, err)
	}
	tx, applied, err := h.ledger.ApplyDelta(ctx, "u1", 10, 1, "lemonsqueezy:order_created:42", "")
	if err != nil || applied {
		t.Fatalf("replay: applied=%v err=%v", applied, err)
	}
	if tx == nil || tx.Source != domain.SourcePurchase {
		t.Fatalf("replay should return the original transaction, got %+v", tx)
	}
	if u := h.balance(t, "u1"); !u.Credits.Equal(dec(10)) {
		t.Fatalf("credits = %s, want 10", u.Credits)
	}
}

func TestApplyDelta_RefundClampsAtZero(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 3)

	tx, applied, err := h.ledger.ApplyDelta(context.Background(), "u1", 5, -1, "lemonsqueezy:refund_created:7", "")
	if err != nil || !applied {
		t.Fatalf("refund: applied=%v err=%v", applied, err)
	}
	if tx.Source != domain.SourceRefund || !tx.Amount.Equal(dec(-3)) {
		t.Fatalf("unexpected refund row: %+v", tx)
	}
	if u := h.balance(t, "u1"); !u.Credits.IsZero() {
		t.Fatalf("credits = %s, want 0", u.Credits)
	}
}

func TestApplyDelta_Validation(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 0)
	ctx := context.Background()

	cases := []struct {
		name  string
		user  string
		pages int
		sign  int
		ref   string
		want  error
	}{
		{"zero pages", "u1", 0, 1, "r1", ErrInvalidRequest},
		{"bad sign", "u1", 1, 2, "r2", ErrInvalidRequest},
		{"no reference", "u1", 1, 1, "", ErrInvalidRequest},
		{"unknown user", "ghost", 1, 1, "r3", ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := h.ledger.ApplyDelta(ctx, tc.user, tc.pages, tc.sign, tc.ref, ""); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLedger_ConcurrentChargesNeverOverdraw(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 4)
	ctx := context.Background()

	const workers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		charged int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%3 == 0 {
				_, _, _ = h.ledger.ApplyDelta(ctx, "u1", 1, -1, fmt.Sprintf("refund:%d", i), "")
				return
			}
			if _, err := h.ledger.Commit(ctx, "u1", Allowance{Pages: 1}, fmt.Sprintf("batch:%d", i), ""); err == nil {
				mu.Lock()
				charged++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientCredits) {
				t.Errorf("Commit: %v", err)
			}
		}()
	}
	wg.Wait()

	u := h.balance(t, "u1")
	if u.Credits.IsNegative() {
		t.Fatalf("credits went negative: %s", u.Credits)
	}
	if u.FreePagesUsed != 1 {
		t.Fatalf("free pages used = %d, want 1", u.FreePagesUsed)
	}
	// 1 free + at most 4 paid
	if charged < 1 || charged > 5 {
		t.Fatalf("charged %d pages", charged)
	}
}

func TestReserve_HoldsAndSettleHandsBackUnused(t *testing.T) {
	h := newHarness(t, 1)
	h.user(t, "u1", 2)
	ctx := context.Background()

	al, hold, err := h.ledger.Reserve(ctx, "u1", 3, "batch:b1", "a1", nil)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if al.FreePages != 1 || al.PaidPages != 2 || !hold.Open || hold.Source != domain.SourceProcessing {
		t.Fatalf("allowance=%+v hold=%+v", al, hold)
	}
	if u := h.balance(t, "u1"); !u.Credits.IsZero() || u.FreePagesUsed != 1 {
		t.Fatalf("after reserve credits=%s free=%d, want 0/1", u.Credits, u.FreePagesUsed)
	}
	// the hold already spent the balance
	if _, _, err := h.ledger.Reserve(ctx, "u1", 1, "batch:b2", "a1", nil); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	// one page delivered: it keeps the free page, both credits come back
	rel, err := h.ledger.Settle(ctx, "u1", "batch:b1", 1)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if rel == nil || rel.Reference != "batch:b1:release" || rel.Source != domain.SourceRelease ||
		!rel.Amount.Equal(dec(2)) || rel.FreePages != 0 || rel.Pages != 2 {
		t.Fatalf("unexpected release: %+v", rel)
	}
	if u := h.balance(t, "u1"); !u.Credits.Equal(dec(2)) || u.FreePagesUsed != 1 {
		t.Fatalf("after settle credits=%s free=%d, want 2/1", u.Credits, u.FreePagesUsed)
	}

	if rel, err := h.ledger.Settle(ctx, "u1", "batch:b1", 0); err != nil || rel != nil {
		t.Fatalf("second Settle = %+v, %v", rel, err)
	}
	if rel, err := h.ledger.Settle(ctx, "u1", "batch:unknown", 0); err != nil || rel != nil {
		t.Fatalf("Settle of unknown hold = %+v, %v", rel, err)
	}
	if u := h.balance(t, "u1"); !u.Credits.Equal(dec(2)) {
		t.Fatalf("repeat settle moved credits: %s", u.Credits)
	}
}

func TestSettle_NothingDeliveredRestoresFreePages(t *testing.T) {
	h := newHarness(t, 2)
	h.user(t, "u1", 1)
	ctx := context.Background()

	if _, _, err := h.ledger.Reserve(ctx, "u1", 3, "batch:b1", "", nil); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	rel, err := h.ledger.Settle(ctx, "u1", "batch:b1", 0)
	if err != nil || rel == nil || rel.FreePages != -2 || !rel.Amount.Equal(dec(1)) {
		t.Fatalf("Settle = %+v, %v", rel, err)
	}
	if u := h.balance(t, "u1"); !u.Credits.Equal(dec(1)) || u.FreePagesUsed != 0 {
		t.Fatalf("credits=%s free=%d, want 1/0", u.Credits, u.FreePagesUsed)
	}

	// fully delivered holds close without a release row
	if _, _, err := h.ledger.Reserve(ctx, "u1", 1, "batch:b2", "", nil); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if rel, err := h.ledger.Settle(ctx, "u1", "batch:b2", 1); err != nil || rel != nil {
		t.Fatalf("Settle = %+v, %v", rel, err)
	}
}

func TestReserve_ClaimFailureRollsBackHold(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 3)
	ctx := context.Background()
	claimErr := errors.New("claim lost")

	_, _, err := h.ledger.Reserve(ctx, "u1", 2, "batch:b1", "", func(*gorm.DB) error { return claimErr })
	if !errors.Is(err, claimErr) {
		t.Fatalf("expected claim error, got %v", err)
	}
	if u := h.balance(t, "u1"); !u.Credits.Equal(dec(3)) {
		t.Fatalf("credits = %s, want 3", u.Credits)
	}
	if _, _, err := h.ledger.Reserve(ctx, "u1", 0, "batch:b2", "", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	al, _, err := h.ledger.Reserve(ctx, "u1", 5, "batch:b3", "", nil)
	if !errors.Is(err, ErrInsufficientCredits) || al.PaidPages != 5 {
		t.Fatalf("Reserve over balance = %+v, %v", al, err)
	}
}

func TestTransactions_NewestFirstPaginated(t *testing.T) {
	h := newHarness(t, 0)
	h.user(t, "u1", 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := h.ledger.ApplyDelta(ctx, "u1", 1, 1, fmt.Sprintf("p:%d", i), ""); err != nil {
			t.Fatalf("ApplyDelta: %v", err)
		}
	}

	items, total, err := h.ledger.Transactions(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 3/2", total, len(items))
	}

	items, total, err = h.ledger.Transactions(ctx, "nobody", 0, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty history: items=%v total=%d err=%v", items, total, err)
	}
}

func TestBalance(t *testing.T) {
	h := newHarness(t, 2)
	h.user(t, "u1", 1)

	b, err := h.ledger.Balance(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.FreeRemaining != 2 || !b.User.Credits.Equal(dec(1)) {
		t.Fatalf("unexpected balance: %+v", b)
	}
	if _, err := h.ledger.Balance(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
