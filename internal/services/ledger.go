// Package services – Ledger
//
// Ledger tracks each user's free-page allowance and purchased credit balance.
// Authorize is a pure read. Commit, Reserve, Settle and ApplyDelta change the
// balance with a version compare-and-set on the user row, serialized per user
// in-process, and record one CreditTransaction per change under a unique
// reference so replays are no-ops.
//
// Batches pay up front: Reserve takes a hold for every claimed page and
// Settle hands back what was not delivered, so concurrent batches can never
// spend the same balance twice.
//
// One page costs one credit once the free allowance is used up.

package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/observability"
	"github.com/tbourn/go-page-restore/internal/repo"
)

const lockStripes = 64

// creditPerPage is the number of credits one paid page consumes.
var creditPerPage = decimal.NewFromInt(1)

// Allowance is the outcome of Authorize: how a page count splits between the
// free allowance and paid credits, evaluated against a balance snapshot.
type Allowance struct {
	Pages         int             `json:"pages"`
	FreePages     int             `json:"free_pages"`
	PaidPages     int             `json:"paid_pages"`
	Cost          decimal.Decimal `json:"cost"`
	Credits       decimal.Decimal `json:"credits"`
	FreeRemaining int             `json:"free_remaining"`
	Sufficient    bool            `json:"sufficient"`
}

// Balance is a user's current quota state.
type Balance struct {
	User          domain.User `json:"user"`
	FreePages     int         `json:"free_pages"`
	FreeRemaining int         `json:"free_remaining"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	DB *gorm.DB

	// FreePages is the lifetime free allowance per user.
	FreePages int

	locks [lockStripes]sync.Mutex
}

// NewLedger constructs a Ledger.
func NewLedger(db *gorm.DB, freePages int) *Ledger {
	if freePages < 0 {
		freePages = 0
	}
	return &Ledger{DB: db, FreePages: freePages}
}

func (l *Ledger) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &l.locks[h.Sum32()%lockStripes]
}

// split computes the free/paid split of pages against u.
func (l *Ledger) split(u *domain.User, pages int) Allowance {
	freeLeft := l.FreePages - u.FreePagesUsed
	if freeLeft < 0 {
		freeLeft = 0
	}
	free := min(pages, freeLeft)
	paid := pages - free
	cost := creditPerPage.Mul(decimal.NewFromInt(int64(paid)))
	return Allowance{
		Pages:         pages,
		FreePages:     free,
		PaidPages:     paid,
		Cost:          cost,
		Credits:       u.Credits,
		FreeRemaining: freeLeft,
		Sufficient:    u.Credits.GreaterThanOrEqual(cost),
	}
}

// EnsureUser creates the user on first sight and refreshes profile fields.
func (l *Ledger) EnsureUser(ctx context.Context, profile domain.User) (*domain.User, error) {
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidRequest)
	}
	return repo.EnsureUser(ctx, l.DB, profile)
}

// Balance returns the user's credits and free-tier usage.
func (l *Ledger) Balance(ctx context.Context, userID string) (*Balance, error) {
	u, err := repo.GetUser(ctx, l.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Balance{User: *u, FreePages: l.FreePages, FreeRemaining: max(l.FreePages-u.FreePagesUsed, 0)}, nil
}

// Authorize reports how pages would be paid for. It has no side effects; the
// returned Allowance always carries the split, and the error is
// ErrInsufficientCredits when the balance cannot cover the paid portion.
func (l *Ledger) Authorize(ctx context.Context, userID string, pages int) (Allowance, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Authorize",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("pages", pages),
		),
	)
	defer span.End()

	if pages < 0 {
		return Allowance{}, fmt.Errorf("%w: negative page count", ErrInvalidRequest)
	}
	u, err := repo.GetUser(ctx, l.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return Allowance{}, ErrUserNotFound
	}
	if err != nil {
		return Allowance{}, err
	}
	a := l.split(u, pages)
	if !a.Sufficient {
		return a, ErrInsufficientCredits
	}
	return a, nil
}

// Commit charges a.Pages against the user's current state: the free portion
// increments FreePagesUsed, the paid portion decrements Credits. The split is
// recomputed from fresh state, so a stale Allowance cannot overdraw. A lost
// compare-and-set is retried once before ErrInsufficientCredits is returned.
// reference makes the charge at-most-once; a replay returns the original
// transaction.
func (l *Ledger) Commit(ctx context.Context, userID string, a Allowance, reference, artifactID string) (*domain.CreditTransaction, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Commit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("pages", a.Pages),
			attribute.String("reference", reference),
		),
	)
	defer span.End()

	if a.Pages <= 0 {
		return nil, nil
	}

	var (
		out   *domain.CreditTransaction
		fresh bool
	)
	err := l.withUser(ctx, userID, func(tx *gorm.DB) error {
		var err error
		_, out, fresh, err = l.debit(ctx, tx, userID, a.Pages, reference, artifactID, false)
		return err
	})
	if errors.Is(err, errVersionConflict) || errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrInsufficientCredits
	}
	if err != nil {
		return nil, err
	}
	if fresh {
		chargeMetrics(out)
	}
	return out, nil
}

// Reserve is Authorize and Commit in one step: under the user's lock it
// debits pages and leaves the transaction open as a hold. claim runs in the
// same database transaction, so the hold and whatever claim writes commit or
// roll back together. Every hold must later go through Settle.
//
// On ErrInsufficientCredits the returned Allowance still carries the split.
func (l *Ledger) Reserve(ctx context.Context, userID string, pages int, reference, artifactID string, claim func(tx *gorm.DB) error) (Allowance, *domain.CreditTransaction, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Reserve",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("pages", pages),
			attribute.String("reference", reference),
		),
	)
	defer span.End()

	if pages <= 0 {
		return Allowance{}, nil, fmt.Errorf("%w: nothing to reserve", ErrInvalidRequest)
	}

	var (
		al    Allowance
		hold  *domain.CreditTransaction
		fresh bool
	)
	err := l.withUser(ctx, userID, func(tx *gorm.DB) error {
		var err error
		al, hold, fresh, err = l.debit(ctx, tx, userID, pages, reference, artifactID, true)
		if err != nil {
			return err
		}
		if !fresh {
			return fmt.Errorf("%w: reference %s already used", ErrInvalidRequest, reference)
		}
		if claim != nil {
			return claim(tx)
		}
		return nil
	})
	if err != nil {
		return al, nil, err
	}
	chargeMetrics(hold)
	return al, hold, nil
}

// Settle closes the hold recorded under reference once used of its pages
// were delivered. Delivered pages keep the free portion first, the way
// Authorize splits them; the rest of the hold goes back to the free allowance
// and to Credits under reference+":release". A closed or unknown hold is a
// no-op, so Settle is safe to repeat. The release transaction is nil when
// nothing was handed back.
func (l *Ledger) Settle(ctx context.Context, userID, reference string, used int) (*domain.CreditTransaction, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "Settle",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("reference", reference),
			attribute.Int("used", used),
		),
	)
	defer span.End()

	var out *domain.CreditTransaction
	err := l.withUser(ctx, userID, func(tx *gorm.DB) error {
		out = nil
		hold, err := repo.GetCreditTransactionByReference(ctx, tx, reference)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !hold.Open {
			return nil
		}
		if hold.UserID != userID {
			return fmt.Errorf("%w: hold %s belongs to another user", ErrInvalidRequest, reference)
		}
		if closed, err := repo.CloseHold(ctx, tx, hold.ID); err != nil || !closed {
			return err
		}

		kept := min(max(used, 0), hold.Pages)
		keptFree := min(kept, hold.FreePages)
		backFree := hold.FreePages - keptFree
		backPaid := (hold.Pages - hold.FreePages) - (kept - keptFree)
		if backFree+backPaid == 0 {
			return nil
		}

		u, err := repo.GetUser(ctx, tx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		refund := creditPerPage.Mul(decimal.NewFromInt(int64(backPaid)))
		credits := u.Credits.Add(refund)
		ok, err := repo.UpdateUserBalance(ctx, tx, userID, u.Version, credits, max(u.FreePagesUsed-backFree, 0))
		if err != nil {
			return err
		}
		if !ok {
			return errVersionConflict
		}

		out = &domain.CreditTransaction{
			UserID:       userID,
			Reference:    reference + ":release",
			Source:       domain.SourceRelease,
			Amount:       refund,
			FreePages:    -backFree,
			Pages:        backFree + backPaid,
			BalanceAfter: credits,
			ArtifactID:   hold.ArtifactID,
		}
		return repo.CreateCreditTransaction(ctx, tx, out)
	})
	if err != nil {
		return nil, err
	}
	if out != nil && out.Amount.IsPositive() {
		observability.CreditsMoved(domain.SourceRelease, out.Amount.InexactFloat64())
	}
	return out, nil
}

// withUser runs fn in a transaction under the user's in-process lock and
// retries it once when the balance compare-and-set loses to another writer.
func (l *Ledger) withUser(ctx context.Context, userID string, fn func(tx *gorm.DB) error) error {
	mu := l.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = l.DB.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, errVersionConflict) && !errors.Is(err, repo.ErrDuplicate) {
			return err
		}
		loggerFrom(ctx).Warn().Str("user_id", userID).Int("attempt", attempt+1).Msg("ledger write conflict")
	}
	return err
}

// debit charges pages against the user's state inside tx. A reference already
// on the ledger returns its transaction with fresh false.
func (l *Ledger) debit(ctx context.Context, tx *gorm.DB, userID string, pages int, reference, artifactID string, hold bool) (Allowance, *domain.CreditTransaction, bool, error) {
	if prev, err := repo.GetCreditTransactionByReference(ctx, tx, reference); err == nil {
		return Allowance{Pages: prev.Pages, FreePages: prev.FreePages, PaidPages: prev.Pages - prev.FreePages, Cost: prev.Amount.Neg(), Sufficient: true}, prev, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return Allowance{}, nil, false, err
	}

	u, err := repo.GetUser(ctx, tx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return Allowance{}, nil, false, ErrUserNotFound
	}
	if err != nil {
		return Allowance{}, nil, false, err
	}

	al := l.split(u, pages)
	if !al.Sufficient {
		return al, nil, false, ErrInsufficientCredits
	}
	credits := u.Credits.Sub(al.Cost)
	ok, err := repo.UpdateUserBalance(ctx, tx, userID, u.Version, credits, u.FreePagesUsed+al.FreePages)
	if err != nil {
		return al, nil, false, err
	}
	if !ok {
		return al, nil, false, errVersionConflict
	}

	out := &domain.CreditTransaction{
		UserID:       userID,
		Reference:    reference,
		Source:       domain.SourceProcessing,
		Amount:       al.Cost.Neg(),
		FreePages:    al.FreePages,
		Pages:        al.Pages,
		BalanceAfter: credits,
		ArtifactID:   artifactID,
		Open:         hold,
	}
	if err := repo.CreateCreditTransaction(ctx, tx, out); err != nil {
		return al, nil, false, err
	}
	return al, out, true, nil
}

func chargeMetrics(tx *domain.CreditTransaction) {
	observability.FreePagesUsed(tx.FreePages)
	observability.CreditsMoved(domain.SourceProcessing, tx.Amount.InexactFloat64())
}

// ApplyDelta adds (sign > 0) or removes (sign < 0) credits for pages pages,
// at most once per reference. Removal clamps at zero. It reports whether the
// delta was applied now (false for a replay).
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, pages, sign int, reference, source string) (*domain.CreditTransaction, bool, error) {
	tr := otel.Tracer("services/Ledger")
	ctx, span := tr.Start(ctx, "ApplyDelta",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("pages", pages),
			attribute.Int("sign", sign),
			attribute.String("reference", reference),
		),
	)
	defer span.End()

	if pages <= 0 || (sign != 1 && sign != -1) || reference == "" {
		return nil, false, fmt.Errorf("%w: pages must be positive, sign ±1, reference set", ErrInvalidRequest)
	}
	if source == "" {
		source = domain.SourcePurchase
		if sign < 0 {
			source = domain.SourceRefund
		}
	}

	mu := l.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var (
			out     *domain.CreditTransaction
			applied bool
		)
		err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if prev, err := repo.GetCreditTransactionByReference(ctx, tx, reference); err == nil {
				out = prev
				return nil
			} else if !errors.Is(err, repo.ErrNotFound) {
				return err
			}

			u, err := repo.GetUser(ctx, tx, userID)
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			if err != nil {
				return err
			}

			delta := creditPerPage.Mul(decimal.NewFromInt(int64(pages * sign)))
			credits := u.Credits.Add(delta)
			if credits.IsNegative() {
				credits = decimal.Zero
				delta = u.Credits.Neg()
			}
			ok, err := repo.UpdateUserBalance(ctx, tx, userID, u.Version, credits, u.FreePagesUsed)
			if err != nil {
				return err
			}
			if !ok {
				return errVersionConflict
			}

			out = &domain.CreditTransaction{
				UserID:       userID,
				Reference:    reference,
				Source:       source,
				Amount:       delta,
				Pages:        pages,
				BalanceAfter: credits,
			}
			applied = true
			return repo.CreateCreditTransaction(ctx, tx, out)
		})
		switch {
		case err == nil:
			if applied {
				observability.CreditsMoved(source, out.Amount.InexactFloat64())
			}
			return out, applied, nil
		case errors.Is(err, errVersionConflict), errors.Is(err, repo.ErrDuplicate):
			lastErr = err
			continue
		default:
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("apply delta: %w", lastErr)
}

// Transactions returns a page of the user's ledger history, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID string, page, pageSize int) ([]domain.CreditTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountCreditTransactions(ctx, l.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CreditTransaction{}, 0, nil
	}
	items, err := repo.ListCreditTransactionsPage(ctx, l.DB, userID, (page-1)*pageSize, pageSize)
	return items, total, err
}
