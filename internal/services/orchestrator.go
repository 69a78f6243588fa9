// Package services – Orchestrator
//
// Orchestrator drives a processing request through its lifecycle:
//
//	Prepare  ownership, index and quality validation, then in one transaction
//	         under the user's ledger lock: a hold for every page (batch:<id>)
//	         and an all-or-nothing claim (Pending|Failed -> Processing)
//	Run      bounded worker pool; per page: read source, enhance with retries,
//	         write result, then mark Completed (or Failed with a summary)
//	settle   the hold keeps the completed pages and hands back the rest
//
// Prepare fails without side effects, so every rejection (NotFound, Forbidden,
// InvalidRequest, InsufficientCredits, PageConflict) leaves state untouched.
// Pages not yet started when the batch context ends go back to Pending and are
// never charged. Holds left open by a crash are settled by RecoverInterrupted.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-page-restore/internal/config"
	"github.com/tbourn/go-page-restore/internal/document"
	"github.com/tbourn/go-page-restore/internal/domain"
	"github.com/tbourn/go-page-restore/internal/enhance"
	"github.com/tbourn/go-page-restore/internal/observability"
	"github.com/tbourn/go-page-restore/internal/repo"
)

// Page outcomes reported on BatchResult and the pages_processed metric.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeReleased  = "released"
)

const errorSummaryMax = 500

var errClaimMismatch = errors.New("claim count mismatch")

// ProcessRequest asks for pages of an artifact to be enhanced.
type ProcessRequest struct {
	ArtifactID  string
	Pages       []int
	Quality     string
	GroundTruth string
}

// Batch is a claimed, authorized set of pages ready to run.
type Batch struct {
	ID          string
	UserID      string
	ArtifactID  string
	Pages       []int
	Quality     enhance.Quality
	GroundTruth string
	Allowance   Allowance
	Hold        *domain.CreditTransaction
}

func holdReference(batchID string) string { return "batch:" + batchID }

// BatchResult summarizes a finished batch. Hold is what Prepare reserved;
// Release is the part handed back, nil when every page completed.
type BatchResult struct {
	BatchID   string
	Completed []int
	Failed    []int
	Released  []int
	Hold      *domain.CreditTransaction
	Release   *domain.CreditTransaction
	SettleErr error
}

// Orchestrator coordinates the ledger, the artifact store and the gateway.
type Orchestrator struct {
	DB      *gorm.DB
	Store   *ArtifactStore
	Ledger  *Ledger
	Gateway enhance.Gateway
	Cfg     config.ProcessingConfig

	wg      sync.WaitGroup
	mu      sync.Mutex
	closing bool
	stopCtx context.Context
	stop    context.CancelFunc
}

// NewOrchestrator constructs an Orchestrator, filling unset limits with
// defaults.
func NewOrchestrator(db *gorm.DB, store *ArtifactStore, ledger *Ledger, gw enhance.Gateway, cfg config.ProcessingConfig) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 2 * time.Second
	}
	if cfg.RetryMax < cfg.RetryInitial {
		cfg.RetryMax = cfg.RetryInitial
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 90 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 30 * time.Minute
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 10 * time.Second
	}
	stopCtx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		DB:      db,
		Store:   store,
		Ledger:  ledger,
		Gateway: gw,
		Cfg:     cfg,
		stopCtx: stopCtx,
		stop:    stop,
	}
}

// SubmitUpload stores an upload for ownerID. It does not touch the ledger.
func (o *Orchestrator) SubmitUpload(ctx context.Context, ownerID, filename string, data []byte, declaredPages int) (*domain.Artifact, error) {
	return o.Store.Create(ctx, ownerID, filename, data, declaredPages)
}

// owned loads an artifact and checks that ownerID owns it.
func (o *Orchestrator) owned(ctx context.Context, ownerID, artifactID string) (*domain.Artifact, error) {
	a, err := repo.GetArtifact(ctx, o.DB, artifactID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.UserID != ownerID {
		return nil, ErrForbidden
	}
	return a, nil
}

// validateIndices rejects empty, oversized, out-of-range and duplicated
// index lists.
func (o *Orchestrator) validateIndices(indices []int, total int) error {
	if len(indices) == 0 {
		return fmt.Errorf("%w: no pages requested", ErrInvalidRequest)
	}
	if o.Cfg.MaxBatchPages > 0 && len(indices) > o.Cfg.MaxBatchPages {
		return fmt.Errorf("%w: %d pages exceeds batch limit %d", ErrInvalidRequest, len(indices), o.Cfg.MaxBatchPages)
	}
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= total {
			return fmt.Errorf("%w: page %d out of range [0,%d)", ErrInvalidRequest, i, total)
		}
		if _, dup := seen[i]; dup {
			return fmt.Errorf("%w: page %d requested twice", ErrInvalidRequest, i)
		}
		seen[i] = struct{}{}
	}
	return nil
}

// Prepare validates req, reserves its cost and claims its pages. On error
// nothing has changed.
func (o *Orchestrator) Prepare(ctx context.Context, ownerID string, req ProcessRequest) (*Batch, error) {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "Prepare",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("artifact.id", req.ArtifactID),
			attribute.Int("pages", len(req.Pages)),
		),
	)
	defer span.End()

	a, err := o.owned(ctx, ownerID, req.ArtifactID)
	if err != nil {
		return nil, err
	}
	q, err := enhance.ParseQuality(req.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := o.validateIndices(req.Pages, a.TotalPages); err != nil {
		return nil, err
	}

	b := &Batch{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		ArtifactID:  a.ID,
		Pages:       slices.Sorted(slices.Values(req.Pages)),
		Quality:     q,
		GroundTruth: enhance.NormalizeText(req.GroundTruth),
	}
	allowance, hold, err := o.Ledger.Reserve(ctx, ownerID, len(b.Pages), holdReference(b.ID), b.ArtifactID, func(tx *gorm.DB) error {
		n, err := repo.ClaimPages(ctx, tx, b.ArtifactID, b.ID, b.Pages)
		if err != nil {
			return err
		}
		if n != int64(len(b.Pages)) {
			return errClaimMismatch
		}
		return nil
	})
	if errors.Is(err, errClaimMismatch) {
		return nil, fmt.Errorf("%w: some pages are processing or completed", ErrPageConflict)
	}
	if err != nil {
		return nil, err
	}
	b.Allowance = allowance
	b.Hold = hold
	return b, nil
}

// StartProcessing prepares and runs a batch synchronously.
func (o *Orchestrator) StartProcessing(ctx context.Context, ownerID string, req ProcessRequest) (*BatchResult, error) {
	b, err := o.Prepare(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	res := o.Run(ctx, b)
	return &res, nil
}

// Submit prepares a batch and runs it in the background. The returned batch
// is already claimed; progress is observable through GetStatus. The batch
// outlives ctx and is stopped only by Shutdown.
func (o *Orchestrator) Submit(ctx context.Context, ownerID string, req ProcessRequest) (*Batch, error) {
	o.mu.Lock()
	if o.closing {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	o.wg.Add(1)
	o.mu.Unlock()

	b, err := o.Prepare(ctx, ownerID, req)
	if err != nil {
		o.wg.Done()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go func() {
		defer o.wg.Done()
		defer cancel()
		stopWatch := context.AfterFunc(o.stopCtx, cancel)
		defer stopWatch()
		o.Run(runCtx, b)
	}()
	return b, nil
}

// Retry resubmits exactly the failed pages of an artifact.
func (o *Orchestrator) Retry(ctx context.Context, ownerID, artifactID, quality, groundTruth string) (*Batch, error) {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return nil, err
	}
	failed, err := repo.FailedPageIndices(ctx, o.DB, artifactID)
	if err != nil {
		return nil, err
	}
	if len(failed) == 0 {
		return nil, fmt.Errorf("%w: no failed pages", ErrInvalidRequest)
	}
	return o.Submit(ctx, ownerID, ProcessRequest{
		ArtifactID:  artifactID,
		Pages:       failed,
		Quality:     quality,
		GroundTruth: groundTruth,
	})
}

// Run processes a prepared batch and settles its hold: completed pages stay
// charged, failed and released ones are handed back. Failed pages never abort
// their siblings.
func (o *Orchestrator) Run(ctx context.Context, b *Batch) BatchResult {
	tr := otel.Tracer("services/Orchestrator")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("batch.id", b.ID),
			attribute.String("artifact.id", b.ArtifactID),
			attribute.Int("pages", len(b.Pages)),
		),
	)
	defer span.End()
	defer observability.BatchStarted()()

	log := loggerFrom(ctx).With().
		Str("batch_id", b.ID).
		Str("artifact_id", b.ArtifactID).
		Logger()
	ctx = log.WithContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, o.Cfg.BatchTimeout)
	defer cancel()

	res := BatchResult{BatchID: b.ID, Hold: b.Hold}
	var mu sync.Mutex
	record := func(outcome string, index int) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case OutcomeCompleted:
			res.Completed = append(res.Completed, index)
		case OutcomeFailed:
			res.Failed = append(res.Failed, index)
		default:
			res.Released = append(res.Released, index)
		}
	}

	// No dimensions, no aspect preset: hand the whole batch back.
	rows, err := repo.ListPages(ctx, o.DB, b.ArtifactID)
	if err != nil {
		log.Error().Err(err).Msg("load pages; releasing batch")
		for _, idx := range b.Pages {
			record(OutcomeReleased, idx)
		}
	} else {
		byIndex := make(map[int]domain.Page, len(rows))
		for _, p := range rows {
			byIndex[p.Index] = p
		}

		var g errgroup.Group
		g.SetLimit(o.Cfg.Workers)
		for _, idx := range b.Pages {
			if ctx.Err() != nil {
				record(OutcomeReleased, idx)
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					record(OutcomeReleased, idx)
					return nil
				}
				record(o.processPage(ctx, b, byIndex[idx], idx), idx)
				return nil
			})
		}
		_ = g.Wait()
	}

	slices.Sort(res.Completed)
	slices.Sort(res.Failed)
	slices.Sort(res.Released)

	// Batch context may be gone; finishing writes use a detached one.
	bg := context.WithoutCancel(ctx)
	if len(res.Released) > 0 {
		if _, err := repo.ReleasePages(bg, o.DB, b.ArtifactID, b.ID, res.Released); err != nil {
			log.Error().Err(err).Ints("pages", res.Released).Msg("release pages")
		}
		for range res.Released {
			observability.PageFinished(OutcomeReleased)
		}
	}

	sctx, scancel := context.WithTimeout(bg, o.Cfg.CommitTimeout)
	defer scancel()
	release, err := o.Ledger.Settle(sctx, b.UserID, holdReference(b.ID), len(res.Completed))
	if err != nil {
		res.SettleErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "settle")
		log.Error().Err(err).Int("completed", len(res.Completed)).Msg("settle hold failed; left open for start-up recovery")
	}
	res.Release = release

	log.Info().
		Int("completed", len(res.Completed)).
		Int("failed", len(res.Failed)).
		Int("released", len(res.Released)).
		Msg("batch finished")
	return res
}

// processPage enhances one claimed page and records its terminal state.
func (o *Orchestrator) processPage(ctx context.Context, b *Batch, page domain.Page, index int) string {
	log := loggerFrom(ctx).With().Int("page", index).Logger()
	bg := context.WithoutCancel(ctx)

	fail := func(attempts int, err error) string {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// interrupted pages go back to Pending like pages never started
			return OutcomeReleased
		}
		log.Warn().Err(err).Int("attempt", attempts).Msg("page failed")
		if ferr := repo.FailPage(bg, o.DB, b.ArtifactID, index, b.ID, summarize(err), attempts); ferr != nil {
			log.Error().Err(ferr).Msg("record page failure")
		}
		observability.PageFinished(OutcomeFailed)
		return OutcomeFailed
	}

	src, mime, err := o.Store.GetSourcePage(ctx, b.ArtifactID, index)
	if err != nil {
		return fail(0, fmt.Errorf("read source: %w", err))
	}

	req := enhance.Request{
		Image:       src,
		MIME:        mime,
		Quality:     b.Quality,
		AspectRatio: page.AspectRatio(),
		GroundTruth: b.GroundTruth,
	}

	attempts := 0
	op := func() (*enhance.Result, error) {
		attempts++
		actx, cancel := context.WithTimeout(ctx, o.Cfg.ProviderTimeout)
		defer cancel()

		start := time.Now()
		out, err := o.Gateway.Enhance(actx, req)
		if err != nil {
			observability.ProviderCall("error", time.Since(start))
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if !enhance.Retryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		observability.ProviderCall("ok", time.Since(start))
		return out, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.Cfg.RetryInitial
	bo.MaxInterval = o.Cfg.RetryMax

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(o.Cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", wait).Msg("enhance attempt failed")
		}),
	)
	if err != nil {
		return fail(attempts, err)
	}

	resultMIME := out.MIME
	if resultMIME == "" {
		resultMIME, _ = document.DetectMIME(out.Data)
	}
	key, err := o.Store.PutResult(bg, b.ArtifactID, index, out.Data, resultMIME)
	if err != nil {
		return fail(attempts, fmt.Errorf("store result: %w", err))
	}
	if err := repo.CompletePage(bg, o.DB, b.ArtifactID, index, b.ID, key, resultMIME, attempts); err != nil {
		return fail(attempts, fmt.Errorf("record result: %w", err))
	}
	observability.PageFinished(OutcomeCompleted)
	return OutcomeCompleted
}

func summarize(err error) string {
	s := err.Error()
	if len(s) > errorSummaryMax {
		s = s[:errorSummaryMax]
	}
	return s
}

// GetStatus derives the artifact's status from its page states.
func (o *Orchestrator) GetStatus(ctx context.Context, ownerID, artifactID string) (*domain.ProcessStatus, error) {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return nil, err
	}
	pages, err := repo.ListPages(ctx, o.DB, artifactID)
	if err != nil {
		return nil, err
	}
	st := domain.DeriveStatus(artifactID, pages)
	return &st, nil
}

// GetResult returns the enhanced bytes of a completed page.
func (o *Orchestrator) GetResult(ctx context.Context, ownerID, artifactID string, index int) ([]byte, string, error) {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return nil, "", err
	}
	return o.Store.GetResult(ctx, artifactID, index)
}

// Bundle zips every completed result of an artifact.
func (o *Orchestrator) Bundle(ctx context.Context, ownerID, artifactID string) ([]byte, *domain.Artifact, error) {
	a, err := o.owned(ctx, ownerID, artifactID)
	if err != nil {
		return nil, nil, err
	}
	pages, err := repo.ListPages(ctx, o.DB, artifactID)
	if err != nil {
		return nil, nil, err
	}

	var entries []document.BundleEntry
	for _, p := range pages {
		if p.State != domain.PageCompleted {
			continue
		}
		data, _, err := o.Store.GetResult(ctx, artifactID, p.Index)
		if errors.Is(err, ErrNotReady) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		_, ext := document.DetectMIME(data)
		entries = append(entries, document.BundleEntry{Index: p.Index, Ext: ext, Data: data})
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("%w: no completed pages", ErrNotReady)
	}
	zipped, err := document.Bundle(entries, time.Now())
	if err != nil {
		return nil, nil, err
	}
	return zipped, a, nil
}

// ExtractText runs OCR over a source page, for seeding ground-truth text.
func (o *Orchestrator) ExtractText(ctx context.Context, ownerID, artifactID string, index int) (string, error) {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return "", err
	}
	src, mime, err := o.Store.GetSourcePage(ctx, artifactID, index)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, o.Cfg.ProviderTimeout)
	defer cancel()
	return o.Gateway.ExtractText(ctx, src, mime)
}

// Get returns an owned artifact with its pages.
func (o *Orchestrator) Get(ctx context.Context, ownerID, artifactID string) (*domain.Artifact, error) {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return nil, err
	}
	return o.Store.Get(ctx, artifactID)
}

// List returns a page of ownerID's artifacts.
func (o *Orchestrator) List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.Artifact, int64, error) {
	return o.Store.List(ctx, ownerID, page, pageSize)
}

// Delete removes an owned artifact.
func (o *Orchestrator) Delete(ctx context.Context, ownerID, artifactID string) error {
	if _, err := o.owned(ctx, ownerID, artifactID); err != nil {
		return err
	}
	return o.Store.Delete(ctx, artifactID)
}

// RecoverInterrupted returns pages left Processing by a previous process to
// Pending and settles the holds that process never closed, keeping only the
// pages each batch completed. Call it before serving traffic.
func (o *Orchestrator) RecoverInterrupted(ctx context.Context) (int64, error) {
	log := loggerFrom(ctx)
	n, err := repo.ResetProcessing(ctx, o.DB)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Warn().Int64("pages", n).Msg("reset pages interrupted by a previous run")
	}

	holds, err := repo.ListOpenHolds(ctx, o.DB)
	if err != nil {
		return n, err
	}
	for _, h := range holds {
		done, err := repo.CountBatchCompleted(ctx, o.DB, strings.TrimPrefix(h.Reference, "batch:"))
		if err != nil {
			return n, err
		}
		if _, err := o.Ledger.Settle(ctx, h.UserID, h.Reference, int(done)); err != nil {
			return n, fmt.Errorf("settle %s: %w", h.Reference, err)
		}
		log.Warn().Str("reference", h.Reference).Int64("completed", done).Int("held", h.Pages).Msg("settled hold left open")
	}
	return n, nil
}

// Shutdown stops accepting batches and waits for running ones. When ctx ends
// first, running batches are cancelled (unstarted pages go back to Pending)
// and given CommitTimeout to record their outcome.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
	}

	o.stop()
	select {
	case <-done:
	case <-time.After(o.Cfg.CommitTimeout):
		loggerFrom(ctx).Warn().Msg("batches still running after shutdown")
	}
	return ctx.Err()
}
