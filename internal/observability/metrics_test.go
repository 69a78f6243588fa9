package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDomainCollectors(t *testing.T) {
	baseDone := testutil.ToFloat64(pagesProcessed.WithLabelValues("completed"))
	PageFinished("completed")
	PageFinished("completed")
	if got := testutil.ToFloat64(pagesProcessed.WithLabelValues("completed")) - baseDone; got != 2 {
		t.Fatalf("pages completed delta = %v, want 2", got)
	}

	baseRefund := testutil.ToFloat64(creditsMoved.WithLabelValues("refund"))
	CreditsMoved("refund", -3.5)
	if got := testutil.ToFloat64(creditsMoved.WithLabelValues("refund")) - baseRefund; got != 3.5 {
		t.Fatalf("refund delta = %v, want 3.5", got)
	}

	baseFree := testutil.ToFloat64(freePagesUsed)
	FreePagesUsed(0)
	FreePagesUsed(2)
	if got := testutil.ToFloat64(freePagesUsed) - baseFree; got != 2 {
		t.Fatalf("free pages delta = %v, want 2", got)
	}

	baseImg := testutil.ToFloat64(artifactsUploaded.WithLabelValues("image"))
	ArtifactUploaded("image")
	if got := testutil.ToFloat64(artifactsUploaded.WithLabelValues("image")) - baseImg; got != 1 {
		t.Fatalf("uploads delta = %v, want 1", got)
	}

	done := BatchStarted()
	if got := testutil.ToFloat64(batchesInflight); got < 1 {
		t.Fatalf("inflight = %v, want >= 1", got)
	}
	done()

	ProviderCall("ok", 1500*time.Millisecond)
	if n := testutil.CollectAndCount(providerLatency); n < 1 {
		t.Fatalf("expected provider latency series, got %d", n)
	}
}
