// Package enhance adapts a page and its processing options into a call to the
// generative image model and normalizes the answer into bytes or a typed
// failure. It holds no state between calls and performs no retries; the
// caller decides whether a failure is worth another attempt.
package enhance

import (
	"context"
	"errors"
)

var (
	// ErrEnhancementFailed covers timeouts, transport errors and provider
	// rejections. Retryable.
	ErrEnhancementFailed = errors.New("enhancement failed")

	// ErrEnhancementEmpty means the provider answered without an image.
	// Retryable.
	ErrEnhancementEmpty = errors.New("enhancement returned no image")
)

// Retryable reports whether err is one of the gateway's transient failures.
func Retryable(err error) bool {
	return errors.Is(err, ErrEnhancementFailed) || errors.Is(err, ErrEnhancementEmpty)
}

// Request is one page to enhance.
type Request struct {
	Image       []byte
	MIME        string
	Quality     Quality
	AspectRatio float64 // width/height of the source; 0 when unknown
	GroundTruth string  // optional; switches to the override prompt
}

// Result is the enhanced page.
type Result struct {
	Data []byte
	MIME string
}

// Gateway is implemented by provider clients.
type Gateway interface {
	Enhance(ctx context.Context, req Request) (*Result, error)
	ExtractText(ctx context.Context, image []byte, mime string) (string, error)
}
