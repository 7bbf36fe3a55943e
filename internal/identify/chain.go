package identify

import (
	"context"
	"log/slog"

	"github.com/aquatrace/aquatrace-go/internal/logging"
)

// Chain runs a primary identifier and hands off to a fallback when the
// primary errors or reports confidence below the threshold.
type Chain struct {
	primary   Identifier
	fallback  Identifier // may be nil
	threshold float64
	logger    *slog.Logger
}

// NewChain builds an identification chain. fallback may be nil, in which
// case the primary result is always returned.
func NewChain(primary, fallback Identifier, threshold float64) *Chain {
	return &Chain{
		primary:   primary,
		fallback:  fallback,
		threshold: clamp01(threshold),
		logger:    logging.ForService("identify"),
	}
}

// Identify implements Identifier.
func (c *Chain) Identify(ctx context.Context, payload Payload) (Result, error) {
	primary, primaryErr := c.primary.Identify(ctx, payload)

	if primaryErr == nil && primary.Confidence >= c.threshold && primary.Identified() {
		return primary, nil
	}

	if c.fallback == nil {
		if primaryErr != nil {
			return Result{}, primaryErr
		}
		return primary, nil
	}

	if primaryErr != nil {
		c.logger.Warn("primary identifier failed, trying fallback",
			"filename", payload.Filename,
			"error", primaryErr)
	} else {
		c.logger.Debug("primary confidence below threshold, trying fallback",
			"filename", payload.Filename,
			"confidence", primary.Confidence,
			"threshold", c.threshold)
	}

	fallback, fallbackErr := c.fallback.Identify(ctx, payload)
	if fallbackErr != nil {
		c.logger.Warn("fallback identifier failed",
			"filename", payload.Filename,
			"error", fallbackErr)
		if primaryErr != nil {
			return Result{}, primaryErr
		}
		// Keep the low-confidence primary result rather than failing the upload.
		return primary, nil
	}

	if primaryErr == nil && primary.Identified() && !fallback.Identified() {
		return primary, nil
	}
	return fallback, nil
}
