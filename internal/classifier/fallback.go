package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"docslice/internal/domain"
	"docslice/internal/port"
)

// circuitState tracks rate-limit backoff for a single classifier.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackClassifier tries classifiers in order, skipping those with
// open circuits. It implements port.BoundaryClassifier.
type FallbackClassifier struct {
	classifiers []port.BoundaryClassifier
	circuits    []*circuitState
	names       []string
}

// NewFallbackClassifier creates a FallbackClassifier from an ordered list of classifiers and their names.
func NewFallbackClassifier(classifiers []port.BoundaryClassifier, names []string) *FallbackClassifier {
	circuits := make([]*circuitState, len(classifiers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackClassifier{
		classifiers: classifiers,
		circuits:    circuits,
		names:       names,
	}
}

func (f *FallbackClassifier) ProposeBoundaries(ctx context.Context, input port.ClassifyInput) ([]domain.BoundaryProposal, error) {
	now := time.Now()
	var lastErr error
	var earliestReset time.Time

	for i, c := range f.classifiers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("classifier.FallbackClassifier: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := c.ProposeBoundaries(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("classifier.FallbackClassifier: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		}
	}

	if lastErr == nil {
		// All classifiers were skipped due to open circuits
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all classifiers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all classifiers failed: %w", lastErr)
}
