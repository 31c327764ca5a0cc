package evasion

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayKind labels the simulated human action a pause stands in for.
type DelayKind string

const (
	DelayKindReading DelayKind = "reading"
	DelayKindTyping  DelayKind = "typing"
	DelayKindPaging  DelayKind = "paging"
)

// DelayPolicy injects pauses between scraper actions. Implementations must
// respect context cancellation. Tests use NoDelay.
type DelayPolicy interface {
	Wait(ctx context.Context, kind DelayKind) error
}

// HumanDelay sleeps for a randomized interval tuned per action kind.
type HumanDelay struct{}

func (HumanDelay) Wait(ctx context.Context, kind DelayKind) error {
	var base, jitter time.Duration
	switch kind {
	case DelayKindTyping:
		base, jitter = 300*time.Millisecond, 700*time.Millisecond
	case DelayKindPaging:
		base, jitter = 800*time.Millisecond, 1500*time.Millisecond
	default: // reading
		base, jitter = 1200*time.Millisecond, 2500*time.Millisecond
	}
	d := base + time.Duration(rand.Int64N(int64(jitter)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay waits for nothing; used in tests and on-demand runs where the
// timeout budget is tight.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context, _ DelayKind) error {
	return ctx.Err()
}
