package evasion

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a per-source minimum interval between requests. Unlike
// DelayPolicy, which adds randomized human-looking pauses, the pacer is a
// hard floor: no two requests to the same source ever start closer than
// the source's configured spacing, even from concurrent workers.
type Pacer struct {
	mu   sync.Mutex
	next map[string]time.Time
}

func NewPacer() *Pacer {
	return &Pacer{next: make(map[string]time.Time)}
}

// Wait reserves the next request slot for the source and blocks until it
// arrives. A zero or negative interval means no floor.
func (p *Pacer) Wait(ctx context.Context, source string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	at := p.next[source]
	if at.Before(now) {
		at = now
	}
	p.next[source] = at.Add(interval)
	p.mu.Unlock()

	wait := at.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
