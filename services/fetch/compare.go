package fetch

import (
	"context"
	"log"
	"sync"
	"time"
)

// PathResult holds one path's outcome in a comparison run.
type PathResult struct {
	Path    string        `json:"path"`
	Err     error         `json:"-"`
	Status  int           `json:"status,omitempty"`
	Bytes   int           `json:"bytes"`
	Elapsed time.Duration `json:"elapsed"`
	Result  *Result       `json:"-"`
}

// Comparison is the outcome of running the same target on the local and
// relay paths. Which path is faster and more complete is an operational
// signal, so both measurements are first-class values, not log lines.
type Comparison struct {
	Local PathResult `json:"local"`
	Relay PathResult `json:"relay"`
}

// Winner returns the path that produced the larger successful body;
// ties and single-path success go to the survivor, local preferred.
func (c *Comparison) Winner() *Result {
	switch {
	case c.Local.Err == nil && c.Relay.Err == nil:
		if c.Relay.Bytes > c.Local.Bytes {
			return c.Relay.Result
		}
		return c.Local.Result
	case c.Local.Err == nil:
		return c.Local.Result
	case c.Relay.Err == nil:
		return c.Relay.Result
	}
	return nil
}

// ComparePaths fetches the same request on both paths concurrently and
// returns both outcomes. The caller decides which body to use via Winner.
func ComparePaths(ctx context.Context, local, relay Fetcher, req Request) *Comparison {
	cmp := &Comparison{
		Local: PathResult{Path: "local"},
		Relay: PathResult{Path: "relay"},
	}

	run := func(f Fetcher, out *PathResult) {
		start := time.Now()
		res, err := f.Fetch(ctx, req)
		out.Elapsed = time.Since(start)
		out.Err = err
		if res != nil {
			out.Status = res.Status
			out.Bytes = len(res.Body)
			out.Result = res
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); run(local, &cmp.Local) }()
	go func() { defer wg.Done(); run(relay, &cmp.Relay) }()
	wg.Wait()

	log.Printf("[fetch] compare %s: local %d bytes in %s (err=%v), relay %d bytes in %s (err=%v)",
		req.URL, cmp.Local.Bytes, cmp.Local.Elapsed, cmp.Local.Err,
		cmp.Relay.Bytes, cmp.Relay.Elapsed, cmp.Relay.Err)

	return cmp
}

// ComparingFetcher satisfies Fetcher by racing both paths and keeping the
// richer result. Selected per source via the compare fetch path.
type ComparingFetcher struct {
	Local Fetcher
	Relay Fetcher
}

func (c *ComparingFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	cmp := ComparePaths(ctx, c.Local, c.Relay, req)
	if winner := cmp.Winner(); winner != nil {
		return winner, nil
	}
	// Both failed; prefer the local error, it is usually the more direct one.
	if cmp.Local.Err != nil {
		return nil, cmp.Local.Err
	}
	return nil, cmp.Relay.Err
}
