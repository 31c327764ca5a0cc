// Package fetch performs the pipeline's outbound HTTP work. A request can
// travel three paths: the local HTTP client, a remote headless-browser
// relay, or a locally driven headless Chrome. All paths return the same
// Result shape so callers can compare them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"streamvault/models"
	"streamvault/services/evasion"
)

const maxBodyBytes = 8 << 20 // pages beyond 8 MiB are cut off, not failed

// Request describes one fetch target. Fallbacks are mirror URLs tried in
// order after the primary fails.
type Request struct {
	URL          string
	Fallbacks    []string
	Headers      map[string]string
	Referer      string // empty = synthesized per request
	WaitSelector string // forwarded to relay/browser paths
	Timeout      time.Duration
}

// Result is the outcome of a fetch on any path.
type Result struct {
	Status   int
	Body     []byte
	FinalURL string
	Path     string // local | relay | browser
	Elapsed  time.Duration
}

// Fetcher is implemented by every fetch path.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Executor is the local HTTP path.
type Executor struct {
	httpc *http.Client
}

// NewExecutor constructs the local path. A nil client gets a 30s-timeout
// default; per-request timeouts come from the context.
func NewExecutor(client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{httpc: client}
}

// Fetch tries the primary URL, then each fallback mirror in order, on
// connection failure or non-2xx status. A challenge page aborts the
// sequence immediately so the caller can reroute to the relay path.
func (e *Executor) Fetch(ctx context.Context, req Request) (*Result, error) {
	urls := append([]string{req.URL}, req.Fallbacks...)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var (
		result  *Result
		attempt int
	)
	start := time.Now()
	err := retry.Do(
		func() error {
			target := urls[attempt]
			res, err := e.fetchOne(ctx, target, req)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(uint(len(urls))),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[fetch] %s failed (%v), trying mirror %d/%d", urls[attempt], err, n+1, len(urls)-1)
			attempt++
		}),
	)
	if err != nil {
		if _, ok := err.(*models.ChallengeError); ok {
			return nil, err
		}
		return nil, &models.NetworkError{URL: req.URL, Err: err}
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

func (e *Executor) fetchOne(ctx context.Context, target string, req Request) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	applyBrowserHeaders(httpReq, req)

	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if blocked, marker := evasion.DetectChallenge(body); blocked {
		return nil, retry.Unrecoverable(&models.ChallengeError{URL: target, Marker: marker})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned %d", target, resp.StatusCode)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Result{
		Status:   resp.StatusCode,
		Body:     body,
		FinalURL: finalURL,
		Path:     "local",
	}, nil
}

// applyBrowserHeaders makes the request resemble organic browser traffic:
// rotated user agent, synthesized referer, and the usual navigation
// headers, then any source-specific overrides on top.
func applyBrowserHeaders(httpReq *http.Request, req Request) {
	httpReq.Header.Set("User-Agent", evasion.PickUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("DNT", "1")
	httpReq.Header.Set("Connection", "keep-alive")
	httpReq.Header.Set("Upgrade-Insecure-Requests", "1")
	httpReq.Header.Set("Sec-Fetch-Dest", "document")
	httpReq.Header.Set("Sec-Fetch-Mode", "navigate")

	referer := req.Referer
	if referer == "" {
		referer = evasion.BuildReferer(httpReq.URL.String())
	}
	if referer != "" {
		httpReq.Header.Set("Referer", referer)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
}
