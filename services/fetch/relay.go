package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamvault/models"
	"streamvault/services/evasion"
)

// RelayClient delegates fetches to a remote headless-browser relay for
// sites that require JavaScript rendering. It forwards the same
// header/selector contract as the local path so results stay comparable.
type RelayClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewRelayClient constructs a relay-backed fetcher. The token is sent as a
// bearer credential on every render call.
func NewRelayClient(baseURL, token string, client *http.Client) *RelayClient {
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &RelayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   client,
	}
}

// Configured reports whether a relay endpoint is set.
func (r *RelayClient) Configured() bool { return r.baseURL != "" }

type relayRequest struct {
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers,omitempty"`
	WaitSelector string            `json:"wait_selector,omitempty"`
	TimeoutMS    int64             `json:"timeout_ms,omitempty"`
}

type relayResponse struct {
	Status   int    `json:"status"`
	Body     string `json:"body"`
	FinalURL string `json:"final_url"`
	Error    string `json:"error,omitempty"`
}

// Fetch renders the primary URL on the relay, falling back to each mirror
// in order, mirroring the local executor's retry policy.
func (r *RelayClient) Fetch(ctx context.Context, req Request) (*Result, error) {
	if !r.Configured() {
		return nil, &models.NetworkError{URL: req.URL, Err: fmt.Errorf("relay not configured")}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	urls := append([]string{req.URL}, req.Fallbacks...)
	start := time.Now()

	var lastErr error
	for _, target := range urls {
		res, err := r.render(ctx, target, req)
		if err != nil {
			lastErr = err
			if _, ok := err.(*models.ChallengeError); ok {
				return nil, err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		res.Elapsed = time.Since(start)
		return res, nil
	}
	return nil, &models.NetworkError{URL: req.URL, Err: lastErr}
}

func (r *RelayClient) render(ctx context.Context, target string, req Request) (*Result, error) {
	headers := map[string]string{
		"User-Agent": evasion.PickUserAgent(),
	}
	referer := req.Referer
	if referer == "" {
		referer = evasion.BuildReferer(target)
	}
	if referer != "" {
		headers["Referer"] = referer
	}
	for k, v := range req.Headers {
		headers[k] = v
	}

	payload := relayRequest{
		URL:          target,
		Headers:      headers,
		WaitSelector: req.WaitSelector,
	}
	if deadline, ok := ctx.Deadline(); ok {
		payload.TimeoutMS = time.Until(deadline).Milliseconds()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var rr relayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode relay response: %w", err)
	}
	if rr.Error != "" {
		return nil, fmt.Errorf("relay error: %s", rr.Error)
	}

	rendered := []byte(rr.Body)
	if blocked, marker := evasion.DetectChallenge(rendered); blocked {
		return nil, &models.ChallengeError{URL: target, Marker: marker}
	}
	if rr.Status < 200 || rr.Status >= 300 {
		return nil, fmt.Errorf("relay render of %s returned %d", target, rr.Status)
	}

	finalURL := rr.FinalURL
	if finalURL == "" {
		finalURL = target
	}
	return &Result{
		Status:   rr.Status,
		Body:     rendered,
		FinalURL: finalURL,
		Path:     "relay",
	}, nil
}
