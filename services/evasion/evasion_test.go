package evasion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickUserAgentDrawsFromPool(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		ua := PickUserAgent()
		require.NotEmpty(t, ua)
		assert.Contains(t, ua, "Mozilla/5.0")
		seen[ua] = struct{}{}
	}
	// Uniform draws over an 8-entry pool should hit more than one entry.
	assert.Greater(t, len(seen), 1)
}

func TestBuildRefererVariants(t *testing.T) {
	target := "https://mydramalist.com/popular"

	sawSearch, sawSameSite, sawDirect, sawSocial := false, false, false, false
	for i := 0; i < 300; i++ {
		ref := BuildReferer(target)
		switch {
		case ref == "":
			sawDirect = true
		case strings.Contains(ref, "q=mydramalist.com"):
			sawSearch = true
		case strings.HasPrefix(ref, "https://mydramalist.com/"):
			sawSameSite = true
		default:
			sawSocial = true
		}
	}
	assert.True(t, sawSearch, "expected search-engine referers")
	assert.True(t, sawSameSite, "expected same-site referers")
	assert.True(t, sawDirect, "expected direct (empty) referers")
	assert.True(t, sawSocial, "expected social homepage referers")
}

func TestBuildRefererInvalidTarget(t *testing.T) {
	assert.Empty(t, BuildReferer("::not-a-url"))
}

func TestDetectChallenge(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"cloudflare interstitial", "<html><title>Just a moment...</title></html>", true},
		{"browser check", "<body>Checking your browser before accessing</body>", true},
		{"turnstile", `<div class="cf-turnstile"></div>`, true},
		{"recaptcha", `<div class="g-recaptcha" data-sitekey="x"></div>`, true},
		{"plain listing", "<html><body><div class='item'>Title</div></body></html>", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, marker := DetectChallenge([]byte(tc.body))
			assert.Equal(t, tc.want, got)
			if tc.want {
				assert.NotEmpty(t, marker)
			}
		})
	}
}

func TestNoDelayReturnsImmediately(t *testing.T) {
	start := time.Now()
	err := NoDelay{}.Wait(context.Background(), DelayKindReading)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestHumanDelayHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := HumanDelay{}.Wait(ctx, DelayKindReading)
	assert.ErrorIs(t, err, context.Canceled)
}
