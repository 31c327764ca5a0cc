package fetch

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"streamvault/models"
	"streamvault/services/evasion"
)

// BrowserFetcher drives a local headless Chrome for sources whose markup
// only exists after client-side rendering and whose protection defeats the
// plain HTTP path. It is the heavyweight option; prefer the relay when one
// is deployed.
type BrowserFetcher struct {
	chromePath string
	headless   bool
	userAgent  string
}

func NewBrowserFetcher(chromePath string, headless bool, userAgent string) *BrowserFetcher {
	return &BrowserFetcher{
		chromePath: chromePath,
		headless:   headless,
		userAgent:  userAgent,
	}
}

// Fetch navigates to the primary URL (then mirrors, in order) and returns
// the rendered DOM. WaitSelector gates on the content actually appearing.
func (b *BrowserFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	ua := b.userAgent
	if ua == "" {
		ua = evasion.PickUserAgent()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOpts(ua)...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	urls := append([]string{req.URL}, req.Fallbacks...)
	start := time.Now()

	var lastErr error
	for _, target := range urls {
		html, finalURL, err := b.render(browserCtx, target, req.WaitSelector)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		body := []byte(html)
		if blocked, marker := evasion.DetectChallenge(body); blocked {
			return nil, &models.ChallengeError{URL: target, Marker: marker}
		}
		return &Result{
			Status:   200,
			Body:     body,
			FinalURL: finalURL,
			Path:     "browser",
			Elapsed:  time.Since(start),
		}, nil
	}
	return nil, &models.NetworkError{URL: req.URL, Err: lastErr}
}

func (b *BrowserFetcher) render(ctx context.Context, target, waitSelector string) (string, string, error) {
	actions := []chromedp.Action{
		// Mask the automation flag before any page script runs.
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetAutomationOverride(false).Do(ctx)
		}),
		chromedp.Navigate(target),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	var html, finalURL string
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", err
	}
	return html, finalURL, nil
}

// allocatorOpts avoids the headless-detection flags that trip anti-bot
// systems on the sources this path exists for.
func (b *BrowserFetcher) allocatorOpts(userAgent string) []chromedp.ExecAllocatorOption {
	headlessVal := ""
	if b.headless {
		headlessVal = "new" // less detectable than legacy headless
	}
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	}
	if b.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.chromePath))
	}
	return opts
}
