// Package evasion makes outbound requests resemble organic browser
// traffic: rotating user agents, plausible referers, and recognition of
// anti-bot interstitial pages. Everything here is synchronous and pure
// apart from the delay policies.
package evasion

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

// userAgents is the fixed pool PickUserAgent draws from, one per request.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.2903.70",
}

// challengeMarkers are literal substrings that identify known anti-bot
// interstitials. False negatives are tolerated; matching errs toward
// flagging so the caller can fall back to the relay path.
var challengeMarkers = []string{
	"Just a moment...",
	"Checking your browser",
	"cf-browser-verification",
	"cf-turnstile",
	"__cf_chl",
	"Attention Required!",
	"DDoS protection by",
	"g-recaptcha",
	"h-captcha",
	"Verifying you are human",
}

// PickUserAgent returns one user agent drawn uniformly at random from the
// pool. Callers pick a fresh one per request.
func PickUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// searchEngines are referer templates parameterized by the target hostname.
var searchEngines = []string{
	"https://www.google.com/search?q=%s",
	"https://www.bing.com/search?q=%s",
	"https://duckduckgo.com/?q=%s",
}

var socialHomes = []string{
	"https://www.facebook.com/",
	"https://twitter.com/",
	"https://www.reddit.com/",
	"https://t.me/",
}

var internalPaths = []string{"/", "/popular", "/latest", "/search", "/genre/drama"}

// BuildReferer synthesizes a plausible referer for the target URL: a search
// engine query for the site, a social homepage, a same-site internal path,
// or empty (direct navigation).
func BuildReferer(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")

	switch rand.IntN(4) {
	case 0:
		tpl := searchEngines[rand.IntN(len(searchEngines))]
		return fmt.Sprintf(tpl, url.QueryEscape(host))
	case 1:
		return socialHomes[rand.IntN(len(socialHomes))]
	case 2:
		return u.Scheme + "://" + u.Host + internalPaths[rand.IntN(len(internalPaths))]
	default:
		return ""
	}
}

// DetectChallenge reports whether the body looks like an anti-bot
// interstitial, and which marker matched. Best-effort signal only.
func DetectChallenge(body []byte) (bool, string) {
	if len(body) == 0 {
		return false, ""
	}
	// Challenge pages are small; cap the scan so huge legitimate pages
	// containing a marker in user content don't dominate.
	scan := body
	if len(scan) > 64*1024 {
		scan = scan[:64*1024]
	}
	text := string(scan)
	for _, marker := range challengeMarkers {
		if strings.Contains(text, marker) {
			return true, marker
		}
	}
	return false, ""
}
