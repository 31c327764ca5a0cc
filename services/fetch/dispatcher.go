package fetch

import (
	"log"

	"streamvault/config"
)

// Dispatcher maps a source's configured fetch path to a Fetcher. Paths
// that are not provisioned degrade to the local executor rather than
// failing the source outright.
type Dispatcher struct {
	local   Fetcher
	relay   *RelayClient
	browser Fetcher
}

func NewDispatcher(local Fetcher, relay *RelayClient, browser Fetcher) *Dispatcher {
	return &Dispatcher{local: local, relay: relay, browser: browser}
}

// For returns the fetcher serving the given path.
func (d *Dispatcher) For(path config.FetchPath) Fetcher {
	switch path {
	case config.FetchPathRelay:
		if d.relay != nil && d.relay.Configured() {
			return d.relay
		}
		log.Printf("[fetch] relay path requested but not configured, using local")
		return d.local
	case config.FetchPathBrowser:
		if d.browser != nil {
			return d.browser
		}
		log.Printf("[fetch] browser path requested but not enabled, using local")
		return d.local
	case config.FetchPathCompare:
		if d.relay != nil && d.relay.Configured() {
			return &ComparingFetcher{Local: d.local, Relay: d.relay}
		}
		return d.local
	default:
		return d.local
	}
}
