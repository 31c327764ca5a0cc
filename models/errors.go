package models

import (
	"errors"
	"fmt"
)

// ErrExtractionEmpty signals that every candidate selector matched nothing.
// The caller persists the page HTML for later selector repair instead of
// treating the page as legitimately empty.
var ErrExtractionEmpty = errors.New("extraction matched no elements")

// ErrNeedsRefresh signals that a streaming cache entry exists but has
// expired and could not be refreshed inline.
var ErrNeedsRefresh = errors.New("streaming info expired")

// ErrNotFound is returned for unknown content ids.
var ErrNotFound = errors.New("not found")

// NetworkError wraps a connection or timeout failure after all fallback
// URLs have been exhausted.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ChallengeError marks a response recognized as an anti-bot interstitial.
// Distinct from NetworkError so operators can tell "blocked" from "broken".
type ChallengeError struct {
	URL    string
	Marker string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("challenge page served for %s (marker %q)", e.URL, e.Marker)
}

// NormalizationError reports a raw item missing a required field after
// alias resolution. The item is dropped and counted; the run continues.
type NormalizationError struct {
	Source string
	Field  string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: missing required field %q", e.Source, e.Field)
}

// PersistenceError wraps a storage failure for a whole batch.
type PersistenceError struct {
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist to %s: %v", e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UnknownSourceError is returned by the registry for unconfigured sources.
type UnknownSourceError struct {
	Source    string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q", e.Source)
}
