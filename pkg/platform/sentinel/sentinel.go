package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Durable stores return these
// (optionally wrapped) so the cache can tell an absent key from a broken backend.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
