// Package common defines shared constants and sentinel errors used across
// the cache and storage layers of The-Uplink. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	// Storage-level errors.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Façade-level errors.
	ErrUnknownProject = errors.New("unknown project")
	ErrCacheDisabled  = errors.New("cache disabled")
)
