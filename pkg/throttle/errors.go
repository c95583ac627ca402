package throttle

import "errors"

// Package-level error definitions for throttle operations.
var (
	// ErrEmptyUserID indicates an admission check without a user identity.
	ErrEmptyUserID = errors.New("throttle.errors.empty_user_id")

	// ErrStoreUnavailable wraps counter store failures.
	ErrStoreUnavailable = errors.New("throttle.errors.store_unavailable")

	// ErrNilCatalog and ErrNilStore guard service construction.
	ErrNilCatalog = errors.New("throttle.errors.nil_catalog")
	ErrNilStore   = errors.New("throttle.errors.nil_store")
)
