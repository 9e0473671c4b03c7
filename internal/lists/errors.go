package lists

import "errors"

var (
	// ErrProviderUnavailable indicates a provider could not supply a list this pass.
	// The resolver skips the provider and moves on.
	ErrProviderUnavailable = errors.New("list provider unavailable")

	// ErrListNotFound indicates a named list does not exist on its provider.
	ErrListNotFound = errors.New("list not found")
)
