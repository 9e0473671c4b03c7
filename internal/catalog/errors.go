package catalog

import "errors"

var (
	// ErrAddFailed indicates the catalog rejected or could not process an add.
	ErrAddFailed = errors.New("catalog add failed")

	// ErrRemoveFailed indicates the catalog could not remove an item.
	ErrRemoveFailed = errors.New("catalog remove failed")

	// ErrAlreadyExists indicates the catalog already tracks the item.
	// The rotation treats it as a skip.
	ErrAlreadyExists = errors.New("already exists in catalog")

	// ErrUnauthorized indicates the catalog rejected the API key.
	ErrUnauthorized = errors.New("unauthorized: invalid catalog api key")

	// ErrNotInCatalog indicates the catalog has no record of the external id.
	ErrNotInCatalog = errors.New("not in catalog")
)
