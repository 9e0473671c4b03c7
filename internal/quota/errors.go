package quota

import "errors"

var (
	// ErrQuotaUnenforceable means usage is over the limit but the ledger has
	// nothing left to evict for that kind.
	ErrQuotaUnenforceable = errors.New("quota unenforceable")
	// ErrNoCatalog means no catalog is configured for the kind being enforced.
	ErrNoCatalog = errors.New("no catalog for media kind")
)
