package storage

import "context"

// Store bundles all persistence interfaces used by the server
type Store interface {
	UserStorage
	CredentialStorage
	SessionStorage
	MovieStorage
	RatingStorage
}

// TxStore is a Store that can scope a group of writes to one transaction.
// The Store passed to fn shares the transaction; returning an error rolls
// everything back, otherwise the transaction commits. This commit boundary
// is also the cancellation boundary: a request aborted mid-operation never
// leaves partial state behind.
type TxStore interface {
	Store

	// WithTx runs fn inside a single transaction
	WithTx(ctx context.Context, fn func(Store) error) error
}
