package driven

import "context"

// KeyValueStore is the host persistence capability backing the credential store.
// Values are opaque strings.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// MultiRemove deletes all given keys in one operation.
	// Missing keys are ignored.
	MultiRemove(ctx context.Context, keys ...string) error

	// Close releases resources held by the store.
	Close() error
}
