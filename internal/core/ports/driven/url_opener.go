package driven

import "context"

// URLOpener launches a URL using the host's browser or URL handler.
type URLOpener interface {
	// Open opens url. It fails if the host cannot handle the URL scheme.
	Open(ctx context.Context, url string) error
}
