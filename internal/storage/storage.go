// Package storage abstracts where generated asset bytes land. Implementations
// must be safe for concurrent use and idempotent under the same logical path:
// re-running a failed panel's generation is always safe.
package storage

import "context"

// Store persists asset bytes under a logical path and returns a URL that an
// observer can fetch the asset from.
type Store interface {
	Store(ctx context.Context, data []byte, logicalPath, contentType string) (url string, err error)
}
