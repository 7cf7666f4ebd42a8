// Package store persists the serialized ledger document across process
// lifetimes. Individual backends are best-effort; Multi stacks them in
// priority order so losing any one location never loses the document.
package store

import "context"

// Backend is one storage location for the serialized document.
type Backend interface {
	Name() string
	// Load returns the stored bytes, or found=false when nothing was
	// persisted at this location.
	Load(ctx context.Context) (data []byte, found bool, err error)
	Save(ctx context.Context, data []byte) error
}
