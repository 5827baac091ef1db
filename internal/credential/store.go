// Package credential persists the bearer credential in a single named slot
// so a session survives process restarts.
package credential

import (
	"context"
)

// Store is one named slot of durable client storage. Load returns
// domain.ErrNotFound when the slot is empty.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
