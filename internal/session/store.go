// Package session keeps each visitor's forge view state and fans out changes
// to whoever is watching that session.
package session

import (
	"context"
	"errors"

	"github.com/stemsi/curricuforge/internal/view"
)

// ErrConflict is returned when an update keeps losing a concurrent write race.
var ErrConflict = errors.New("session: concurrent update conflict")

// UpdateFunc computes the next state from the current one. Returning an
// error aborts the update and leaves the stored state untouched.
type UpdateFunc func(view.State) (view.State, error)

// Store holds one view state per session. A session with no entry is Idle.
type Store interface {
	// Load returns the current snapshot for id.
	Load(ctx context.Context, id string) (view.Snapshot, error)

	// Update atomically applies fn to the current state. When fn fails the
	// returned snapshot is the unchanged current state alongside fn's error.
	Update(ctx context.Context, id string, fn UpdateFunc) (view.Snapshot, error)
}

// Broker delivers snapshot changes to the subscribers of a session.
type Broker interface {
	Publish(ctx context.Context, id string, snap view.Snapshot) error

	// Subscribe returns a channel of snapshots for id. The cancel func must be
	// called to release the subscription; the channel is closed afterwards.
	Subscribe(ctx context.Context, id string) (<-chan view.Snapshot, func(), error)
}
