// Package identity maps user ids carried by user-triggered causes to display
// names.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/store"
)

// Source lists the users a Directory is loaded from. *store.Store
// implements it.
type Source interface {
	ListUsers(ctx context.Context) ([]store.User, error)
}

// Directory is an in-memory user directory.
//
// Thread-safety: all methods are safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	names map[string]string
}

var _ cause.Resolver = (*Directory)(nil)

// NewDirectory creates a directory holding users.
func NewDirectory(users ...store.User) *Directory {
	d := &Directory{names: make(map[string]string, len(users))}
	for _, u := range users {
		d.names[u.ID] = u.DisplayName
	}
	return d
}

// Load builds a directory from every user in src.
func Load(ctx context.Context, src Source) (*Directory, error) {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user directory: %w", err)
	}
	return NewDirectory(users...), nil
}

// Put adds or replaces a user. The empty id belongs to the system actor and
// is ignored.
func (d *Directory) Put(u store.User) {
	if u.ID == cause.SystemUserID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[u.ID] = u.DisplayName
}

// Len returns the number of known users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// DisplayName implements cause.Resolver.
func (d *Directory) DisplayName(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[id]
	return name, ok
}
