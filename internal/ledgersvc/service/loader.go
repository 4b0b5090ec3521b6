package service

import (
	"context"
	"sync"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
)

// Loader loads the table of whoever is currently signed in. A load that
// finishes after the owner changed is discarded with ErrStaleLoad instead
// of being shown to the new owner.
type Loader struct {
	svc *TableService

	mu    sync.Mutex
	owner string
	gen   uint64
}

func NewLoader(svc *TableService) *Loader {
	return &Loader{svc: svc}
}

// SetOwner switches the signed-in owner; "" signs out.
func (l *Loader) SetOwner(ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == ownerID {
		return
	}
	l.owner = ownerID
	l.gen++
}

func (l *Loader) Owner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

func (l *Loader) Load(ctx context.Context) (*table.Table, error) {
	l.mu.Lock()
	owner, gen := l.owner, l.gen
	l.mu.Unlock()

	if owner == "" {
		return nil, ErrNoOwner
	}

	t, err := l.svc.LoadTable(ctx, owner)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return nil, ErrStaleLoad
	}
	return t, err
}
