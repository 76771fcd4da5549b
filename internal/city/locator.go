package city

import (
	"context"
	"errors"
	"sync"
)

// ErrGeolocationDenied is returned by locators when the user refused to share
// a position.
var ErrGeolocationDenied = errors.New("geolocation denied")

// Locator is a single-shot device position source. Locate may block until the
// position is known, the request is denied, or ctx ends.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator returns a position the client already knows.
type StaticLocator Coordinates

func (s StaticLocator) Locate(_ context.Context) (Coordinates, error) {
	return Coordinates(s), nil
}

// DeniedLocator always fails as if permission was refused.
type DeniedLocator struct{}

func (DeniedLocator) Locate(_ context.Context) (Coordinates, error) {
	return Coordinates{}, ErrGeolocationDenied
}

// PendingLocator is settled later by Deliver or Deny, the way a browser
// geolocation callback fires after the permission prompt. It has no timeout
// of its own; callers bound the wait with ctx.
type PendingLocator struct {
	once   sync.Once
	done   chan struct{}
	coords Coordinates
	err    error
}

// NewPendingLocator returns an unsettled locator.
func NewPendingLocator() *PendingLocator {
	return &PendingLocator{done: make(chan struct{})}
}

// Deliver settles the locator with a position. It reports false if the
// locator was already settled.
func (p *PendingLocator) Deliver(pos Coordinates) bool {
	return p.settle(pos, nil)
}

// Deny settles the locator as refused. It reports false if the locator was
// already settled.
func (p *PendingLocator) Deny() bool {
	return p.settle(Coordinates{}, ErrGeolocationDenied)
}

func (p *PendingLocator) settle(pos Coordinates, err error) bool {
	settled := false
	p.once.Do(func() {
		p.coords = pos
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Settled reports whether Deliver or Deny has been called.
func (p *PendingLocator) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *PendingLocator) Locate(ctx context.Context) (Coordinates, error) {
	select {
	case <-p.done:
		return p.coords, p.err
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	}
}
