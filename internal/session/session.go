// Package session keeps per-client dashboard state: the selected city and
// range, the latest dashboard, and any geolocation still awaiting an answer.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/city"
	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNoPendingGeolocation is returned when a position is delivered but the
	// current selection did not ask for one.
	ErrNoPendingGeolocation = errors.New("no geolocation request is pending")
	// ErrGeolocationSettled is returned when the pending request was already
	// answered.
	ErrGeolocationSettled = errors.New("geolocation request already answered")
)

// Status is the lifecycle of the latest selection.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// DashboardService builds dashboards for resolved cities.
type DashboardService interface {
	Dashboard(ctx context.Context, c city.City, rangeDays int) (weather.Dashboard, error)
}

// Selection is what the user asked for. Empty fields are "not provided".
type Selection struct {
	Explicit string
	Query    string
	Range    int
	// Geolocation asks the session to wait for a device position.
	Geolocation bool
}

// State is a copy of the session's state at one point in time.
type State struct {
	ID                  string             `json:"id"`
	Status              Status             `json:"status"`
	Generation          uint64             `json:"generation"`
	City                *city.City         `json:"city,omitempty"`
	Source              city.Source        `json:"source,omitempty"`
	RangeDays           int                `json:"rangeDays"`
	Dashboard           *weather.Dashboard `json:"dashboard,omitempty"`
	AwaitingGeolocation bool               `json:"awaitingGeolocation"`
	Error               string             `json:"error,omitempty"`
}

// Session owns one client's state. Each Select starts a new generation;
// work from older generations is cancelled and its results are dropped.
type Session struct {
	id       string
	resolver *city.Resolver
	service  DashboardService
	clock    clockwork.Clock
	logger   *zap.Logger
	metrics  *observability.Metrics

	ctx        context.Context
	cancelAll  context.CancelFunc
	generation *atomic.Uint64
	wg         sync.WaitGroup

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	locator *city.PendingLocator
	used    time.Time
}

func newSession(id string, resolver *city.Resolver, service DashboardService, clock clockwork.Clock, logger *zap.Logger, metrics *observability.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		resolver:   resolver,
		service:    service,
		clock:      clock,
		logger:     logger.With(zap.String("session", id)),
		metrics:    metrics,
		ctx:        ctx,
		cancelAll:  cancel,
		generation: atomic.NewUint64(0),
		state:      State{ID: id, Status: StatusIdle},
		used:       clock.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Select starts resolving and loading a new selection in the background and
// returns its generation. The previous dashboard stays visible until the new
// one is ready.
func (s *Session) Select(sel Selection) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used = s.clock.Now()
	gen := s.generation.Inc()
	if s.cancel != nil {
		s.cancel()
	}
	// The superseded run, if still waiting on its locator, is released by
	// the cancelled ctx.
	s.locator = nil

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel

	var loc *city.PendingLocator
	if sel.Geolocation {
		loc = city.NewPendingLocator()
		s.locator = loc
	}

	s.state.Status = StatusPending
	s.state.Generation = gen
	s.state.RangeDays = weather.ClampRange(sel.Range)
	s.state.Error = ""

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, gen, sel, loc)
	}()
	return gen
}

// Geolocate answers the pending geolocation request with a position.
func (s *Session) Geolocate(pos city.Coordinates) error {
	loc, err := s.pendingLocator()
	if err != nil {
		return err
	}
	if !loc.Deliver(pos) {
		return ErrGeolocationSettled
	}
	return nil
}

// DenyGeolocation answers the pending geolocation request as refused.
func (s *Session) DenyGeolocation() error {
	loc, err := s.pendingLocator()
	if err != nil {
		return err
	}
	if !loc.Deny() {
		return ErrGeolocationSettled
	}
	return nil
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.AwaitingGeolocation = s.locator != nil && !s.locator.Settled()
	if st.City != nil {
		c := *st.City
		st.City = &c
	}
	return st
}

// Close cancels in-flight work and waits for it to stop.
func (s *Session) Close() {
	s.cancelAll()
	s.wg.Wait()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.used = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *Session) pendingLocator() (*city.PendingLocator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locator == nil {
		return nil, ErrNoPendingGeolocation
	}
	return s.locator, nil
}

func (s *Session) run(ctx context.Context, gen uint64, sel Selection, loc *city.PendingLocator) {
	req := city.Request{Explicit: sel.Explicit, Query: sel.Query}
	if loc != nil {
		req.Locator = loc
	}

	res, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		s.fail(gen, err)
		return
	}

	if !s.commit(gen, func(st *State) {
		c := res.City
		st.City = &c
		st.Source = res.Source
		// Only a geolocation result consumes the locator.
		if res.Source != city.SourceGeolocation && s.locator == loc {
			s.locator = nil
		}
	}) {
		return
	}

	d, err := s.service.Dashboard(ctx, res.City, weather.ClampRange(sel.Range))
	if err != nil {
		s.fail(gen, err)
		return
	}

	s.commit(gen, func(st *State) {
		st.Status = StatusReady
		st.Dashboard = &d
	})
}

func (s *Session) fail(gen uint64, err error) {
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("selection cancelled", zap.Uint64("generation", gen))
		s.discard()
		return
	}
	s.logger.Warn("selection failed", zap.Uint64("generation", gen), zap.Error(err))
	s.commit(gen, func(st *State) {
		st.Status = StatusFailed
		st.Error = err.Error()
	})
}

// commit applies fn if gen is still the latest generation.
func (s *Session) commit(gen uint64, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation.Load() {
		s.discard()
		return false
	}
	fn(&s.state)
	return true
}

func (s *Session) discard() {
	if s.metrics != nil {
		s.metrics.StaleDiscarded.Inc()
	}
}
