package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/city"
)

type recordingRefresher struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (r *recordingRefresher) Refresh(ctx context.Context, c city.City) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh without deadline")
	}
	r.mu.Lock()
	r.seen = append(r.seen, c.Name)
	r.mu.Unlock()
	if c.Name == r.failOn {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingRefresher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func testCities() []city.City {
	return []city.City{{Name: "Bangkok"}, {Name: "Tokyo"}, {Name: "Paris"}}
}

func TestRunOnce_RefreshesEveryCity(t *testing.T) {
	r := &recordingRefresher{failOn: "Tokyo"}
	s := New(testCities(), time.Minute, r, nil)

	s.RunOnce(context.Background())

	assert.ElementsMatch(t, []string{"Bangkok", "Tokyo", "Paris"}, r.names())
}

func TestStart_RunsImmediately(t *testing.T) {
	r := &recordingRefresher{}
	s := New(testCities(), time.Hour, r, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return len(r.names()) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStart_NoCities(t *testing.T) {
	r := &recordingRefresher{}
	s := New(nil, time.Minute, r, nil)

	require.NoError(t, s.Start())
	s.Stop()
	assert.Empty(t, r.names())
}
