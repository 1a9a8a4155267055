package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

func testConfig() *Config {
	return &Config{
		Timeout:                  time.Second,
		ErrorThresholdPercentage: 50,
		ResetTimeout:             50 * time.Millisecond,
		VolumeThreshold:          5,
		HalfOpenMax:              1,
	}
}

func succeed(ctx context.Context) (int, error) { return 200, nil }

func fail(ctx context.Context) (int, error) {
	return 500, util.NewUpstreamError("test", 500)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestExecuteSuccess(t *testing.T) {
	b := New("books", testConfig(), nil)

	status, err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, StateClosed, b.State())

	stats := b.Stats()
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 1, stats.Successes)
}

func TestServerErrorCountsAsFailure(t *testing.T) {
	b := New("books", testConfig(), nil)

	// A 5xx with a nil error is still a failure.
	status, err := b.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 502, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 502, status)
	assert.Equal(t, 1, b.Stats().Failures)
}

func TestTripsAtThreshold(t *testing.T) {
	b := New("books", testConfig(), nil)

	// 2 successes then 3 failures: 5 requests at 60% failure rate.
	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), succeed)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		b.Execute(context.Background(), fail)
	}

	assert.Equal(t, StateOpen, b.State())
}

func TestVolumeThresholdGuard(t *testing.T) {
	b := New("books", testConfig(), nil)

	// 100% failures but below the volume threshold: stays closed.
	for i := 0; i < 4; i++ {
		b.Execute(context.Background(), fail)
	}

	assert.Equal(t, StateClosed, b.State())
}

func TestOpenRejectsWithoutCallingUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.ResetTimeout = time.Minute
	b := New("books", cfg, nil)

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, b.State())

	called := false
	status, err := b.Execute(context.Background(), func(ctx context.Context) (int, error) {
		called = true
		return 200, nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, status)
	assert.False(t, called)
	assert.Equal(t, int64(1), b.Stats().Rejects)
}

func TestHalfOpenProbeSuccessCloses(t *testing.T) {
	b := New("books", testConfig(), nil)

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)

	status, err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, StateClosed, b.State())

	// Window cleared on transition.
	assert.Equal(t, 0, b.Stats().Requests)
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	b := New("books", testConfig(), nil)

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)

	b.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())

	// Reset timer restarted: the very next call is rejected again.
	_, err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestTimeoutClassification(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.VolumeThreshold = 100
	b := New("books", cfg, nil)

	_, err := b.Execute(context.Background(), func(ctx context.Context) (int, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return 200, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	assert.ErrorIs(t, err, util.ErrUpstreamTimeout)

	stats := b.Stats()
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Timeouts)
}

func TestOnStateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var changes [][2]State

	cfg := testConfig()
	cfg.OnStateChange = func(name string, from, to State) {
		mu.Lock()
		changes = append(changes, [2]State{from, to})
		mu.Unlock()
	}
	b := New("books", cfg, nil)

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), fail)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, StateClosed, changes[0][0])
	assert.Equal(t, StateOpen, changes[0][1])
}

func TestReset(t *testing.T) {
	b := New("books", testConfig(), nil)

	for i := 0; i < 5; i++ {
		b.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	_, err := b.Execute(context.Background(), succeed)
	assert.NoError(t, err)
}

func TestFailurePercentage(t *testing.T) {
	assert.Equal(t, float64(0), Stats{}.FailurePercentage())
	assert.InDelta(t, 60.0, Stats{Requests: 10, Failures: 6}.FailurePercentage(), 0.001)
}

func TestContextCancellationIsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.VolumeThreshold = 100
	b := New("books", cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Execute(ctx, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 1, b.Stats().Failures)
}

func TestCollection(t *testing.T) {
	c := NewCollection([]string{"books", "users"}, testConfig(), nil)

	assert.NotNil(t, c.Get("books"))
	assert.Nil(t, c.Get("ghost"))
	assert.ElementsMatch(t, []string{"books", "users"}, c.Keys())

	stats := c.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "closed", stats["books"].StateName)

	for i := 0; i < 5; i++ {
		c.Get("books").Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, c.Get("books").State())

	c.ResetAll()
	assert.Equal(t, StateClosed, c.Get("books").State())
}
