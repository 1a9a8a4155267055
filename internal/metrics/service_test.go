package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/circuitbreaker"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
)

func newTestService(t *testing.T, keys ...string) (*Service, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	for _, key := range keys {
		_, err := reg.Register(key, registry.ServiceInfo{Name: key, URL: "http://" + key})
		require.NoError(t, err)
	}
	breakers := circuitbreaker.NewCollection(keys, nil, nil)
	return New(reg, breakers), reg
}

func TestSnapshotEmpty(t *testing.T) {
	s, _ := newTestService(t, "books")

	snap := s.GetMetrics()

	assert.Equal(t, int64(0), snap.Requests.Total)
	assert.Equal(t, float64(100), snap.SuccessRate)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, float64(0))
	assert.Greater(t, snap.Memory.SysBytes, uint64(0))
	assert.Greater(t, snap.Memory.Goroutines, 0)

	require.Contains(t, snap.Services, "books")
	svc := snap.Services["books"]
	assert.Equal(t, "closed", svc.Breaker.StateName)
	assert.Equal(t, registry.StatusUnknown, svc.Status)
}

func TestRecordRequestTallies(t *testing.T) {
	s, _ := newTestService(t, "books", "users")

	s.RecordRequest("books", true, 20*time.Millisecond)
	s.RecordRequest("books", false, 30*time.Millisecond)
	s.RecordRequest("users", true, 10*time.Millisecond)

	snap := s.GetMetrics()

	assert.Equal(t, int64(3), snap.Requests.Total)
	assert.Equal(t, int64(2), snap.Requests.Success)
	assert.Equal(t, int64(1), snap.Requests.Failed)
	assert.InDelta(t, 66.67, snap.SuccessRate, 0.01)

	books := snap.Services["books"]
	assert.Equal(t, int64(2), books.Requests.Total)
	assert.Equal(t, int64(1), books.Requests.Failed)

	users := snap.Services["users"]
	assert.Equal(t, int64(1), users.Requests.Total)
	assert.Equal(t, int64(0), users.Requests.Failed)
}

func TestSnapshotIncludesErrorRate(t *testing.T) {
	s, reg := newTestService(t, "books")

	for i := 0; i < 10; i++ {
		reg.RecordRequest("books", registry.RequestOutcome{Success: i >= 6, ResponseTime: 5})
	}

	snap := s.GetMetrics()
	assert.InDelta(t, 60.0, snap.Services["books"].ErrorRate, 0.001)
}

func TestGetSummary(t *testing.T) {
	s, reg := newTestService(t, "books", "users", "chats")

	reg.UpdateHealth("books", registry.HealthUpdate{Status: "operational"})
	reg.UpdateHealth("users", registry.HealthUpdate{Status: "operational"})
	reg.UpdateHealth("chats", registry.HealthUpdate{Status: "down", Error: "refused"})

	s.RecordRequest("books", true, time.Millisecond)
	s.RecordRequest("chats", false, time.Millisecond)

	sum := s.GetSummary()

	assert.Equal(t, registry.StatusDown, sum.OverallStatus)
	assert.Equal(t, int64(2), sum.TotalRequests)
	assert.InDelta(t, 50.0, sum.SuccessRate, 0.001)
	assert.Equal(t, 2, sum.ServicesUp)
	assert.Equal(t, 3, sum.ServicesTotal)
}

func TestSuccessRateNoTraffic(t *testing.T) {
	assert.Equal(t, float64(100), counters{}.successRate())
	assert.InDelta(t, 75.0, counters{Total: 4, Success: 3, Failed: 1}.successRate(), 0.001)
}
