package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func probe(t *testing.T, endpoint http.HandlerFunc, path string) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	endpoint(w, req)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestLiveEndpoint_AlwaysOK(t *testing.T) {
	h := New()

	w, body := probe(t, h.LiveEndpoint, "/livez")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())

	w, body := probe(t, h.ReadyEndpoint, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", body.Status)
}

func TestReadyEndpoint_ReadyAndPassing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())
	h.SetReady(true)

	w, body := probe(t, h.ReadyEndpoint, "/readyz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())
	h.AddReadinessCheck("cache", time.Second, failingCheck("connection refused"))
	h.SetReady(true)

	h.checks[0].run(context.Background())
	h.checks[1].run(context.Background())

	w, body := probe(t, h.ReadyEndpoint, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["cache"])
	assert.NotContains(t, body.Checks, "db")
}

func TestReadyEndpoint_SetReadyFalseDrains(t *testing.T) {
	h := New()
	h.SetReady(true)

	w, _ := probe(t, h.ReadyEndpoint, "/readyz")
	require.Equal(t, http.StatusOK, w.Code)

	h.SetReady(false)

	w, _ = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStartRunsChecks(t *testing.T) {
	h := New()
	var mu sync.Mutex
	runs := 0
	h.AddReadinessCheck("counter", time.Second, func(_ context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	h.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, runs, 2, "check should run immediately and then on the ticker")
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.AddReadinessCheck("noop", time.Second, passingCheck())
	h.Start(context.Background(), time.Second)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddReadinessCheck("a", time.Second, failingCheck("err"))
	h.AddReadinessCheck("b", time.Second, passingCheck())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
				w := httptest.NewRecorder()
				h.ReadyEndpoint(w, req)
			}
		}()
	}
	wg.Wait()
	h.Stop()
}
