package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersNoopBeforeRegister(t *testing.T) {
	if regOK.Load() {
		t.Skip("metrics already registered by an earlier test")
	}
	before := testutil.ToFloat64(taskSpawns.WithLabelValues(SpawnOK))
	IncSpawn(SpawnOK)
	assert.Equal(t, before, testutil.ToFloat64(taskSpawns.WithLabelValues(SpawnOK)))
}

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg), "second Register is a no-op")

	IncSpawn(SpawnOK)
	IncSpawn(SpawnFailed)
	IncKill(KillKilled)
	IncKill(KillMissing)
	SetTrackedTasks(3)
	ObserveDiscovery(DiscoveryFound, 0.3)
	IncNotifyFailure()

	assert.GreaterOrEqual(t, testutil.ToFloat64(taskSpawns.WithLabelValues(SpawnOK)), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(taskKills.WithLabelValues(KillMissing)), 1.0)
	assert.Equal(t, 3.0, testutil.ToFloat64(trackedTasks))
	assert.GreaterOrEqual(t, testutil.ToFloat64(discoveries.WithLabelValues(DiscoveryFound)), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(notifyFailures), 1.0)

	n, err := testutil.GatherAndCount(reg, "graphdev_task_spawns_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegisterAlreadyRegisteredIsTolerated(t *testing.T) {
	regOK.Store(false)
	defer regOK.Store(true)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(taskSpawns))
	require.NoError(t, Register(reg))
}

func TestHandlerServes(t *testing.T) {
	regOK.Store(false)
	require.NoError(t, Register(prometheus.DefaultRegisterer))
	IncSpawn(SpawnOK)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "graphdev_task_spawns_total"))
}

func TestNewServerRoutesMetrics(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
