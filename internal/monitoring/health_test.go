package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bench/internal/result"
)

func TestHealthTracksRuns(t *testing.T) {
	hm := NewHealthMonitor("1.2.3", "run-1")
	srv := httptest.NewServer(hm.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	hm.RecordRun("UsmCopy(api=l0 size=1KB)", result.Success)
	hm.RecordRun("UsmCopy(api=ocl size=1KB)", result.Error)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, 2.0, body["tests_run"])
	assert.Equal(t, "Error", body["last_result"])
}

func TestStatusAndAlerts(t *testing.T) {
	hm := NewHealthMonitor("dev", "run-2")
	hm.RecordRun("A", result.Success)
	hm.RecordRun("B", result.KernelNotFound)
	hm.RecordRun("C", result.VerificationFail)
	hm.RecordRun("D", result.Nooped)

	status := hm.Status()
	assert.Equal(t, 4, status.Run.TestsRun)
	assert.Equal(t, 1, status.Run.Failures)
	assert.Equal(t, 1, status.Run.Results["KernelNotFound"])
	require.Len(t, status.Alerts, 2)
	assert.Equal(t, "warning", status.Alerts[0].Level)
	assert.Equal(t, "MISSING_KERNEL", status.Alerts[0].Message)
	assert.Equal(t, "error", status.Alerts[1].Level)

	srv := httptest.NewServer(hm.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/admin/clear-alerts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/admin/clear-alerts", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, hm.Status().Alerts)
}

func TestAlertsAreBounded(t *testing.T) {
	hm := NewHealthMonitor("dev", "run-3")
	for i := 0; i < 150; i++ {
		hm.RecordRun("Failing", result.Error)
	}
	assert.Len(t, hm.Status().Alerts, 100)
}

func TestStartServesMetrics(t *testing.T) {
	hm := NewHealthMonitor("dev", "run-4")
	require.NoError(t, hm.Start("127.0.0.1:0"))
	defer hm.Stop(context.Background())

	resp, err := http.Get("http://" + hm.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "go_goroutines"))
}

func TestStartRejectsBadAddress(t *testing.T) {
	hm := NewHealthMonitor("dev", "run-5")
	assert.Error(t, hm.Start("not-an-address"))
	assert.Equal(t, "", hm.Addr())
	assert.NoError(t, hm.Stop(context.Background()))
}
