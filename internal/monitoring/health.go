package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/result"
)

// HealthStatus represents the state of a running benchmark batch
type HealthStatus struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	RunID     string        `json:"run_id"`
	Uptime    time.Duration `json:"uptime"`
	System    SystemInfo    `json:"system"`
	Run       RunInfo       `json:"run"`
	Alerts    []Alert       `json:"alerts"`
}

// SystemInfo contains system-level information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	MemoryMB     int    `json:"memory_mb"`
	MemoryUsedMB int    `json:"memory_used_mb"`
}

// RunInfo summarizes the test runs seen so far
type RunInfo struct {
	TestsRun   int            `json:"tests_run"`
	Failures   int            `json:"failures"`
	Results    map[string]int `json:"results"`
	LastTest   string         `json:"last_test,omitempty"`
	LastResult string         `json:"last_result,omitempty"`
	LastRunAt  time.Time      `json:"last_run_at,omitempty"`
}

// Alert represents a failed run worth looking at
type Alert struct {
	Level     string    `json:"level"` // warning, error
	Test      string    `json:"test"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthMonitor serves /health, /status and /metrics while a batch runs
type HealthMonitor struct {
	startTime time.Time
	version   string
	runID     string
	server    *http.Server
	listener  net.Listener
	mu        sync.RWMutex
	alerts    []Alert
	run       RunInfo
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(version, runID string) *HealthMonitor {
	return &HealthMonitor{
		startTime: time.Now(),
		version:   version,
		runID:     runID,
		alerts:    make([]Alert, 0),
		run:       RunInfo{Results: make(map[string]int)},
	}
}

// Handler exposes the monitor's routes
func (hm *HealthMonitor) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", hm.handleHealth)
	mux.HandleFunc("/healthz", hm.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", hm.handleDetailedStatus)
	mux.HandleFunc("/admin/alerts", hm.handleAlerts)
	mux.HandleFunc("/admin/clear-alerts", hm.handleClearAlerts)

	return mux
}

// Start binds addr and serves in the background. It returns once the
// listener is open.
func (hm *HealthMonitor) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("monitor listen on %s: %w", addr, err)
	}
	hm.listener = ln
	hm.server = &http.Server{
		Handler:      hm.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Log.Info("Health monitor starting", "addr", ln.Addr().String())
	go func() {
		if err := hm.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Health monitor stopped", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful after Start(":0")
func (hm *HealthMonitor) Addr() string {
	if hm.listener == nil {
		return ""
	}
	return hm.listener.Addr().String()
}

// Stop stops health monitoring
func (hm *HealthMonitor) Stop(ctx context.Context) error {
	if hm.server != nil {
		return hm.server.Shutdown(ctx)
	}
	return nil
}

// RecordRun records the outcome of one test run
func (hm *HealthMonitor) RecordRun(name string, r result.Result) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.run.TestsRun++
	hm.run.Results[r.String()]++
	hm.run.LastTest = name
	hm.run.LastResult = r.String()
	hm.run.LastRunAt = time.Now()

	switch r {
	case result.Error, result.VerificationFail, result.KernelBuildError:
		hm.run.Failures++
		hm.addAlertLocked("error", name, r.Info().Message)
	case result.KernelNotFound, result.InvalidArgs:
		hm.addAlertLocked("warning", name, r.Info().Message)
	}
}

func (hm *HealthMonitor) addAlertLocked(level, test, message string) {
	hm.alerts = append(hm.alerts, Alert{
		Level:     level,
		Test:      test,
		Message:   message,
		Timestamp: time.Now(),
	})

	// Keep only last 100 alerts
	if len(hm.alerts) > 100 {
		hm.alerts = hm.alerts[1:]
	}
}

// HTTP Handlers

func (hm *HealthMonitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := hm.Status()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      status.Status,
		"timestamp":   status.Timestamp.Format(time.RFC3339),
		"run_id":      status.RunID,
		"uptime":      status.Uptime.String(),
		"tests_run":   status.Run.TestsRun,
		"last_result": status.Run.LastResult,
	})
}

func (hm *HealthMonitor) handleDetailedStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hm.Status())
}

func (hm *HealthMonitor) handleAlerts(w http.ResponseWriter, r *http.Request) {
	hm.mu.RLock()
	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)
	hm.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

func (hm *HealthMonitor) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hm.mu.Lock()
	hm.alerts = hm.alerts[:0]
	hm.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "alerts cleared"})
}

// Status snapshots the current health. A batch with failed runs is
// degraded.
func (hm *HealthMonitor) Status() HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := "healthy"
	if hm.run.Failures > 0 {
		status = "degraded"
	}

	run := hm.run
	run.Results = make(map[string]int, len(hm.run.Results))
	for k, v := range hm.run.Results {
		run.Results[k] = v
	}
	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   hm.version,
		RunID:     hm.runID,
		Uptime:    time.Since(hm.startTime),
		System:    systemInfo(),
		Run:       run,
		Alerts:    alerts,
	}
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		MemoryMB:     int(m.Sys / 1024 / 1024),
		MemoryUsedMB: int(m.Alloc / 1024 / 1024),
	}
}
