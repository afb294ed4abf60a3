// Copyright 2025 AI Services Demos Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package health reports the readiness of a service and its backing stores
package health

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

const (
	// StatusHealthy represents healthy status
	StatusHealthy = "healthy"
	// StatusUnhealthy represents unhealthy status
	StatusUnhealthy = "unhealthy"
	// StatusDegraded represents degraded status
	StatusDegraded = "degraded"
	// DefaultTimeout bounds one full round of checks
	DefaultTimeout = 5 * time.Second
)

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Status    string    `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the body of GET /health
type Response struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Environment  string                 `json:"environment"`
	UptimeSec    int64                  `json:"uptime_seconds"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Pinger is anything that can prove it is reachable; claim stores and
// staging buckets both satisfy it
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping implements Pinger
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Manager runs the registered checks for a service
type Manager struct {
	service   string
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.RWMutex
	checkers map[string]Pinger
}

// NewManager creates a new health check manager
func NewManager(service, version string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		service:   service,
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultTimeout,
		logger:    logger,
		checkers:  make(map[string]Pinger),
	}
}

// SetTimeout sets the timeout for a round of checks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// Add registers a dependency under name, replacing any previous one
func (m *Manager) Add(name string, p Pinger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = p
}

// Names returns the registered dependency names, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.checkers))
	for name := range m.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check pings every dependency concurrently. A timeout degrades the service,
// any other failure makes it unhealthy.
func (m *Manager) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.RLock()
	checkers := make(map[string]Pinger, len(m.checkers))
	for name, p := range m.checkers {
		checkers[name] = p
	}
	m.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]CheckResult, len(checkers))
	)
	for name, p := range checkers {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			result := runCheck(ctx, p)
			if result.Status != StatusHealthy {
				m.logger.Warn("Dependency check failed",
					zap.String("dependency", name),
					zap.String("status", result.Status),
					zap.String("error", result.Error))
			}
			resMu.Lock()
			results[name] = result
			resMu.Unlock()
		}(name, p)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, r := range results {
		switch {
		case r.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case r.Status == StatusDegraded && overall != StatusUnhealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:       overall,
		Service:      m.service,
		Version:      m.version,
		Environment:  getEnvironment(),
		UptimeSec:    int64(time.Since(m.startTime).Seconds()),
		Dependencies: results,
		Metadata:     systemMetadata(),
		Timestamp:    time.Now().UTC(),
	}
}

// Handler serves GET /health. Degraded still answers 200.
func (m *Manager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := m.Check(c.Request.Context())

		status := http.StatusOK
		if result.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	}
}

// RegisterRoutes registers GET /health
func (m *Manager) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", m.Handler())
}

func runCheck(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	err := p.Ping(ctx)
	result := CheckResult{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		if isTemporary(err) {
			result.Status = StatusDegraded
		}
		result.Error = err.Error()
	}
	return result
}

func isTemporary(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, resilience.ErrTimeout)
}

func systemMetadata() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": mem.Alloc,
		"process_id":   os.Getpid(),
	}
}

func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "unknown"
	}
	return env
}
