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

// Package jobs waits for long-running provider jobs to reach a terminal state.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// Status is the state reported by a provider job
type Status string

// Job states
const (
	StatusInProgress     Status = "IN_PROGRESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusSucceeded      Status = "SUCCEEDED"
	StatusFailed         Status = "FAILED"
)

// Defaults used when a Poller field is zero
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

var (
	// ErrJobFailed is returned when the provider reports FAILED
	ErrJobFailed = resilience.NewSentinel("Document analysis job failed", resilience.ErrDependency)
	// ErrTimeout is returned when the job is still running after MaxAttempts checks
	ErrTimeout = resilience.NewSentinel("Document analysis job did not finish in time", resilience.ErrTimeout)
	// ErrUnknownStatus is returned for a status outside the known set
	ErrUnknownStatus = resilience.NewSentinel("Document analysis job reported an unknown status", resilience.ErrDependency)
)

// CheckFunc reports the current job status and the provider's status message
type CheckFunc func(ctx context.Context) (Status, string, error)

// Poller checks a job at a fixed interval until it finishes
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *zap.Logger
}

// NewPoller creates a poller with the given interval and attempt limit
func NewPoller(interval time.Duration, maxAttempts int, logger *zap.Logger) *Poller {
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, Logger: logger}
}

// Wait sleeps one interval before every check. It returns nil on SUCCEEDED,
// ErrJobFailed on FAILED, ErrTimeout once MaxAttempts checks saw a running job,
// and ctx.Err() when the context is cancelled while waiting.
func (p *Poller) Wait(ctx context.Context, jobID string, check CheckFunc) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		status, message, err := check(ctx)
		if err != nil {
			return fmt.Errorf("failed to check job %s: %w", jobID, err)
		}

		switch status {
		case StatusSucceeded:
			logger.Info("Job completed",
				zap.String("job_id", jobID),
				zap.Int("attempts", attempt))
			return nil
		case StatusFailed:
			logger.Warn("Job failed",
				zap.String("job_id", jobID),
				zap.String("status_message", message))
			return fmt.Errorf("%w: %s", ErrJobFailed, message)
		case StatusInProgress, StatusPartialSuccess:
			logger.Debug("Job still running",
				zap.String("job_id", jobID),
				zap.String("status", string(status)),
				zap.Int("attempt", attempt))
		default:
			return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
		}

		timer.Reset(interval)
	}

	logger.Warn("Job did not finish",
		zap.String("job_id", jobID),
		zap.Int("max_attempts", maxAttempts))
	return fmt.Errorf("%w after %d attempts", ErrTimeout, maxAttempts)
}
