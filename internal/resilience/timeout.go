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

package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeoutSeconds is the default timeout in seconds
const DefaultTimeoutSeconds = 30

// TimeoutFunc is a function that can be executed with a timeout
type TimeoutFunc func(ctx context.Context) error

// WithTimeout executes a function with a timeout. The function receives a context
// that is cancelled when the timeout fires; the returned error then wraps ErrTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration, logger *zap.Logger, fn TimeoutFunc) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- fn(timeoutCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Debug("Operation completed with error",
				zap.Error(err),
				zap.Duration("timeout", timeout))
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Operation timed out",
			zap.Duration("timeout", timeout),
			zap.Error(timeoutCtx.Err()))
		return NewTimeoutError("Operation timed out", fmt.Errorf("%w: %w", ErrTimeout, timeoutCtx.Err()))
	}
}

// WithTimeoutValue is WithTimeout for functions that produce a value. The value
// of a call that outlives the timeout is discarded.
func WithTimeoutValue[T any](ctx context.Context, timeout time.Duration, logger *zap.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	results := make(chan T, 1)
	err := WithTimeout(ctx, timeout, logger, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			results <- v
		}
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-results, nil
}
