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

package claims

import "sync"

type stepState int

const (
	stepCompleted stepState = iota
	stepFailed
	stepSkipped
)

// StepResult is the outcome of one pipeline step
type StepResult struct {
	state  stepState
	reason string
}

// Completed marks a step that ran successfully
func Completed() StepResult { return StepResult{state: stepCompleted} }

// Failed marks a step that returned err
func Failed(err error) StepResult { return StepResult{state: stepFailed, reason: err.Error()} }

// Skipped marks a step that did not run
func Skipped(reason string) StepResult { return StepResult{state: stepSkipped, reason: reason} }

// OK reports whether the step completed
func (s StepResult) OK() bool { return s.state == stepCompleted }

func (s StepResult) String() string {
	switch s.state {
	case stepFailed:
		return "error: " + s.reason
	case stepSkipped:
		return "skipped (" + s.reason + ")"
	default:
		return "completed"
	}
}

// StatusLog collects step results and renders them as the processing_status map
type StatusLog struct {
	mu    sync.Mutex
	steps map[string]StepResult
}

// NewStatusLog creates an empty log
func NewStatusLog() *StatusLog {
	return &StatusLog{steps: make(map[string]StepResult)}
}

// Record stores the result of step, replacing an earlier one
func (l *StatusLog) Record(step string, result StepResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps[step] = result
}

// Map renders every recorded step
func (l *StatusLog) Map() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]string, len(l.steps))
	for name, r := range l.steps {
		out[name] = r.String()
	}
	return out
}
