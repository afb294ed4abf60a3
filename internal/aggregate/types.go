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

// Package aggregate stores preprocessed claims: the accident photo goes to the
// object store and the claim record to the claim store.
package aggregate

import (
	"context"

	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/staging"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
	"github.com/your-org/ai-services-demos/internal/vision"
)

// ErrClaimNotFound is returned by claim stores for unknown claim ids
var ErrClaimNotFound = resilience.NewSentinel("Claim not found", resilience.ErrNotFound)

// ComprehendSummary is the text analysis sent along with a claim
type ComprehendSummary struct {
	DetectedLanguage string  `json:"detected_language"`
	LanguageScore    float64 `json:"language_score"`
	textanalysis.Analysis
}

// Request is the payload accepted by the aggregate function. ImageBytes is hex encoded.
type Request struct {
	ClaimDescription  string            `json:"claim_description"`
	ImageBytes        string            `json:"image_bytes"`
	ImageFilename     string            `json:"image_filename"`
	ComprehendResult  ComprehendSummary `json:"comprehend_result"`
	RekognitionResult vision.Result     `json:"rekognition_result"`
}

// Record is a stored claim
type Record struct {
	ClaimID          string         `json:"claimId"`
	CreatedAt        string         `json:"created_at"`
	ClaimDescription string         `json:"claim_description"`
	DetectedLanguage string         `json:"detected_language"`
	Sentiment        string         `json:"sentiment"`
	Labels           []string       `json:"labels"`
	Storage          staging.Object `json:"storage"`
}

// ClaimStore persists claim records
type ClaimStore interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, claimID string) (Record, error)
	Ping(ctx context.Context) error
}
