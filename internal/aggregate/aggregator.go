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

package aggregate

import (
	"context"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/staging"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
)

// ClaimKeyPrefix is the object key prefix for claim images
const ClaimKeyPrefix = "claims/"

var (
	// ErrInvalidImage is returned when image_bytes is missing or not hex
	ErrInvalidImage = resilience.NewSentinel("image_bytes must be a non-empty hex string", resilience.ErrInvalidInput)
	// ErrMissingDescription is returned for a blank claim description
	ErrMissingDescription = resilience.NewSentinel("claim_description is required", resilience.ErrInvalidInput)
)

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// Aggregator stores claims
type Aggregator struct {
	objects staging.Store
	claims  ClaimStore
	now     func() time.Time
	logger  *zap.Logger
}

// NewAggregator creates an Aggregator
func NewAggregator(objects staging.Store, claims ClaimStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{objects: objects, claims: claims, now: time.Now, logger: logger}
}

// Aggregate stores the image under claims/<claimId>/<filename> and writes the
// claim record. The image is removed again when the record cannot be written.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (Record, error) {
	if strings.TrimSpace(req.ClaimDescription) == "" {
		return Record{}, ErrMissingDescription
	}
	image, err := hex.DecodeString(req.ImageBytes)
	if err != nil || len(image) == 0 {
		return Record{}, ErrInvalidImage
	}

	claimID := uuid.NewString()
	filename := path.Base(req.ImageFilename)
	if filename == "." || filename == "/" || filename == "" {
		filename = "accident_photo"
	}
	key := ClaimKeyPrefix + claimID + "/" + filename

	obj, err := a.objects.Put(ctx, key, image, contentType(filename))
	if err != nil {
		return Record{}, fmt.Errorf("failed to store claim image: %w", err)
	}

	sentiment := req.ComprehendResult.Sentiment.Sentiment
	if sentiment == "" {
		sentiment = textanalysis.SentimentNeutral
	}

	record := Record{
		ClaimID:          claimID,
		CreatedAt:        a.now().UTC().Format(time.RFC3339),
		ClaimDescription: req.ClaimDescription,
		DetectedLanguage: req.ComprehendResult.DetectedLanguage,
		Sentiment:        sentiment,
		Labels:           req.RekognitionResult.LabelNames(),
		Storage:          obj,
	}

	if err := a.claims.Save(ctx, record); err != nil {
		if delErr := a.objects.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			a.logger.Warn("Failed to remove orphaned claim image",
				zap.String("key", key),
				zap.Error(delErr))
		}
		return Record{}, fmt.Errorf("failed to save claim record: %w", err)
	}

	a.logger.Info("Claim stored",
		zap.String("claim_id", claimID),
		zap.String("object", obj.URL),
		zap.Int("labels", len(record.Labels)))
	return record, nil
}

// Get returns a stored claim
func (a *Aggregator) Get(ctx context.Context, claimID string) (Record, error) {
	return a.claims.Get(ctx, claimID)
}

func contentType(filename string) string {
	if ct, ok := imageContentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
