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

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// ErrPhotoNotImage is returned when the preprocessing photo is not an image
var ErrPhotoNotImage = resilience.NewSentinel("accident_photo must be an image", resilience.ErrInvalidInput)

// ErrDescriptionRequired is returned for a blank claim description
var ErrDescriptionRequired = resilience.NewSentinel("claim_description is required", resilience.ErrInvalidInput)

// Preprocessor analyzes a claim and hands it to the aggregate function for storage
type Preprocessor struct {
	text     TextAnalyzer
	images   ImageAnalyzer
	invoker  aggregate.Invoker
	maxBytes int64
	logger   *zap.Logger
}

// NewPreprocessor creates a Preprocessor
func NewPreprocessor(text TextAnalyzer, images ImageAnalyzer, invoker aggregate.Invoker, maxBytes int64, logger *zap.Logger) *Preprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{text: text, images: images, invoker: invoker, maxBytes: maxBytes, logger: logger}
}

// Preprocess runs text and image analysis and returns the stored claim
func (p *Preprocessor) Preprocess(ctx context.Context, description string, photo Upload) (aggregate.Record, error) {
	if strings.TrimSpace(description) == "" {
		return aggregate.Record{}, ErrDescriptionRequired
	}
	fileType, err := ValidateFile(photo, p.maxBytes)
	if err != nil {
		return aggregate.Record{}, err
	}
	if fileType != FileTypeImage {
		return aggregate.Record{}, ErrPhotoNotImage
	}

	lang, err := p.text.DetectLanguage(ctx, description)
	if err != nil {
		p.logger.Warn("Language detection failed, assuming default", zap.Error(err))
	}

	analysis, err := p.text.Analyze(ctx, description, lang.Code)
	if err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to analyze claim text: %w", err)
	}
	p.logger.Info("Text analysis complete",
		zap.String("language", lang.Code),
		zap.String("sentiment", analysis.Sentiment.Sentiment))

	labels, err := p.images.Analyze(ctx, photo.Data)
	if err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to analyze accident photo: %w", err)
	}
	p.logger.Info("Image analysis complete",
		zap.Int("labels", len(labels.Labels)),
		zap.Int("text_detections", len(labels.TextDetections)))

	record, err := p.invoker.Invoke(ctx, aggregate.Request{
		ClaimDescription: description,
		ImageBytes:       hex.EncodeToString(photo.Data),
		ImageFilename:    photo.Filename,
		ComprehendResult: aggregate.ComprehendSummary{
			DetectedLanguage: lang.Code,
			LanguageScore:    lang.Score,
			Analysis:         analysis,
		},
		RekognitionResult: labels,
	})
	if err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to store claim: %w", err)
	}

	p.logger.Info("Claim preprocessing complete",
		zap.String("claim_id", record.ClaimID),
		zap.String("object", record.Storage.URL))
	return record, nil
}
