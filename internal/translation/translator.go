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

// Package translation wraps the managed translation service with single-text,
// batched and fan-out helpers.
package translation

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/chunker"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// AutoDetect asks the provider to detect the source language
const AutoDetect = "auto"

// DefaultMaxBytes is the per-call text ceiling, below the provider's 10000 byte limit
const DefaultMaxBytes = 9500

// Result is the outcome of a single translation
type Result struct {
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Translator translates one text
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (Result, error)
}

// Client is the part of the Translate API this package uses
type Client interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// AWSTranslator translates through Amazon Translate
type AWSTranslator struct {
	client   Client
	maxBytes int
	logger   *zap.Logger
}

// NewAWSTranslator creates a translator; maxBytes <= 0 selects DefaultMaxBytes
func NewAWSTranslator(client Client, maxBytes int, logger *zap.Logger) *AWSTranslator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &AWSTranslator{client: client, maxBytes: maxBytes, logger: logger}
}

// Translate translates text from source to target. Blank text returns an empty
// result without calling the service; oversized text is truncated.
func (t *AWSTranslator) Translate(ctx context.Context, text, source, target string) (Result, error) {
	if source == "" {
		source = AutoDetect
	}

	result := Result{SourceLanguage: source, TargetLanguage: target}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	output, err := t.client.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(chunker.TruncateBytes(text, t.maxBytes)),
		SourceLanguageCode: aws.String(source),
		TargetLanguageCode: aws.String(target),
	})
	if err != nil {
		t.logger.Error("Translate call failed",
			zap.String("source_language", source),
			zap.String("target_language", target),
			zap.Error(err))
		return result, resilience.WrapDependency("translate", err)
	}

	result.TranslatedText = aws.ToString(output.TranslatedText)
	if detected := aws.ToString(output.SourceLanguageCode); detected != "" {
		result.SourceLanguage = detected
	}

	return result, nil
}
