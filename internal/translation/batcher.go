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

package translation

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/ai-services-demos/internal/chunker"
)

// DefaultDelimiter separates packed texts inside one translate call
const DefaultDelimiter = " ||| "

// DefaultMaxConcurrency bounds the number of translate calls in flight
const DefaultMaxConcurrency = 5

// BatchOptions configures a Batcher
type BatchOptions struct {
	Delimiter      string
	MaxBytes       int
	MaxConcurrency int
}

// Batcher packs many short texts into few translate calls
type Batcher struct {
	translator Translator
	opts       BatchOptions
	logger     *zap.Logger
}

// NewBatcher creates a batcher; zero options take the package defaults
func NewBatcher(translator Translator, opts BatchOptions, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Delimiter == "" {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Batcher{translator: translator, opts: opts, logger: logger}
}

// TranslateBatch returns one translation per input, in input order. Blank inputs
// come back empty without a call. A failed call empties only its own batch.
func (b *Batcher) TranslateBatch(ctx context.Context, texts []string, source, target string) []string {
	results := make([]string, len(texts))

	var pending []chunker.Item
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		pending = append(pending, chunker.Item{
			Index: i,
			Text:  chunker.TruncateBytes(text, b.opts.MaxBytes),
		})
	}

	batches := chunker.Pack(pending, b.opts.Delimiter, b.opts.MaxBytes)
	if len(batches) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(b.opts.MaxConcurrency)

	for _, batch := range batches {
		g.Go(func() error {
			result, err := b.translator.Translate(ctx, chunker.Join(batch, b.opts.Delimiter), source, target)
			if err != nil {
				b.logger.Warn("Translation batch failed",
					zap.Int("batch_size", len(batch)),
					zap.String("target_language", target),
					zap.Error(err))
				return nil
			}

			parts := chunker.Split(result.TranslatedText, b.opts.Delimiter, len(batch))
			for i, item := range batch {
				results[item.Index] = parts[i]
			}
			return nil
		})
	}

	// Batch failures are absorbed above; Wait only joins the goroutines
	_ = g.Wait()

	b.logger.Debug("Translated batch",
		zap.Int("texts", len(texts)),
		zap.Int("calls", len(batches)),
		zap.String("target_language", target))

	return results
}

// TranslateToMultiple translates one text into each target language in parallel.
// A target that fails falls back to the original text; a target equal to a known
// source language gets the text unchanged.
func (b *Batcher) TranslateToMultiple(ctx context.Context, text, source string, targets []string) map[string]string {
	translations := make(map[string]string, len(targets))
	if strings.TrimSpace(text) == "" {
		for _, target := range targets {
			translations[target] = ""
		}
		return translations
	}

	results := make([]string, len(targets))

	var g errgroup.Group
	g.SetLimit(b.opts.MaxConcurrency)

	for i, target := range targets {
		if source != "" && source != AutoDetect && target == source {
			results[i] = text
			continue
		}
		g.Go(func() error {
			result, err := b.translator.Translate(ctx, text, source, target)
			if err != nil {
				b.logger.Warn("Translation failed, using original text",
					zap.String("target_language", target),
					zap.Error(err))
				results[i] = text
				return nil
			}
			results[i] = result.TranslatedText
			return nil
		})
	}

	_ = g.Wait()

	for i, target := range targets {
		translations[target] = results[i]
	}
	return translations
}
