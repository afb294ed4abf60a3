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
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/chunker"
	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/document"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/speech"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
	"github.com/your-org/ai-services-demos/internal/translation"
	"github.com/your-org/ai-services-demos/internal/vision"
)

// Pipeline step names used in the processing_status map
const (
	StepLanguageDetection = "language_detection"
	StepClaimComprehend   = "claim_comprehend"
	StepClaimTranslation  = "claim_translation"
	StepClaimPolly        = "claim_polly"
)

const (
	defaultSnippetLength = 1000
	defaultStepTimeout   = 2 * time.Minute
	// the async document path can poll for several minutes
	documentStepTimeout = 6 * time.Minute
)

// TextAnalyzer detects language and analyzes text
type TextAnalyzer interface {
	DetectLanguage(ctx context.Context, text string) (textanalysis.Language, error)
	Analyze(ctx context.Context, text, languageCode string) (textanalysis.Analysis, error)
}

// DocumentAnalyzer extracts text, forms and tables
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, data []byte, isPDF bool) (document.Extraction, error)
}

// ImageAnalyzer labels images
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (vision.Result, error)
}

// Synthesizer renders speech
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (speech.Result, error)
}

// BatchTranslator translates many short texts at once
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string, source, target string) []string
}

// Services bundles the providers used by the pipeline
type Services struct {
	Text       TextAnalyzer
	Documents  DocumentAnalyzer
	Images     ImageAnalyzer
	Speech     Synthesizer
	Batch      BatchTranslator
	Translator translation.Translator
}

// Processor runs the claim pipeline. Feature flags can be swapped while requests run.
type Processor struct {
	services Services
	limits   config.LimitsConfig
	features atomic.Pointer[config.FeatureConfig]
	logger   *zap.Logger
}

// NewProcessor creates a Processor
func NewProcessor(services Services, limits config.LimitsConfig, features config.FeatureConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{services: services, limits: limits, logger: logger}
	p.SetFeatures(features)
	return p
}

// SetFeatures replaces the feature flags used by later requests
func (p *Processor) SetFeatures(f config.FeatureConfig) {
	p.features.Store(&f)
	p.logger.Info("Feature flags updated",
		zap.Bool("translation", f.EnableTranslation),
		zap.Bool("polly", f.EnablePolly),
		zap.Bool("rekognition", f.EnableRekognition))
}

// Features returns the current feature flags
func (p *Processor) Features() config.FeatureConfig {
	return *p.features.Load()
}

// Process runs every step for claim. Step failures are recorded in the
// status map and never abort the remaining steps.
func (p *Processor) Process(ctx context.Context, claim Claim) ProcessingResult {
	features := p.Features()
	status := NewStatusLog()

	lang, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (textanalysis.Language, error) {
		return p.services.Text.DetectLanguage(ctx, claim.Description)
	})
	if err != nil {
		lang = textanalysis.DefaultLanguage
	}
	status.Record(StepLanguageDetection, result(err))
	p.logger.Info("Processing claim description", zap.String("language", lang.Code))

	desc := ClaimDescriptionResult{
		OriginalText:     claim.Description,
		DetectedLanguage: lang.Code,
		LanguageScore:    lang.Score,
		Comprehend:       textanalysis.EmptyAnalysis(),
	}

	analysis, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (textanalysis.Analysis, error) {
		return p.services.Text.Analyze(ctx, claim.Description, lang.Code)
	})
	if err == nil {
		desc.Comprehend = analysis
	}
	status.Record(StepClaimComprehend, result(err))

	translate := lang.Code != "en" && features.EnableTranslation
	if translate {
		translated := p.translateAnalysis(ctx, desc.Comprehend, lang.Code)
		desc.TranslatedComprehend = &translated
		status.Record(StepClaimTranslation, Completed())
	}

	if features.EnablePolly {
		snippetLength := p.limits.PollySnippetLength
		if snippetLength <= 0 {
			snippetLength = defaultSnippetLength
		}
		audio, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (speech.Result, error) {
			return p.services.Speech.Synthesize(ctx, chunker.TruncateRunes(claim.Description, snippetLength), speech.VoiceFor(lang.Code))
		})
		if err == nil {
			desc.Polly = &audio
		}
		status.Record(StepClaimPolly, result(err))
	}

	files := []FileResult{}
	if claim.AccidentPhoto.Filename != "" {
		files = append(files, p.processFile(ctx, claim.AccidentPhoto, true, lang.Code, translate, features, status))
	}
	for _, form := range claim.Forms {
		if form.Filename == "" {
			continue
		}
		files = append(files, p.processFile(ctx, form, false, lang.Code, translate, features, status))
	}

	return ProcessingResult{
		DetectedLanguage: lang.Code,
		ClaimDescription: desc,
		Files:            files,
		ProcessingStatus: status.Map(),
	}
}

func (p *Processor) processFile(ctx context.Context, u Upload, accidentPhoto bool, lang string, translate bool, features config.FeatureConfig, status *StatusLog) FileResult {
	fr := FileResult{Filename: u.Filename, FileType: FileTypeUnknown}

	fileType, err := ValidateFile(u, p.limits.MaxFileBytes)
	if err != nil {
		p.logger.Warn("Rejected file", zap.String("filename", u.Filename), zap.Error(err))
		fr.Error = err.Error()
		return fr
	}
	fr.FileType = fileType
	isImage := fileType == FileTypeImage

	p.logger.Info("Processing file",
		zap.String("filename", u.Filename),
		zap.String("file_type", fileType),
		zap.Int("size", len(u.Data)),
		zap.Bool("accident_photo", accidentPhoto))

	if accidentPhoto {
		status.Record(u.Filename+"_textract", Skipped("accident photo"))
	} else {
		extraction, err := step(ctx, p, documentStepTimeout, func(ctx context.Context) (document.Extraction, error) {
			return p.services.Documents.Analyze(ctx, u.Data, fileType == FileTypePDF)
		})
		if err != nil {
			fr.Textract = &TextractResult{
				Extraction: document.Extraction{KeyValuePairs: []document.KeyValue{}, Tables: []document.Table{}},
				Error:      err.Error(),
			}
		} else {
			fr.Textract = &TextractResult{Extraction: extraction}
		}
		status.Record(u.Filename+"_textract", result(err))
	}

	if isImage {
		fr.Rekognition = emptyVision()
	}
	switch {
	case isImage && !accidentPhoto:
		status.Record(u.Filename+"_rekognition", Skipped("insurance form"))
	case isImage && !features.EnableRekognition:
		status.Record(u.Filename+"_rekognition", Skipped("rekognition disabled"))
	case isImage:
		labels, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (vision.Result, error) {
			return p.services.Images.Analyze(ctx, u.Data)
		})
		if err == nil {
			if labels.Labels == nil {
				labels.Labels = []vision.Label{}
			}
			fr.Rekognition = &labels
		}
		status.Record(u.Filename+"_rekognition", result(err))
	}

	var extracted string
	if fr.Textract != nil {
		extracted = fr.Textract.FullText
	}
	if extracted != "" {
		analysis, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (textanalysis.Analysis, error) {
			return p.services.Text.Analyze(ctx, extracted, "en")
		})
		if err == nil {
			fr.Comprehend = &analysis
		}
		status.Record(u.Filename+"_comprehend", result(err))
	}

	if !translate {
		return fr
	}

	if extracted != "" {
		out, err := step(ctx, p, defaultStepTimeout, func(ctx context.Context) (translation.Result, error) {
			return p.services.Translator.Translate(ctx, extracted, translation.AutoDetect, lang)
		})
		if err == nil && out.TranslatedText != "" {
			translated := *fr.Textract
			translated.TranslatedText = out.TranslatedText
			fr.TranslatedTextract = &translated
		}
		status.Record(u.Filename+"_translation", result(err))
	}

	if fr.Comprehend != nil {
		translated := p.translateAnalysis(ctx, *fr.Comprehend, lang)
		fr.TranslatedComprehend = &translated
	}

	if fr.Rekognition != nil && len(fr.Rekognition.Labels) > 0 {
		names := p.services.Batch.TranslateBatch(ctx, fr.Rekognition.LabelNames(), translation.AutoDetect, lang)
		for i := range fr.Rekognition.Labels {
			fr.Rekognition.Labels[i].TranslatedName = names[i]
		}
	}

	return fr
}

func emptyVision() *vision.Result {
	return &vision.Result{Labels: []vision.Label{}, TextDetections: []vision.TextDetection{}}
}

// translateAnalysis returns a copy of a with translated entity and key phrase texts
func (p *Processor) translateAnalysis(ctx context.Context, a textanalysis.Analysis, target string) textanalysis.Analysis {
	out := textanalysis.Analysis{
		Entities:   append([]textanalysis.Entity{}, a.Entities...),
		KeyPhrases: append([]textanalysis.KeyPhrase{}, a.KeyPhrases...),
		Sentiment:  a.Sentiment,
	}

	if len(out.Entities) > 0 {
		texts := make([]string, len(out.Entities))
		for i, e := range out.Entities {
			texts[i] = e.Text
		}
		for i, t := range p.services.Batch.TranslateBatch(ctx, texts, translation.AutoDetect, target) {
			out.Entities[i].TranslatedText = t
		}
	}

	if len(out.KeyPhrases) > 0 {
		texts := make([]string, len(out.KeyPhrases))
		for i, k := range out.KeyPhrases {
			texts[i] = k.Text
		}
		for i, t := range p.services.Batch.TranslateBatch(ctx, texts, translation.AutoDetect, target) {
			out.KeyPhrases[i].TranslatedText = t
		}
	}

	return out
}

// step bounds one provider call
func step[T any](ctx context.Context, p *Processor, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	return resilience.WithTimeoutValue(ctx, timeout, p.logger, fn)
}

func result(err error) StepResult {
	if err != nil {
		return Failed(err)
	}
	return Completed()
}
