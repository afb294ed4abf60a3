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

// Package textanalysis detects language, entities, key phrases and sentiment
// through Amazon Comprehend.
package textanalysis

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/ai-services-demos/internal/chunker"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// DefaultMaxLength is the number of characters sent to the provider
const DefaultMaxLength = 4500

// Sentiment labels
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentMixed    = "MIXED"
)

// DefaultLanguage is used when detection fails or finds nothing
var DefaultLanguage = Language{Code: "en", Score: 1.0}

// Language is a detected dominant language
type Language struct {
	Code  string  `json:"language_code"`
	Score float64 `json:"score"`
}

// Entity is a named entity found in text
type Entity struct {
	Text           string  `json:"text"`
	Type           string  `json:"type"`
	Score          float64 `json:"score"`
	TranslatedText string  `json:"translated_text,omitempty"`
}

// KeyPhrase is a noun phrase found in text
type KeyPhrase struct {
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
	TranslatedText string  `json:"translated_text,omitempty"`
}

// Sentiment is the overall sentiment of a text with per-label scores
type Sentiment struct {
	Sentiment string             `json:"sentiment"`
	Scores    map[string]float64 `json:"scores"`
}

// Analysis is the combined result of entity, key phrase and sentiment detection
type Analysis struct {
	Entities   []Entity    `json:"entities"`
	KeyPhrases []KeyPhrase `json:"key_phrases"`
	Sentiment  Sentiment   `json:"sentiment"`
}

// NeutralSentiment returns a NEUTRAL sentiment with no scores
func NeutralSentiment() Sentiment {
	return Sentiment{Sentiment: SentimentNeutral, Scores: map[string]float64{}}
}

// EmptyAnalysis returns an analysis with empty lists and NEUTRAL sentiment
func EmptyAnalysis() Analysis {
	return Analysis{
		Entities:   []Entity{},
		KeyPhrases: []KeyPhrase{},
		Sentiment:  NeutralSentiment(),
	}
}

// Client is the part of the Comprehend API this package uses
type Client interface {
	DetectDominantLanguage(ctx context.Context, params *comprehend.DetectDominantLanguageInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectDominantLanguageOutput, error)
	DetectEntities(ctx context.Context, params *comprehend.DetectEntitiesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectEntitiesOutput, error)
	DetectKeyPhrases(ctx context.Context, params *comprehend.DetectKeyPhrasesInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectKeyPhrasesOutput, error)
	DetectSentiment(ctx context.Context, params *comprehend.DetectSentimentInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
}

// Analyzer runs Comprehend detections
type Analyzer struct {
	client    Client
	maxLength int
	logger    *zap.Logger
}

// NewAnalyzer creates an Analyzer; maxLength <= 0 selects DefaultMaxLength
func NewAnalyzer(client Client, maxLength int, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Analyzer{client: client, maxLength: maxLength, logger: logger}
}

// DetectLanguage returns the dominant language of text. On failure it returns
// DefaultLanguage together with the error.
func (a *Analyzer) DetectLanguage(ctx context.Context, text string) (Language, error) {
	if strings.TrimSpace(text) == "" {
		return DefaultLanguage, nil
	}

	out, err := a.client.DetectDominantLanguage(ctx, &comprehend.DetectDominantLanguageInput{
		Text: aws.String(chunker.TruncateRunes(text, a.maxLength)),
	})
	if err != nil {
		a.logger.Error("Language detection failed", zap.Error(err))
		return DefaultLanguage, resilience.WrapDependency("comprehend", err)
	}
	if len(out.Languages) == 0 {
		return DefaultLanguage, nil
	}

	dominant := out.Languages[0]
	code := aws.ToString(dominant.LanguageCode)
	if code == "" {
		code = DefaultLanguage.Code
	}
	return Language{Code: code, Score: float64(aws.ToFloat32(dominant.Score))}, nil
}

// Analyze detects entities, key phrases and sentiment in parallel. Blank text
// returns EmptyAnalysis without calling the provider.
func (a *Analyzer) Analyze(ctx context.Context, text, languageCode string) (Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return EmptyAnalysis(), nil
	}
	if languageCode == "" {
		languageCode = DefaultLanguage.Code
	}

	input := aws.String(chunker.TruncateRunes(text, a.maxLength))
	lang := types.LanguageCode(languageCode)
	result := EmptyAnalysis()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := a.client.DetectEntities(gctx, &comprehend.DetectEntitiesInput{Text: input, LanguageCode: lang})
		if err != nil {
			return err
		}
		for _, e := range out.Entities {
			result.Entities = append(result.Entities, Entity{
				Text:  aws.ToString(e.Text),
				Type:  string(e.Type),
				Score: float64(aws.ToFloat32(e.Score)),
			})
		}
		return nil
	})
	g.Go(func() error {
		out, err := a.client.DetectKeyPhrases(gctx, &comprehend.DetectKeyPhrasesInput{Text: input, LanguageCode: lang})
		if err != nil {
			return err
		}
		for _, p := range out.KeyPhrases {
			result.KeyPhrases = append(result.KeyPhrases, KeyPhrase{
				Text:  aws.ToString(p.Text),
				Score: float64(aws.ToFloat32(p.Score)),
			})
		}
		return nil
	})
	g.Go(func() error {
		s, err := a.detectSentiment(gctx, input, lang)
		if err != nil {
			return err
		}
		result.Sentiment = s
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Text analysis failed",
			zap.String("language", languageCode),
			zap.Error(err))
		return EmptyAnalysis(), resilience.WrapDependency("comprehend", err)
	}
	return result, nil
}

// DetectSentiment returns the sentiment of text, NEUTRAL for blank text
func (a *Analyzer) DetectSentiment(ctx context.Context, text, languageCode string) (Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return NeutralSentiment(), nil
	}
	if languageCode == "" {
		languageCode = DefaultLanguage.Code
	}

	s, err := a.detectSentiment(ctx, aws.String(chunker.TruncateRunes(text, a.maxLength)), types.LanguageCode(languageCode))
	if err != nil {
		return NeutralSentiment(), resilience.WrapDependency("comprehend", err)
	}
	return s, nil
}

func (a *Analyzer) detectSentiment(ctx context.Context, text *string, lang types.LanguageCode) (Sentiment, error) {
	out, err := a.client.DetectSentiment(ctx, &comprehend.DetectSentimentInput{Text: text, LanguageCode: lang})
	if err != nil {
		return Sentiment{}, err
	}

	s := Sentiment{Sentiment: string(out.Sentiment), Scores: map[string]float64{}}
	if s.Sentiment == "" {
		s.Sentiment = SentimentNeutral
	}
	if sc := out.SentimentScore; sc != nil {
		s.Scores["Positive"] = float64(aws.ToFloat32(sc.Positive))
		s.Scores["Negative"] = float64(aws.ToFloat32(sc.Negative))
		s.Scores["Neutral"] = float64(aws.ToFloat32(sc.Neutral))
		s.Scores["Mixed"] = float64(aws.ToFloat32(sc.Mixed))
	}
	return s, nil
}
