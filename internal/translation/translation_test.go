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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// upperTranslator "translates" by upper-casing and records every call
type upperTranslator struct {
	mu       sync.Mutex
	calls    []string
	failWhen string
}

func (u *upperTranslator) Translate(_ context.Context, text, source, target string) (Result, error) {
	u.mu.Lock()
	u.calls = append(u.calls, text)
	u.mu.Unlock()

	if u.failWhen != "" && strings.Contains(text, u.failWhen) {
		return Result{}, errors.New("ServiceUnavailableException")
	}
	return Result{TranslatedText: strings.ToUpper(text), SourceLanguage: source, TargetLanguage: target}, nil
}

func (u *upperTranslator) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

type fakeClient struct {
	input  *translate.TranslateTextInput
	output *translate.TranslateTextOutput
	err    error
	calls  int
}

func (f *fakeClient) TranslateText(_ context.Context, params *translate.TranslateTextInput, _ ...func(*translate.Options)) (*translate.TranslateTextOutput, error) {
	f.calls++
	f.input = params
	return f.output, f.err
}

func TestAWSTranslator_Translate(t *testing.T) {
	client := &fakeClient{output: &translate.TranslateTextOutput{
		TranslatedText:     aws.String("Mi coche fue golpeado"),
		SourceLanguageCode: aws.String("en"),
	}}
	translator := NewAWSTranslator(client, 0, zap.NewNop())

	result, err := translator.Translate(context.Background(), "My car was hit", "", "es")
	require.NoError(t, err)

	assert.Equal(t, "Mi coche fue golpeado", result.TranslatedText)
	assert.Equal(t, "en", result.SourceLanguage)
	assert.Equal(t, "es", result.TargetLanguage)
	assert.Equal(t, AutoDetect, aws.ToString(client.input.SourceLanguageCode))
}

func TestAWSTranslator_BlankSkipsCall(t *testing.T) {
	client := &fakeClient{}
	translator := NewAWSTranslator(client, 0, nil)

	result, err := translator.Translate(context.Background(), "   ", "en", "es")
	require.NoError(t, err)
	assert.Empty(t, result.TranslatedText)
	assert.Equal(t, 0, client.calls)
}

func TestAWSTranslator_TruncatesOversizedText(t *testing.T) {
	client := &fakeClient{output: &translate.TranslateTextOutput{TranslatedText: aws.String("ok")}}
	translator := NewAWSTranslator(client, 10, nil)

	_, err := translator.Translate(context.Background(), strings.Repeat("a", 25), "en", "de")
	require.NoError(t, err)
	assert.Len(t, aws.ToString(client.input.Text), 10)
}

func TestAWSTranslator_ProviderError(t *testing.T) {
	client := &fakeClient{err: errors.New("ThrottlingException")}
	translator := NewAWSTranslator(client, 0, nil)

	_, err := translator.Translate(context.Background(), "hello", "en", "fr")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrDependency)
}

func TestTranslateBatch_LengthAndBlanks(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{}, zap.NewNop())

	texts := []string{"car", "", "  ", "door", "bumper"}
	results := batcher.TranslateBatch(context.Background(), texts, "en", "es")

	require.Len(t, results, len(texts))
	assert.Equal(t, []string{"CAR", "", "", "DOOR", "BUMPER"}, results)
	assert.Equal(t, 1, fake.callCount(), "everything fits in one call")
}

func TestTranslateBatch_AllBlankMakesNoCall(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{}, nil)

	results := batcher.TranslateBatch(context.Background(), []string{"", " ", "\n"}, "en", "es")

	assert.Equal(t, []string{"", "", ""}, results)
	assert.Equal(t, 0, fake.callCount())
}

func TestTranslateBatch_SpansCeiling(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{MaxBytes: 100}, nil)

	// 45 + 5 + 45 = 95 fits; a third text forces a second call
	texts := []string{strings.Repeat("a", 45), strings.Repeat("b", 45), strings.Repeat("c", 45), strings.Repeat("d", 45)}
	results := batcher.TranslateBatch(context.Background(), texts, "en", "es")

	assert.Equal(t, 2, fake.callCount())
	for _, call := range fake.calls {
		assert.LessOrEqual(t, len(call), 100)
	}
	for i, text := range texts {
		assert.Equal(t, strings.ToUpper(text), results[i])
	}
}

func TestTranslateBatch_FailedBatchIsIsolated(t *testing.T) {
	fake := &upperTranslator{failWhen: "FAIL"}
	batcher := NewBatcher(fake, BatchOptions{MaxBytes: 20}, nil)

	texts := []string{"first text", "FAIL here", "last text"}
	results := batcher.TranslateBatch(context.Background(), texts, "en", "es")

	assert.Equal(t, 3, fake.callCount())
	assert.Equal(t, []string{"FIRST TEXT", "", "LAST TEXT"}, results)
}

func TestTranslateBatch_TruncatesOversizedInput(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{MaxBytes: 30}, nil)

	results := batcher.TranslateBatch(context.Background(), []string{strings.Repeat("x", 80), "tail"}, "en", "es")

	require.Len(t, results, 2)
	assert.Equal(t, strings.Repeat("X", 30), results[0])
	assert.Equal(t, "TAIL", results[1])
}

// droppingTranslator loses the delimiter, as a provider sometimes does
type droppingTranslator struct{}

func (droppingTranslator) Translate(_ context.Context, text, _, _ string) (Result, error) {
	return Result{TranslatedText: strings.ReplaceAll(text, "|||", "")}, nil
}

func TestTranslateBatch_PadsShortSplit(t *testing.T) {
	batcher := NewBatcher(droppingTranslator{}, BatchOptions{}, nil)

	results := batcher.TranslateBatch(context.Background(), []string{"one", "two", "three"}, "en", "es")

	require.Len(t, results, 3)
	assert.NotEmpty(t, results[0])
	assert.Empty(t, results[1])
	assert.Empty(t, results[2])
}

func TestTranslateToMultiple(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{}, nil)

	translations := batcher.TranslateToMultiple(context.Background(), "hello", "en", []string{"es", "fr", "en"})

	assert.Equal(t, map[string]string{"es": "HELLO", "fr": "HELLO", "en": "hello"}, translations)
	assert.Equal(t, 2, fake.callCount())
}

func TestTranslateToMultiple_FallsBackToOriginal(t *testing.T) {
	fake := &upperTranslator{failWhen: "hola"}
	batcher := NewBatcher(fake, BatchOptions{}, nil)

	translations := batcher.TranslateToMultiple(context.Background(), "hola", AutoDetect, []string{"en", "fr"})

	assert.Equal(t, "hola", translations["en"])
	assert.Equal(t, "hola", translations["fr"])
}

func TestTranslateToMultiple_Blank(t *testing.T) {
	fake := &upperTranslator{}
	batcher := NewBatcher(fake, BatchOptions{}, nil)

	translations := batcher.TranslateToMultiple(context.Background(), " ", "en", []string{"es", "fr"})

	assert.Equal(t, map[string]string{"es": "", "fr": ""}, translations)
	assert.Equal(t, 0, fake.callCount())
}
