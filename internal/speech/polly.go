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

// Package speech synthesizes short audio clips through Amazon Polly and stores
// them under the static audio directory.
package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/chunker"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// MaxTextLength is the number of characters sent to the provider
const MaxTextLength = 2900

// AudioURLPrefix is the public path audio files are served under
const AudioURLPrefix = "/static/audio/"

// DefaultVoice is used for languages without a mapped voice
const DefaultVoice = "Joanna"

// ErrEmptyText is returned when there is nothing to synthesize
var ErrEmptyText = resilience.NewSentinel("Text is required for speech synthesis", resilience.ErrInvalidInput)

var voices = map[string]string{
	"es": "Lupe",
	"en": "Joanna",
	"fr": "Celine",
	"de": "Marlene",
	"it": "Carla",
	"pt": "Camila",
	"ja": "Mizuki",
	"ko": "Seoyeon",
	"zh": "Zhiyu",
}

// VoiceFor returns the female neural voice for a language code
func VoiceFor(languageCode string) string {
	if v, ok := voices[strings.ToLower(languageCode)]; ok {
		return v
	}
	return DefaultVoice
}

// Result describes a stored audio clip
type Result struct {
	AudioURL string `json:"audio_url"`
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id"`
}

// Client is the part of the Polly API this package uses
type Client interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Synthesizer turns text into mp3 files
type Synthesizer struct {
	client   Client
	audioDir string
	engine   string
	logger   *zap.Logger
}

// NewSynthesizer creates a Synthesizer writing into audioDir, creating it if needed
func NewSynthesizer(client Client, audioDir, engine string, logger *zap.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == "" {
		engine = string(types.EngineNeural)
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &Synthesizer{client: client, audioDir: audioDir, engine: engine, logger: logger}, nil
}

// Synthesize renders text with voiceID and writes the mp3 to the audio directory
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	text = chunker.TruncateRunes(text, MaxTextLength)

	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      types.VoiceId(voiceID),
		Engine:       types.Engine(s.engine),
	})
	if err != nil {
		s.logger.Error("Speech synthesis failed",
			zap.String("voice_id", voiceID),
			zap.Error(err))
		return Result{}, resilience.WrapDependency("polly", err)
	}
	defer out.AudioStream.Close()

	name := fmt.Sprintf("audio_%s_%s.mp3", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	f, err := os.Create(filepath.Join(s.audioDir, name))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.AudioStream); err != nil {
		return Result{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	s.logger.Debug("Stored audio clip", zap.String("file", name), zap.String("voice_id", voiceID))
	return Result{AudioURL: AudioURLPrefix + name, Text: text, VoiceID: voiceID}, nil
}
