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

// Package multilingual runs a small chat room where every participant reads the
// conversation in their own language, colored by the sender's sentiment.
package multilingual

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/ai-services-demos/internal/textanalysis"
)

// Message colors
const (
	ColorSender   = "blue"
	ColorPositive = "green"
	ColorNegative = "red"
	ColorNeutral  = "black"
)

// MessageTypeChat is the envelope type of a broadcast chat message
const MessageTypeChat = "message"

// DefaultParticipants maps each seat to its language
var DefaultParticipants = map[string]string{
	"person1": "en",
	"person2": "es",
	"person3": "fr",
}

// Translator translates one text into several languages. Failed targets fall back
// to the original text.
type Translator interface {
	TranslateToMultiple(ctx context.Context, text, source string, targets []string) map[string]string
}

// SentimentDetector classifies the sentiment of a text
type SentimentDetector interface {
	DetectSentiment(ctx context.Context, text, languageCode string) (textanalysis.Sentiment, error)
}

// Incoming is a message sent by a participant
type Incoming struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp any    `json:"timestamp"`
}

// Rendition is what one participant sees of a message
type Rendition struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	Color     string `json:"color"`
	Sender    string `json:"sender"`
	Sentiment string `json:"sentiment"`
}

// Broadcast is sent to every connection; each client picks its own rendition
type Broadcast struct {
	Type      string               `json:"type"`
	Messages  map[string]Rendition `json:"messages"`
	Timestamp any                  `json:"timestamp"`
}

// Room turns incoming messages into per-participant renditions
type Room struct {
	participants map[string]string
	translator   Translator
	sentiment    SentimentDetector
	logger       *zap.Logger
}

// NewRoom creates a room. An empty participants map uses DefaultParticipants.
func NewRoom(participants map[string]string, translator Translator, sentiment SentimentDetector, logger *zap.Logger) *Room {
	if len(participants) == 0 {
		participants = DefaultParticipants
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Room{
		participants: participants,
		translator:   translator,
		sentiment:    sentiment,
		logger:       logger,
	}
}

// Participants returns the seat to language mapping
func (r *Room) Participants() map[string]string {
	out := make(map[string]string, len(r.participants))
	for k, v := range r.participants {
		out[k] = v
	}
	return out
}

// Process translates msg for every other participant and detects its sentiment,
// both in parallel. It reports false for blank text or an unknown sender.
func (r *Room) Process(ctx context.Context, msg Incoming) (*Broadcast, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, false
	}
	sourceLang, ok := r.participants[msg.Sender]
	if !ok {
		r.logger.Warn("Ignoring message from unknown sender", zap.String("sender", msg.Sender))
		return nil, false
	}

	targets := r.targetLanguages(msg.Sender)

	r.logger.Info("Processing chat message",
		zap.String("sender", msg.Sender),
		zap.String("language", sourceLang),
		zap.Strings("targets", targets))

	var (
		translations map[string]string
		sentiment    = textanalysis.NeutralSentiment()
	)

	var g errgroup.Group
	g.Go(func() error {
		translations = r.translator.TranslateToMultiple(ctx, text, sourceLang, targets)
		return nil
	})
	g.Go(func() error {
		s, err := r.sentiment.DetectSentiment(ctx, text, sourceLang)
		if err != nil {
			r.logger.Warn("Sentiment detection failed, using NEUTRAL", zap.Error(err))
			return nil
		}
		sentiment = s
		return nil
	})
	_ = g.Wait()

	label := sentiment.Sentiment
	if label == "" {
		label = textanalysis.SentimentNeutral
	}

	renditions := make(map[string]Rendition, len(r.participants))
	for person, lang := range r.participants {
		if person == msg.Sender {
			renditions[person] = Rendition{Text: text, Language: lang, Color: ColorSender, Sender: msg.Sender, Sentiment: label}
			continue
		}
		translated, ok := translations[lang]
		if !ok || translated == "" {
			translated = text
		}
		renditions[person] = Rendition{Text: translated, Language: lang, Color: sentimentColor(label), Sender: msg.Sender, Sentiment: label}
	}

	return &Broadcast{Type: MessageTypeChat, Messages: renditions, Timestamp: msg.Timestamp}, true
}

// targetLanguages returns the distinct languages of everyone but sender, sorted
func (r *Room) targetLanguages(sender string) []string {
	seen := make(map[string]struct{})
	var targets []string
	for person, lang := range r.participants {
		if person == sender {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		targets = append(targets, lang)
	}
	sort.Strings(targets)
	return targets
}

func sentimentColor(sentiment string) string {
	switch sentiment {
	case textanalysis.SentimentPositive:
		return ColorPositive
	case textanalysis.SentimentNegative:
		return ColorNegative
	default:
		return ColorNeutral
	}
}
