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

// Package assistant implements the vehicle damage assessment chat: an initial
// multimodal submission, text or image follow-ups, and the conversation and admin
// endpoints around them.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/llm"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

// RequiredInitialImages is the number of photos an initial assessment needs:
// wide-angle, straight-on and closeup.
const RequiredInitialImages = 3

// DefaultModelTimeout bounds a single model call
const DefaultModelTimeout = 2 * time.Minute

var (
	// ErrUserRequired is returned when user_id is missing
	ErrUserRequired = resilience.NewSentinel("user_id is required", resilience.ErrInvalidInput)
	// ErrMessageRequired is returned when message is missing
	ErrMessageRequired = resilience.NewSentinel("message is required", resilience.ErrInvalidInput)
	// ErrInitialImages is returned when an initial submission does not carry exactly three photos
	ErrInitialImages = resilience.NewSentinel(
		"Initial damage assessment requires exactly 3 images: wide-angle, straight-on, and closeup. Please upload exactly 3 vehicle damage photos.",
		resilience.ErrInvalidInput)
)

// ChatRequest is a parsed /chat submission. An empty ConversationID starts a new
// conversation.
type ChatRequest struct {
	UserID         string
	ConversationID string
	Message        string
	Images         []ImageUpload
	Overrides      session.Overrides
}

// ChatResponse is returned by /chat
type ChatResponse struct {
	Message        string     `json:"message"`
	ModelID        string     `json:"model_id"`
	Usage          *llm.Usage `json:"usage"`
	ConversationID string     `json:"conversation_id"`
}

// Service runs chat turns against the model and records them in the store
type Service struct {
	store         *session.Store
	model         llm.ChatModel
	limits        config.BedrockConfig
	maxImageBytes int64
	timeout       time.Duration
	logger        *zap.Logger
}

// NewService creates the chat service. Requested sampling parameters are checked
// against the model limits in bedrockCfg.
func NewService(store *session.Store, model llm.ChatModel, bedrockCfg config.BedrockConfig, maxImageBytes int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         store,
		model:         model,
		limits:        bedrockCfg,
		maxImageBytes: maxImageBytes,
		timeout:       DefaultModelTimeout,
		logger:        logger,
	}
}

// Store returns the conversation store behind the service
func (s *Service) Store() *session.Store {
	return s.store
}

// Chat runs one turn. Initial submissions need exactly three images and create the
// conversation once the model replies. Follow-ups inherit the conversation's
// settings unless overridden and persist the user message before the model call.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	req.ConversationID = strings.TrimSpace(req.ConversationID)

	if req.UserID == "" {
		return nil, ErrUserRequired
	}
	if req.Message == "" {
		return nil, ErrMessageRequired
	}

	initial := req.ConversationID == ""
	if initial && len(req.Images) != RequiredInitialImages {
		return nil, ErrInitialImages
	}

	userMessage, err := s.buildUserMessage(req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Chat request",
		zap.String("user_id", req.UserID),
		zap.String("conversation_id", req.ConversationID),
		zap.Bool("initial", initial),
		zap.Int("files", len(req.Images)))

	if initial {
		return s.startConversation(ctx, req, userMessage)
	}
	return s.continueConversation(ctx, req, userMessage)
}

func (s *Service) buildUserMessage(req ChatRequest) (session.Message, error) {
	msg := session.Message{
		Role:    session.RoleUser,
		Content: []session.ContentBlock{{Text: req.Message}},
	}
	for _, upload := range req.Images {
		block, err := ImageBlock(upload, s.maxImageBytes)
		if err != nil {
			return session.Message{}, err
		}
		msg.Content = append(msg.Content, block)
	}
	return msg, nil
}

func (s *Service) startConversation(ctx context.Context, req ChatRequest, userMessage session.Message) (*ChatResponse, error) {
	settings := req.Overrides.Apply(s.store.Defaults())
	if err := s.checkLimits(settings); err != nil {
		return nil, err
	}

	reply, err := s.converse(ctx, settings, []session.Message{userMessage})
	if err != nil {
		return nil, err
	}

	conv, err := s.store.CreateWithExchange(ctx, req.UserID, settings, userMessage, reply.Text, reply.TotalTokens())
	if err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}

	return &ChatResponse{
		Message:        reply.Text,
		ModelID:        settings.ModelID,
		Usage:          reply.Usage,
		ConversationID: conv.ID,
	}, nil
}

func (s *Service) continueConversation(ctx context.Context, req ChatRequest, userMessage session.Message) (*ChatResponse, error) {
	current, err := s.store.Get(ctx, req.ConversationID, req.UserID)
	if err != nil {
		return nil, err
	}
	settings := req.Overrides.Apply(current.Settings())
	if err := s.checkLimits(settings); err != nil {
		return nil, err
	}

	conv, err := s.store.AppendUserMessage(ctx, req.ConversationID, req.UserID, userMessage)
	if err != nil {
		return nil, err
	}

	reply, err := s.converse(ctx, settings, conv.Messages)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AppendAssistantMessage(ctx, conv.ID, reply.Text, reply.TotalTokens()); err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	return &ChatResponse{
		Message:        reply.Text,
		ModelID:        settings.ModelID,
		Usage:          reply.Usage,
		ConversationID: conv.ID,
	}, nil
}

func (s *Service) converse(ctx context.Context, settings session.Settings, messages []session.Message) (*llm.Reply, error) {
	return resilience.WithTimeoutValue(ctx, s.timeout, s.logger, func(ctx context.Context) (*llm.Reply, error) {
		return s.model.Converse(ctx, llm.Request{
			ModelID:     settings.ModelID,
			System:      SystemPrompt,
			Messages:    messages,
			Temperature: settings.Temperature,
			MaxTokens:   settings.MaxTokens,
		})
	})
}

func (s *Service) checkLimits(settings session.Settings) error {
	limits := s.limits.LimitsFor(settings.ModelID)
	if settings.Temperature < limits.TemperatureMin || settings.Temperature > limits.TemperatureMax {
		return resilience.NewSentinel(
			fmt.Sprintf("temperature must be between %g and %g", limits.TemperatureMin, limits.TemperatureMax),
			resilience.ErrInvalidInput)
	}
	if settings.MaxTokens < limits.MaxTokensMin || settings.MaxTokens > limits.MaxTokensMax {
		return resilience.NewSentinel(
			fmt.Sprintf("max_tokens must be between %d and %d", limits.MaxTokensMin, limits.MaxTokensMax),
			resilience.ErrInvalidInput)
	}
	return nil
}
