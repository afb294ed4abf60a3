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

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

// DefaultOpenAIModel is used when neither the request nor the config names a model
const DefaultOpenAIModel = openai.GPT4o

// ErrAPIKeyRequired is returned when the OpenAI provider is selected without a key
var ErrAPIKeyRequired = errors.New("API key is required")

// OpenAIModel calls the OpenAI chat completions API
type OpenAIModel struct {
	client *openai.Client
	logger *zap.Logger
	model  string
}

// NewOpenAIModel creates an OpenAI backed chat model. A non-empty cfg.Endpoint
// replaces the API base URL.
func NewOpenAIModel(cfg config.OpenAIConfig, logger *zap.Logger) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	logger.Info("OpenAI chat model initialized", zap.String("model", model))
	return &OpenAIModel{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
		model:  model,
	}, nil
}

// Converse sends the conversation as a chat completion. Images travel as data URLs.
func (o *OpenAIModel) Converse(ctx context.Context, req Request) (*Reply, error) {
	model := req.ModelID
	if model == "" {
		model = o.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, toChatCompletionMessage(msg))
	}

	o.logger.Debug("Creating chat completion",
		zap.String("model", model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Float64("temperature", req.Temperature),
		zap.Int("message_count", len(messages)))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, resilience.WrapDependency("openai", handleAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, resilience.WrapDependency("openai", errors.New("no choices returned"))
	}

	o.logger.Debug("Chat completion successful",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &Reply{
		Text: resp.Choices[0].Message.Content,
		Usage: &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func toChatCompletionMessage(msg session.Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if msg.Role == session.RoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	if msg.ImageCount() == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: msg.Text()}
	}

	parts := make([]openai.ChatMessagePart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch {
		case block.Text != "":
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: block.Text})
		case block.Image != nil:
			url := fmt.Sprintf("data:image/%s;base64,%s", block.Image.Format, base64.StdEncoding.EncodeToString(block.Image.Bytes))
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})
		}
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

// handleAPIError turns an OpenAI API error into a readable error
func handleAPIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("OpenAI client error: %w", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid API key or unauthorized access: %w", err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("too many requests: %w", err)
	default:
		return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
}
