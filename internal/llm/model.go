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

// Package llm sends conversations to a chat model. Bedrock Converse is the default
// provider; OpenAI chat completions can be selected through configuration.
package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/session"
)

// Provider names accepted in bedrock.provider
const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// Request is one model invocation
type Request struct {
	ModelID     string
	System      string
	Messages    []session.Message
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption of a single call
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Reply is the assistant text and its usage
type Reply struct {
	Text  string
	Usage *Usage
}

// TotalTokens returns the reported total or zero when the provider reported none
func (r *Reply) TotalTokens() int {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}

// ChatModel generates an assistant reply for a conversation
type ChatModel interface {
	Converse(ctx context.Context, req Request) (*Reply, error)
}

// New builds the chat model selected by cfg.Bedrock.Provider
func New(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ChatModel, error) {
	switch cfg.Bedrock.Provider {
	case "", ProviderBedrock:
		return NewBedrockModel(bedrockruntime.NewFromConfig(awsCfg), logger), nil
	case ProviderOpenAI:
		return NewOpenAIModel(cfg.OpenAI, logger)
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Bedrock.Provider)
	}
}
