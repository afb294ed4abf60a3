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
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

// ConverseAPI is the subset of the Bedrock runtime client used here
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockModel calls the Bedrock Converse API
type BedrockModel struct {
	client ConverseAPI
	logger *zap.Logger
}

// NewBedrockModel creates a Bedrock backed chat model
func NewBedrockModel(client ConverseAPI, logger *zap.Logger) *BedrockModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BedrockModel{client: client, logger: logger}
}

// Converse sends the conversation with the system prompt and inference settings
func (b *BedrockModel) Converse(ctx context.Context, req Request) (*Reply, error) {
	messages, err := toConverseMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.ModelID),
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.MaxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	b.logger.Debug("Calling Bedrock Converse",
		zap.String("model_id", req.ModelID),
		zap.Int("message_count", len(messages)),
		zap.Int("max_tokens", req.MaxTokens))

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, resilience.WrapDependency("bedrock", err)
	}

	reply := &Reply{Text: replyText(out.Output)}
	if out.Usage != nil {
		reply.Usage = &Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}

	b.logger.Debug("Bedrock response received",
		zap.String("model_id", req.ModelID),
		zap.Int("total_tokens", reply.TotalTokens()))
	return reply, nil
}

func replyText(output types.ConverseOutput) string {
	msg, ok := output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}

func toConverseMessages(messages []session.Message) ([]types.Message, error) {
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		role := types.ConversationRoleUser
		if msg.Role == session.RoleAssistant {
			role = types.ConversationRoleAssistant
		}

		content := make([]types.ContentBlock, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.Text != "":
				content = append(content, &types.ContentBlockMemberText{Value: block.Text})
			case block.Image != nil:
				format, err := imageFormat(block.Image.Format)
				if err != nil {
					return nil, err
				}
				content = append(content, &types.ContentBlockMemberImage{Value: types.ImageBlock{
					Format: format,
					Source: &types.ImageSourceMemberBytes{Value: block.Image.Bytes},
				}})
			}
		}
		out = append(out, types.Message{Role: role, Content: content})
	}
	return out, nil
}

func imageFormat(format string) (types.ImageFormat, error) {
	switch format {
	case "jpeg", "jpg":
		return types.ImageFormatJpeg, nil
	case "png":
		return types.ImageFormatPng, nil
	case "gif":
		return types.ImageFormatGif, nil
	case "webp":
		return types.ImageFormatWebp, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s", format)
	}
}
