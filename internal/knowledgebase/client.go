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

// Package knowledgebase answers questions with Bedrock Knowledge Base retrieval
// augmented generation.
package knowledgebase

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

var (
	// ErrEmptyQuery is returned for a blank query
	ErrEmptyQuery = resilience.NewSentinel("query is required", resilience.ErrInvalidInput)
	// ErrNotConfigured is returned when no knowledge base id or model ARN is set
	ErrNotConfigured = resilience.NewSentinel("knowledge base is not configured", resilience.ErrInvalidInput)
)

// RetrieveAndGenerateAPI is the subset of the Bedrock agent runtime client used here
type RetrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// Answer is the generated response with the S3 sources it cites
type Answer struct {
	Query             string   `json:"query"`
	GeneratedResponse string   `json:"generated_response"`
	S3Locations       []string `json:"s3_locations"`
}

// Client queries one knowledge base with one foundation model
type Client struct {
	api             RetrieveAndGenerateAPI
	knowledgeBaseID string
	modelARN        string
	logger          *zap.Logger
}

// NewClient creates a knowledge base client
func NewClient(api RetrieveAndGenerateAPI, cfg config.KnowledgeBaseConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:             api,
		knowledgeBaseID: cfg.ID,
		modelARN:        cfg.ModelARN,
		logger:          logger,
	}
}

// Query retrieves from the knowledge base and generates an answer in one call.
// Cited S3 URIs are returned once each in the order they first appear.
func (c *Client) Query(ctx context.Context, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if c.knowledgeBaseID == "" || c.modelARN == "" {
		return nil, ErrNotConfigured
	}

	out, err := c.api.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(query)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(c.knowledgeBaseID),
				ModelArn:        aws.String(c.modelARN),
			},
		},
	})
	if err != nil {
		return nil, resilience.WrapDependency("bedrock knowledge base", err)
	}

	answer := &Answer{Query: query, S3Locations: citedLocations(out.Citations)}
	if out.Output != nil {
		answer.GeneratedResponse = aws.ToString(out.Output.Text)
	}

	c.logger.Info("Knowledge base query answered",
		zap.String("knowledge_base_id", c.knowledgeBaseID),
		zap.Int("sources", len(answer.S3Locations)))
	return answer, nil
}

func citedLocations(citations []types.Citation) []string {
	seen := make(map[string]struct{})
	locations := []string{}
	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			if ref.Location == nil || ref.Location.S3Location == nil {
				continue
			}
			uri := aws.ToString(ref.Location.S3Location.Uri)
			if uri == "" {
				continue
			}
			if _, dup := seen[uri]; dup {
				continue
			}
			seen[uri] = struct{}{}
			locations = append(locations, uri)
		}
	}
	return locations
}
