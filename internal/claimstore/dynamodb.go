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

package claimstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// DynamoDBAPI is the part of the DynamoDB client used by DynamoDBStore
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBStore keeps claim records in a table keyed by claimId
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
	logger *zap.Logger
}

// NewDynamoDBStore creates a DynamoDB-backed store
func NewDynamoDBStore(client DynamoDBAPI, table string, logger *zap.Logger) (*DynamoDBStore, error) {
	if table == "" {
		return nil, errors.New("claim store table name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoDBStore{client: client, table: table, logger: logger}, nil
}

// Save writes the record. The full record is kept as JSON next to the key attributes.
func (s *DynamoDBStore) Save(ctx context.Context, record aggregate.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	item := map[string]types.AttributeValue{
		"claimId":           &types.AttributeValueMemberS{Value: record.ClaimID},
		"created_at":        &types.AttributeValueMemberS{Value: record.CreatedAt},
		"detected_language": &types.AttributeValueMemberS{Value: record.DetectedLanguage},
		"sentiment":         &types.AttributeValueMemberS{Value: record.Sentiment},
		"s3_url":            &types.AttributeValueMemberS{Value: record.Storage.URL},
		"record":            &types.AttributeValueMemberS{Value: string(data)},
	}
	if labels := uniqueLabels(record.Labels); len(labels) > 0 {
		item["labels"] = &types.AttributeValueMemberSS{Value: labels}
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return resilience.WrapDependency("dynamodb", err)
	}

	s.logger.Debug("Claim saved to DynamoDB", zap.String("claim_id", record.ClaimID))
	return nil
}

// Get reads a record by claimId
func (s *DynamoDBStore) Get(ctx context.Context, claimID string) (aggregate.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"claimId": &types.AttributeValueMemberS{Value: claimID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return aggregate.Record{}, resilience.WrapDependency("dynamodb", err)
	}
	if len(out.Item) == 0 {
		return aggregate.Record{}, fmt.Errorf("%w: %s", aggregate.ErrClaimNotFound, claimID)
	}

	attr, ok := out.Item["record"].(*types.AttributeValueMemberS)
	if !ok {
		return aggregate.Record{}, fmt.Errorf("claim %s has no record attribute", claimID)
	}

	var record aggregate.Record
	if err := json.Unmarshal([]byte(attr.Value), &record); err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to unmarshal claim: %w", err)
	}
	return record, nil
}

// Ping checks that the table exists
func (s *DynamoDBStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return resilience.WrapDependency("dynamodb", err)
	}
	return nil
}

// Close is a no-op
func (s *DynamoDBStore) Close() error { return nil }

// string sets reject duplicates
func uniqueLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
