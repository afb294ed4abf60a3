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
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/staging"
)

func sampleRecord(id string) aggregate.Record {
	return aggregate.Record{
		ClaimID:          id,
		CreatedAt:        "2024-05-01T10:00:00Z",
		ClaimDescription: "My car was hit",
		DetectedLanguage: "en",
		Sentiment:        "NEGATIVE",
		Labels:           []string{"Car", "Car", "Bumper"},
		Storage:          staging.Object{Bucket: "b", Key: "claims/" + id + "/car.jpg", URL: "s3://b/claims/" + id + "/car.jpg"},
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "claims.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Save(ctx, sampleRecord("c-1")))

	got, err := store.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord("c-1"), got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, aggregate.ErrClaimNotFound)
	assert.ErrorIs(t, err, resilience.ErrNotFound)
}

func TestSQLiteStoreConcurrentSaves(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "claims.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save(context.Background(), sampleRecord(string(rune('a'+i)))))
		}(i)
	}
	wg.Wait()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("", nil)
	assert.Error(t, err)
}

type fakeDynamo struct {
	items    map[string]map[string]types.AttributeValue
	putErr   error
	describe error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	id := in.Item["claimId"].(*types.AttributeValueMemberS).Value
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id := in.Key["claimId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, f.describe
}

func TestDynamoDBStore(t *testing.T) {
	client := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	store, err := NewDynamoDBStore(client, "claims", nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleRecord("c-1")))

	item := client.items["c-1"]
	require.NotNil(t, item)
	assert.Equal(t, []string{"Car", "Bumper"}, item["labels"].(*types.AttributeValueMemberSS).Value)
	assert.Equal(t, "NEGATIVE", item["sentiment"].(*types.AttributeValueMemberS).Value)

	got, err := store.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, sampleRecord("c-1"), got)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, aggregate.ErrClaimNotFound)
	assert.NoError(t, store.Ping(ctx))
}

func TestDynamoDBStoreErrors(t *testing.T) {
	_, err := NewDynamoDBStore(&fakeDynamo{}, "", nil)
	assert.Error(t, err)

	client := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException"), describe: errors.New("ResourceNotFoundException")}
	store, err := NewDynamoDBStore(client, "claims", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Save(context.Background(), sampleRecord("x")), resilience.ErrDependency)
	assert.ErrorIs(t, store.Ping(context.Background()), resilience.ErrDependency)
}

func TestNew(t *testing.T) {
	store, err := New(config.ClaimStoreConfig{Backend: BackendSQLite, DBPath: filepath.Join(t.TempDir(), "c.db")}, aws.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	store, err = New(config.ClaimStoreConfig{Backend: BackendDynamoDB, TableName: "claims"}, aws.Config{Region: "us-east-1"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DynamoDBStore{}, store)

	_, err = New(config.ClaimStoreConfig{Backend: "postgres"}, aws.Config{}, nil)
	assert.Error(t, err)
}
