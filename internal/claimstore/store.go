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

// Package claimstore persists aggregated claim records in SQLite for local runs
// or DynamoDB when deployed.
package claimstore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/config"
)

// Backend names accepted by New
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Store is a claim store that can be closed
type Store interface {
	aggregate.ClaimStore
	Close() error
}

// New opens the store selected by cfg.Backend
func New(cfg config.ClaimStoreConfig, awsCfg aws.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return NewSQLiteStore(cfg.DBPath, logger)
	case BackendDynamoDB:
		return NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName, logger)
	default:
		return nil, fmt.Errorf("unsupported claim store backend: %s", cfg.Backend)
	}
}
