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

// Package staging writes raw bytes to an object store under a caller-chosen key
// and removes them again. It backs the document analysis upload area and the
// claim image archive.
package staging

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/your-org/ai-services-demos/internal/config"
)

// Backend names accepted by New
const (
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
)

// ErrBucketRequired is returned when a store is created without a bucket
var ErrBucketRequired = errors.New("staging bucket is not configured")

// Object identifies a stored object
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"s3_url"`
}

// Store is a path-addressable object store
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Bucket() string
}

// New builds the store selected by cfg.Backend for bucket
func New(cfg config.StagingConfig, awsCfg aws.Config, bucket string) (Store, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}

	switch cfg.Backend {
	case "", BackendS3:
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// Local S3 emulators only understand path-style addressing
			o.UsePathStyle = awsCfg.BaseEndpoint != nil
		})
		return NewS3Store(client, bucket)
	case BackendMinIO:
		return NewMinIOStore(cfg, bucket)
	case BackendMemory:
		return NewMemoryStore(bucket), nil
	default:
		return nil, fmt.Errorf("unknown staging backend %q", cfg.Backend)
	}
}

func s3URL(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
