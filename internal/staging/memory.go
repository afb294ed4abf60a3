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

package staging

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process memory. Used by tests and local runs
// that have no object store.
type MemoryStore struct {
	bucket string

	mu      sync.Mutex
	objects map[string][]byte
	deletes map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
		deletes: make(map[string]int),
	}
}

// Bucket returns the bucket name
func (s *MemoryStore) Bucket() string { return s.bucket }

// Put stores a copy of data under key
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, _ string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = append([]byte(nil), data...)
	return Object{Bucket: s.bucket, Key: key, URL: s3URL(s.bucket, key)}, nil
}

// Delete removes key and records the deletion
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	s.deletes[key]++
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get returns the stored bytes for key
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of objects currently stored
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// DeleteCount reports how many times key was deleted
func (s *MemoryStore) DeleteCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[key]
}
