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

package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository keeps conversations in a map guarded by a single mutex. Every
// read-modify-write holds the lock for the whole mutation.
type MemoryRepository struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{conversations: make(map[string]*Conversation)}
}

// Create stores a copy of conv
func (m *MemoryRepository) Create(_ context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}
	m.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

// Get returns a copy of the conversation
func (m *MemoryRepository) Get(_ context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

// Update applies fn to a copy and stores it only if fn succeeds
func (m *MemoryRepository) Update(_ context.Context, id string, fn func(*Conversation) error) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}

	updated := cloneConversation(conv)
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	m.conversations[id] = updated
	return cloneConversation(updated), nil
}

// Delete removes a conversation
func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return ErrNotFound
	}
	delete(m.conversations, id)
	return nil
}

// DeleteMany removes every listed id in one critical section and reports the ids
// that did not exist.
func (m *MemoryRepository) DeleteMany(_ context.Context, ids []string) (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	notFound := []string{}
	for _, id := range ids {
		if _, exists := m.conversations[id]; !exists {
			notFound = append(notFound, id)
			continue
		}
		delete(m.conversations, id)
		deleted++
	}
	return deleted, notFound
}

// List returns copies of the conversations owned by userID
func (m *MemoryRepository) List(_ context.Context, userID string) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs := []*Conversation{}
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			convs = append(convs, cloneConversation(conv))
		}
	}
	return convs, nil
}

// Snapshot returns copies of every conversation
func (m *MemoryRepository) Snapshot(_ context.Context) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs := make([]*Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		convs = append(convs, cloneConversation(conv))
	}
	return convs, nil
}

// Len returns the number of stored conversations
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}
