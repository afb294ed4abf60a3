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

// Package session keeps assistant conversations in memory. A Repository holds the
// records; Store layers ownership checks, settings defaults and admin analytics on top.
package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

var (
	// ErrNotFound is returned for an unknown conversation id
	ErrNotFound = resilience.NewSentinel("Conversation not found", resilience.ErrNotFound)
	// ErrForbidden is returned when the caller does not own the conversation
	ErrForbidden = resilience.NewSentinel("You do not have access to this conversation", resilience.ErrForbidden)
	// ErrUserRequired is returned when an operation is attempted without a caller id
	ErrUserRequired = resilience.NewSentinel("user_id is required", resilience.ErrInvalidInput)
)

// Role identifies the author of a message
type Role string

const (
	// RoleUser marks messages sent by the insured
	RoleUser Role = "user"
	// RoleAssistant marks model replies
	RoleAssistant Role = "assistant"
)

// Image is a raw image attached to a message. Bytes are kept unencoded.
type Image struct {
	Format string `json:"format"`
	Bytes  []byte `json:"bytes"`
}

// ContentBlock is either text or an image
type ContentBlock struct {
	Text  string `json:"text,omitempty"`
	Image *Image `json:"image,omitempty"`
}

// Message is a single turn of a conversation
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a message with a single text block
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Text: text}}}
}

// Text concatenates the text blocks of the message
func (m Message) Text() string {
	var b strings.Builder
	for _, block := range m.Content {
		b.WriteString(block.Text)
	}
	return b.String()
}

// ImageCount returns how many image blocks the message carries
func (m Message) ImageCount() int {
	n := 0
	for _, block := range m.Content {
		if block.Image != nil {
			n++
		}
	}
	return n
}

// Settings are the sampling parameters a conversation runs with
type Settings struct {
	ModelID     string  `json:"model_id"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Overrides are optional per-request settings. Nil or empty fields keep the
// conversation's (or the configured default) value.
type Overrides struct {
	ModelID     string
	Temperature *float64
	MaxTokens   *int
}

// Apply returns base with the non-empty overrides applied
func (o Overrides) Apply(base Settings) Settings {
	if o.ModelID != "" {
		base.ModelID = o.ModelID
	}
	if o.Temperature != nil {
		base.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		base.MaxTokens = *o.MaxTokens
	}
	return base
}

// Conversation is the stored record of a chat between one user and the model
type Conversation struct {
	ID            string    `json:"conversation_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Messages      []Message `json:"messages"`
	ModelID       string    `json:"model_id"`
	Temperature   float64   `json:"temperature"`
	MaxTokens     int       `json:"max_tokens"`
	TotalTokens   int       `json:"total_tokens"`
	MessageCount  int       `json:"message_count"`
	HasMultimodal bool      `json:"has_multimodal"`
	FileCount     int       `json:"file_count"`
}

// Settings returns the conversation's sampling parameters
func (c *Conversation) Settings() Settings {
	return Settings{ModelID: c.ModelID, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

// Summary is the list view of a conversation
type Summary struct {
	ID            string    `json:"conversation_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	MessageCount  int       `json:"message_count"`
	TotalTokens   int       `json:"total_tokens"`
	ModelID       string    `json:"model_id"`
	HasMultimodal bool      `json:"has_multimodal"`
	FileCount     int       `json:"file_count"`
}

// Summary returns the list view of the conversation
func (c *Conversation) Summary() Summary {
	return Summary{
		ID:            c.ID,
		UserID:        c.UserID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		MessageCount:  c.MessageCount,
		TotalTokens:   c.TotalTokens,
		ModelID:       c.ModelID,
		HasMultimodal: c.HasMultimodal,
		FileCount:     c.FileCount,
	}
}

// Repository stores conversations. Implementations return copies so callers never
// share memory with the stored record.
type Repository interface {
	// Create stores a new conversation
	Create(ctx context.Context, conv *Conversation) error
	// Get returns a copy of the conversation or ErrNotFound
	Get(ctx context.Context, id string) (*Conversation, error)
	// Update applies fn to the conversation atomically. An error from fn discards the change.
	Update(ctx context.Context, id string, fn func(*Conversation) error) (*Conversation, error)
	// Delete removes the conversation or returns ErrNotFound
	Delete(ctx context.Context, id string) error
	// List returns the conversations owned by userID
	List(ctx context.Context, userID string) ([]*Conversation, error)
	// Snapshot returns every stored conversation
	Snapshot(ctx context.Context) ([]*Conversation, error)
}

// Store is the conversation service used by the assistant API
type Store struct {
	repo     Repository
	defaults Settings
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates a conversation store over repo. defaults fill any setting a new
// conversation is created without.
func NewStore(repo Repository, defaults Settings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Store{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Defaults returns the settings new conversations start with
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Create starts an empty conversation for userID
func (s *Store) Create(ctx context.Context, userID string, overrides Overrides) (*Conversation, error) {
	return s.create(ctx, userID, overrides.Apply(s.defaults), nil, 0)
}

// CreateWithExchange stores a new conversation holding the first user message and the
// model's reply.
func (s *Store) CreateWithExchange(ctx context.Context, userID string, settings Settings, user Message, reply string, tokens int) (*Conversation, error) {
	messages := []Message{user, TextMessage(RoleAssistant, reply)}
	return s.create(ctx, userID, settings, messages, tokens)
}

func (s *Store) create(ctx context.Context, userID string, settings Settings, messages []Message, tokens int) (*Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}

	now := s.now()
	conv := &Conversation{
		ID:           NewID(),
		UserID:       userID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Messages:     messages,
		ModelID:      settings.ModelID,
		Temperature:  settings.Temperature,
		MaxTokens:    settings.MaxTokens,
		TotalTokens:  tokens,
		MessageCount: len(messages),
	}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	for _, msg := range messages {
		conv.FileCount += msg.ImageCount()
	}
	conv.HasMultimodal = conv.FileCount > 0

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("Created conversation",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
		zap.String("model_id", conv.ModelID))
	return cloneConversation(conv), nil
}

// Get returns the conversation if userID owns it
func (s *Store) Get(ctx context.Context, id, userID string) (*Conversation, error) {
	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrForbidden
	}
	return conv, nil
}

// List returns the summaries of userID's conversations, most recently updated first
func (s *Store) List(ctx context.Context, userID string) ([]Summary, error) {
	convs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := summarize(convs)
	sortSummaries(summaries, SortUpdatedAt, true)
	return summaries, nil
}

// Delete removes the conversation if userID owns it
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted conversation", zap.String("conversation_id", id), zap.String("user_id", userID))
	return nil
}

// AppendUserMessage records a follow-up message from userID. The returned copy holds
// the full history including msg, ready to be sent to the model.
func (s *Store) AppendUserMessage(ctx context.Context, id, userID string, msg Message) (*Conversation, error) {
	return s.repo.Update(ctx, id, func(conv *Conversation) error {
		if conv.UserID != userID {
			return ErrForbidden
		}
		files := msg.ImageCount()
		conv.Messages = append(conv.Messages, msg)
		conv.MessageCount++
		conv.FileCount += files
		conv.HasMultimodal = conv.HasMultimodal || files > 0
		conv.UpdatedAt = s.now()
		return nil
	})
}

// AppendAssistantMessage records the model's reply and its token usage
func (s *Store) AppendAssistantMessage(ctx context.Context, id, reply string, tokens int) (*Conversation, error) {
	return s.repo.Update(ctx, id, func(conv *Conversation) error {
		conv.Messages = append(conv.Messages, TextMessage(RoleAssistant, reply))
		conv.MessageCount++
		conv.TotalTokens += tokens
		conv.UpdatedAt = s.now()
		return nil
	})
}
