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
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Sort keys accepted by the admin conversation listing
const (
	SortCreatedAt    = "created_at"
	SortUpdatedAt    = "updated_at"
	SortMessageCount = "message_count"
	SortTotalTokens  = "total_tokens"
)

// NewID returns a fresh conversation id
func NewID() string {
	return uuid.NewString()
}

// cloneConversation copies the record and its message slices. Image bytes are
// shared since they are never mutated after upload.
func cloneConversation(conv *Conversation) *Conversation {
	if conv == nil {
		return nil
	}
	clone := *conv
	clone.Messages = make([]Message, len(conv.Messages))
	for i, msg := range conv.Messages {
		clone.Messages[i] = Message{
			Role:    msg.Role,
			Content: append([]ContentBlock(nil), msg.Content...),
		}
	}
	return &clone
}

func summarize(convs []*Conversation) []Summary {
	summaries := make([]Summary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, conv.Summary())
	}
	return summaries
}

// sortSummaries orders summaries by key, falling back to updated_at for unknown keys.
// Ties are broken by id so listings are stable across calls.
func sortSummaries(summaries []Summary, key string, descending bool) {
	less := func(a, b Summary) int {
		switch key {
		case SortCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt)
		case SortMessageCount:
			return a.MessageCount - b.MessageCount
		case SortTotalTokens:
			return a.TotalTokens - b.TotalTokens
		default:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		cmp := less(summaries[i], summaries[j])
		if cmp == 0 {
			return summaries[i].ID < summaries[j].ID
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

// isDescending parses an order query value. Empty defaults to descending.
func isDescending(order string) bool {
	order = strings.TrimSpace(order)
	return order == "" || strings.EqualFold(order, "desc")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
