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
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultTimelineDays is the window of the analytics timeline
const DefaultTimelineDays = 30

// DefaultRecentLimit bounds the recent activity listing
const DefaultRecentLimit = 20

// Analytics aggregates every stored conversation
type Analytics struct {
	TotalConversations             int     `json:"total_conversations"`
	TotalMessages                  int     `json:"total_messages"`
	TotalTokens                    int     `json:"total_tokens"`
	AverageTokensPerConversation   float64 `json:"average_tokens_per_conversation"`
	AverageMessagesPerConversation float64 `json:"average_messages_per_conversation"`
	ConversationsWithMultimodal    int     `json:"conversations_with_multimodal"`
	TotalFilesUploaded             int     `json:"total_files_uploaded"`
	MostUsedModel                  *string `json:"most_used_model"`
}

// TimelinePoint is one day of conversation activity
type TimelinePoint struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
	Tokens        int    `json:"tokens"`
}

// ModelUsage is the per-model breakdown
type ModelUsage struct {
	ModelID                      string  `json:"model_id"`
	ConversationCount            int     `json:"conversation_count"`
	TotalTokens                  int     `json:"total_tokens"`
	AverageTokensPerConversation float64 `json:"average_tokens_per_conversation"`
}

// SystemInfo reports totals and the configured defaults
type SystemInfo struct {
	TotalConversations int     `json:"total_conversations"`
	TotalMessages      int     `json:"total_messages"`
	TotalTokens        int     `json:"total_tokens"`
	DefaultModelID     string  `json:"default_model_id"`
	DefaultTemperature float64 `json:"default_temperature"`
	DefaultMaxTokens   int     `json:"default_max_tokens"`
}

// BulkDeleteResult reports the outcome of an admin bulk delete
type BulkDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	NotFound     []string `json:"not_found"`
	Message      string   `json:"message"`
}

type bulkDeleter interface {
	DeleteMany(ctx context.Context, ids []string) (int, []string)
}

// AdminGet returns any conversation without an ownership check
func (s *Store) AdminGet(ctx context.Context, id string) (*Conversation, error) {
	return s.repo.Get(ctx, id)
}

// AdminDelete removes any conversation without an ownership check
func (s *Store) AdminDelete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Admin deleted conversation", zap.String("conversation_id", id))
	return nil
}

// BulkDelete removes every listed conversation and reports the ids that were unknown
func (s *Store) BulkDelete(ctx context.Context, ids []string) (BulkDeleteResult, error) {
	var (
		deleted  int
		notFound []string
	)

	if bulk, ok := s.repo.(bulkDeleter); ok {
		deleted, notFound = bulk.DeleteMany(ctx, ids)
	} else {
		notFound = []string{}
		for _, id := range ids {
			err := s.repo.Delete(ctx, id)
			switch {
			case err == nil:
				deleted++
			case errors.Is(err, ErrNotFound):
				notFound = append(notFound, id)
			default:
				return BulkDeleteResult{}, fmt.Errorf("failed to delete conversation %s: %w", id, err)
			}
		}
	}

	s.logger.Info("Bulk deleted conversations",
		zap.Int("requested", len(ids)),
		zap.Int("deleted", deleted))

	return BulkDeleteResult{
		DeletedCount: deleted,
		NotFound:     notFound,
		Message:      fmt.Sprintf("Deleted %d conversation(s)", deleted),
	}, nil
}

// AdminList returns every conversation summary sorted by sortBy and order
func (s *Store) AdminList(ctx context.Context, sortBy, order string) ([]Summary, error) {
	convs, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	summaries := summarize(convs)
	sortSummaries(summaries, sortBy, isDescending(order))
	return summaries, nil
}

// RecentActivity returns up to limit of the most recently updated conversations
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	summaries, err := s.AdminList(ctx, SortUpdatedAt, "desc")
	if err != nil {
		return nil, err
	}
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Analytics computes totals and averages over a snapshot of the store
func (s *Store) Analytics(ctx context.Context) (Analytics, error) {
	convs, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return computeAnalytics(convs), nil
}

// Timeline returns one point per day for the last days days, oldest first. Days
// without conversations are zero-filled.
func (s *Store) Timeline(ctx context.Context, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = DefaultTimelineDays
	}
	convs, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return computeTimeline(convs, s.now(), days), nil
}

// ModelUsage returns per-model statistics, most used first
func (s *Store) ModelUsage(ctx context.Context) ([]ModelUsage, error) {
	convs, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return computeModelUsage(convs, s.defaults.ModelID), nil
}

// SystemInfo returns store totals and the configured defaults
func (s *Store) SystemInfo(ctx context.Context) (SystemInfo, error) {
	convs, err := s.repo.Snapshot(ctx)
	if err != nil {
		return SystemInfo{}, err
	}

	info := SystemInfo{
		TotalConversations: len(convs),
		DefaultModelID:     s.defaults.ModelID,
		DefaultTemperature: s.defaults.Temperature,
		DefaultMaxTokens:   s.defaults.MaxTokens,
	}
	for _, conv := range convs {
		info.TotalMessages += conv.MessageCount
		info.TotalTokens += conv.TotalTokens
	}
	return info, nil
}

func computeAnalytics(convs []*Conversation) Analytics {
	var a Analytics
	if len(convs) == 0 {
		return a
	}

	modelCounts := make(map[string]int)
	for _, conv := range convs {
		a.TotalMessages += conv.MessageCount
		a.TotalTokens += conv.TotalTokens
		a.TotalFilesUploaded += conv.FileCount
		if conv.HasMultimodal {
			a.ConversationsWithMultimodal++
		}
		modelCounts[conv.ModelID]++
	}

	a.TotalConversations = len(convs)
	a.AverageTokensPerConversation = round2(float64(a.TotalTokens) / float64(a.TotalConversations))
	a.AverageMessagesPerConversation = round2(float64(a.TotalMessages) / float64(a.TotalConversations))

	var (
		best      string
		bestCount int
	)
	for model, count := range modelCounts {
		if count > bestCount || (count == bestCount && model < best) {
			best, bestCount = model, count
		}
	}
	a.MostUsedModel = &best
	return a
}

func computeTimeline(convs []*Conversation, now time.Time, days int) []TimelinePoint {
	end := truncateDay(now)
	start := end.AddDate(0, 0, -days)

	daily := make(map[string]*TimelinePoint)
	for _, conv := range convs {
		created := truncateDay(conv.CreatedAt)
		if created.Before(start) || created.After(end) {
			continue
		}
		key := created.Format(time.DateOnly)
		point, ok := daily[key]
		if !ok {
			point = &TimelinePoint{Date: key}
			daily[key] = point
		}
		point.Conversations++
		point.Messages += conv.MessageCount
		point.Tokens += conv.TotalTokens
	}

	timeline := make([]TimelinePoint, 0, days+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		if point, ok := daily[key]; ok {
			timeline = append(timeline, *point)
			continue
		}
		timeline = append(timeline, TimelinePoint{Date: key})
	}
	return timeline
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func computeModelUsage(convs []*Conversation, defaultModel string) []ModelUsage {
	byModel := make(map[string]*ModelUsage)
	for _, conv := range convs {
		model := conv.ModelID
		if model == "" {
			model = defaultModel
		}
		usage, ok := byModel[model]
		if !ok {
			usage = &ModelUsage{ModelID: model}
			byModel[model] = usage
		}
		usage.ConversationCount++
		usage.TotalTokens += conv.TotalTokens
	}

	models := make([]ModelUsage, 0, len(byModel))
	for _, usage := range byModel {
		usage.AverageTokensPerConversation = round2(float64(usage.TotalTokens) / float64(usage.ConversationCount))
		models = append(models, *usage)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].ConversationCount != models[j].ConversationCount {
			return models[i].ConversationCount > models[j].ConversationCount
		}
		return models[i].ModelID < models[j].ModelID
	})
	return models
}
