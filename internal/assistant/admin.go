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

package assistant

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

// ErrInvalidIDList is returned when the bulk delete body is not a JSON array of ids
var ErrInvalidIDList = resilience.NewSentinel("Request body must be a JSON array of conversation ids", resilience.ErrInvalidInput)

// analytics handles GET /admin/analytics
func (h *APIHandler) analytics(c *gin.Context) {
	a, err := h.store.Analytics(c.Request.Context())
	if err != nil {
		h.errors.AbortWithError(c, err, "compute analytics")
		return
	}
	c.JSON(http.StatusOK, a)
}

// timeline handles GET /admin/analytics/timeline?days=
func (h *APIHandler) timeline(c *gin.Context) {
	days := queryInt(c, "days", h.sessionCfg.TimelineDays)
	points, err := h.store.Timeline(c.Request.Context(), days)
	if err != nil {
		h.errors.AbortWithError(c, err, "compute timeline")
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": points})
}

// adminListConversations handles GET /admin/conversations?sort_by=&order=
func (h *APIHandler) adminListConversations(c *gin.Context) {
	summaries, err := h.store.AdminList(c.Request.Context(),
		c.DefaultQuery("sort_by", session.SortUpdatedAt),
		c.DefaultQuery("order", "desc"))
	if err != nil {
		h.errors.AbortWithError(c, err, "list conversations")
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// adminGetConversation handles GET /admin/conversations/:id and its /stats alias
func (h *APIHandler) adminGetConversation(c *gin.Context) {
	conv, err := h.store.AdminGet(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errors.AbortWithError(c, err, "get conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// adminDeleteConversation handles DELETE /admin/conversations/:id
func (h *APIHandler) adminDeleteConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.AdminDelete(c.Request.Context(), id); err != nil {
		h.errors.AbortWithError(c, err, "delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Conversation '%s' deleted", id)})
}

// bulkDelete handles POST /admin/conversations/bulk-delete with a JSON array of ids
func (h *APIHandler) bulkDelete(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		h.errors.AbortWithError(c, ErrInvalidIDList, "bulk delete conversations")
		return
	}

	result, err := h.store.BulkDelete(c.Request.Context(), ids)
	if err != nil {
		h.errors.AbortWithError(c, err, "bulk delete conversations")
		return
	}
	c.JSON(http.StatusOK, result)
}

// models handles GET /admin/models
func (h *APIHandler) models(c *gin.Context) {
	models, err := h.store.ModelUsage(c.Request.Context())
	if err != nil {
		h.errors.AbortWithError(c, err, "compute model usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// system handles GET /admin/system
func (h *APIHandler) system(c *gin.Context) {
	info, err := h.store.SystemInfo(c.Request.Context())
	if err != nil {
		h.errors.AbortWithError(c, err, "read system info")
		return
	}
	c.JSON(http.StatusOK, info)
}

// recentActivity handles GET /admin/activity/recent?limit=
func (h *APIHandler) recentActivity(c *gin.Context) {
	limit := queryInt(c, "limit", h.sessionCfg.RecentActivityLimit)
	summaries, err := h.store.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		h.errors.AbortWithError(c, err, "list recent activity")
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
