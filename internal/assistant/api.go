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
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/knowledgebase"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

var (
	errUnsupportedContentType = resilience.NewSentinel(
		"Content-Type must be multipart/form-data (initial) or application/json (follow-up)",
		resilience.ErrInvalidInput)
	errFollowUpRequiresID = resilience.NewSentinel(
		"conversation_id is required for follow-up. Initial submission with images must use multipart/form-data (not application/json) with exactly 3 image files.",
		resilience.ErrInvalidInput)
	errKnowledgeBaseDisabled = resilience.NewServiceUnavailableError("Knowledge base is not configured", nil)
)

// Querier answers knowledge base questions
type Querier interface {
	Query(ctx context.Context, query string) (*knowledgebase.Answer, error)
}

// APIHandler serves the assistant endpoints
type APIHandler struct {
	service    *Service
	store      *session.Store
	kb         Querier
	bedrock    config.BedrockConfig
	sessionCfg config.SessionConfig
	errors     *resilience.ErrorHandler
	logger     *zap.Logger
}

// NewAPIHandler creates an assistant API handler. kb may be nil when no knowledge
// base is configured.
func NewAPIHandler(service *Service, kb Querier, bedrockCfg config.BedrockConfig, sessionCfg config.SessionConfig, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		service:    service,
		store:      service.Store(),
		kb:         kb,
		bedrock:    bedrockCfg,
		sessionCfg: sessionCfg,
		errors:     resilience.NewErrorHandler(logger),
		logger:     logger,
	}
}

// RegisterRoutes registers chat, conversation, admin, config and query routes
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/chat", h.chat)
	router.GET("/config", h.getConfig)
	router.POST("/query", h.query)

	conversations := router.Group("/conversations")
	conversations.POST("", h.createConversation)
	conversations.GET("", h.listConversations)
	conversations.GET("/:id", h.getConversation)
	conversations.DELETE("/:id", h.deleteConversation)

	admin := router.Group("/admin")
	admin.GET("/analytics", h.analytics)
	admin.GET("/analytics/timeline", h.timeline)
	admin.GET("/conversations", h.adminListConversations)
	admin.GET("/conversations/:id", h.adminGetConversation)
	admin.GET("/conversations/:id/stats", h.adminGetConversation)
	admin.DELETE("/conversations/:id", h.adminDeleteConversation)
	admin.POST("/conversations/bulk-delete", h.bulkDelete)
	admin.GET("/models", h.models)
	admin.GET("/system", h.system)
	admin.GET("/activity/recent", h.recentActivity)
}

type chatJSONRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	ModelID        string `json:"model_id"`
	Temperature    any    `json:"temperature"`
	MaxTokens      any    `json:"max_tokens"`
}

// chat handles POST /chat
func (h *APIHandler) chat(c *gin.Context) {
	req, err := h.parseChatRequest(c)
	if err != nil {
		h.errors.AbortWithError(c, err, "process chat")
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		h.errors.AbortWithError(c, err, "process chat")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) parseChatRequest(c *gin.Context) (ChatRequest, error) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))

	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		req := ChatRequest{
			UserID:         c.PostForm("user_id"),
			ConversationID: c.PostForm("conversation_id"),
			Message:        c.PostForm("message"),
			Overrides: session.Overrides{
				ModelID:     strings.TrimSpace(c.PostForm("model_id")),
				Temperature: parseFloat(c.PostForm("temperature")),
				MaxTokens:   parseInt(c.PostForm("max_tokens")),
			},
		}
		form, err := c.MultipartForm()
		if err != nil {
			return ChatRequest{}, resilience.NewBadRequestError("Invalid multipart form", err)
		}
		for _, fh := range form.File["files"] {
			upload, err := readImage(fh)
			if err != nil {
				return ChatRequest{}, err
			}
			req.Images = append(req.Images, upload)
		}
		return req, nil

	case strings.Contains(contentType, "application/json"):
		var body chatJSONRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return ChatRequest{}, resilience.NewBadRequestError("Invalid JSON body", err)
		}
		if strings.TrimSpace(body.UserID) == "" || strings.TrimSpace(body.Message) == "" {
			return ChatRequest{}, resilience.NewBadRequestError("user_id and message are required", nil)
		}
		if strings.TrimSpace(body.ConversationID) == "" {
			return ChatRequest{}, errFollowUpRequiresID
		}
		return ChatRequest{
			UserID:         body.UserID,
			ConversationID: body.ConversationID,
			Message:        body.Message,
			Overrides: session.Overrides{
				ModelID:     strings.TrimSpace(body.ModelID),
				Temperature: parseFloat(body.Temperature),
				MaxTokens:   parseInt(body.MaxTokens),
			},
		}, nil

	default:
		return ChatRequest{}, errUnsupportedContentType
	}
}

func readImage(fh *multipart.FileHeader) (ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return ImageUpload{}, resilience.NewBadRequestError("Unable to read uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ImageUpload{}, resilience.NewBadRequestError("Unable to read uploaded file", err)
	}
	return ImageUpload{Filename: fh.Filename, Data: data}, nil
}

// parseFloat accepts a form string or JSON number; blank or invalid values are ignored
func parseFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// parseInt accepts a form string or JSON number; blank or invalid values are ignored
func parseInt(v any) *int {
	switch t := v.(type) {
	case float64:
		if t != float64(int(t)) {
			return nil
		}
		n := int(t)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// getConfig handles GET /config
func (h *APIHandler) getConfig(c *gin.Context) {
	defaults := h.store.Defaults()
	limits := h.bedrock.LimitsFor(defaults.ModelID)
	c.JSON(http.StatusOK, gin.H{
		"default_temperature": defaults.Temperature,
		"default_max_tokens":  defaults.MaxTokens,
		"temperature_min":     limits.TemperatureMin,
		"temperature_max":     limits.TemperatureMax,
		"max_tokens_min":      limits.MaxTokensMin,
		"max_tokens_max":      limits.MaxTokensMax,
		"model_id":            defaults.ModelID,
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

// query handles POST /query
func (h *APIHandler) query(c *gin.Context) {
	if h.kb == nil {
		h.errors.AbortWithError(c, errKnowledgeBaseDisabled, "query knowledge base")
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.AbortWithError(c, resilience.NewBadRequestError("Invalid JSON body", err), "query knowledge base")
		return
	}

	answer, err := h.kb.Query(c.Request.Context(), req.Query)
	if err != nil {
		h.errors.AbortWithError(c, err, "query knowledge base")
		return
	}
	c.JSON(http.StatusOK, answer)
}

type createConversationRequest struct {
	UserID      string   `json:"user_id"`
	ModelID     string   `json:"model_id"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// createConversation handles POST /conversations
func (h *APIHandler) createConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.AbortWithError(c, resilience.NewBadRequestError("Invalid JSON body", err), "create conversation")
		return
	}

	conv, err := h.store.Create(c.Request.Context(), req.UserID, session.Overrides{
		ModelID:     req.ModelID,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		h.errors.AbortWithError(c, err, "create conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func requireUserID(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return "", ErrUserRequired
	}
	return userID, nil
}

// listConversations handles GET /conversations?user_id=
func (h *APIHandler) listConversations(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		h.errors.AbortWithError(c, err, "list conversations")
		return
	}

	summaries, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		h.errors.AbortWithError(c, err, "list conversations")
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// getConversation handles GET /conversations/:id?user_id=
func (h *APIHandler) getConversation(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		h.errors.AbortWithError(c, err, "get conversation")
		return
	}

	conv, err := h.store.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.errors.AbortWithError(c, err, "get conversation")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// deleteConversation handles DELETE /conversations/:id?user_id=
func (h *APIHandler) deleteConversation(c *gin.Context) {
	userID, err := requireUserID(c)
	if err != nil {
		h.errors.AbortWithError(c, err, "delete conversation")
		return
	}

	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id, userID); err != nil {
		h.errors.AbortWithError(c, err, "delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Conversation '%s' deleted successfully", id)})
}
