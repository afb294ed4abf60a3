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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/knowledgebase"
	"github.com/your-org/ai-services-demos/internal/llm"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

type fakeModel struct {
	mu       sync.Mutex
	requests []llm.Request
	reply    string
	err      error
}

func (f *fakeModel) Converse(_ context.Context, req llm.Request) (*llm.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Reply{Text: f.reply, Usage: &llm.Usage{InputTokens: 80, OutputTokens: 20, TotalTokens: 100}}, nil
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var defaults = session.Settings{ModelID: "us.anthropic.claude-sonnet-4-20250514-v1:0", Temperature: 0.2, MaxTokens: 1000}

func newService(t *testing.T, model llm.ChatModel) *Service {
	t.Helper()
	store := session.NewStore(session.NewMemoryRepository(), defaults, zaptest.NewLogger(t))
	return NewService(store, model, config.BedrockConfig{}, 0, zaptest.NewLogger(t))
}

func threePhotos() []ImageUpload {
	return []ImageUpload{
		{Filename: "wide.jpg", Data: []byte("wide")},
		{Filename: "straight.png", Data: []byte("straight")},
		{Filename: "closeup.webp", Data: []byte("closeup")},
	}
}

func startConversation(t *testing.T, svc *Service, userID string) *ChatResponse {
	t.Helper()
	resp, err := svc.Chat(context.Background(), ChatRequest{UserID: userID, Message: "Rear-ended at a light", Images: threePhotos()})
	require.NoError(t, err)
	return resp
}

func TestImageBlock(t *testing.T) {
	block, err := ImageBlock(ImageUpload{Filename: "Photo.JPEG", Data: []byte("x")}, 0)
	require.NoError(t, err)
	require.NotNil(t, block.Image)
	assert.Equal(t, "jpeg", block.Image.Format)

	tests := []struct {
		name    string
		upload  ImageUpload
		message string
	}{
		{"too large", ImageUpload{Filename: "big.png", Data: make([]byte, 11)}, "exceeds maximum size"},
		{"no filename", ImageUpload{Data: []byte("x")}, "must have a filename"},
		{"no extension", ImageUpload{Filename: "photo", Data: []byte("x")}, "Unable to determine file type"},
		{"unsupported", ImageUpload{Filename: "scan.bmp", Data: []byte("x")}, "'.bmp' is not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImageBlock(tt.upload, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, resilience.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestChatInitialSubmission(t *testing.T) {
	model := &fakeModel{reply: "## Damage Summary\nModerate rear damage."}
	svc := newService(t, model)

	resp := startConversation(t, svc, "alice")
	assert.Equal(t, "## Damage Summary\nModerate rear damage.", resp.Message)
	assert.Equal(t, defaults.ModelID, resp.ModelID)
	assert.Equal(t, 100, resp.Usage.TotalTokens)
	require.NotEmpty(t, resp.ConversationID)

	require.Equal(t, 1, model.calls())
	req := model.requests[0]
	assert.Equal(t, SystemPrompt, req.System)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Len(t, req.Messages[0].Content, 4)

	conv, err := svc.Store().Get(context.Background(), resp.ConversationID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.MessageCount)
	assert.Equal(t, 3, conv.FileCount)
	assert.True(t, conv.HasMultimodal)
	assert.Equal(t, 100, conv.TotalTokens)
}

func TestChatInitialRequiresThreeImages(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := newService(t, model)

	_, err := svc.Chat(context.Background(), ChatRequest{UserID: "alice", Message: "hi", Images: threePhotos()[:2]})
	require.ErrorIs(t, err, ErrInitialImages)
	assert.Zero(t, model.calls())
}

func TestChatValidation(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := newService(t, model)
	ctx := context.Background()

	_, err := svc.Chat(ctx, ChatRequest{Message: "hi", Images: threePhotos()})
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "  ", Images: threePhotos()})
	assert.ErrorIs(t, err, ErrMessageRequired)

	photos := threePhotos()
	photos[2].Filename = "notes.txt"
	_, err = svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "hi", Images: photos})
	assert.ErrorIs(t, err, resilience.ErrInvalidInput)

	hot := 1.5
	_, err = svc.Chat(ctx, ChatRequest{UserID: "alice", Message: "hi", Images: threePhotos(), Overrides: session.Overrides{Temperature: &hot}})
	require.ErrorIs(t, err, resilience.ErrInvalidInput)
	assert.Contains(t, err.Error(), "temperature")

	assert.Zero(t, model.calls())
}

func TestChatFollowUpInheritsSettings(t *testing.T) {
	model := &fakeModel{reply: "first"}
	svc := newService(t, model)
	ctx := context.Background()

	temp := 0.6
	resp, err := svc.Chat(ctx, ChatRequest{
		UserID: "alice", Message: "assess", Images: threePhotos(),
		Overrides: session.Overrides{Temperature: &temp},
	})
	require.NoError(t, err)

	model.reply = "second"
	follow, err := svc.Chat(ctx, ChatRequest{UserID: "alice", ConversationID: resp.ConversationID, Message: "Is it safe to drive?"})
	require.NoError(t, err)
	assert.Equal(t, "second", follow.Message)
	assert.Equal(t, resp.ConversationID, follow.ConversationID)

	require.Equal(t, 2, model.calls())
	req := model.requests[1]
	assert.Equal(t, 0.6, req.Temperature)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "Is it safe to drive?", req.Messages[2].Text())

	maxTokens := 300
	_, err = svc.Chat(ctx, ChatRequest{
		UserID: "alice", ConversationID: resp.ConversationID, Message: "shorter please",
		Overrides: session.Overrides{MaxTokens: &maxTokens},
	})
	require.NoError(t, err)
	assert.Equal(t, 300, model.requests[2].MaxTokens)
	assert.Equal(t, 0.6, model.requests[2].Temperature)

	conv, err := svc.Store().Get(ctx, resp.ConversationID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 6, conv.MessageCount)
	assert.Equal(t, 300, conv.TotalTokens)
	assert.Equal(t, 0.6, conv.Temperature)
}

func TestChatFollowUpOwnership(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := newService(t, model)
	resp := startConversation(t, svc, "alice")

	_, err := svc.Chat(context.Background(), ChatRequest{UserID: "bob", ConversationID: resp.ConversationID, Message: "mine now"})
	assert.ErrorIs(t, err, session.ErrForbidden)

	_, err = svc.Chat(context.Background(), ChatRequest{UserID: "alice", ConversationID: "missing", Message: "hello"})
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.Equal(t, 1, model.calls())
}

func TestChatModelFailureKeepsUserMessage(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := newService(t, model)
	resp := startConversation(t, svc, "alice")

	model.err = resilience.WrapDependency("bedrock", errors.New("ThrottlingException"))
	_, err := svc.Chat(context.Background(), ChatRequest{UserID: "alice", ConversationID: resp.ConversationID, Message: "still there?"})
	require.ErrorIs(t, err, resilience.ErrDependency)

	conv, err := svc.Store().Get(context.Background(), resp.ConversationID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, conv.MessageCount)
}

type fakeKB struct {
	answer *knowledgebase.Answer
	err    error
}

func (f *fakeKB) Query(_ context.Context, query string) (*knowledgebase.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	answer := *f.answer
	answer.Query = query
	return &answer, nil
}

func newRouter(t *testing.T, svc *Service, kb Querier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(resilience.RequestIDMiddleware())
	NewAPIHandler(svc, kb, config.BedrockConfig{}, config.SessionConfig{RecentActivityLimit: 20, TimelineDays: 30}, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r
}

func do(router *gin.Engine, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func chatForm(t *testing.T, fields map[string]string, files []string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) resilience.ErrorResponse {
	t.Helper()
	var resp resilience.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestChatEndpointMultipartThenJSON(t *testing.T) {
	model := &fakeModel{reply: "assessment"}
	router := newRouter(t, newService(t, model), nil)

	body, ct := chatForm(t,
		map[string]string{"user_id": "alice", "message": "Hit a pole", "temperature": "0.4", "max_tokens": ""},
		[]string{"a.jpg", "b.jpg", "c.png"})
	w := do(router, http.MethodPost, "/chat", ct, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "assessment", first.Message)
	require.NotEmpty(t, first.ConversationID)
	assert.Equal(t, 0.4, model.requests[0].Temperature)
	assert.Equal(t, 1000, model.requests[0].MaxTokens)

	w = do(router, http.MethodPost, "/chat", "application/json", jsonBody(t, map[string]any{
		"user_id":         "alice",
		"conversation_id": first.ConversationID,
		"message":         "What about the headlight?",
		"max_tokens":      500,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 500, model.requests[1].MaxTokens)
	assert.Equal(t, 0.4, model.requests[1].Temperature)
}

func TestChatEndpointRejections(t *testing.T) {
	router := newRouter(t, newService(t, &fakeModel{reply: "ok"}), nil)

	w := do(router, http.MethodPost, "/chat", "application/json", jsonBody(t, map[string]any{"user_id": "alice", "message": "hi"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "conversation_id is required")

	w = do(router, http.MethodPost, "/chat", "text/plain", bytes.NewBufferString("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "Content-Type must be")

	body, ct := chatForm(t, map[string]string{"user_id": "alice", "message": "hi"}, []string{"a.jpg"})
	w = do(router, http.MethodPost, "/chat", ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "exactly 3 images")
}

func TestConversationEndpoints(t *testing.T) {
	svc := newService(t, &fakeModel{reply: "ok"})
	router := newRouter(t, svc, nil)

	w := do(router, http.MethodPost, "/conversations", "application/json", jsonBody(t, map[string]any{"user_id": "alice", "max_tokens": 256}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conv session.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, 256, conv.MaxTokens)
	assert.Equal(t, defaults.ModelID, conv.ModelID)

	w = do(router, http.MethodGet, "/conversations", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/conversations?user_id=alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []session.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, conv.ID, summaries[0].ID)

	w = do(router, http.MethodGet, "/conversations/"+conv.ID+"?user_id=bob", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have access to this conversation", decodeError(t, w).Error)

	w = do(router, http.MethodGet, "/conversations/missing?user_id=alice", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/conversations/"+conv.ID+"?user_id=alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted successfully")

	w = do(router, http.MethodGet, "/conversations/"+conv.ID+"?user_id=alice", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	svc := newService(t, &fakeModel{reply: "ok"})
	router := newRouter(t, svc, nil)

	first := startConversation(t, svc, "alice")
	second := startConversation(t, svc, "bob")

	w := do(router, http.MethodGet, "/admin/analytics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var analytics session.Analytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analytics))
	assert.Equal(t, 2, analytics.TotalConversations)
	assert.Equal(t, 6, analytics.TotalFilesUploaded)

	w = do(router, http.MethodGet, "/admin/analytics/timeline?days=7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var timeline struct {
		Timeline []session.TimelinePoint `json:"timeline"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &timeline))
	require.Len(t, timeline.Timeline, 8)
	assert.Equal(t, 2, timeline.Timeline[7].Conversations)

	w = do(router, http.MethodGet, "/admin/conversations/"+first.ConversationID+"/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/admin/models", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), defaults.ModelID)

	w = do(router, http.MethodGet, "/admin/system", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"default_max_tokens":1000`)

	w = do(router, http.MethodGet, "/admin/activity/recent?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recent []session.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recent))
	assert.Len(t, recent, 1)

	w = do(router, http.MethodPost, "/admin/conversations/bulk-delete", "application/json",
		jsonBody(t, []string{first.ConversationID, "missing"}))
	require.Equal(t, http.StatusOK, w.Code)
	var result session.BulkDeleteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.DeletedCount)
	assert.Equal(t, []string{"missing"}, result.NotFound)

	w = do(router, http.MethodPost, "/admin/conversations/bulk-delete", "application/json", bytes.NewBufferString(`{"ids": 1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodDelete, "/admin/conversations/"+second.ConversationID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodDelete, "/admin/conversations/"+second.ConversationID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigEndpoint(t *testing.T) {
	router := newRouter(t, newService(t, &fakeModel{}), nil)

	w := do(router, http.MethodGet, "/config", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, 0.2, cfg["default_temperature"])
	assert.Equal(t, 1000.0, cfg["default_max_tokens"])
	assert.Equal(t, 1.0, cfg["temperature_max"])
	assert.Equal(t, 8192.0, cfg["max_tokens_max"])
	assert.Equal(t, defaults.ModelID, cfg["model_id"])
}

func TestQueryEndpoint(t *testing.T) {
	router := newRouter(t, newService(t, &fakeModel{}), nil)
	w := do(router, http.MethodPost, "/query", "application/json", jsonBody(t, map[string]string{"query": "coverage?"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	kb := &fakeKB{answer: &knowledgebase.Answer{GeneratedResponse: "Yes.", S3Locations: []string{"s3://kb/policy.pdf"}}}
	router = newRouter(t, newService(t, &fakeModel{}), kb)
	w = do(router, http.MethodPost, "/query", "application/json", jsonBody(t, map[string]string{"query": "coverage?"}))
	require.Equal(t, http.StatusOK, w.Code)

	var answer knowledgebase.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "coverage?", answer.Query)
	assert.Equal(t, []string{"s3://kb/policy.pdf"}, answer.S3Locations)

	kb.err = knowledgebase.ErrEmptyQuery
	w = do(router, http.MethodPost, "/query", "application/json", jsonBody(t, map[string]string{"query": ""}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(decodeError(t, w).Error, "query is required"))
}
