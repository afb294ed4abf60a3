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

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/llm"
)

type echoModel struct{}

func (echoModel) Converse(_ context.Context, req llm.Request) (*llm.Reply, error) {
	return &llm.Reply{Text: "ok", Usage: &llm.Usage{TotalTokens: 10}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", MaxUploadBytes: 1 << 20},
		Limits:  config.LimitsConfig{MaxImageBytes: 1 << 20},
		Bedrock: config.BedrockConfig{Provider: llm.ProviderBedrock, ModelID: "model-a", DefaultTemperature: 0.2, DefaultMaxTokens: 1000},
		OpenAI:  config.OpenAIConfig{Model: "gpt-4o"},
		Session: config.SessionConfig{RecentActivityLimit: 20, TimelineDays: 30},
	}
}

func TestSessionDefaults(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "model-a", sessionDefaults(cfg).ModelID)

	cfg.Bedrock.Provider = llm.ProviderOpenAI
	defaults := sessionDefaults(cfg)
	assert.Equal(t, "gpt-4o", defaults.ModelID)
	assert.Equal(t, 1000, defaults.MaxTokens)
}

func TestRouterWiring(t *testing.T) {
	router := newRouter(testConfig(), echoModel{}, nil, zaptest.NewLogger(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/conversations", strings.NewReader(`{"user_id":"u1"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversations?user_id=u1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "model-a")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"deductible"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
