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

// Package main runs the damage-assessment assistant: multimodal chat backed by
// Bedrock or OpenAI, conversation management, admin analytics and knowledge-base
// queries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/assistant"
	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/health"
	"github.com/your-org/ai-services-demos/internal/knowledgebase"
	"github.com/your-org/ai-services-demos/internal/llm"
	"github.com/your-org/ai-services-demos/internal/server"
	"github.com/your-org/ai-services-demos/internal/session"
)

const serviceName = "assistant-api"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging, serviceName)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", serviceName),
		zap.String("provider", masked.Bedrock.Provider),
		zap.String("model_id", masked.Bedrock.ModelID),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
		zap.String("knowledge_base_id", masked.KnowledgeBase.ID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	model, err := llm.New(cfg, awsCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat model", zap.Error(err))
	}

	var kb assistant.Querier
	if cfg.KnowledgeBase.ID != "" && cfg.KnowledgeBase.ModelARN != "" {
		kb = knowledgebase.NewClient(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBase, logger)
	} else {
		logger.Warn("Knowledge base not configured, /query disabled")
	}

	router := newRouter(cfg, model, kb, logger)
	if err := server.Run(ctx, cfg.Server.Port, router, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Assistant API stopped")
}

// sessionDefaults are the settings new conversations start from
func sessionDefaults(cfg *config.Config) session.Settings {
	defaults := session.Settings{
		ModelID:     cfg.Bedrock.ModelID,
		Temperature: cfg.Bedrock.DefaultTemperature,
		MaxTokens:   cfg.Bedrock.DefaultMaxTokens,
	}
	if cfg.Bedrock.Provider == llm.ProviderOpenAI && cfg.OpenAI.Model != "" {
		defaults.ModelID = cfg.OpenAI.Model
	}
	return defaults
}

// newRouter wires the assistant routes on top of an in-memory conversation store
func newRouter(cfg *config.Config, model llm.ChatModel, kb assistant.Querier, logger *zap.Logger) *gin.Engine {
	router := server.NewRouter(logger, cfg.Logging.Level == "debug")
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	store := session.NewStore(session.NewMemoryRepository(), sessionDefaults(cfg), logger)
	service := assistant.NewService(store, model, cfg.Bedrock, cfg.Limits.MaxImageBytes, logger)

	healthManager := health.NewManager(serviceName, "1.0.0", logger)
	healthManager.Add("chat_model", health.PingFunc(func(context.Context) error {
		if cfg.Bedrock.Provider == llm.ProviderOpenAI && cfg.OpenAI.APIKey == "" {
			return errors.New("openai api key is not configured")
		}
		return nil
	}))
	healthManager.RegisterRoutes(router)

	assistant.NewAPIHandler(service, kb, cfg.Bedrock, cfg.Session, logger).RegisterRoutes(router)
	return router
}
