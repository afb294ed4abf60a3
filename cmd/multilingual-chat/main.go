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

// Package main runs the multilingual chat room over websockets
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/health"
	"github.com/your-org/ai-services-demos/internal/multilingual"
	"github.com/your-org/ai-services-demos/internal/server"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
	"github.com/your-org/ai-services-demos/internal/translation"
)

const serviceName = "multilingual-chat"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	translator := translation.NewAWSTranslator(translate.NewFromConfig(awsCfg), cfg.Limits.TranslateMaxBytes, logger)
	batcher := translation.NewBatcher(translator, translation.BatchOptions{
		Delimiter:      cfg.Translation.Delimiter,
		MaxBytes:       cfg.Limits.TranslateMaxBytes,
		MaxConcurrency: cfg.Translation.MaxConcurrency,
	}, logger)
	sentiment := textanalysis.NewAnalyzer(comprehend.NewFromConfig(awsCfg), cfg.Limits.ComprehendMaxLength, logger)

	room := multilingual.NewRoom(cfg.Multilingual.Participants, batcher, sentiment, logger)
	hub := multilingual.NewHub(logger)
	defer hub.Close()

	logger.Info("Chat room ready", zap.Any("participants", room.Participants()))

	router := newRouter(cfg, room, hub, logger)
	if err := server.Run(ctx, cfg.Server.Port, router, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, room *multilingual.Room, hub *multilingual.Hub, logger *zap.Logger) *gin.Engine {
	router := server.NewRouter(logger, cfg.Logging.Level == "debug")

	health.NewManager(serviceName, "1.0.0", logger).RegisterRoutes(router)

	multilingual.NewHandler(room, hub, logger).RegisterRoutes(router)
	if cfg.Server.StaticDir != "" {
		router.Static("/static", cfg.Server.StaticDir)
	}
	return router
}
