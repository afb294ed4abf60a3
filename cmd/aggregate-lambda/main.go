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

// Package main runs the claim aggregate function. Deployed it is a plain Lambda
// handler; locally it serves the same operation over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/claimstore"
	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/health"
	"github.com/your-org/ai-services-demos/internal/server"
	"github.com/your-org/ai-services-demos/internal/staging"
)

const serviceName = "aggregate-lambda"

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

	objects, err := staging.New(cfg.Staging, awsCfg, cfg.Aggregate.Bucket)
	if err != nil {
		logger.Fatal("Failed to initialize object store", zap.Error(err))
	}

	store, err := claimstore.New(cfg.ClaimStore, awsCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize claim store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close claim store", zap.Error(err))
		}
	}()

	logger.Info("Aggregate function ready",
		zap.String("bucket", objects.Bucket()),
		zap.String("staging_backend", cfg.Staging.Backend),
		zap.String("claim_store", cfg.ClaimStore.Backend))

	aggregator := aggregate.NewAggregator(objects, store, logger)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(aggregator.Aggregate)
		return
	}

	router := newRouter(aggregator, objects, store, cfg.Logging.Level == "debug", logger)
	if err := server.Run(ctx, cfg.Server.Port, router, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}

// newRouter exposes the aggregate operation for local runs of the preprocessing flow
func newRouter(aggregator *aggregate.Aggregator, objects staging.Store, store aggregate.ClaimStore, debug bool, logger *zap.Logger) *gin.Engine {
	router := server.NewRouter(logger, debug)

	healthManager := health.NewManager(serviceName, "1.0.0", logger)
	healthManager.Add("object_store", objects)
	healthManager.Add("claim_store", store)
	healthManager.RegisterRoutes(router)

	aggregate.NewAPIHandler(aggregator, logger).RegisterRoutes(router)
	return router
}
