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

// Package main runs the insurance claim processing API, either as an HTTP server
// or behind API Gateway in Lambda.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
	"github.com/your-org/ai-services-demos/internal/claims"
	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/document"
	"github.com/your-org/ai-services-demos/internal/health"
	"github.com/your-org/ai-services-demos/internal/jobs"
	"github.com/your-org/ai-services-demos/internal/server"
	"github.com/your-org/ai-services-demos/internal/speech"
	"github.com/your-org/ai-services-demos/internal/staging"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
	"github.com/your-org/ai-services-demos/internal/translation"
	"github.com/your-org/ai-services-demos/internal/vision"
)

const serviceName = "claims-api"

// dependencies holds the initialized pipeline
type dependencies struct {
	processor    *claims.Processor
	preprocessor *claims.Preprocessor
	health       *health.Manager
}

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
		zap.String("region", masked.AWS.Region),
		zap.String("staging_backend", masked.Staging.Backend),
		zap.String("textract_bucket", masked.Textract.Bucket),
		zap.Bool("enable_translation", masked.Features.EnableTranslation),
		zap.Bool("enable_polly", masked.Features.EnablePolly),
		zap.Bool("enable_rekognition", masked.Features.EnableRekognition),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	deps, err := initializeDependencies(cfg, awsCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	if err := config.WatchConfig(*configPath, func(updated *config.Config) {
		deps.processor.SetFeatures(updated.Features)
		logger.Info("Feature flags reloaded",
			zap.Bool("enable_translation", updated.Features.EnableTranslation),
			zap.Bool("enable_polly", updated.Features.EnablePolly),
			zap.Bool("enable_rekognition", updated.Features.EnableRekognition))
	}, func(err error) {
		logger.Warn("Ignoring invalid configuration reload", zap.Error(err))
	}); err != nil {
		logger.Info("Configuration hot reload disabled", zap.String("reason", err.Error()))
	}

	router := newRouter(cfg, deps, logger)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		logger.Info("Starting in Lambda mode")
		lambda.Start(ginadapter.New(router).ProxyWithContext)
		return
	}

	if err := server.Run(ctx, cfg.Server.Port, router, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Claims API stopped")
}

// initializeDependencies builds every AWS-backed service the pipeline uses
func initializeDependencies(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*dependencies, error) {
	logger.Info("Initializing service dependencies")

	interval, err := cfg.Textract.Interval()
	if err != nil {
		return nil, fmt.Errorf("failed to parse textract poll interval: %w", err)
	}

	healthManager := health.NewManager(serviceName, "1.0.0", logger)

	// Without a staging bucket PDFs are rejected and images still work
	var store staging.Store
	store, err = staging.New(cfg.Staging, awsCfg, cfg.Textract.Bucket)
	switch {
	case errors.Is(err, staging.ErrBucketRequired):
		logger.Warn("No staging bucket configured, PDF analysis disabled")
		store = nil
	case err != nil:
		return nil, fmt.Errorf("failed to initialize staging store: %w", err)
	default:
		healthManager.Add("staging", store)
	}

	text := textanalysis.NewAnalyzer(comprehend.NewFromConfig(awsCfg), cfg.Limits.ComprehendMaxLength, logger)
	images := vision.NewAnalyzer(rekognition.NewFromConfig(awsCfg), logger)
	docs := document.NewAnalyzer(
		textract.NewFromConfig(awsCfg),
		store,
		cfg.Textract.Prefix,
		jobs.NewPoller(interval, cfg.Textract.MaxAttempts, logger),
		logger,
	)

	synth, err := speech.NewSynthesizer(polly.NewFromConfig(awsCfg), cfg.Polly.AudioDir, cfg.Polly.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize speech synthesizer: %w", err)
	}

	translator := translation.NewAWSTranslator(translate.NewFromConfig(awsCfg), cfg.Limits.TranslateMaxBytes, logger)
	batcher := translation.NewBatcher(translator, translation.BatchOptions{
		Delimiter:      cfg.Translation.Delimiter,
		MaxBytes:       cfg.Limits.TranslateMaxBytes,
		MaxConcurrency: cfg.Translation.MaxConcurrency,
	}, logger)

	processor := claims.NewProcessor(claims.Services{
		Text:       text,
		Documents:  docs,
		Images:     images,
		Speech:     synth,
		Batch:      batcher,
		Translator: translator,
	}, cfg.Limits, cfg.Features, logger)

	var preprocessor *claims.Preprocessor
	invoker, err := aggregate.NewInvoker(cfg.Aggregate, awslambda.NewFromConfig(awsCfg), logger)
	switch {
	case errors.Is(err, aggregate.ErrNotConfigured):
		logger.Warn("Aggregate function not configured, /preprocess-claim disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize aggregate invoker: %w", err)
	default:
		preprocessor = claims.NewPreprocessor(text, images, invoker, cfg.Limits.MaxFileBytes, logger)
	}

	healthManager.Add("aws_region", health.PingFunc(func(context.Context) error {
		if cfg.AWS.Region == "" {
			return errors.New("aws region is not configured")
		}
		return nil
	}))

	return &dependencies{processor: processor, preprocessor: preprocessor, health: healthManager}, nil
}

// newRouter wires the claim routes, health and the generated audio files
func newRouter(cfg *config.Config, deps *dependencies, logger *zap.Logger) *gin.Engine {
	router := server.NewRouter(logger, cfg.Logging.Level == "debug")
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	deps.health.RegisterRoutes(router)
	claims.NewAPIHandler(deps.processor, deps.preprocessor, logger).RegisterRoutes(router)
	router.Static(speech.AudioURLPrefix, cfg.Polly.AudioDir)

	logger.Info("Routes registered", zap.Bool("preprocess_enabled", deps.preprocessor != nil))
	return router
}
