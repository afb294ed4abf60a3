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

// Package cli provides the aidemo command-line interface
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/document"
	"github.com/your-org/ai-services-demos/internal/knowledgebase"
)

// Version is set at build time
var Version = "0.1.0"

// BatchTranslator translates many texts into one language
type BatchTranslator interface {
	TranslateBatch(ctx context.Context, texts []string, source, target string) []string
}

// DocumentAnalyzer extracts text, forms and tables from a document
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, data []byte, isPDF bool) (document.Extraction, error)
}

// Querier answers questions from the knowledge base
type Querier interface {
	Query(ctx context.Context, query string) (*knowledgebase.Answer, error)
}

// app carries state shared by every subcommand. The constructors are replaced in
// tests.
type app struct {
	configPath string
	cfg        *config.Config
	awsCfg     aws.Config
	logger     *zap.Logger
	out        io.Writer

	newTranslator func(a *app) (BatchTranslator, error)
	newDocuments  func(a *app) (DocumentAnalyzer, error)
	newQuerier    func(a *app) (Querier, error)
}

func newApp() *app {
	return &app{
		out:           os.Stdout,
		newTranslator: awsTranslator,
		newDocuments:  textractAnalyzer,
		newQuerier:    knowledgeBase,
	}
}

// NewRootCommand builds the aidemo command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "aidemo",
		Short: "Run the AI service demos from the command line",
		Long: `aidemo drives the same AWS-backed building blocks the demo services use.

Examples:
  aidemo translate --target es "The car was hit from behind"
  aidemo analyze-document ./claim-form.pdf
  aidemo kb-query "What does collision coverage include?"`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")
	root.SetOut(a.out)

	root.AddCommand(newTranslateCommand(a))
	root.AddCommand(newAnalyzeDocumentCommand(a))
	root.AddCommand(newKBQueryCommand(a))
	return root
}

// setup loads configuration, the logger and AWS settings once
func (a *app) setup(ctx context.Context) error {
	if a.cfg != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Output = "stderr"

	logger, err := config.NewLogger(cfg.Logging, "aidemo")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.awsCfg = awsCfg
	return nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
