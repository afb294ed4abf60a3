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

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/document"
	"github.com/your-org/ai-services-demos/internal/jobs"
	"github.com/your-org/ai-services-demos/internal/knowledgebase"
	"github.com/your-org/ai-services-demos/internal/staging"
	"github.com/your-org/ai-services-demos/internal/translation"
)

func newTranslateCommand(a *app) *cobra.Command {
	var source, target string

	cmd := &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate texts, printing one translation per line",
		Long: `Translate every argument into the target language in as few calls as possible.

Examples:
  aidemo translate --target es "Rear bumper damage" "Broken tail light"
  aidemo translate --source en --target fr "Windshield cracked"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return errors.New("--target is required")
			}
			batcher, err := a.newTranslator(a)
			if err != nil {
				return fmt.Errorf("init translator: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, line := range batcher.TranslateBatch(cmd.Context(), args, source, target) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", translation.AutoDetect, "source language code")
	cmd.Flags().StringVarP(&target, "target", "t", "", "target language code")
	return cmd
}

func newAnalyzeDocumentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze-document FILE",
		Short: "Extract text, form fields and tables from an image or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			analyzer, err := a.newDocuments(a)
			if err != nil {
				return fmt.Errorf("init document analyzer: %w", err)
			}

			isPDF := strings.EqualFold(filepath.Ext(path), ".pdf")
			extraction, err := analyzer.Analyze(cmd.Context(), data, isPDF)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(extraction)
		},
	}
}

func newKBQueryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kb-query QUERY",
		Short: "Ask the knowledge base a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := a.newQuerier(a)
			if err != nil {
				return fmt.Errorf("init knowledge base: %w", err)
			}

			answer, err := kb.Query(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.GeneratedResponse)
			if len(answer.S3Locations) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, loc := range answer.S3Locations {
				fmt.Fprintf(out, "  - %s\n", loc)
			}
			return nil
		},
	}
}

func awsTranslator(a *app) (BatchTranslator, error) {
	translator := translation.NewAWSTranslator(translate.NewFromConfig(a.awsCfg), a.cfg.Limits.TranslateMaxBytes, a.logger)
	return translation.NewBatcher(translator, translation.BatchOptions{
		Delimiter:      a.cfg.Translation.Delimiter,
		MaxBytes:       a.cfg.Limits.TranslateMaxBytes,
		MaxConcurrency: a.cfg.Translation.MaxConcurrency,
	}, a.logger), nil
}

func textractAnalyzer(a *app) (DocumentAnalyzer, error) {
	interval, err := a.cfg.Textract.Interval()
	if err != nil {
		return nil, err
	}

	store, err := staging.New(a.cfg.Staging, a.awsCfg, a.cfg.Textract.Bucket)
	if errors.Is(err, staging.ErrBucketRequired) {
		a.logger.Warn("No staging bucket configured, PDFs will be rejected")
		store = nil
	} else if err != nil {
		return nil, err
	}

	return document.NewAnalyzer(
		textract.NewFromConfig(a.awsCfg),
		store,
		a.cfg.Textract.Prefix,
		jobs.NewPoller(interval, a.cfg.Textract.MaxAttempts, a.logger),
		a.logger,
	), nil
}

func knowledgeBase(a *app) (Querier, error) {
	if a.cfg.KnowledgeBase.ID == "" || a.cfg.KnowledgeBase.ModelARN == "" {
		return nil, knowledgebase.ErrNotConfigured
	}
	a.logger.Debug("Using knowledge base", zap.String("knowledge_base_id", a.cfg.KnowledgeBase.ID))
	return knowledgebase.NewClient(bedrockagentruntime.NewFromConfig(a.awsCfg), a.cfg.KnowledgeBase, a.logger), nil
}
