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

package document

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/jobs"
	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/staging"
)

// DefaultStagingPrefix is the key prefix for PDFs staged for async analysis
const DefaultStagingPrefix = "textract-temp/"

// cleanupTimeout bounds the staged object delete once the caller's context is gone
const cleanupTimeout = 10 * time.Second

// ErrStagingRequired is returned for PDFs when no staging bucket is configured
var ErrStagingRequired = resilience.NewSentinel(
	"PDF processing requires a staging bucket. Set TEXTRACT_S3_BUCKET.", resilience.ErrInvalidInput)

// TextractAPI is the part of the Textract client used by Analyzer
type TextractAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
	StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
	GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

// Analyzer extracts forms and tables from images and PDFs
type Analyzer struct {
	client TextractAPI
	store  staging.Store
	prefix string
	poller *jobs.Poller
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. store may be nil, in which case PDFs are rejected.
func NewAnalyzer(client TextractAPI, store staging.Store, prefix string, poller *jobs.Poller, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poller == nil {
		poller = &jobs.Poller{Logger: logger}
	}
	if prefix == "" {
		prefix = DefaultStagingPrefix
	}
	return &Analyzer{client: client, store: store, prefix: prefix, poller: poller, logger: logger}
}

var analysisFeatures = []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables}

// Analyze runs synchronous analysis for images and the staged async job for PDFs
func (a *Analyzer) Analyze(ctx context.Context, data []byte, isPDF bool) (Extraction, error) {
	if isPDF {
		return a.analyzePDF(ctx, data)
	}

	out, err := a.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: data},
		FeatureTypes: analysisFeatures,
	})
	if err != nil {
		return Extraction{}, resilience.WrapDependency("textract", err)
	}

	return Reconstruct(FromTextract(out.Blocks)), nil
}

func (a *Analyzer) analyzePDF(ctx context.Context, data []byte) (Extraction, error) {
	if a.store == nil {
		return Extraction{}, ErrStagingRequired
	}

	key := a.prefix + uuid.NewString() + ".pdf"
	obj, err := a.store.Put(ctx, key, data, "application/pdf")
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to stage PDF: %w", err)
	}
	a.logger.Info("Staged PDF for analysis", zap.String("object", obj.URL))

	defer a.removeStaged(ctx, obj)

	start, err := a.client.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(obj.Bucket),
				Name:   aws.String(obj.Key),
			},
		},
		FeatureTypes: analysisFeatures,
	})
	if err != nil {
		return Extraction{}, resilience.WrapDependency("textract", err)
	}
	jobID := aws.ToString(start.JobId)
	a.logger.Info("Started document analysis job", zap.String("job_id", jobID))

	var first *textract.GetDocumentAnalysisOutput
	err = a.poller.Wait(ctx, jobID, func(ctx context.Context) (jobs.Status, string, error) {
		out, err := a.client.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{JobId: aws.String(jobID)})
		if err != nil {
			return "", "", resilience.WrapDependency("textract", err)
		}
		first = out
		return jobs.Status(out.JobStatus), aws.ToString(out.StatusMessage), nil
	})
	if err != nil {
		return Extraction{}, err
	}

	blocks := append([]types.Block(nil), first.Blocks...)
	for next := first.NextToken; next != nil; {
		page, err := a.client.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: next,
		})
		if err != nil {
			return Extraction{}, resilience.WrapDependency("textract", err)
		}
		blocks = append(blocks, page.Blocks...)
		next = page.NextToken
	}

	a.logger.Info("Document analysis finished",
		zap.String("job_id", jobID),
		zap.Int("blocks", len(blocks)))
	return Reconstruct(FromTextract(blocks)), nil
}

// removeStaged runs even when ctx is already cancelled
func (a *Analyzer) removeStaged(ctx context.Context, obj staging.Object) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := a.store.Delete(cleanupCtx, obj.Key); err != nil {
		a.logger.Warn("Failed to delete staged object",
			zap.String("object", obj.URL),
			zap.Error(err))
		return
	}
	a.logger.Info("Deleted staged object", zap.String("object", obj.URL))
}
