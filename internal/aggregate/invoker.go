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

package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/config"
	"github.com/your-org/ai-services-demos/internal/resilience"
)

// ErrNotConfigured is returned when neither a local URL nor a function name is set
var ErrNotConfigured = errors.New("either AGGREGATE_LAMBDA_LOCAL_URL or AGGREGATE_LAMBDA_FUNCTION_NAME must be set")

const localTimeout = 30 * time.Second

// Invoker sends a Request to the aggregate function
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Record, error)
}

// LambdaAPI is the part of the Lambda client used by LambdaInvoker
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// NewInvoker prefers the local URL and falls back to the deployed function
func NewInvoker(cfg config.AggregateConfig, client LambdaAPI, logger *zap.Logger) (Invoker, error) {
	switch {
	case cfg.LocalURL != "":
		return NewHTTPInvoker(cfg.LocalURL, nil, logger), nil
	case cfg.FunctionName != "":
		return NewLambdaInvoker(client, cfg.FunctionName, logger), nil
	default:
		return nil, ErrNotConfigured
	}
}

// LambdaInvoker calls a deployed function synchronously
type LambdaInvoker struct {
	client       LambdaAPI
	functionName string
	logger       *zap.Logger
}

// NewLambdaInvoker creates a LambdaInvoker
func NewLambdaInvoker(client LambdaAPI, functionName string, logger *zap.Logger) *LambdaInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LambdaInvoker{client: client, functionName: functionName, logger: logger}
}

type functionError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// Invoke runs the function with RequestResponse invocation
func (l *LambdaInvoker) Invoke(ctx context.Context, req Request) (Record, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal aggregate request: %w", err)
	}

	l.logger.Info("Invoking aggregate function", zap.String("function", l.functionName))
	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return Record{}, resilience.WrapDependency("lambda", err)
	}

	if out.FunctionError != nil {
		var fe functionError
		_ = json.Unmarshal(out.Payload, &fe)
		if fe.ErrorMessage == "" {
			fe.ErrorMessage = "Unknown error"
		}
		l.logger.Error("Aggregate function failed",
			zap.String("function_error", aws.ToString(out.FunctionError)),
			zap.String("message", fe.ErrorMessage))
		return Record{}, resilience.WrapDependency("lambda", fmt.Errorf("lambda invocation error: %s", fe.ErrorMessage))
	}

	var record Record
	if err := json.Unmarshal(out.Payload, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode aggregate response: %w", err)
	}
	l.logger.Info("Aggregate function returned", zap.String("claim_id", record.ClaimID))
	return record, nil
}

// HTTPInvoker posts to a locally running aggregate service
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPInvoker creates an HTTPInvoker; a nil client gets a 30 second timeout
func NewHTTPInvoker(baseURL string, client *http.Client, logger *zap.Logger) *HTTPInvoker {
	if client == nil {
		client = &http.Client{Timeout: localTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPInvoker{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

// Invoke posts req to <baseURL>/aggregate
func (h *HTTPInvoker) Invoke(ctx context.Context, req Request) (Record, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal aggregate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/aggregate", bytes.NewReader(body))
	if err != nil {
		return Record{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	h.logger.Info("Calling local aggregate service", zap.String("url", h.baseURL))
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Record{}, resilience.WrapDependency("aggregate", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Record{}, resilience.WrapDependency("aggregate", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Record{}, resilience.WrapDependency("aggregate",
			fmt.Errorf("aggregate service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("failed to decode aggregate response: %w", err)
	}
	return record, nil
}
