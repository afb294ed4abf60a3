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

package claims

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// APIHandler serves the claim endpoints
type APIHandler struct {
	processor    *Processor
	preprocessor *Preprocessor
	errors       *resilience.ErrorHandler
	logger       *zap.Logger
}

// NewAPIHandler creates a claim API handler. preprocessor may be nil when no
// aggregate function is configured.
func NewAPIHandler(processor *Processor, preprocessor *Preprocessor, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		processor:    processor,
		preprocessor: preprocessor,
		errors:       resilience.NewErrorHandler(logger),
		logger:       logger,
	}
}

// RegisterRoutes registers the claim routes
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/process-claim", h.processClaim)
	router.POST("/preprocess-claim", h.preprocessClaim)
	router.GET("/features", h.features)
}

// processClaim handles POST /process-claim
func (h *APIHandler) processClaim(c *gin.Context) {
	description := c.PostForm("claim_description")
	if strings.TrimSpace(description) == "" {
		h.errors.AbortWithError(c, ErrDescriptionRequired, "process claim")
		return
	}

	photo, err := formUpload(c, "accident_photo")
	if err != nil {
		h.errors.AbortWithError(c, err, "process claim")
		return
	}

	var forms []Upload
	if mf, err := c.MultipartForm(); err == nil {
		for _, fh := range mf.File["insurance_forms"] {
			u, err := readUpload(fh)
			if err != nil {
				h.errors.AbortWithError(c, err, "process claim")
				return
			}
			forms = append(forms, u)
		}
	}

	h.logger.Info("Processing claim",
		zap.Int("description_length", len(description)),
		zap.String("accident_photo", photo.Filename),
		zap.Int("forms", len(forms)))

	result := h.processor.Process(c.Request.Context(), Claim{
		Description:   description,
		AccidentPhoto: photo,
		Forms:         forms,
	})
	c.JSON(http.StatusOK, result)
}

// preprocessClaim handles POST /preprocess-claim
func (h *APIHandler) preprocessClaim(c *gin.Context) {
	if h.preprocessor == nil {
		h.errors.AbortWithError(c, resilience.NewServiceUnavailableError("Claim storage is not configured", nil), "preprocess claim")
		return
	}

	photo, err := formUpload(c, "accident_photo")
	if err != nil {
		h.errors.AbortWithError(c, err, "preprocess claim")
		return
	}

	record, err := h.preprocessor.Preprocess(c.Request.Context(), c.PostForm("claim_description"), photo)
	if err != nil {
		h.errors.AbortWithError(c, err, "preprocess claim")
		return
	}
	c.JSON(http.StatusOK, record)
}

// features handles GET /features
func (h *APIHandler) features(c *gin.Context) {
	f := h.processor.Features()
	c.JSON(http.StatusOK, gin.H{
		"enable_translation": f.EnableTranslation,
		"enable_polly":       f.EnablePolly,
		"enable_rekognition": f.EnableRekognition,
	})
}

func formUpload(c *gin.Context, field string) (Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return Upload{}, resilience.NewBadRequestError(fmt.Sprintf("%s is required", field), err)
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, resilience.NewBadRequestError("Unable to read uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, resilience.NewBadRequestError("Unable to read uploaded file", err)
	}
	return Upload{Filename: fh.Filename, Data: data}, nil
}
