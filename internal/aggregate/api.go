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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// APIHandler serves the aggregate function over HTTP for local runs
type APIHandler struct {
	aggregator *Aggregator
	errors     *resilience.ErrorHandler
	logger     *zap.Logger
}

// NewAPIHandler creates a new aggregate API handler
func NewAPIHandler(aggregator *Aggregator, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		aggregator: aggregator,
		errors:     resilience.NewErrorHandler(logger),
		logger:     logger,
	}
}

// RegisterRoutes registers the aggregate routes
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("/aggregate", h.aggregate)
	router.GET("/claims/:id", h.getClaim)
}

// aggregate handles POST /aggregate
func (h *APIHandler) aggregate(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.AbortWithError(c, resilience.NewBadRequestError("Invalid request format", err), "aggregate")
		return
	}

	record, err := h.aggregator.Aggregate(c.Request.Context(), req)
	if err != nil {
		h.errors.AbortWithError(c, err, "aggregate")
		return
	}

	c.JSON(http.StatusOK, record)
}

// getClaim handles GET /claims/:id
func (h *APIHandler) getClaim(c *gin.Context) {
	record, err := h.aggregator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errors.AbortWithError(c, err, "get claim")
		return
	}

	c.JSON(http.StatusOK, record)
}
