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

package multilingual

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests to websocket sessions in the room
type Handler struct {
	room     *Room
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a websocket handler for room broadcasting through hub
func NewHandler(room *Room, hub *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		room: room,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// RegisterRoutes registers GET /ws and GET /participants
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws", h.serveWS)
	router.GET("/participants", h.participants)
}

// serveWS handles GET /ws
func (h *Handler) serveWS(c *gin.Context) {
	h.logger.Info("WebSocket connection attempt", zap.String("origin", c.GetHeader("Origin")))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	if !h.hub.Add(conn) {
		_ = conn.Close()
		return
	}
	defer func() {
		h.hub.Remove(conn)
		_ = conn.Close()
	}()

	ctx := c.Request.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}

		var msg Incoming
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("Ignoring malformed message", zap.Error(err))
			continue
		}

		broadcast, ok := h.room.Process(ctx, msg)
		if !ok {
			continue
		}
		h.hub.Broadcast(broadcast)
	}
}

// participants handles GET /participants
func (h *Handler) participants(c *gin.Context) {
	c.JSON(http.StatusOK, h.room.Participants())
}
