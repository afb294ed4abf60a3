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
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds a single send to one connection
const DefaultWriteTimeout = 10 * time.Second

// Conn is the part of a websocket connection the hub writes to
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Hub tracks open connections and fans broadcasts out to all of them. A connection
// whose send fails is dropped and closed.
type Hub struct {
	mu           sync.Mutex
	conns        map[Conn]*sync.Mutex
	closed       bool
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:        make(map[Conn]*sync.Mutex),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
}

// Add registers a connection. It reports false once the hub is closed.
func (h *Hub) Add(conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if _, ok := h.conns[conn]; !ok {
		h.conns[conn] = &sync.Mutex{}
	}
	h.logger.Info("Client connected", zap.Int("connections", len(h.conns)))
	return true
}

// Remove unregisters a connection; removing an unknown connection is a no-op
func (h *Hub) Remove(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	h.logger.Info("Client disconnected", zap.Int("connections", len(h.conns)))
}

// Broadcast sends v to every connection and returns how many received it. Writes
// happen outside the hub lock; each connection has its own write lock so it never
// sees concurrent writes.
func (h *Hub) Broadcast(v interface{}) int {
	type target struct {
		conn Conn
		wmu  *sync.Mutex
	}

	h.mu.Lock()
	targets := make([]target, 0, len(h.conns))
	for conn, wmu := range h.conns {
		targets = append(targets, target{conn: conn, wmu: wmu})
	}
	h.mu.Unlock()

	delivered := 0
	var failed []target
	for _, t := range targets {
		if err := h.send(t.conn, t.wmu, v); err != nil {
			h.logger.Warn("Dropping connection after failed send", zap.Error(err))
			failed = append(failed, t)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, t := range failed {
			if h.conns[t.conn] == t.wmu {
				delete(h.conns, t.conn)
			}
		}
		h.mu.Unlock()
		for _, t := range failed {
			_ = t.conn.Close()
		}
	}
	return delivered
}

func (h *Hub) send(conn Conn, wmu *sync.Mutex, v interface{}) error {
	wmu.Lock()
	defer wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return conn.WriteJSON(v)
}

// Len returns the number of open connections
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close closes every connection and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.conns {
		_ = conn.Close()
	}
	h.conns = make(map[Conn]*sync.Mutex)
}
