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

package claimstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/aggregate"
)

// SQLiteStore keeps claim records in a SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbPath == "" {
		return nil, errors.New("claim store db_path is required")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create claim database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection avoids SQLITE_BUSY between concurrent writers
	db.SetMaxOpenConns(1)

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS claims (
			claim_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			detected_language TEXT,
			sentiment TEXT,
			record TEXT NOT NULL
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create claims table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save inserts or replaces a claim record
func (s *SQLiteStore) Save(ctx context.Context, record aggregate.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO claims (claim_id, created_at, detected_language, sentiment, record)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, record.ClaimID, record.CreatedAt, record.DetectedLanguage, record.Sentiment, string(data)); err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}

	s.logger.Debug("Claim saved to SQLite", zap.String("claim_id", record.ClaimID))
	return nil
}

// Get loads a claim record
func (s *SQLiteStore) Get(ctx context.Context, claimID string) (aggregate.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM claims WHERE claim_id = ?`, claimID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return aggregate.Record{}, fmt.Errorf("%w: %s", aggregate.ErrClaimNotFound, claimID)
	}
	if err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to query claim: %w", err)
	}

	var record aggregate.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return aggregate.Record{}, fmt.Errorf("failed to unmarshal claim: %w", err)
	}
	return record, nil
}

// Count returns the number of stored claims
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return n, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
