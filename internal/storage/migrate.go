package storage

import (
	"context"
	"fmt"
)

func schemaStatements(dim int) []string {
	if dim <= 0 {
		dim = 1536
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS academic_sources (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  authors TEXT,
  publication_year INT,
  abstract TEXT,
  full_text TEXT,
  source_type TEXT,
  embedding vector(%d),
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_academic_sources_type ON academic_sources(source_type)`,
		`CREATE TABLE IF NOT EXISTS assignments (
  id BIGSERIAL PRIMARY KEY,
  student_id TEXT NOT NULL,
  filename TEXT NOT NULL,
  stored_path TEXT NOT NULL,
  content_sha256 TEXT,
  original_text TEXT,
  topic TEXT,
  academic_level TEXT,
  word_count INT NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'uploaded',
  uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_student ON assignments(student_id)`,
		`CREATE TABLE IF NOT EXISTS analysis_results (
  id BIGSERIAL PRIMARY KEY,
  assignment_id BIGINT NOT NULL UNIQUE REFERENCES assignments(id) ON DELETE CASCADE,
  suggested_sources JSONB NOT NULL DEFAULT '[]',
  plagiarism_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  flagged_sections JSONB NOT NULL DEFAULT '[]',
  analysis JSONB NOT NULL,
  issues JSONB NOT NULL DEFAULT '[]',
  analyzed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY,
  operation TEXT NOT NULL,
  assignment_id BIGINT,
  provider_name TEXT NOT NULL,
  model TEXT,
  status TEXT NOT NULL,
  error_type TEXT,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	}
}

// Migrate creates the schema if it does not exist. It never alters existing tables.
func Migrate(ctx context.Context, db *DB, dim int) error {
	for _, stmt := range schemaStatements(dim) {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
