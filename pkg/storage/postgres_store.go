package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// PostgresStore implements RunStore on PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Entry
}

// NewPostgresStore connects to dsn and creates the audit tables if needed
func NewPostgresStore(ctx context.Context, dsn string, logger *logrus.Entry) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", utils.ErrDatabase, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", utils.ErrDatabase, err)
	}

	s := &PostgresStore{db: db, log: logger.WithField("component", "postgres_store")}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("Audit database initialized (postgres)")
	return s, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id TEXT PRIMARY KEY,
			sitemap_url TEXT NOT NULL,
			domain TEXT,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			summary JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_pages (
			run_id TEXT NOT NULL,
			url TEXT NOT NULL,
			status TEXT,
			score INTEGER,
			language TEXT,
			record JSONB NOT NULL,
			PRIMARY KEY (run_id, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_pages_run ON audit_pages(run_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%w: failed to execute query %s: %w", utils.ErrDatabase, query, err)
		}
	}
	return nil
}

// SavePage implements PageStore
func (s *PostgresStore) SavePage(ctx context.Context, runID string, page models.PageMetadata) error {
	record, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("%w: marshal page %s: %w", utils.ErrParsing, page.URL, err)
	}
	query := `
		INSERT INTO audit_pages (run_id, url, status, score, language, record)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, url) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			language = EXCLUDED.language,
			record = EXCLUDED.record`
	if _, err := s.db.ExecContext(ctx, query, runID, page.URL, string(page.Status), page.Score, page.Language, record); err != nil {
		return fmt.Errorf("%w: saving page %s: %w", utils.ErrDatabase, page.URL, err)
	}
	return nil
}

// SaveRun implements RunStore
func (s *PostgresStore) SaveRun(ctx context.Context, run *models.AnalysisRun) error {
	summary := *run
	summary.Pages = nil
	record, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: marshal run %s: %w", utils.ErrParsing, run.ID, err)
	}
	query := `
		INSERT INTO audit_runs (id, sitemap_url, domain, started_at, finished_at, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			summary = EXCLUDED.summary`
	if _, err := s.db.ExecContext(ctx, query, run.ID, run.SitemapURL, run.Domain, run.StartedAt, run.FinishedAt, record); err != nil {
		return fmt.Errorf("%w: saving run %s: %w", utils.ErrDatabase, run.ID, err)
	}
	return nil
}

// LoadRun implements RunStore
func (s *PostgresStore) LoadRun(ctx context.Context, runID string) (*models.AnalysisRun, error) {
	var summary []byte
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM audit_runs WHERE id = $1`, runID).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading run %s: %w", utils.ErrDatabase, runID, err)
	}
	run := &models.AnalysisRun{}
	if err := json.Unmarshal(summary, run); err != nil {
		return nil, fmt.Errorf("%w: decoding run %s: %w", utils.ErrParsing, runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record FROM audit_pages WHERE run_id = $1 ORDER BY url`, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading pages of run %s: %w", utils.ErrDatabase, runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("%w: scanning page row: %w", utils.ErrDatabase, err)
		}
		var page models.PageMetadata
		if err := json.Unmarshal(record, &page); err != nil {
			s.log.Warnf("Skipping undecodable page record of run %s: %v", runID, err)
			continue
		}
		run.Pages = append(run.Pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pages of run %s: %w", utils.ErrDatabase, runID, err)
	}
	return run, nil
}

// Close implements RunStore
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
