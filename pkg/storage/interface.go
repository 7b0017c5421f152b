package storage

import (
	"context"
	"errors"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// PageStore persists analyzed pages as they complete
type PageStore interface {
	// SavePage stores one page record under runID, replacing any earlier record for the same URL
	SavePage(ctx context.Context, runID string, page models.PageMetadata) error
}

// RunStore persists whole audit runs
type RunStore interface {
	PageStore

	// SaveRun stores the run summary. Pages are saved separately through SavePage.
	SaveRun(ctx context.Context, run *models.AnalysisRun) error

	// LoadRun returns the stored summary of runID with its pages ordered by URL
	LoadRun(ctx context.Context, runID string) (*models.AnalysisRun, error)

	// Close releases the underlying database
	Close() error
}
