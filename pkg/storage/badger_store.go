package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/log"
	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

const (
	runKeyPrefix  = "run:"     // run:<id> -> AnalysisRun without pages
	pageKeyPrefix = "page:"    // page:<id>:<url> -> PageMetadata
	auditDBDir    = "audit_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements RunStore using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the audit database under stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	logger = logger.WithField("component", "badger_store")
	dbPath := filepath.Join(stateDir, auditDBDir)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	logger.Infof("Audit database initialized at: %s", dbPath)
	return &BadgerStore{db: db, log: logger}, nil
}

func pageKey(runID, pageURL string) []byte {
	return []byte(pageKeyPrefix + runID + ":" + pageURL)
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Pages of one run are written concurrently, so ErrConflict is possible.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

func (s *BadgerStore) put(key []byte, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal value for key '%s': %w", utils.ErrParsing, string(key), err)
	}
	err = s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, val))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error: %v", err)
		return fmt.Errorf("%w: setting key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return nil
}

// SavePage implements PageStore
func (s *BadgerStore) SavePage(_ context.Context, runID string, page models.PageMetadata) error {
	return s.put(pageKey(runID, page.URL), page)
}

// SaveRun implements RunStore
func (s *BadgerStore) SaveRun(_ context.Context, run *models.AnalysisRun) error {
	summary := *run
	summary.Pages = nil
	if err := s.put([]byte(runKeyPrefix+run.ID), summary); err != nil {
		return err
	}
	s.log.Debugf("Saved run %s", run.ID)
	return nil
}

// LoadRun implements RunStore
func (s *BadgerStore) LoadRun(_ context.Context, runID string) (*models.AnalysisRun, error) {
	run := &models.AnalysisRun{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + runID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRunNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: getting run '%s': %w", utils.ErrDatabase, runID, err)
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, run) }); err != nil {
			return fmt.Errorf("%w: decoding run '%s': %w", utils.ErrParsing, runID, err)
		}

		prefix := pageKey(runID, "")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var page models.PageMetadata
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &page) }); err != nil {
				s.log.Warnf("Skipping undecodable page record '%s': %v", string(it.Item().Key()), err)
				continue
			}
			run.Pages = append(run.Pages, page)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunGC runs BadgerDB's value log garbage collection until ctx is done
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection: %v", ctx.Err())
			return
		}
	}
}

// Close implements RunStore
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Info("Closing audit database...")
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing badger database: %w", utils.ErrDatabase, err)
	}
	return nil
}
