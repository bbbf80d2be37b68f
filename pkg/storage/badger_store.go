package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/ccf-scraper/pkg/log"
	"github.com/Sriram-PR/ccf-scraper/pkg/models"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

const (
	scrapeKeyPrefix = "scrape:"    // Prefix for listing page URL keys in DB
	historyDBDir    = "history_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the HistoryStore interface using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the history database below stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := filepath.Join(stateDir, historyDBDir)
	logger.Debugf("Opening run history database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest outcome per page matters

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	return &BadgerStore{db: db, log: logger}, nil
}

// pageKey builds the DB key for a listing page, so that equivalent spellings of a URL share one entry
func pageKey(pageURL string) []byte {
	if normalized, _, err := utils.ParseAndNormalize(pageURL); err == nil {
		return []byte(scrapeKeyPrefix + normalized)
	}
	return []byte(scrapeKeyPrefix + pageURL)
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// RecordPage implements the HistoryRecorder interface
func (s *BadgerStore) RecordPage(entry *models.ScrapeDBEntry) error {
	if s.db == nil || s.db.IsClosed() {
		return fmt.Errorf("%w: history DB not open", utils.ErrDatabase)
	}
	if entry == nil {
		return fmt.Errorf("%w: nil history entry", utils.ErrDatabase)
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("%w: refusing to record status '%s' for '%s'", utils.ErrDatabase, entry.Status, entry.URL)
	}
	key := pageKey(entry.URL)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal ScrapeDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in RecordPage: %v", err)
		return fmt.Errorf("%w: failed recording page outcome for key '%s': %w", utils.ErrDatabase, string(key), err)
	}

	s.log.Debugf("Recorded outcome '%s' for key '%s'", entry.Status, string(key))
	return nil
}

// LastRun implements the HistoryReader interface
func (s *BadgerStore) LastRun(pageURL string) (models.ScrapeStatus, *models.ScrapeDBEntry, error) {
	status := models.ScrapeStatusNotFound
	var entry *models.ScrapeDBEntry
	key := pageKey(pageURL)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting page key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			var decoded models.ScrapeDBEntry
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				s.log.Warnf("Failed to unmarshal ScrapeDBEntry for key '%s': %v. Treating as 'not_found'.", string(key), errJson)
				return nil
			}
			entry = &decoded
			status = decoded.Status
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error in LastRun for key '%s': %v", string(key), errView)
		return models.ScrapeStatusUnset, nil, errView
	}

	return status, entry, nil
}

// ListLatest implements the HistoryStore interface
func (s *BadgerStore) ListLatest() ([]models.ScrapeDBEntry, error) {
	entries := make([]models.ScrapeDBEntry, 0)
	skipped := 0

	errView := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(scrapeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var decoded models.ScrapeDBEntry
				if errJson := json.Unmarshal(val, &decoded); errJson != nil {
					s.log.Warnf("Skipping undecodable history entry '%s': %v", string(item.Key()), errJson)
					skipped++
					return nil
				}
				entries = append(entries, decoded)
				return nil
			})
			if errValue != nil {
				return fmt.Errorf("%w: reading value for key '%s': %w", utils.ErrDatabase, string(item.KeyCopy(nil)), errValue)
			}
		}
		return nil
	})
	if errView != nil {
		return nil, errView
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].URL < entries[j].URL
	})
	if skipped > 0 {
		s.log.Warnf("Listed %d history entries, skipped %d undecodable", len(entries), skipped)
	}
	return entries, nil
}

// Close implements the HistoryStore interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing run history DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing run history DB: %v", err)
			return err
		}
	}
	return nil
}
