package storage

import (
	"github.com/Sriram-PR/ccf-scraper/pkg/models"
)

// HistoryRecorder receives the outcome of each scraped listing page
type HistoryRecorder interface {
	// RecordPage stores entry as the latest outcome for entry.URL, replacing any previous one
	RecordPage(entry *models.ScrapeDBEntry) error
}

// HistoryReader looks up the previous outcome of a single page
type HistoryReader interface {
	// LastRun returns the latest recorded outcome for a page URL.
	// Status is ScrapeStatusNotFound (with a nil entry) when the page was never recorded.
	LastRun(pageURL string) (status models.ScrapeStatus, entry *models.ScrapeDBEntry, err error)
}

// PageHistory is what a scrape run needs: the previous outcome of a page, then a place to record the new one
type PageHistory interface {
	HistoryRecorder
	HistoryReader
}

// HistoryStore combines per-page history, listing and lifecycle for the run history ledger
type HistoryStore interface {
	PageHistory

	// ListLatest returns the latest outcome of every recorded page, sorted by field name
	ListLatest() ([]models.ScrapeDBEntry, error)

	// Close cleanly closes the database connection
	Close() error
}
