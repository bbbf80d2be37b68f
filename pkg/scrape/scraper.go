package scrape

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/ccf-scraper/pkg/config"
	"github.com/Sriram-PR/ccf-scraper/pkg/fetch"
	"github.com/Sriram-PR/ccf-scraper/pkg/models"
	"github.com/Sriram-PR/ccf-scraper/pkg/storage"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

// Parser turns one listing page into venue records
type Parser interface {
	Parse(pageHTML, field string) ([]models.VenueRecord, error)
}

// PageResult is the outcome of scraping a single listing page
type PageResult struct {
	Field    string
	URL      string
	Count    int   // Venues contributed by the page
	Err      error // nil on success
	Duration time.Duration
}

// Result is the outcome of one run over all configured pages
type Result struct {
	RunID    string
	Records  []models.VenueRecord // Page order outer, row order inner
	Pages    []PageResult         // One per page attempted, in configured order
	Duration time.Duration
}

// Failed returns the number of pages that contributed nothing because of an error
func (r *Result) Failed() int {
	n := 0
	for _, p := range r.Pages {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Scraper fetches and parses the configured listing pages one after another
type Scraper struct {
	fields  []config.FieldConfig
	fetcher fetch.PageFetcher
	parser  Parser
	history storage.PageHistory // Optional
	log     *logrus.Entry
}

// NewScraper creates a Scraper over fields, in the given order. history may be nil.
func NewScraper(fields []config.FieldConfig, fetcher fetch.PageFetcher, parser Parser, history storage.PageHistory, log *logrus.Entry) *Scraper {
	ordered := make([]config.FieldConfig, len(fields))
	copy(ordered, fields)
	return &Scraper{
		fields:  ordered,
		fetcher: fetcher,
		parser:  parser,
		history: history,
		log:     log,
	}
}

// Run scrapes every configured page in order and concatenates their records.
// A page that fails to fetch or parse is logged and contributes no records; later pages still run.
// When ctx is cancelled the run stops before the next page and returns what was gathered along with ctx.Err().
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		RunID:   uuid.New().String(),
		Records: make([]models.VenueRecord, 0),
		Pages:   make([]PageResult, 0, len(s.fields)),
	}
	runLog := s.log.WithField("run_id", result.RunID)
	runLog.Infof("Starting scrape of %d listing pages", len(s.fields))

	for _, field := range s.fields {
		if err := ctx.Err(); err != nil {
			runLog.Warnf("Scrape interrupted before '%s': %v", field.Name, err)
			result.Duration = time.Since(startTime)
			s.logSummary(runLog, result)
			return result, err
		}

		records, page := s.scrapePage(ctx, runLog, result.RunID, field)
		result.Records = append(result.Records, records...)
		result.Pages = append(result.Pages, page)
	}

	result.Duration = time.Since(startTime)
	s.logSummary(runLog, result)
	return result, nil
}

// scrapePage fetches and parses one listing page. It never returns records alongside an error.
func (s *Scraper) scrapePage(ctx context.Context, runLog *logrus.Entry, runID string, field config.FieldConfig) (records []models.VenueRecord, page PageResult) {
	startTime := time.Now()
	page = PageResult{Field: field.Name, URL: field.URL}
	pageLog := runLog.WithFields(logrus.Fields{"field": field.Name, "url": field.URL})
	var contentHash string

	defer func() {
		if r := recover(); r != nil {
			page.Err = fmt.Errorf("panic: %v", r)
			pageLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered while scraping page")
		}
		page.Duration = time.Since(startTime)

		if page.Err != nil {
			records = nil
			page.Count = 0
			pageLog.WithFields(logrus.Fields{
				"error_type": utils.CategorizeError(page.Err),
				"duration":   page.Duration.String(),
			}).Errorf("Error scraping %s (%s): %v", field.Name, field.URL, page.Err)
		} else {
			page.Count = len(records)
			pageLog.WithField("duration", page.Duration.String()).Infof("Found %d venues", page.Count)
		}

		s.recordHistory(pageLog, runID, page, contentHash)
	}()

	pageLog.Infof("Scraping %s...", field.Name)

	body, err := s.fetcher.FetchPage(ctx, field.URL)
	if err != nil {
		page.Err = err
		return nil, page
	}
	contentHash = utils.ContentHash(body)

	records, err = s.parser.Parse(body, field.Name)
	if err != nil {
		page.Err = err
		return nil, page
	}
	return records, page
}

// recordHistory stores the page outcome when a history store is configured. Failures are only logged.
// A successful page is first compared with the previous successful scrape; the comparison is reported, never acted on.
func (s *Scraper) recordHistory(pageLog *logrus.Entry, runID string, page PageResult, contentHash string) {
	if s.history == nil {
		return
	}
	entry := &models.ScrapeDBEntry{
		RunID:       runID,
		Field:       page.Field,
		URL:         page.URL,
		Status:      models.ScrapeStatusSuccess,
		VenueCount:  page.Count,
		ContentHash: contentHash,
		ScrapedAt:   time.Now(),
	}
	if page.Err != nil {
		entry.Status = models.ScrapeStatusFailure
		entry.ErrorType = utils.CategorizeError(page.Err)
		entry.ErrorMessage = page.Err.Error()
	} else {
		entry.Change = s.compareWithLastRun(pageLog, page.URL, contentHash)
	}
	if err := s.history.RecordPage(entry); err != nil {
		pageLog.Warnf("Failed to record page outcome in history: %v", err)
	}
}

func (s *Scraper) compareWithLastRun(pageLog *logrus.Entry, pageURL, contentHash string) models.ContentChange {
	status, previous, err := s.history.LastRun(pageURL)
	if err != nil {
		pageLog.Warnf("Failed to read previous outcome from history: %v", err)
		return models.ContentChangeUnknown
	}
	if status == models.ScrapeStatusNotFound {
		pageLog.Debug("No previous scrape of this page in history")
		return models.ContentChangeUnknown
	}

	change := models.CompareContent(previous, contentHash)
	switch change {
	case models.ContentChangeUnchanged:
		pageLog.Infof("Listing unchanged since last run (%s)", previous.RunID)
	case models.ContentChangeChanged:
		pageLog.Infof("Listing changed since last run (%s)", previous.RunID)
	}
	return change
}

// logSummary logs a per-page summary of the run
func (s *Scraper) logSummary(runLog *logrus.Entry, result *Result) {
	runLog.Info("============================================")
	runLog.Infof("Scrape completed in %v", result.Duration)
	for _, p := range result.Pages {
		status := "SUCCESS"
		if p.Err != nil {
			status = "FAILED"
		}
		runLog.Infof("  %s: %s - %d venues in %v", p.Field, status, p.Count, p.Duration)
	}
	runLog.Info("--------------------------------------------")
	runLog.Infof("Total: %d pages (%d failed, %d not attempted), %d venues",
		len(result.Pages), result.Failed(), len(s.fields)-len(result.Pages), len(result.Records))
	runLog.Info("============================================")
}
