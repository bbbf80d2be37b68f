package models

import "time"

// VenueRecord is one row of a CCF recommendation list
type VenueRecord struct {
	Name      string    `json:"name"`      // Abbreviation, may be empty
	FullName  string    `json:"full_name"` // Full venue title
	Publisher string    `json:"publisher"`
	URL       string    `json:"url"`   // Empty when the row carries no link
	Level     Level     `json:"level"` // Tier heading in effect when the row was seen
	Field     string    `json:"field"` // Field label of the page the row came from
	Type      VenueType `json:"type"`  // Publication type heading in effect when the row was seen
}

// ScrapeDBEntry stores the outcome of scraping one listing page in the history store
type ScrapeDBEntry struct {
	RunID        string        `json:"run_id"`
	Field        string        `json:"field"`
	URL          string        `json:"url"`
	Status       ScrapeStatus  `json:"status"`
	ErrorType    string        `json:"error_type,omitempty"`    // Error category (on failure)
	ErrorMessage string        `json:"error_message,omitempty"` // Raw error text (on failure)
	VenueCount   int           `json:"venue_count"`
	ContentHash  string        `json:"content_hash,omitempty"`   // SHA-256 of the decoded page body
	Change       ContentChange `json:"content_change,omitempty"` // Body compared with the previous successful scrape
	ScrapedAt    time.Time     `json:"scraped_at"`
}
