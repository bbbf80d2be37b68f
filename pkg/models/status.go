package models

// VenueType is the publication type of a venue
type VenueType string

const (
	VenueTypeUnset      VenueType = ""           // No type heading seen yet
	VenueTypeJournal    VenueType = "journal"    // Listed under a journal heading
	VenueTypeConference VenueType = "conference" // Listed under a conference heading
)

// String implements fmt.Stringer for logging
func (t VenueType) String() string {
	if t == "" {
		return "unset"
	}
	return string(t)
}

// IsSet reports whether a type heading has been seen
func (t VenueType) IsSet() bool {
	return t != VenueTypeUnset
}

// Level is the CCF tier of a venue
type Level string

const (
	LevelUnset Level = "" // No tier heading seen yet
	LevelA     Level = "A"
	LevelB     Level = "B"
	LevelC     Level = "C"
)

// String implements fmt.Stringer for logging
func (l Level) String() string {
	if l == "" {
		return "unset"
	}
	return string(l)
}

// ScrapeStatus represents the outcome of scraping a page
type ScrapeStatus string

const (
	ScrapeStatusUnset    ScrapeStatus = ""          // Zero value = unset/unknown
	ScrapeStatusSuccess  ScrapeStatus = "success"   // Page fetched and parsed
	ScrapeStatusFailure  ScrapeStatus = "failure"   // Fetch or parse failed
	ScrapeStatusNotFound ScrapeStatus = "not_found" // Page not in history
)

// String implements fmt.Stringer for logging
func (s ScrapeStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a recorded outcome
func (s ScrapeStatus) IsValid() bool {
	switch s {
	case ScrapeStatusSuccess, ScrapeStatusFailure:
		return true
	}
	return false
}

// ContentChange compares a page body with the body of the previous successful scrape of the same page
type ContentChange string

const (
	ContentChangeUnknown   ContentChange = ""          // No earlier successful scrape to compare with
	ContentChangeUnchanged ContentChange = "unchanged" // Same body hash as last time
	ContentChangeChanged   ContentChange = "changed"   // Body hash differs from last time
)

// String implements fmt.Stringer for logging
func (c ContentChange) String() string {
	if c == "" {
		return "unknown"
	}
	return string(c)
}

// CompareContent classifies currentHash against the previous entry for the same page.
// Only a successful previous scrape with a recorded hash can be compared.
func CompareContent(previous *ScrapeDBEntry, currentHash string) ContentChange {
	if previous == nil || previous.Status != ScrapeStatusSuccess || previous.ContentHash == "" || currentHash == "" {
		return ContentChangeUnknown
	}
	if previous.ContentHash == currentHash {
		return ContentChangeUnchanged
	}
	return ContentChangeChanged
}
