package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/atom"

	"github.com/Sriram-PR/ccf-scraper/pkg/config"
	"github.com/Sriram-PR/ccf-scraper/pkg/models"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

// minRowCells is the number of td/div cells a list item needs to count as a data row
const minRowCells = 4

// RowContext is the ambient context attached to each row of a listing
type RowContext struct {
	Field string
	Level models.Level
	Type  models.VenueType
}

// ListingParser turns a CCF listing page into venue records
type ListingParser struct {
	markers config.MarkerConfig
	log     *logrus.Entry
}

// NewListingParser creates a ListingParser for the given markers
func NewListingParser(markers config.MarkerConfig, log *logrus.Entry) *ListingParser {
	return &ListingParser{
		markers: markers,
		log:     log,
	}
}

// Parse extracts one record per data row of pageHTML, tagging each with field and with the
// type and tier headings in effect where the row appears. Type and tier start unset for every call.
// Malformed rows are skipped; only a document that cannot be parsed at all is an error.
func (p *ListingParser) Parse(pageHTML, field string) ([]models.VenueRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML document for field '%s': %w", utils.ErrParsing, field, err)
	}

	pageLog := p.log.WithField("field", field)
	rowCtx := RowContext{Field: field}
	records := make([]models.VenueRecord, 0)

	for _, el := range Flatten(doc.Get(0)) {
		switch el.Kind {
		case ElementTypeHeading:
			rowCtx.Type = p.matchType(el.Text, rowCtx.Type)

		case ElementLevelHeading:
			rowCtx.Level = p.matchLevel(el.Text, rowCtx.Level)

		case ElementList:
			if !el.HasClass(p.markers.ListClass) {
				continue
			}
			if !rowCtx.Type.IsSet() {
				pageLog.Debug("Skipping list container that precedes any type heading")
				continue
			}
			for _, item := range descendants(el.Node, atom.Li) {
				record, ok := ExtractRow(doc.FindNodes(item), rowCtx, p.markers.HeaderRowMarkers)
				if ok {
					records = append(records, record)
				}
			}
		}
	}

	pageLog.Debugf("Parsed %d venue rows", len(records))
	return records, nil
}

// matchType applies a type heading; headings matching neither marker leave current unchanged
func (p *ListingParser) matchType(text string, current models.VenueType) models.VenueType {
	switch {
	case strings.Contains(text, p.markers.JournalMarker):
		return models.VenueTypeJournal
	case strings.Contains(text, p.markers.ConferenceMarker):
		return models.VenueTypeConference
	}
	return current
}

// matchLevel applies a tier heading; headings matching no marker leave current unchanged
func (p *ListingParser) matchLevel(text string, current models.Level) models.Level {
	switch {
	case strings.Contains(text, p.markers.LevelAMarker):
		return models.LevelA
	case strings.Contains(text, p.markers.LevelBMarker):
		return models.LevelB
	case strings.Contains(text, p.markers.LevelCMarker):
		return models.LevelC
	}
	return current
}

// ExtractRow reads one list item as a venue row.
// Cells are the item's td/div descendants in document order: cells[1] name, cells[2] full name,
// cells[3] publisher, and the first link of cells[4] (if that cell exists) as url.
// Returns false when the item has fewer than four cells or its first cell contains any of headerMarkers.
func ExtractRow(item *goquery.Selection, rowCtx RowContext, headerMarkers []string) (models.VenueRecord, bool) {
	if item.Length() == 0 {
		return models.VenueRecord{}, false
	}
	cells := descendants(item.Get(0), atom.Td, atom.Div)
	if len(cells) < minRowCells {
		return models.VenueRecord{}, false
	}

	cellSel := item.FindNodes(cells...)
	if isHeaderCell(cellSel.Eq(0).Text(), headerMarkers) {
		return models.VenueRecord{}, false
	}

	record := models.VenueRecord{
		Name:      CleanText(cellSel.Eq(1).Text()),
		FullName:  CleanText(cellSel.Eq(2).Text()),
		Publisher: CleanText(cellSel.Eq(3).Text()),
		Level:     rowCtx.Level,
		Field:     rowCtx.Field,
		Type:      rowCtx.Type,
	}
	if len(cells) > minRowCells {
		record.URL, _ = cellSel.Eq(4).Find("a").First().Attr("href")
	}
	return record, true
}

func isHeaderCell(text string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// CleanText trims s and collapses every internal whitespace run to a single space
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
