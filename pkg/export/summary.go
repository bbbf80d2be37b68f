package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sriram-PR/ccf-scraper/pkg/models"
)

// Count is one bucket of a distribution
type Count struct {
	Key   string
	Count int
}

// Summary holds the distributions reported after a run
type Summary struct {
	Types  []Count // By publication type
	Fields []Count // By field label
	Total  int
}

// Summarize tallies records by type and by field.
// Buckets are sorted by count, highest first; ties keep the order in which keys first appear.
func Summarize(records []models.VenueRecord) Summary {
	types := make([]string, len(records))
	fields := make([]string, len(records))
	for i, r := range records {
		types[i] = r.Type.String()
		fields[i] = r.Field
	}
	return Summary{
		Types:  tally(types),
		Fields: tally(fields),
		Total:  len(records),
	}
}

func tally(keys []string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, k := range keys {
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, Count{Key: k, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

func newTable(w io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(header)
	return t
}

// RenderSummary prints the type and field distributions as tables, followed by the total
func RenderSummary(w io.Writer, s Summary) error {
	typeTable := newTable(w, "Venue type distribution", table.Row{"Type", "Venues"})
	for _, c := range s.Types {
		typeTable.AppendRow(table.Row{c.Key, c.Count})
	}
	typeTable.Render()

	fieldTable := newTable(w, "Field distribution", table.Row{"Field", "Venues"})
	for _, c := range s.Fields {
		fieldTable.AppendRow(table.Row{c.Key, c.Count})
	}
	fieldTable.Render()

	_, err := fmt.Fprintf(w, "Total venues scraped: %d\n", s.Total)
	return err
}

// RenderHistory prints the latest recorded outcome of each listing page as a table
func RenderHistory(w io.Writer, entries []models.ScrapeDBEntry) {
	t := newTable(w, "Last scrape per page", table.Row{"Field", "Status", "Venues", "Content", "Error", "Scraped at", "Run"})
	for _, e := range entries {
		content := "-"
		if e.Change != models.ContentChangeUnknown {
			content = e.Change.String()
		}
		t.AppendRow(table.Row{e.Field, e.Status.String(), e.VenueCount, content, e.ErrorType, e.ScrapedAt.Local().Format(time.DateTime), shortRunID(e.RunID)})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Pages", len(entries)})
	t.Render()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
