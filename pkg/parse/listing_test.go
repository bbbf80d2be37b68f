package parse

import (
	"io"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/ccf-scraper/pkg/config"
	"github.com/Sriram-PR/ccf-scraper/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestParser() *ListingParser {
	return NewListingParser(config.DefaultMarkers(), testLogger())
}

// row renders a CCF-style list item from cell contents
func row(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("<li>")
	for _, c := range cells {
		sb.WriteString("<div>" + c + "</div>")
	}
	sb.WriteString("</li>")
	return sb.String()
}

func list(rows ...string) string {
	return `<ul class="g-ul x-list3">` + strings.Join(rows, "") + "</ul>"
}

func page(body ...string) string {
	return "<html><head><title>CCF</title></head><body>" + strings.Join(body, "\n") + "</body></html>"
}

var headerRow = row("序号", "刊物简称", "刊物全称", "出版社", "网址")

func TestParse_EnglishMarkers(t *testing.T) {
	markers := config.MarkerConfig{
		JournalMarker:    "journal",
		ConferenceMarker: "conference",
		LevelAMarker:     "A-class",
		LevelBMarker:     "B-class",
		LevelCMarker:     "C-class",
		HeaderRowMarkers: []string{"No."},
		ListClass:        "x-list3",
	}
	html := page(
		"<h4>Recommended journal publications</h4>",
		"<h3>A-class</h3>",
		list(
			row("No.", "Abbr", "Full name", "Publisher", "Link"),
			row("1", "TOPLAS", "ACM Transactions on Programming Languages and Systems", "ACM",
				`<a href="http://example.org">http://example.org</a>`),
		),
	)

	records, err := NewListingParser(markers, testLogger()).Parse(html, "PL")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.VenueRecord{
		Name:      "TOPLAS",
		FullName:  "ACM Transactions on Programming Languages and Systems",
		Publisher: "ACM",
		URL:       "http://example.org",
		Level:     models.LevelA,
		Field:     "PL",
		Type:      models.VenueTypeJournal,
	}, records[0])
}

func TestParse_DefaultMarkersSkipEnglishHeaderRow(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		"<h3>A类</h3>",
		list(
			row("No.", "Abbr", "Full name", "Publisher", "Link"),
			row("1", "TOPLAS", "ACM Transactions on Programming Languages and Systems", "ACM",
				`<a href="http://example.org">http://example.org</a>`),
		),
	)

	records, err := newTestParser().Parse(html, "PL")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.VenueRecord{
		Name:      "TOPLAS",
		FullName:  "ACM Transactions on Programming Languages and Systems",
		Publisher: "ACM",
		URL:       "http://example.org",
		Level:     models.LevelA,
		Field:     "PL",
		Type:      models.VenueTypeJournal,
	}, records[0])
}

func TestExtractRow_AnyHeaderMarkerRejects(t *testing.T) {
	markers := []string{"序号", "No."}
	rowCtx := RowContext{Type: models.VenueTypeJournal}

	_, ok := ExtractRow(itemFromHTML(t, row("序号", "a", "b", "c")), rowCtx, markers)
	assert.False(t, ok)
	_, ok = ExtractRow(itemFromHTML(t, row("No.", "a", "b", "c")), rowCtx, markers)
	assert.False(t, ok)
	_, ok = ExtractRow(itemFromHTML(t, row("12", "a", "b", "c")), rowCtx, markers)
	assert.True(t, ok)
	_, ok = ExtractRow(itemFromHTML(t, row("序号", "a", "b", "c")), rowCtx, nil)
	assert.True(t, ok)
}

func TestParse_CCFPage(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		"<h3>一、A类</h3>",
		list(headerRow,
			row("1", "TOCS", "ACM Transactions on Computer Systems", "ACM", `<a href="http://dblp.uni-trier.de/db/journals/tocs/">link</a>`),
			row("2", "TOS", "ACM Transactions on Storage", "ACM", `<a href="http://dblp.uni-trier.de/db/journals/tos/">link</a>`),
		),
		"<h3>二、B类</h3>",
		list(headerRow,
			row("1", "TAAS", "ACM Transactions on Autonomous and Adaptive Systems", "ACM", ""),
		),
		"<h4>中国计算机学会推荐国际学术会议</h4>",
		"<h3>一、A类</h3>",
		list(headerRow,
			row("1", "PPoPP", "ACM SIGPLAN Symposium on Principles &amp; Practice of Parallel Programming", "ACM", `<a href="http://dblp.uni-trier.de/db/conf/ppopp/">link</a>`),
		),
		"<h3>三、C类</h3>",
		list(headerRow,
			row("1", "CF", "ACM International Conference on Computing Frontiers", "ACM", ""),
		),
	)

	records, err := newTestParser().Parse(html, "计算机体系结构/并行与分布计算/存储系统")

	require.NoError(t, err)
	require.Len(t, records, 5)

	type tag struct {
		name  string
		level models.Level
		typ   models.VenueType
	}
	var got []tag
	for _, r := range records {
		got = append(got, tag{r.Name, r.Level, r.Type})
		assert.Equal(t, "计算机体系结构/并行与分布计算/存储系统", r.Field)
	}
	assert.Equal(t, []tag{
		{"TOCS", models.LevelA, models.VenueTypeJournal},
		{"TOS", models.LevelA, models.VenueTypeJournal},
		{"TAAS", models.LevelB, models.VenueTypeJournal},
		{"PPoPP", models.LevelA, models.VenueTypeConference},
		{"CF", models.LevelC, models.VenueTypeConference},
	}, got)

	assert.Equal(t, "http://dblp.uni-trier.de/db/journals/tocs/", records[0].URL)
	assert.Equal(t, "", records[2].URL)
	assert.Equal(t, "ACM SIGPLAN Symposium on Principles & Practice of Parallel Programming", records[3].FullName)
}

func TestParse_ContainerBeforeTypeHeadingIsSkipped(t *testing.T) {
	html := page(
		"<h3>一、A类</h3>",
		list(row("1", "EARLY", "Dropped venue", "ACM", "")),
		"<h4>中国计算机学会推荐国际学术会议</h4>",
		list(row("1", "LATE", "Kept venue", "IEEE", "")),
	)

	records, err := newTestParser().Parse(html, "AI")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "LATE", records[0].Name)
	// Tier seen before the type heading still applies
	assert.Equal(t, models.LevelA, records[0].Level)
	assert.Equal(t, models.VenueTypeConference, records[0].Type)
}

func TestParse_LevelUnsetBeforeTierHeading(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		list(row("1", "TIT", "IEEE Transactions on Information Theory", "IEEE", "")),
	)

	records, err := newTestParser().Parse(html, "TCS")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.LevelUnset, records[0].Level)
	assert.Equal(t, models.VenueTypeJournal, records[0].Type)
}

func TestParse_UnmatchedHeadingsKeepContext(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		"<h3>二、B类</h3>",
		"<h4>说明</h4>",
		"<h3>备注</h3>",
		list(row("1", "TKDD", "ACM Transactions on Knowledge Discovery from Data", "ACM", "")),
	)

	records, err := newTestParser().Parse(html, "DM")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.LevelB, records[0].Level)
	assert.Equal(t, models.VenueTypeJournal, records[0].Type)
}

func TestParse_LastSeenHeadingWins(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		"<h4>中国计算机学会推荐国际学术会议</h4>",
		"<h3>一、A类</h3>",
		"<h3>三、C类</h3>",
		list(row("1", "X", "Venue X", "Pub", "")),
	)

	records, err := newTestParser().Parse(html, "F")

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.LevelC, records[0].Level)
	assert.Equal(t, models.VenueTypeConference, records[0].Type)
}

func TestParse_ContextResetsBetweenPages(t *testing.T) {
	p := newTestParser()

	first := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		"<h3>一、A类</h3>",
		list(row("1", "JACM", "Journal of the ACM", "ACM", "")),
	)
	second := page(
		list(row("1", "ORPHAN", "No heading above", "ACM", "")),
	)

	records, err := p.Parse(first, "one")
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = p.Parse(second, "two")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_IgnoresListsWithoutMarkerClass(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术刊物</h4>",
		`<ul class="nav">`+row("1", "NAV", "Navigation", "Site", "")+"</ul>",
		"<ul>"+row("1", "PLAIN", "Plain list", "Site", "")+"</ul>",
	)

	records, err := newTestParser().Parse(html, "F")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParse_NoQualifyingRows(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"headings only", page("<h4>中国计算机学会推荐国际学术刊物</h4>", "<h3>一、A类</h3>")},
		{"empty document", ""},
		{"plain text", "this is not html at all"},
		{"only header rows", page("<h4>中国计算机学会推荐国际学术刊物</h4>", list(headerRow, headerRow))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := newTestParser().Parse(tt.html, "F")

			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestParse_SkipsShortRowsKeepsOthers(t *testing.T) {
	html := page(
		"<h4>中国计算机学会推荐国际学术会议</h4>",
		"<h3>一、A类</h3>",
		list(
			row("1", "SOSP", "ACM Symposium on Operating Systems Principles", "ACM", ""),
			row("广告", "short"),
			row("2", "OSDI", "USENIX Symposium on Operating Systems Design and Implementation", "USENIX", ""),
		),
	)

	records, err := newTestParser().Parse(html, "ARCH")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SOSP", records[0].Name)
	assert.Equal(t, "OSDI", records[1].Name)
}

// itemFromHTML parses a single <li> fragment and returns it as a selection
func itemFromHTML(t *testing.T, li string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<ul>" + li + "</ul>"))
	require.NoError(t, err)
	item := doc.Find("li").First()
	require.Equal(t, 1, item.Length())
	return item
}

func TestExtractRow_TooFewCells(t *testing.T) {
	rowCtx := RowContext{Field: "F", Level: models.LevelA, Type: models.VenueTypeJournal}

	for n := 0; n < 4; n++ {
		cells := make([]string, n)
		for i := range cells {
			cells[i] = "cell"
		}
		_, ok := ExtractRow(itemFromHTML(t, row(cells...)), rowCtx, []string{"序号"})
		assert.False(t, ok, "%d cells", n)
	}
}

func TestExtractRow_EmptySelection(t *testing.T) {
	_, ok := ExtractRow(&goquery.Selection{}, RowContext{}, []string{"序号"})
	assert.False(t, ok)
}

func TestExtractRow_HeaderRow(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
	}{
		{"plain header", []string{"序号", "简称", "全称", "出版社", "地址"}},
		{"marker inside longer text", []string{" 序号 ", "TOPLAS", "Full", "ACM", `<a href="http://x">x</a>`}},
		{"marker in nested tag", []string{"<span>序号</span>", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ExtractRow(itemFromHTML(t, row(tt.cells...)), RowContext{Type: models.VenueTypeJournal}, []string{"序号"})
			assert.False(t, ok)
		})
	}
}

func TestExtractRow_ExactlyFourCellsHasNoURL(t *testing.T) {
	record, ok := ExtractRow(itemFromHTML(t, row("1", "ICSE", "International Conference on Software Engineering", "ACM/IEEE")),
		RowContext{Field: "SE", Level: models.LevelA, Type: models.VenueTypeConference}, []string{"序号"})

	require.True(t, ok)
	assert.Equal(t, "ICSE", record.Name)
	assert.Equal(t, "ACM/IEEE", record.Publisher)
	assert.Equal(t, "", record.URL)
}

func TestExtractRow_TableCells(t *testing.T) {
	li := `<li><table><tr><td>3</td><td> FSE </td><td>ACM International Conference on
		the Foundations of Software Engineering</td><td>ACM</td><td><a href="https://dblp.org/db/conf/sigsoft/">dblp</a></td></tr></table></li>`

	record, ok := ExtractRow(itemFromHTML(t, li), RowContext{Field: "SE", Level: models.LevelA, Type: models.VenueTypeConference}, []string{"序号"})

	require.True(t, ok)
	assert.Equal(t, "FSE", record.Name)
	assert.Equal(t, "ACM International Conference on the Foundations of Software Engineering", record.FullName)
	assert.Equal(t, "https://dblp.org/db/conf/sigsoft/", record.URL)
}

func TestExtractRow_FirstLinkOnly(t *testing.T) {
	li := row("1", "A", "B", "C", `<a>no href</a><a href="http://second">2</a>`)

	record, ok := ExtractRow(itemFromHTML(t, li), RowContext{}, []string{"序号"})

	require.True(t, ok)
	assert.Equal(t, "", record.URL)
}

func TestExtractRow_AttachesContext(t *testing.T) {
	rowCtx := RowContext{Field: "人工智能", Level: models.LevelB, Type: models.VenueTypeConference}

	record, ok := ExtractRow(itemFromHTML(t, row("1", "  COLT ", "Annual Conference on\n Computational   Learning Theory", "Springer", "")), rowCtx, []string{"序号"})

	require.True(t, ok)
	assert.Equal(t, models.VenueRecord{
		Name:      "COLT",
		FullName:  "Annual Conference on Computational Learning Theory",
		Publisher: "Springer",
		URL:       "",
		Level:     models.LevelB,
		Field:     "人工智能",
		Type:      models.VenueTypeConference,
	}, record)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
		{"trims", "  TOPLAS  ", "TOPLAS"},
		{"collapses internal runs", "ACM\n\t Transactions   on  Storage", "ACM Transactions on Storage"},
		{"ideographic space", "人工\u3000智能", "人工 智能"},
		{"non-breaking space", "IEEE\u00a0TPAMI", "IEEE TPAMI"},
		{"already clean", "Journal of the ACM", "Journal of the ACM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	inputs := []string{"", "  a  b  ", "\n\tx\u3000y\u00a0z\r\n", "已清理", "a\u2003\u2003b"}
	for _, in := range inputs {
		once := CleanText(in)
		assert.Equal(t, once, CleanText(once), "input %q", in)
	}
}
