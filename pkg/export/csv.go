package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Sriram-PR/ccf-scraper/pkg/models"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

// columns is the fixed CSV schema, in output order
var columns = []string{"name", "full_name", "publisher", "url", "level", "field", "type"}

// Columns returns the export schema. The slice is a copy and may be modified by the caller.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// EnsureSchema projects a record onto the export columns, in Columns order.
// Unset level and type become empty cells.
func EnsureSchema(r models.VenueRecord) []string {
	return []string{r.Name, r.FullName, r.Publisher, r.URL, string(r.Level), r.Field, string(r.Type)}
}

// WriteCSV writes a UTF-8 BOM, the header row and one row per record to w
func WriteCSV(w io.Writer, records []models.VenueRecord) error {
	bomWriter := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bomWriter)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(EnsureSchema(r)); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	// Close flushes the transformer's buffered tail; it does not close w
	if err := bomWriter.Close(); err != nil {
		return fmt.Errorf("flushing CSV encoder: %w", err)
	}
	return nil
}

// WriteFile writes records as CSV to path, replacing any existing file atomically.
// Returns utils.ErrNoRecords without touching the filesystem when records is empty.
// Every other failure wraps utils.ErrFilesystem.
func WriteFile(path string, records []models.VenueRecord) (err error) {
	if len(records) == 0 {
		return utils.ErrNoRecords
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
		return fmt.Errorf("%w: creating output directory '%s': %w", utils.ErrFilesystem, dir, mkErr)
	}

	tmp, createErr := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if createErr != nil {
		return fmt.Errorf("%w: creating temp file in '%s': %w", utils.ErrFilesystem, dir, createErr)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if writeErr := WriteCSV(tmp, records); writeErr != nil {
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, tmpPath, writeErr)
	}
	if syncErr := tmp.Sync(); syncErr != nil {
		return fmt.Errorf("%w: syncing '%s': %w", utils.ErrFilesystem, tmpPath, syncErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		return fmt.Errorf("%w: closing '%s': %w", utils.ErrFilesystem, tmpPath, closeErr)
	}
	if chmodErr := os.Chmod(tmpPath, 0644); chmodErr != nil {
		return fmt.Errorf("%w: chmod '%s': %w", utils.ErrFilesystem, tmpPath, chmodErr)
	}
	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		return fmt.Errorf("%w: renaming '%s' to '%s': %w", utils.ErrFilesystem, tmpPath, path, renameErr)
	}
	return nil
}
