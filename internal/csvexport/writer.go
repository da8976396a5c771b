package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"docslice/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the manifest header row.
var columns = []string{
	"Title",
	"Category",
	"Description",
	"Start Page",
	"End Page",
	"Fingerprint",
	"Tags",
	"Notes",
	"Filename",
}

// Writer wraps csv.Writer for exporting segment manifests as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the manifest header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteSegments converts segments to manifest rows and writes them in
// store order.
func (w *Writer) WriteSegments(segments []domain.Segment) error {
	for i := range segments {
		if err := w.csv.Write(segmentToRow(&segments[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func segmentToRow(seg *domain.Segment) []string {
	row := make([]string, len(columns))
	row[0] = seg.Title
	row[1] = seg.Category
	row[2] = seg.Description
	row[3] = strconv.Itoa(seg.StartPage)
	row[4] = strconv.Itoa(seg.EndPage)
	row[5] = seg.Fingerprint
	row[6] = strings.Join(seg.Tags, ";")
	row[7] = seg.Notes
	row[8] = ArtifactFilename(seg)
	return row
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans free text for use in a filename. Replaces
// non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// ArtifactFilename derives a segment's deliverable filename:
// {sanitized_category}_{sanitized_title}.pdf
func ArtifactFilename(seg *domain.Segment) string {
	return fmt.Sprintf("%s_%s.pdf", SanitizeFilename(seg.Category), SanitizeFilename(seg.Title))
}
