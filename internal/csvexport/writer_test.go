package csvexport_test

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"

	"docslice/internal/csvexport"
	"docslice/internal/domain"
)

func TestWriter_ManifestRows(t *testing.T) {
	var buf bytes.Buffer
	w := csvexport.NewWriter(&buf)

	segments := []domain.Segment{
		{
			Title:       "Lab Results",
			Category:    "Lab Result",
			Description: "CBC panel",
			StartPage:   1,
			EndPage:     3,
			Fingerprint: "abc123",
			Tags:        []string{"priority", "reviewed"},
			Notes:       "ask about platelets",
		},
		{
			Title:     "Invoice",
			Category:  "Invoice",
			StartPage: 4,
			EndPage:   4,
		},
	}

	assert.NoError(t, w.WriteHeader())
	assert.NoError(t, w.WriteSegments(segments))
	w.Flush()
	assert.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Title", "Category", "Description", "Start Page", "End Page",
		"Fingerprint", "Tags", "Notes", "Filename",
	}, rows[0])

	assert.Equal(t, []string{
		"Lab Results", "Lab Result", "CBC panel", "1", "3",
		"abc123", "priority;reviewed", "ask about platelets", "Lab_Result_Lab_Results.pdf",
	}, rows[1])

	assert.Equal(t, []string{
		"Invoice", "Invoice", "", "4", "4", "", "", "", "Invoice_Invoice.pdf",
	}, rows[2])
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Lab Results", "Lab_Results"},
		{"Q3/2025 report (final)", "Q3_2025_report_final"},
		{"already-safe_name", "already-safe_name"},
		{"___trim me___", "trim_me"},
		{"", ""},
		{"!!!", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, csvexport.SanitizeFilename(c.in), "input %q", c.in)
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefghij"
	}
	assert.Len(t, csvexport.SanitizeFilename(long), 100)
}

func TestArtifactFilename(t *testing.T) {
	seg := &domain.Segment{Title: "Discharge Summary (copy)", Category: "Medical Record"}
	assert.Equal(t, "Medical_Record_Discharge_Summary_copy.pdf", csvexport.ArtifactFilename(seg))
}
