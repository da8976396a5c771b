// Package report renders a session's segment inventory as an XLSX
// workbook: a summary sheet and one row per segment.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"docslice/internal/csvexport"
	"docslice/internal/domain"
)

const (
	summarySheet  = "Summary"
	segmentsSheet = "Segments"
)

var segmentHeaders = []string{
	"Title", "Category", "Description", "Start Page", "End Page",
	"Status", "Fingerprint", "Tags", "Notes", "Filename",
}

// Build renders the workbook for a session and returns the xlsx bytes.
func Build(session *domain.Session) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := buildSummarySheet(f, session); err != nil {
		return nil, err
	}
	if err := buildSegmentsSheet(f, session.Segments); err != nil {
		return nil, err
	}

	// Drop the default sheet and make the summary the active one.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("report.Build: %w", err)
	}
	idx, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("report.Build: %w", err)
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("report.Build: %w", err)
	}
	return buf.Bytes(), nil
}

func buildSummarySheet(f *excelize.File, session *domain.Session) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("report: creating summary sheet: %w", err)
	}

	counts := map[domain.SegmentStatus]int{}
	for i := range session.Segments {
		counts[session.Segments[i].Status]++
	}

	rows := [][]interface{}{
		{"Session", session.ID.String()},
		{"Phase", string(session.Phase)},
		{"Context Hint", session.ContextHint},
		{"Created", session.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Updated", session.UpdatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Segments", len(session.Segments)},
		{"Ready", counts[domain.SegmentStatusReady]},
		{"Pending", counts[domain.SegmentStatusPending]},
		{"Error", counts[domain.SegmentStatusError]},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("report: writing summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 40)
}

func buildSegmentsSheet(f *excelize.File, segments []domain.Segment) error {
	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return fmt.Errorf("report: creating segments sheet: %w", err)
	}

	header := make([]interface{}, len(segmentHeaders))
	for i, h := range segmentHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(segmentsSheet, "A1", &header); err != nil {
		return fmt.Errorf("report: writing header: %w", err)
	}

	for i := range segments {
		seg := &segments[i]
		row := []interface{}{
			seg.Title,
			seg.Category,
			seg.Description,
			seg.StartPage,
			seg.EndPage,
			string(seg.Status),
			seg.Fingerprint,
			strings.Join(seg.Tags, ";"),
			seg.Notes,
			csvexport.ArtifactFilename(seg),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(segmentsSheet, cell, &row); err != nil {
			return fmt.Errorf("report: writing segment row %d: %w", i+2, err)
		}
	}

	return f.SetColWidth(segmentsSheet, "A", "J", 24)
}
