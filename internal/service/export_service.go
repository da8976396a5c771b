package service

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"docslice/internal/csvexport"
	"docslice/internal/domain"
	"docslice/internal/port"
	"docslice/internal/report"
)

// ManifestCSV renders the manifest for a session's segments, in store
// order, prefixed with a BOM for Excel.
func (s *sessionService) ManifestCSV(ctx context.Context, id uuid.UUID) ([]byte, error) {
	segments, err := s.segmentSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(csvexport.BOM)
	w := csvexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("sessionService.ManifestCSV: %w", err)
	}
	if err := w.WriteSegments(segments); err != nil {
		return nil, fmt.Errorf("sessionService.ManifestCSV: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("sessionService.ManifestCSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportXLSX renders the session report workbook.
func (s *sessionService) ReportXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	session := *state.session
	session.SegmentStore = state.session.SegmentStore.Clone()
	state.mu.Unlock()

	return report.Build(&session)
}

// ExportUpload delivers the finalized artifacts plus the manifest to
// object storage and sends the optional notification email. Returns the
// object keys written. Segments without a ready artifact are skipped.
func (s *sessionService) ExportUpload(ctx context.Context, id uuid.UUID) ([]string, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	if state.processing {
		state.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	if state.session.Phase != domain.PhaseFinalized {
		state.mu.Unlock()
		return nil, domain.ErrWrongPhase
	}
	segments := make([]domain.Segment, len(state.session.Segments))
	for i := range state.session.Segments {
		segments[i] = state.session.Segments[i].Clone()
	}
	state.mu.Unlock()

	var keys []string
	for i := range segments {
		seg := &segments[i]
		if seg.Status != domain.SegmentStatusReady || len(seg.Artifact) == 0 {
			continue
		}
		key := fmt.Sprintf("sessions/%s/exports/%s", id, csvexport.ArtifactFilename(seg))
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.s3cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(seg.Artifact),
			ContentType: "application/pdf",
			Size:        int64(len(seg.Artifact)),
		})
		if err != nil {
			return nil, fmt.Errorf("sessionService.ExportUpload: artifact %s: %w", seg.ID, err)
		}
		keys = append(keys, key)
	}

	manifest, err := s.ManifestCSV(ctx, id)
	if err != nil {
		return nil, err
	}
	manifestKey := fmt.Sprintf("sessions/%s/exports/manifest.csv", id)
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3cfg.Bucket,
		Key:         manifestKey,
		Body:        bytes.NewReader(manifest),
		ContentType: "text/csv",
		Size:        int64(len(manifest)),
	})
	if err != nil {
		return nil, fmt.Errorf("sessionService.ExportUpload: manifest: %w", err)
	}
	keys = append(keys, manifestKey)

	s.recordAudit(ctx, id, nil, domain.AuditExportUploaded, map[string]interface{}{
		"keys": keys,
	})
	s.notifyExport(ctx, id, len(keys)-1)
	return keys, nil
}

// notifyExport sends the best-effort delivery notification.
func (s *sessionService) notifyExport(ctx context.Context, id uuid.UUID, artifactCount int) {
	if s.emailCfg.NotifyTo == "" {
		return
	}
	msg := port.EmailMessage{
		To:      s.emailCfg.NotifyTo,
		Subject: fmt.Sprintf("docslice: session %s exported", id),
		Body:    fmt.Sprintf("Session %s export complete: %d artifacts plus manifest uploaded.", id, artifactCount),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		log.Printf("sessionService.notifyExport: %v", err)
	}
}

func (s *sessionService) segmentSnapshot(ctx context.Context, id uuid.UUID) ([]domain.Segment, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	segments := make([]domain.Segment, len(state.session.Segments))
	for i := range state.session.Segments {
		segments[i] = state.session.Segments[i].Clone()
	}
	return segments, nil
}
