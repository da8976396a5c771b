package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"docslice/internal/classifier"
	"docslice/internal/domain"
	"docslice/internal/port"
)

// Analyze runs boundary detection over the session's OCR bundle:
// per-page text extraction, one classifier call, proposal
// normalization, segment minting. The whole operation is atomic with
// respect to session state: on any failure nothing is committed and
// the previous store survives untouched.
func (s *sessionService) Analyze(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	if state.processing {
		state.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	if state.session.BundleKey == "" {
		state.mu.Unlock()
		return nil, domain.ErrNoBundle
	}
	bundleKey := state.session.BundleKey
	contextHint := state.session.ContextHint
	state.processing = true
	state.mu.Unlock()

	defer func() {
		state.mu.Lock()
		state.processing = false
		state.mu.Unlock()
	}()

	segments, err := s.runAnalysis(ctx, bundleKey, contextHint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisFailed, err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	before := state.session.SegmentStore
	state.hist.Record(before)
	state.session.SegmentStore = domain.SegmentStore{
		Segments:    segments,
		ContextHint: contextHint,
	}
	state.session.Phase = domain.PhaseReview

	s.persist(ctx, state.session)
	s.recordAudit(ctx, id, nil, domain.AuditSessionAnalyzed, map[string]interface{}{
		"segment_count": len(segments),
	})
	log.Printf("sessionService.Analyze: session %s produced %d segments", id, len(segments))
	return s.view(state), nil
}

// runAnalysis does the slow work outside the session lock.
func (s *sessionService) runAnalysis(ctx context.Context, bundleKey, contextHint string) ([]domain.Segment, error) {
	bundle, err := s.storage.Download(ctx, s.s3cfg.Bucket, bundleKey)
	if err != nil {
		return nil, fmt.Errorf("downloading bundle: %w", err)
	}

	pageTexts, err := s.pages.ExtractPageTexts(ctx, bundle)
	if err != nil {
		return nil, fmt.Errorf("extracting page texts: %w", err)
	}

	proposals, err := s.classif.ProposeBoundaries(ctx, port.ClassifyInput{
		PageTexts:   classifier.TruncatePageTexts(pageTexts, s.analysis.PageTextLimit),
		ContextHint: contextHint,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying boundaries: %w", err)
	}

	return mintSegments(proposals), nil
}

// mintSegments turns normalized proposals into fresh pending segments.
func mintSegments(proposals []domain.BoundaryProposal) []domain.Segment {
	segments := make([]domain.Segment, 0, len(proposals))
	for _, p := range proposals {
		segments = append(segments, domain.Segment{
			ID:          uuid.New(),
			Title:       p.Title,
			Description: p.Description,
			Category:    p.Category,
			StartPage:   p.StartPage,
			EndPage:     p.EndPage,
			Tags:        []string{},
			Status:      domain.SegmentStatusPending,
		})
	}
	return segments
}
