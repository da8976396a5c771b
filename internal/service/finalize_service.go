package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/google/uuid"

	"docslice/internal/domain"
)

// Finalize cuts the master document into per-segment binaries. The
// master is loaded and parsed once; failure there is fatal and touches
// no segment. Segments are processed strictly in store order, one at a
// time. Already-ready segments are skipped, so re-running finalize
// after a partial failure only does the remaining work. Per-segment
// extraction failures mark that segment error and the batch continues.
//
// Finalize sits outside the undo domain: status, fingerprint, and
// artifact changes produce no history entries.
func (s *sessionService) Finalize(ctx context.Context, id uuid.UUID) ([]domain.SegmentOutcome, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	if state.processing {
		state.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	if state.session.MasterKey == "" {
		state.mu.Unlock()
		return nil, domain.ErrNoMaster
	}
	masterKey := state.session.MasterKey
	state.processing = true
	state.mu.Unlock()

	defer func() {
		state.mu.Lock()
		state.processing = false
		state.mu.Unlock()
	}()

	master, err := s.storage.Download(ctx, s.s3cfg.Bucket, masterKey)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading master: %v", domain.ErrMasterUnreadable, err)
	}
	pageCount, err := s.pages.PageCount(master)
	if err != nil {
		return nil, err
	}

	// Work against a snapshot of segment ids so concurrent edits during
	// the run cannot shift indexes under us.
	state.mu.Lock()
	ids := make([]uuid.UUID, len(state.session.Segments))
	for i := range state.session.Segments {
		ids[i] = state.session.Segments[i].ID
	}
	state.mu.Unlock()

	outcomes := make([]domain.SegmentOutcome, 0, len(ids))
	for _, segID := range ids {
		outcome := s.finalizeSegment(ctx, state, master, pageCount, segID)
		outcomes = append(outcomes, outcome)
		log.Printf("sessionService.Finalize: session %s segment %s -> %s", id, segID, outcome.Status)
	}

	state.mu.Lock()
	state.session.Phase = domain.PhaseFinalized
	s.persist(ctx, state.session)
	state.mu.Unlock()

	s.recordAudit(ctx, id, nil, domain.AuditFinalizeCompleted, map[string]interface{}{
		"outcomes": outcomes,
	})
	return outcomes, nil
}

// finalizeSegment processes one segment: clamp the page range, extract,
// fingerprint, attach. Status transitions happen under the session lock;
// the extraction itself runs unlocked.
func (s *sessionService) finalizeSegment(ctx context.Context, state *sessionState, master []byte, pageCount int, segID uuid.UUID) domain.SegmentOutcome {
	state.mu.Lock()
	i := state.session.IndexOf(segID)
	if i < 0 {
		state.mu.Unlock()
		return domain.SegmentOutcome{SegmentID: segID, Status: domain.SegmentStatusError, Error: "segment deleted during finalize"}
	}
	seg := state.session.Segments[i]
	if seg.Status == domain.SegmentStatusReady {
		state.mu.Unlock()
		return domain.SegmentOutcome{SegmentID: segID, Status: domain.SegmentStatusReady, PageCount: len(effectivePages(seg.StartPage, seg.EndPage, pageCount))}
	}
	// Error segments stay error until an operator edit resets them.
	if seg.Status == domain.SegmentStatusError {
		state.mu.Unlock()
		return domain.SegmentOutcome{SegmentID: segID, Status: domain.SegmentStatusError, Error: "previous failure; edit the page range to retry"}
	}
	state.session.Segments[i].Status = domain.SegmentStatusProcessing
	startPage, endPage := seg.StartPage, seg.EndPage
	state.mu.Unlock()

	pages := effectivePages(startPage, endPage, pageCount)
	if len(pages) == 0 {
		return s.markSegment(ctx, state, segID, domain.SegmentStatusError,
			fmt.Sprintf("page range %d-%d is entirely outside the master (%d pages)", startPage, endPage, pageCount),
			nil, "", 0)
	}

	artifact, err := s.pages.ExtractPages(ctx, master, pages)
	if err != nil {
		return s.markSegment(ctx, state, segID, domain.SegmentStatusError, err.Error(), nil, "", 0)
	}

	sum := sha256.Sum256(artifact)
	fingerprint := hex.EncodeToString(sum[:])
	return s.markSegment(ctx, state, segID, domain.SegmentStatusReady, "", artifact, fingerprint, len(pages))
}

func (s *sessionService) markSegment(ctx context.Context, state *sessionState, segID uuid.UUID, status domain.SegmentStatus, errMsg string, artifact []byte, fingerprint string, pageCount int) domain.SegmentOutcome {
	state.mu.Lock()
	defer state.mu.Unlock()

	if i := state.session.IndexOf(segID); i >= 0 {
		state.session.Segments[i].Status = status
		state.session.Segments[i].Fingerprint = fingerprint
		state.session.Segments[i].Artifact = artifact
		s.persist(ctx, state.session)
	}

	return domain.SegmentOutcome{
		SegmentID: segID,
		Status:    status,
		Error:     errMsg,
		PageCount: pageCount,
	}
}

// effectivePages expands a 1-indexed inclusive range, clamped to the
// master's bounds. Out-of-range pages are dropped rather than failing
// the segment; an empty result means nothing of the range exists.
func effectivePages(startPage, endPage, pageCount int) []int {
	start := startPage
	if start < 1 {
		start = 1
	}
	end := endPage
	if end > pageCount {
		end = pageCount
	}
	if start > end {
		return nil
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// GetArtifact returns a finalized segment's binary and its fingerprint.
func (s *sessionService) GetArtifact(ctx context.Context, id, segmentID uuid.UUID) ([]byte, string, error) {
	state, err := s.getState(ctx, id)
	if err != nil {
		return nil, "", err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	seg, ok := state.session.Find(segmentID)
	if !ok {
		return nil, "", domain.ErrSegmentNotFound
	}
	if seg.Status != domain.SegmentStatusReady || len(seg.Artifact) == 0 {
		return nil, "", domain.ErrNotFinalized
	}
	return seg.Artifact, seg.Fingerprint, nil
}
