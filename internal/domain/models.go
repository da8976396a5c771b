package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Segment is one proposed or finalized sub-document within a bundle.
// The artifact bytes and the selection flag are runtime-only: both are
// excluded from JSON so they never reach the persistence layer.
type Segment struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	StartPage   int           `json:"start_page"`
	EndPage     int           `json:"end_page"`
	Tags        []string      `json:"tags"`
	Notes       string        `json:"notes"`
	Status      SegmentStatus `json:"status"`
	Fingerprint string        `json:"fingerprint"`
	Artifact    []byte        `json:"-"`
	Selected    bool          `json:"-"`
}

// Clone returns a deep copy of the segment. Artifact bytes are shared:
// they are written once at finalization and never mutated in place.
func (s Segment) Clone() Segment {
	out := s
	if s.Tags != nil {
		out.Tags = make([]string, len(s.Tags))
		copy(out.Tags, s.Tags)
	}
	return out
}

// HasTag reports whether the segment already carries the tag.
func (s Segment) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Session is the workflow aggregate: one scanned bundle under review.
// The embedded SegmentStore is the undoable portion; everything else is
// pipeline state outside the undo domain.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	Phase        WorkflowPhase `json:"phase"`
	SegmentStore               // flattens to "segments" and "context_hint"
	BundleKey    string        `json:"bundle_key"`
	MasterKey    string        `json:"master_key"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BoundaryProposal is one sub-document proposal as returned by the
// boundary classifier, after normalization at the provider boundary.
type BoundaryProposal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
}

// SegmentOutcome summarizes one segment's result after a finalize run.
type SegmentOutcome struct {
	SegmentID uuid.UUID     `json:"segment_id"`
	Status    SegmentStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	PageCount int           `json:"page_count"`
}

// AuditEntry records a mutation for the chain-of-custody trail.
type AuditEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	SessionID uuid.UUID       `db:"session_id" json:"session_id"`
	SegmentID *uuid.UUID      `db:"segment_id" json:"segment_id"`
	Action    string          `db:"action" json:"action"`
	Changes   json.RawMessage `db:"changes" json:"changes"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
