package domain

import "github.com/google/uuid"

// SegmentStore is the canonical ordered collection of segments plus the
// shared context hint. It is never mutated in place: every edit clones
// the store, mutates the clone, and installs it as the new live value.
// That discipline is what makes undo/redo snapshots cheap and safe.
type SegmentStore struct {
	Segments    []Segment `json:"segments"`
	ContextHint string    `json:"context_hint"`
}

// Clone returns a deep copy of the store.
func (s SegmentStore) Clone() SegmentStore {
	out := SegmentStore{ContextHint: s.ContextHint}
	if s.Segments != nil {
		out.Segments = make([]Segment, len(s.Segments))
		for i := range s.Segments {
			out.Segments[i] = s.Segments[i].Clone()
		}
	}
	return out
}

// IndexOf returns the position of the segment with the given id, or -1.
func (s SegmentStore) IndexOf(id uuid.UUID) int {
	for i := range s.Segments {
		if s.Segments[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the segment with the given id.
func (s SegmentStore) Find(id uuid.UUID) (Segment, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.Segments[i], true
	}
	return Segment{}, false
}
