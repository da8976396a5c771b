// Package history implements unlimited linear undo/redo over full
// SegmentStore snapshots. The live store itself never sits on either
// stack: past holds states before the current one, future holds states
// undone from it.
package history

import "docslice/internal/domain"

// History holds the undo (past) and redo (future) snapshot stacks for
// one session. Depth is bounded only by memory; rapid edits are not
// coalesced, each committed edit is one entry.
type History struct {
	past   []domain.SegmentStore
	future []domain.SegmentStore
}

// New returns an empty history.
func New() *History {
	return &History{}
}

// Record registers a committed mutation: the store that was live before
// the edit goes onto past, and any redoable states are discarded. The
// snapshot is deep-copied so later edits cannot alias into history.
func (h *History) Record(before domain.SegmentStore) {
	h.past = append(h.past, before.Clone())
	h.future = h.future[:0]
}

// Undo exchanges the live store for the most recent past snapshot. The
// second return is false when there is nothing to undo; the live store
// is returned unchanged in that case.
func (h *History) Undo(current domain.SegmentStore) (domain.SegmentStore, bool) {
	if len(h.past) == 0 {
		return current, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current.Clone())
	return prev, true
}

// Redo is symmetric to Undo over the future stack.
func (h *History) Redo(current domain.SegmentStore) (domain.SegmentStore, bool) {
	if len(h.future) == 0 {
		return current, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current.Clone())
	return next, true
}

// CanUndo reports whether an undo is available.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether a redo is available.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Clear drops both stacks. Used on reset and when a session is
// reconstituted from durable storage.
func (h *History) Clear() {
	h.past = nil
	h.future = nil
}
