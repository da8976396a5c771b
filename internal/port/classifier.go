package port

import (
	"context"

	"docslice/internal/domain"
)

// ClassifyInput carries everything the boundary classifier needs: the
// per-page text of the OCR'd bundle (already truncated to a bounded
// prefix per page) and the operator's context hint.
type ClassifyInput struct {
	PageTexts   []string
	ContextHint string
}

// BoundaryClassifier abstracts the LLM call that proposes boundaries
// between logically distinct sub-documents. Implementations normalize
// the model output at the boundary: malformed or non-parseable output
// yields an empty proposal list, not an error.
type BoundaryClassifier interface {
	ProposeBoundaries(ctx context.Context, input ClassifyInput) ([]domain.BoundaryProposal, error)
}
