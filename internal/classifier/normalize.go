package classifier

import (
	"encoding/json"
	"strings"

	"docslice/internal/domain"
)

// Sentinel defaults applied when the model omits a field.
const (
	DefaultTitle       = "Untitled Document"
	DefaultDescription = "No description"
	DefaultCategory    = "Uncategorized"
)

// rawProposal mirrors the classifier's JSON schema with pointer fields
// so absent keys can be told apart from empty values.
type rawProposal struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	StartPage   *int    `json:"start_page"`
	EndPage     *int    `json:"end_page"`
}

// DecodeProposals parses the model's text output into normalized
// boundary proposals. Malformed or non-parseable output yields an empty
// list rather than an error: the classifier boundary swallows ambiguity
// instead of propagating it.
func DecodeProposals(text string) []domain.BoundaryProposal {
	text = stripCodeFences(text)

	var wrapped struct {
		Documents []rawProposal `json:"documents"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Documents != nil {
		return normalize(wrapped.Documents)
	}

	// Some models return the bare array despite the schema.
	var bare []rawProposal
	if err := json.Unmarshal([]byte(text), &bare); err == nil {
		return normalize(bare)
	}

	return []domain.BoundaryProposal{}
}

func normalize(raw []rawProposal) []domain.BoundaryProposal {
	out := make([]domain.BoundaryProposal, 0, len(raw))
	for _, r := range raw {
		p := domain.BoundaryProposal{
			Title:       DefaultTitle,
			Description: DefaultDescription,
			Category:    DefaultCategory,
		}
		if r.Title != nil {
			p.Title = *r.Title
		}
		if r.Description != nil {
			p.Description = *r.Description
		}
		if r.Category != nil {
			p.Category = *r.Category
		}
		if r.StartPage != nil {
			p.StartPage = *r.StartPage
		}
		if r.EndPage != nil {
			p.EndPage = *r.EndPage
		}
		out = append(out, p)
	}
	return out
}

// stripCodeFences removes a leading ```json / trailing ``` wrapper that
// models add despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
