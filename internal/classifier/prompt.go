package classifier

import (
	"fmt"
	"strings"
)

// BuildBoundaryPrompt assembles the segmentation prompt from the
// per-page texts and the operator's context hint. Page texts must
// already be truncated by the caller; this function only lays them out.
func BuildBoundaryPrompt(pageTexts []string, contextHint string) string {
	var b strings.Builder

	b.WriteString(`You are a document segmentation assistant. The text below comes from a scanned bundle of ` + fmt.Sprintf("%d", len(pageTexts)) + ` pages that contains several logically distinct documents (for example lab results, invoices, correspondence, forms). Identify where one document ends and the next begins.`)
	b.WriteString("\n\n")

	if hint := strings.TrimSpace(contextHint); hint != "" {
		b.WriteString("Context provided by the operator: " + hint + "\n\n")
	}

	b.WriteString(`Return ONLY valid JSON with no markdown formatting, no code fences, and no explanation. Just the raw JSON object.

The response must follow this schema:
{
  "documents": [
    {
      "title": "",
      "description": "",
      "category": "",
      "start_page": 1,
      "end_page": 1
    }
  ]
}

RULES:
- Page numbers are 1-indexed and inclusive; every document covers a contiguous page range.
- Cover every page of the bundle exactly once, in order.
- "category" is a short label like "Lab Result", "Invoice", "Correspondence", "Form", "Other".
- Keep titles short and specific; put anything longer in "description".

`)

	for i, text := range pageTexts {
		b.WriteString(fmt.Sprintf("--- PAGE %d ---\n", i+1))
		if strings.TrimSpace(text) == "" {
			b.WriteString("(no extractable text)\n")
		} else {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// TruncatePageTexts bounds each page's text to at most limit runes, to
// bound prompt size. A non-positive limit leaves the texts untouched.
func TruncatePageTexts(pageTexts []string, limit int) []string {
	if limit <= 0 {
		return pageTexts
	}
	out := make([]string, len(pageTexts))
	for i, text := range pageTexts {
		runes := []rune(text)
		if len(runes) > limit {
			out[i] = string(runes[:limit])
		} else {
			out[i] = text
		}
	}
	return out
}
