package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docslice/internal/classifier"
	"docslice/internal/domain"
)

func TestDecodeProposals_WrappedObject(t *testing.T) {
	text := `{"documents":[
		{"title":"Lab Results","description":"CBC panel","category":"Lab Result","start_page":1,"end_page":3},
		{"title":"Invoice","description":"Hospital bill","category":"Invoice","start_page":4,"end_page":4}
	]}`

	got := classifier.DecodeProposals(text)

	assert.Len(t, got, 2)
	assert.Equal(t, domain.BoundaryProposal{
		Title: "Lab Results", Description: "CBC panel", Category: "Lab Result",
		StartPage: 1, EndPage: 3,
	}, got[0])
}

func TestDecodeProposals_BareArray(t *testing.T) {
	text := `[{"title":"Only One","start_page":1,"end_page":2}]`

	got := classifier.DecodeProposals(text)

	assert.Len(t, got, 1)
	assert.Equal(t, "Only One", got[0].Title)
	assert.Equal(t, classifier.DefaultDescription, got[0].Description)
	assert.Equal(t, classifier.DefaultCategory, got[0].Category)
}

func TestDecodeProposals_CodeFences(t *testing.T) {
	text := "```json\n{\"documents\":[{\"title\":\"Fenced\",\"start_page\":1,\"end_page\":1}]}\n```"

	got := classifier.DecodeProposals(text)

	assert.Len(t, got, 1)
	assert.Equal(t, "Fenced", got[0].Title)
}

func TestDecodeProposals_MissingFieldsGetSentinels(t *testing.T) {
	text := `{"documents":[{}]}`

	got := classifier.DecodeProposals(text)

	assert.Len(t, got, 1)
	assert.Equal(t, classifier.DefaultTitle, got[0].Title)
	assert.Equal(t, classifier.DefaultDescription, got[0].Description)
	assert.Equal(t, classifier.DefaultCategory, got[0].Category)
	assert.Equal(t, 0, got[0].StartPage)
	assert.Equal(t, 0, got[0].EndPage)
}

func TestDecodeProposals_EmptyStringFieldsKept(t *testing.T) {
	// An explicit empty string is the model's answer, not an omission.
	text := `{"documents":[{"title":"","start_page":1,"end_page":1}]}`

	got := classifier.DecodeProposals(text)

	assert.Len(t, got, 1)
	assert.Equal(t, "", got[0].Title)
}

func TestDecodeProposals_Malformed(t *testing.T) {
	cases := []string{
		"",
		"I could not find any documents in this bundle.",
		`{"documents": "not an array"}`,
		`{"docs":[{"title":"wrong key"}]}`,
		"```json\ntruncated...",
	}
	for _, text := range cases {
		got := classifier.DecodeProposals(text)
		assert.NotNil(t, got, "input %q", text)
		assert.Empty(t, got, "input %q", text)
	}
}

func TestTruncatePageTexts(t *testing.T) {
	texts := []string{"short", "0123456789abcdef"}

	got := classifier.TruncatePageTexts(texts, 10)

	assert.Equal(t, "short", got[0])
	assert.Equal(t, "0123456789", got[1])
	// The input slice is untouched.
	assert.Equal(t, "0123456789abcdef", texts[1])
}

func TestTruncatePageTexts_RuneSafe(t *testing.T) {
	texts := []string{"héllo wörld"}

	got := classifier.TruncatePageTexts(texts, 6)

	assert.Equal(t, "héllo ", got[0])
}

func TestTruncatePageTexts_NoLimit(t *testing.T) {
	texts := []string{"anything"}
	assert.Equal(t, texts, classifier.TruncatePageTexts(texts, 0))
}
