package port

import "context"

// PageSource abstracts PDF page operations: text extraction from the
// OCR-searchable bundle, and binary page copying from the master.
type PageSource interface {
	// ExtractPageTexts returns the text of every page in order. Pages
	// with no extractable text are returned as empty strings so page
	// numbering stays aligned.
	ExtractPageTexts(ctx context.Context, pdf []byte) ([]string, error)

	// PageCount returns the number of pages in the document.
	PageCount(pdf []byte) (int, error)

	// ExtractPages copies the given 1-indexed pages from the master
	// document into a new standalone PDF.
	ExtractPages(ctx context.Context, master []byte, pages []int) ([]byte, error)
}
