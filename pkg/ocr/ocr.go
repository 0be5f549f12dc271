// Package ocr recovers text from message attachments (spec C1): a local
// Tesseract provider for the common case, an optional premium Vision
// provider for low-confidence or handwritten scans, and a Router that
// implements the Tesseract-first escalation policy from
// backend/app/services/ocr/__init__.py's extract_text_smart.
package ocr

import (
	"context"
)

// TextBlock is a single detected span of text with its confidence and
// position within the page.
type TextBlock struct {
	Text       string
	Confidence float64
	X, Y, W, H int
	Page       int
}

// Result is the outcome of OCR-ing one image or PDF page.
type Result struct {
	Text       string
	Confidence float64
	Blocks     []TextBlock
	Language   string
	Provider   string
}

// Provider extracts text from an image or a multi-page PDF.
type Provider interface {
	Extract(ctx context.Context, imageBytes []byte) (Result, error)
	ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]Result, error)
	SupportsTables() bool
	SupportsLayout() bool
}
