package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractProvider runs OCR locally with Tesseract, in English and
// Hungarian. It's the free, always-available path tried before any
// premium provider.
type TesseractProvider struct {
	// Languages passed to tesseract (e.g. "eng+hun"). Defaults to
	// "eng+hun" when empty.
	Languages string
}

var _ Provider = (*TesseractProvider)(nil)

func (t *TesseractProvider) languages() string {
	if t.Languages != "" {
		return t.Languages
	}
	return "eng+hun"
}

// Extract OCRs a single image and reports Tesseract's mean-word confidence
// (0-1) as the result's overall confidence.
func (t *TesseractProvider) Extract(ctx context.Context, imageBytes []byte) (Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(splitLangs(t.languages())...); err != nil {
		return Result{}, fmt.Errorf("setting tesseract languages: %w", err)
	}
	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return Result{}, fmt.Errorf("loading image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("tesseract extract: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	blocks := make([]TextBlock, 0, len(boxes))
	var confSum float64
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		confSum += conf
		blocks = append(blocks, TextBlock{
			Text:       b.Word,
			Confidence: conf,
			X:          b.Box.Min.X,
			Y:          b.Box.Min.Y,
			W:          b.Box.Dx(),
			H:          b.Box.Dy(),
		})
	}
	if err != nil || len(blocks) == 0 {
		// gosseract's bounding-box pass can fail independently of Text();
		// fall back to a neutral confidence rather than failing the OCR.
		return Result{Text: text, Confidence: 0.5, Provider: "tesseract"}, nil
	}

	return Result{
		Text:       text,
		Confidence: confSum / float64(len(blocks)),
		Blocks:     blocks,
		Provider:   "tesseract",
	}, nil
}

// ExtractFromPDF rasterizes each page of the PDF and OCRs it independently.
func (t *TesseractProvider) ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]Result, error) {
	pages, err := rasterizePages(pdfBytes)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(pages))
	for i, img := range pages {
		res, err := t.Extract(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", i+1, err)
		}
		for bi := range res.Blocks {
			res.Blocks[bi].Page = i + 1
		}
		results = append(results, res)
	}
	return results, nil
}

func (t *TesseractProvider) SupportsTables() bool { return false }
func (t *TesseractProvider) SupportsLayout() bool { return true }

func splitLangs(s string) []string {
	out := []string{}
	cur := ""
	for _, r := range s {
		if r == '+' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
