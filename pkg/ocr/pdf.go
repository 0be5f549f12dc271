package ocr

import (
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

var errNoProvider = errors.New("ocr: no provider configured")

// rasterizePages renders every page of a PDF to a PNG image, for routers
// that need to escalate per page rather than delegating the whole
// document to one provider's own PDF handling.
func rasterizePages(pdfBytes []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	pages := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImagePNG(i, 150)
		if err != nil {
			return nil, fmt.Errorf("rasterizing page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
