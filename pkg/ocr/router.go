package ocr

import (
	"context"

	"github.com/Csabesz1130/eventhint/pkg/logging"
)

// Router implements the Tesseract-first escalation policy from
// extract_text_smart: try the free provider first, escalate to the
// premium provider only when confidence is too low, and never let a
// premium failure lose a usable free-tier result.
type Router struct {
	Free    Provider
	Premium Provider

	// PreferFree mirrors prefer_free: when true, Tesseract is tried
	// before considering the premium provider at all.
	PreferFree bool
	// PremiumEnabled mirrors settings.ENABLE_GOOGLE_VISION.
	PremiumEnabled bool
	// ConfidenceThreshold mirrors settings.OCR_CONFIDENCE_THRESHOLD.
	ConfidenceThreshold float64
}

// Extract runs the smart-routing OCR policy on a single image.
func (r *Router) Extract(ctx context.Context, imageBytes []byte) (Result, error) {
	log := logging.Global()

	var freeResult *Result
	if r.PreferFree && r.Free != nil {
		res, err := r.Free.Extract(ctx, imageBytes)
		if err != nil {
			log.Warn("free ocr provider failed, trying premium", logging.Err(err))
		} else if res.Confidence >= r.ConfidenceThreshold {
			log.Info("ocr succeeded with free provider",
				logging.F("provider", res.Provider),
				logging.F("confidence", res.Confidence))
			return res, nil
		} else {
			freeResult = &res
		}
	}

	if r.PremiumEnabled && r.Premium != nil {
		res, err := r.Premium.Extract(ctx, imageBytes)
		if err == nil {
			log.Info("ocr succeeded with premium provider",
				logging.F("provider", res.Provider),
				logging.F("confidence", res.Confidence))
			return res, nil
		}
		log.Error("premium ocr provider failed", logging.Err(err))
		if r.PreferFree && freeResult != nil {
			return *freeResult, nil
		}
		return Result{}, err
	}

	if freeResult != nil {
		return *freeResult, nil
	}
	if r.Free == nil {
		return Result{}, errNoProvider
	}
	return r.Free.Extract(ctx, imageBytes)
}

// ExtractFromPDF rasterizes a PDF with the free provider (Tesseract's
// rasterizer) and routes each page through the same escalation policy.
func (r *Router) ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]Result, error) {
	if r.Free == nil {
		return nil, errNoProvider
	}
	images, err := rasterizePages(pdfBytes)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(images))
	for page, img := range images {
		res, err := r.Extract(ctx, img)
		if err != nil {
			return nil, err
		}
		for bi := range res.Blocks {
			res.Blocks[bi].Page = page + 1
		}
		results = append(results, res)
	}
	return results, nil
}
