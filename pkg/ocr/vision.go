package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const visionAPIURL = "https://vision.googleapis.com/v1/images:annotate"

// VisionProvider is a thin REST client for Google Cloud Vision's
// document_text_detection feature, used as the premium escalation path
// when Tesseract's confidence is too low. CredentialsPath names a file
// holding the API key (matching the original service account JSON file
// convention), read once on first use.
type VisionProvider struct {
	CredentialsPath string
	HTTPClient      *http.Client

	apiKey string
}

var _ Provider = (*VisionProvider)(nil)

func (v *VisionProvider) httpClient() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return http.DefaultClient
}

func (v *VisionProvider) loadKey() error {
	if v.apiKey != "" {
		return nil
	}
	if v.CredentialsPath == "" {
		return fmt.Errorf("ocr: vision credentials path not configured")
	}
	data, err := os.ReadFile(v.CredentialsPath)
	if err != nil {
		return fmt.Errorf("reading vision credentials: %w", err)
	}
	v.apiKey = string(bytes.TrimSpace(data))
	if v.apiKey == "" {
		return fmt.Errorf("ocr: vision credentials file %q is empty", v.CredentialsPath)
	}
	return nil
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage    `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Extract sends the image to Vision's document_text_detection endpoint.
// Vision doesn't return a single scalar confidence the way Tesseract does,
// so a fixed high confidence is reported, matching the original service's
// fallback default for responses with no per-word confidence data.
func (v *VisionProvider) Extract(ctx context.Context, imageBytes []byte) (Result, error) {
	if err := v.loadKey(); err != nil {
		return Result{}, err
	}

	reqBody := visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(imageBytes)},
		Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
	}}}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("encoding vision request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", visionAPIURL, v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("building vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling vision api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("vision api returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed visionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("decoding vision response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return Result{}, fmt.Errorf("vision api returned no responses")
	}
	r := parsed.Responses[0]
	if r.Error != nil {
		return Result{}, fmt.Errorf("vision api error: %s", r.Error.Message)
	}

	return Result{
		Text:       r.FullTextAnnotation.Text,
		Confidence: 0.8,
		Provider:   "google_vision",
	}, nil
}

// ExtractFromPDF does not rasterize PDFs: it always returns an error. The
// Router rasterizes a PDF once and sends each page through Extract.
func (v *VisionProvider) ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]Result, error) {
	return nil, fmt.Errorf("ocr: vision provider does not rasterize PDFs directly; use Router")
}

func (v *VisionProvider) SupportsTables() bool { return true }
func (v *VisionProvider) SupportsLayout() bool { return true }
