package ocr

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	result Result
	err    error
	calls  int
}

func (f *fakeProvider) Extract(ctx context.Context, imageBytes []byte) (Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeProvider) ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]Result, error) {
	return nil, errors.New("not used in these tests")
}

func (f *fakeProvider) SupportsTables() bool { return false }
func (f *fakeProvider) SupportsLayout() bool { return false }

func TestRouter_FreeGoodEnoughSkipsPremium(t *testing.T) {
	free := &fakeProvider{result: Result{Text: "hello", Confidence: 0.9, Provider: "tesseract"}}
	premium := &fakeProvider{result: Result{Text: "premium", Confidence: 0.95, Provider: "google_vision"}}

	r := &Router{Free: free, Premium: premium, PreferFree: true, PremiumEnabled: true, ConfidenceThreshold: 0.6}
	res, err := r.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Provider != "tesseract" {
		t.Errorf("expected free provider's result, got %s", res.Provider)
	}
	if premium.calls != 0 {
		t.Errorf("expected premium not to be called, got %d calls", premium.calls)
	}
}

func TestRouter_LowConfidenceEscalatesToPremium(t *testing.T) {
	free := &fakeProvider{result: Result{Text: "blurry", Confidence: 0.3, Provider: "tesseract"}}
	premium := &fakeProvider{result: Result{Text: "clear", Confidence: 0.9, Provider: "google_vision"}}

	r := &Router{Free: free, Premium: premium, PreferFree: true, PremiumEnabled: true, ConfidenceThreshold: 0.6}
	res, err := r.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Provider != "google_vision" {
		t.Errorf("expected escalation to premium, got %s", res.Provider)
	}
}

func TestRouter_PremiumFailureFallsBackToFree(t *testing.T) {
	free := &fakeProvider{result: Result{Text: "blurry", Confidence: 0.3, Provider: "tesseract"}}
	premium := &fakeProvider{err: errors.New("vision unavailable")}

	r := &Router{Free: free, Premium: premium, PreferFree: true, PremiumEnabled: true, ConfidenceThreshold: 0.6}
	res, err := r.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Provider != "tesseract" {
		t.Errorf("expected fallback to free result on premium failure, got %s", res.Provider)
	}
}

func TestRouter_PremiumDisabledReturnsFreeRegardlessOfConfidence(t *testing.T) {
	free := &fakeProvider{result: Result{Text: "blurry", Confidence: 0.1, Provider: "tesseract"}}

	r := &Router{Free: free, PreferFree: true, PremiumEnabled: false, ConfidenceThreshold: 0.6}
	res, err := r.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Provider != "tesseract" {
		t.Errorf("expected tesseract result when premium disabled, got %s", res.Provider)
	}
}

func TestRouter_FreeFailureWithoutPreferFreeTriesPremium(t *testing.T) {
	free := &fakeProvider{err: errors.New("tesseract crashed")}
	premium := &fakeProvider{result: Result{Text: "ok", Confidence: 0.8, Provider: "google_vision"}}

	r := &Router{Free: free, Premium: premium, PreferFree: false, PremiumEnabled: true, ConfidenceThreshold: 0.6}
	res, err := r.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Provider != "google_vision" {
		t.Errorf("expected premium result when PreferFree is false, got %s", res.Provider)
	}
}
