package providers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gmailB64(s string) string {
	return base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func gmailURLSafe(s string) string {
	std := gmailB64(s)
	std = strings.ReplaceAll(std, "+", "-")
	std = strings.ReplaceAll(std, "/", "_")
	return std
}

func TestDecodeGmailBase64_HandlesURLSafeAlphabet(t *testing.T) {
	decoded, err := decodeGmailBase64(gmailURLSafe("hello world"))
	if err != nil {
		t.Fatalf("decodeGmailBase64() error = %v", err)
	}
	if decoded != "hello world" {
		t.Errorf("decodeGmailBase64() = %q, want %q", decoded, "hello world")
	}
}

func TestExtractGmailParts_CollectsTextAndAttachmentsRecursively(t *testing.T) {
	parts := []gmailPart{
		{
			MimeType: "multipart/mixed",
			Parts: []gmailPart{
				{MimeType: "text/plain", Body: struct {
					Data         string `json:"data"`
					Size         int    `json:"size"`
					AttachmentID string `json:"attachmentId"`
				}{Data: gmailURLSafe("Your exam is on March 5th.")}},
				{Filename: "schedule.pdf", MimeType: "application/pdf", Body: struct {
					Data         string `json:"data"`
					Size         int    `json:"size"`
					AttachmentID string `json:"attachmentId"`
				}{AttachmentID: "att-1"}},
			},
		},
	}

	var out MailMessage
	extractGmailParts(parts, &out)

	if !strings.Contains(out.BodyText, "Your exam is on March 5th.") {
		t.Errorf("expected nested text/plain part decoded, got %q", out.BodyText)
	}
	if len(out.Attachments) != 1 || out.Attachments[0].Filename != "schedule.pdf" {
		t.Errorf("expected one attachment collected, got %v", out.Attachments)
	}
}

func TestGmailFetcher_AuthedRequest_SetsBearerHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := &GmailFetcher{AccessToken: "test-token", HTTPClient: server.Client()}
	resp, err := g.authedRequest(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("authedRequest() error = %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer test-token" {
		t.Errorf("expected Authorization header set, got %q", gotAuth)
	}
}

func TestGmailFetcher_AuthedRequest_SendsRequestBody(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := &GmailFetcher{AccessToken: "tok", HTTPClient: server.Client()}
	resp, err := g.authedRequest(context.Background(), http.MethodPost, server.URL, strings.NewReader(`{"topicName":"projects/x/topics/y"}`))
	if err != nil {
		t.Fatalf("authedRequest() error = %v", err)
	}
	resp.Body.Close()
	if !strings.Contains(gotBody, "topicName") {
		t.Errorf("expected topicName in watch body, got %q", gotBody)
	}
}
