package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCalendarClient_Do_SetsAuthHeaderAndMarshalsBody(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody GCalEvent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "gcal-evt-9"})
	}))
	defer server.Close()

	c := &CalendarClient{AccessToken: "tok", HTTPClient: server.Client()}
	body, status, err := c.do(context.Background(), http.MethodPost, server.URL, GCalEvent{"summary": "Exam"})
	if err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected json content type, got %q", gotContentType)
	}
	if gotBody["summary"] != "Exam" {
		t.Errorf("expected request body marshaled, got %v", gotBody)
	}
	if status != http.StatusCreated {
		t.Errorf("expected status passed through, got %d", status)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.ID != "gcal-evt-9" {
		t.Errorf("expected response body readable, got %q (err=%v)", body, err)
	}
}

func TestCalendarClient_Do_PropagatesNetworkError(t *testing.T) {
	c := &CalendarClient{AccessToken: "tok", HTTPClient: http.DefaultClient}
	if _, _, err := c.do(context.Background(), http.MethodGet, "http://127.0.0.1:1/unreachable", nil); err == nil {
		t.Error("expected an error for an unreachable host")
	}
}

func TestCalendarClient_CalendarID_DefaultsToPrimary(t *testing.T) {
	c := &CalendarClient{}
	if got := c.calendarID(); got != "primary" {
		t.Errorf("calendarID() = %q, want %q", got, "primary")
	}

	c2 := &CalendarClient{CalendarID: "work@example.com"}
	if got := c2.calendarID(); got != "work@example.com" {
		t.Errorf("calendarID() = %q, want %q", got, "work@example.com")
	}
}

func TestCalendarClient_Do_ReturnsCalendarListJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "primary", "summary": "Personal", "primary": true},
				{"id": "work-id", "summary": "Work", "backgroundColor": "#112233"},
			},
		})
	}))
	defer server.Close()

	c := &CalendarClient{HTTPClient: server.Client()}
	body, _, err := c.do(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("do() error = %v", err)
	}

	var parsed struct {
		Items []struct {
			ID              string `json:"id"`
			Summary         string `json:"summary"`
			BackgroundColor string `json:"backgroundColor"`
			Primary         bool   `json:"primary"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if len(parsed.Items) != 2 || parsed.Items[0].ID != "primary" || !parsed.Items[0].Primary {
		t.Errorf("expected 2 items with first marked primary, got %+v", parsed.Items)
	}
	if parsed.Items[1].BackgroundColor != "#112233" {
		t.Errorf("expected background color preserved, got %q", parsed.Items[1].BackgroundColor)
	}
}
