package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const gcalAPIBase = "https://www.googleapis.com/calendar/v3"

// GCalEvent is the Google Calendar API's event JSON shape, built by
// pkg/calendarsync and consumed here verbatim.
type GCalEvent map[string]any

// CalendarInfo is one calendar entry from calendarList.list.
type CalendarInfo struct {
	ID      string
	Name    string
	Color   string
	Primary bool
}

// CalendarClient is a thin REST client for the Google Calendar API:
// create/update/delete/get on one calendar's events, plus listing the
// user's calendars. It satisfies pkg/calendarsync's ProviderClient
// interface.
type CalendarClient struct {
	AccessToken string
	CalendarID  string // defaults to "primary" when empty
	HTTPClient  *http.Client
}

func (c *CalendarClient) calendarID() string {
	if c.CalendarID != "" {
		return c.CalendarID
	}
	return "primary"
}

func (c *CalendarClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *CalendarClient) do(ctx context.Context, method, url string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding request body: %w", err)
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling calendar api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// CreateEvent inserts gcalEvent into the configured calendar and returns
// the provider's event id.
func (c *CalendarClient) CreateEvent(ctx context.Context, gcalEvent GCalEvent) (string, error) {
	url := fmt.Sprintf("%s/calendars/%s/events", gcalAPIBase, c.calendarID())
	body, status, err := c.do(ctx, http.MethodPost, url, gcalEvent)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("calendar api create returned %d: %s", status, string(body))
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	return created.ID, nil
}

// UpdateEvent replaces an existing event's fields.
func (c *CalendarClient) UpdateEvent(ctx context.Context, externalID string, gcalEvent GCalEvent) error {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", gcalAPIBase, c.calendarID(), externalID)
	body, status, err := c.do(ctx, http.MethodPut, url, gcalEvent)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("calendar api update returned %d: %s", status, string(body))
	}
	return nil
}

// DeleteEvent removes an event by its provider id.
func (c *CalendarClient) DeleteEvent(ctx context.Context, externalID string) error {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", gcalAPIBase, c.calendarID(), externalID)
	body, status, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusGone {
		return fmt.Errorf("calendar api delete returned %d: %s", status, string(body))
	}
	return nil
}

// GetEvent fetches an event's raw JSON by provider id.
func (c *CalendarClient) GetEvent(ctx context.Context, externalID string) (GCalEvent, error) {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", gcalAPIBase, c.calendarID(), externalID)
	body, status, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("calendar api get returned %d: %s", status, string(body))
	}
	var ev GCalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return ev, nil
}

// ListCalendars returns every calendar on the account.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	url := gcalAPIBase + "/users/me/calendarList"
	body, status, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("calendar api list returned %d: %s", status, string(body))
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
		return nil, fmt.Errorf("decoding calendar list: %w", err)
	}

	out := make([]CalendarInfo, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		color := item.BackgroundColor
		if color == "" {
			color = "#000000"
		}
		out = append(out, CalendarInfo{ID: item.ID, Name: item.Summary, Color: color, Primary: item.Primary})
	}
	return out, nil
}
