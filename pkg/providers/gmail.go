package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1/users/me"

// GmailFetcher is a thin REST client for the Gmail API, used instead of
// the full googleapiclient-equivalent Go SDK: the spec only needs
// messages.get and the watch/stop push-notification calls, so a small
// http.Client wrapper covers it without pulling in Google's generated API
// client library.
type GmailFetcher struct {
	AccessToken string
	HTTPClient  *http.Client
}

var _ MailFetcher = (*GmailFetcher)(nil)

func (g *GmailFetcher) client() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return http.DefaultClient
}

func (g *GmailFetcher) authedRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	return g.client().Do(req)
}

type gmailMessagePayload struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Payload  struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		MimeType string `json:"mimeType"`
		Body     struct {
			Data string `json:"data"`
		} `json:"body"`
		Parts []gmailPart `json:"parts"`
	} `json:"payload"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Body     struct {
		Data         string `json:"data"`
		Size         int    `json:"size"`
		AttachmentID string `json:"attachmentId"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

// Fetch retrieves a message by its Gmail id, the Go equivalent of
// GmailService.get_message.
func (g *GmailFetcher) Fetch(ctx context.Context, externalID string) (MailMessage, error) {
	url := fmt.Sprintf("%s/messages/%s?format=full", gmailAPIBase, externalID)
	resp, err := g.authedRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return MailMessage{}, fmt.Errorf("fetching gmail message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return MailMessage{}, fmt.Errorf("reading gmail response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return MailMessage{}, fmt.Errorf("gmail api returned %d: %s", resp.StatusCode, string(body))
	}

	var raw gmailMessagePayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return MailMessage{}, fmt.Errorf("decoding gmail message: %w", err)
	}

	out := MailMessage{ExternalID: raw.ID, ThreadID: raw.ThreadID}
	for _, h := range raw.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.From = h.Value
		case "To":
			out.To = h.Value
		}
	}

	if len(raw.Payload.Parts) > 0 {
		extractGmailParts(raw.Payload.Parts, &out)
	} else if raw.Payload.Body.Data != "" {
		decoded, err := decodeGmailBase64(raw.Payload.Body.Data)
		if err == nil {
			out.BodyText = decoded
		}
	}
	return out, nil
}

func extractGmailParts(parts []gmailPart, out *MailMessage) {
	for _, part := range parts {
		switch {
		case part.MimeType == "text/plain" && part.Body.Data != "":
			if decoded, err := decodeGmailBase64(part.Body.Data); err == nil {
				out.BodyText += decoded
			}
		case part.MimeType == "text/html" && part.Body.Data != "":
			if decoded, err := decodeGmailBase64(part.Body.Data); err == nil {
				out.BodyHTML += decoded
			}
		case part.Filename != "" && part.Body.AttachmentID != "":
			out.Attachments = append(out.Attachments, MailAttachment{
				Filename: part.Filename,
				MIMEType: part.MimeType,
			})
		}
		if len(part.Parts) > 0 {
			extractGmailParts(part.Parts, out)
		}
	}
}

func decodeGmailBase64(s string) (string, error) {
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	data, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Watch registers webhookURL for Gmail push notifications (users.watch).
func (g *GmailFetcher) Watch(ctx context.Context, webhookURL string) error {
	payload, _ := json.Marshal(map[string]any{
		"labelIds":  []string{"INBOX"},
		"topicName": webhookURL,
	})
	resp, err := g.authedRequest(ctx, http.MethodPost, gmailAPIBase+"/watch", strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("registering gmail watch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gmail watch returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Stop cancels push notifications (users.stop).
func (g *GmailFetcher) Stop(ctx context.Context) error {
	resp, err := g.authedRequest(ctx, http.MethodPost, gmailAPIBase+"/stop", nil)
	if err != nil {
		return fmt.Errorf("stopping gmail watch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gmail stop returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
