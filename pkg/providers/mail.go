package providers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// MailMessage is a parsed email, the Go equivalent of GmailService's
// _parse_message result.
type MailMessage struct {
	ExternalID string
	ThreadID   string
	Subject    string
	From       string
	To         string
	BodyText   string
	BodyHTML   string
	Attachments []MailAttachment
}

// MailAttachment is one attachment extracted while walking a message's
// MIME parts.
type MailAttachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

// MailFetcher fetches and watches a provider inbox. A Gmail implementation
// sits behind this interface (Fetch calling the Gmail API's messages.get,
// Watch/Stop calling users.watch/users.stop); ParseMIMEMessage below
// handles the raw-RFC822 case (uploaded .eml files, or the raw bytes a
// Gmail API response's payload decodes to).
type MailFetcher interface {
	Fetch(ctx context.Context, externalID string) (MailMessage, error)
	Watch(ctx context.Context, webhookURL string) error
	Stop(ctx context.Context) error
}

// ParseMIMEMessage walks a raw RFC 822 message's MIME tree, collecting the
// text/plain and text/html bodies (concatenating several parts of the same
// type) and every part with a filename as
// an attachment, mirroring _extract_parts's recursive traversal.
func ParseMIMEMessage(raw []byte) (MailMessage, error) {
	msg, err := mail.ReadMessage(newByteReader(raw))
	if err != nil {
		return MailMessage{}, fmt.Errorf("parsing mime message: %w", err)
	}

	out := MailMessage{
		Subject: msg.Header.Get("Subject"),
		From:    msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, _ := io.ReadAll(msg.Body)
		out.BodyText = string(body)
		return out, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		if err := walkParts(mr, &out); err != nil {
			return MailMessage{}, fmt.Errorf("walking mime parts: %w", err)
		}
	} else {
		body, _ := io.ReadAll(msg.Body)
		if mediaType == "text/html" {
			out.BodyHTML = string(body)
		} else {
			out.BodyText = string(body)
		}
	}

	return out, nil
}

func walkParts(mr *multipart.Reader, out *MailMessage) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		contentType := part.Header.Get("Content-Type")
		mediaType, params, _ := mime.ParseMediaType(contentType)
		filename := part.FileName()

		data, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("reading part: %w", err)
		}

		switch {
		case filename != "":
			out.Attachments = append(out.Attachments, MailAttachment{
				Filename: filename,
				MIMEType: mediaType,
				Data:     data,
			})
		case mediaType == "text/plain":
			out.BodyText += string(data)
		case mediaType == "text/html":
			out.BodyHTML += string(data)
		case strings.HasPrefix(mediaType, "multipart/"):
			nested := multipart.NewReader(strings.NewReader(string(data)), params["boundary"])
			if err := walkParts(nested, out); err != nil {
				return err
			}
		}
	}
}

func newByteReader(b []byte) io.Reader { return strings.NewReader(string(b)) }
