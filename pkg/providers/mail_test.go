package providers

import (
	"strings"
	"testing"
)

func TestParseMIMEMessage_PlainTextBody(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Meeting tomorrow\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		"Let's meet at 10am.\r\n"

	msg, err := ParseMIMEMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMIMEMessage() error = %v", err)
	}
	if msg.Subject != "Meeting tomorrow" {
		t.Errorf("expected subject parsed, got %q", msg.Subject)
	}
	if !strings.Contains(msg.BodyText, "Let's meet at 10am.") {
		t.Errorf("expected body text parsed, got %q", msg.BodyText)
	}
}

func TestParseMIMEMessage_MultipartWithAttachment(t *testing.T) {
	boundary := "BOUNDARY123"
	raw := "From: alice@example.com\r\n" +
		"Subject: Exam schedule\r\n" +
		"Content-Type: multipart/mixed; boundary=" + boundary + "\r\n\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Please see attached schedule.\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"schedule.pdf\"\r\n\r\n" +
		"%PDF-1.4 fake bytes\r\n" +
		"--" + boundary + "--\r\n"

	msg, err := ParseMIMEMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMIMEMessage() error = %v", err)
	}
	if !strings.Contains(msg.BodyText, "Please see attached schedule.") {
		t.Errorf("expected plain text part collected, got %q", msg.BodyText)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "schedule.pdf" {
		t.Errorf("expected one attachment named schedule.pdf, got %v", msg.Attachments)
	}
}

func TestParseMIMEMessage_MultipartAlternativeTextAndHTML(t *testing.T) {
	boundary := "ALT123"
	raw := "Subject: Deadline reminder\r\n" +
		"Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Deadline is Friday.\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/html\r\n\r\n" +
		"<p>Deadline is Friday.</p>\r\n" +
		"--" + boundary + "--\r\n"

	msg, err := ParseMIMEMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMIMEMessage() error = %v", err)
	}
	if !strings.Contains(msg.BodyText, "Deadline is Friday.") {
		t.Errorf("expected text/plain part collected, got %q", msg.BodyText)
	}
	if !strings.Contains(msg.BodyHTML, "<p>Deadline is Friday.</p>") {
		t.Errorf("expected text/html part collected, got %q", msg.BodyHTML)
	}
}
