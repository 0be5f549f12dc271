// Package model holds the core data types shared across the ingestion and
// sync pipelines: users, raw messages, canonical calendar events, and the
// calendars they sync to.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies the originating system for a Message or Calendar.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderUpload  Provider = "upload"
	ProviderWebsite Provider = "website"
	ProviderGoogle  Provider = "google"
)

// EventType distinguishes a timed calendar event from a due-dated task.
type EventType string

const (
	EventTypeEvent EventType = "event"
	EventTypeTask  EventType = "task"
)

// ExtractionMethod records which component produced an Event draft.
type ExtractionMethod string

const (
	MethodDeterministic ExtractionMethod = "deterministic"
	MethodLLM           ExtractionMethod = "llm"
	MethodHybrid        ExtractionMethod = "hybrid"
)

// EventStatus is the lifecycle state of an Event. See pkg/lifecycle for the
// state machine and transition rules (spec C7).
type EventStatus string

const (
	StatusPendingApproval EventStatus = "PENDING_APPROVAL"
	StatusApproved        EventStatus = "APPROVED"
	StatusRejected        EventStatus = "REJECTED"
	StatusSynced          EventStatus = "SYNCED"
	StatusError           EventStatus = "ERROR"
)

// ReminderMethod is how a Reminder notifies the attendee.
type ReminderMethod string

const (
	ReminderPopup ReminderMethod = "popup"
	ReminderEmail ReminderMethod = "email"
)

// Known event labels, per SPEC_FULL.md 3a. The set is extensible; this is
// not a closed enum, just the labels the extractors currently assign.
const (
	LabelExam     = "exam"
	LabelMeeting  = "meeting"
	LabelFlight   = "flight"
	LabelDeadline = "deadline"
	LabelTravel   = "travel"
)

// User owns Messages, Events, and Calendars.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name"`
	PreferredName      string    `json:"preferred_name,omitempty"`
	NeptunID           string    `json:"neptun_id,omitempty"`
	Timezone           string    `json:"timezone"`
	AutoApproveEnabled bool      `json:"auto_approve_enabled"`

	// SealedAccessToken/SealedRefreshToken hold ciphertext produced by
	// credentials.Seal; never logged or serialized to API responses.
	SealedAccessToken  string    `json:"-"`
	SealedRefreshToken string    `json:"-"`
	TokenExpiresAt     time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a single file attached to a Message, along with any text
// recovered from it by the OCR router (pkg/ocr).
type Attachment struct {
	Filename      string  `json:"filename"`
	MIMEType      string  `json:"mime_type"`
	SizeBytes     int64   `json:"size_bytes"`
	StoragePath   string  `json:"storage_path"`
	OCRText       string  `json:"ocr_text,omitempty"`
	OCRConfidence float64 `json:"ocr_confidence,omitempty"`
}

// Message is the raw ingested artifact: an email, an uploaded image/PDF, or
// scraped web text.
type Message struct {
	ID       uuid.UUID `json:"id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Provider Provider  `json:"provider"`

	// ExternalID is the provider's own id for this message (e.g. Gmail
	// message id), used as a dedup key when the provider supplies one.
	ExternalID       string `json:"external_id,omitempty"`
	ProviderThreadID string `json:"thread_id,omitempty"`

	Subject      string       `json:"subject"`
	SenderEmail  string       `json:"sender_email"`
	SenderName   string       `json:"sender_name,omitempty"`
	ReceivedAt   time.Time    `json:"received_at"`
	BodyText     string       `json:"body_text"`
	BodyHTML     string       `json:"body_html,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`

	Processed       bool       `json:"processed"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Attendee is a named participant on an Event.
type Attendee struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Reminder is a single reminder attached to an Event.
type Reminder struct {
	Method  ReminderMethod `json:"method"`
	Minutes int            `json:"minutes"`
}

// Event is a canonical calendar event or task, whether still a pending
// draft awaiting approval or already synced to a provider calendar.
type Event struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Type    EventType `json:"type"`

	Title     string     `json:"title"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	AllDay    bool       `json:"allday"`
	Timezone  string     `json:"timezone"`
	Location  string     `json:"location,omitempty"`
	OnlineURL string     `json:"online_url,omitempty"`
	Notes     string     `json:"notes,omitempty"`

	Attendees []Attendee `json:"attendees,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`
	RRule     string     `json:"rrule,omitempty"`
	Labels    []string   `json:"labels,omitempty"`

	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"method"`

	SourceMessageID uuid.UUID `json:"source_message_id"`

	Status EventStatus `json:"status"`

	TargetCalendarID *uuid.UUID `json:"target_calendar_id,omitempty"`
	ExternalEventID  string     `json:"external_event_id,omitempty"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Calendar is a provider calendar an Event can be synced to.
type Calendar struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Provider     Provider  `json:"provider"`
	ExternalID   string    `json:"external_id"`
	DisplayName  string    `json:"display_name"`
	Color        string    `json:"color,omitempty"`
	IsDefault    bool      `json:"is_default"`
	IsActive     bool      `json:"is_active"`
	SyncEnabled  bool      `json:"sync_enabled"`

	SealedAccessToken  string `json:"-"`
	SealedRefreshToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
