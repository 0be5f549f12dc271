package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Csabesz1130/eventhint/pkg/logging"
)

// ErrNotFound is returned when a lookup by ID finds no row.
var ErrNotFound = errors.New("model: not found")

// Repository provides Postgres-backed persistence for users, messages,
// events, and calendars, grounded on pkg/enrichment/repository.go's
// marshal-nested-fields-to-JSON / nullIfEmpty / scan-by-row pattern.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{pool: pool, logger: logger.With(logging.F("component", "model_repository"))}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- Users ---------------------------------------------------------------

func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (
			id, email, display_name, preferred_name, neptun_id, timezone,
			auto_approve_enabled, sealed_access_token, sealed_refresh_token,
			token_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		u.ID, u.Email, nullIfEmpty(u.DisplayName), nullIfEmpty(u.PreferredName),
		nullIfEmpty(u.NeptunID), u.Timezone, u.AutoApproveEnabled,
		u.SealedAccessToken, u.SealedRefreshToken, u.TokenExpiresAt,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, display_name, preferred_name, neptun_id, timezone,
			auto_approve_enabled, sealed_access_token, sealed_refresh_token,
			token_expires_at, created_at, updated_at
		FROM users WHERE id = $1
	`
	u := &User{}
	var displayName, preferredName, neptunID *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &displayName, &preferredName, &neptunID, &u.Timezone,
		&u.AutoApproveEnabled, &u.SealedAccessToken, &u.SealedRefreshToken,
		&u.TokenExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if displayName != nil {
		u.DisplayName = *displayName
	}
	if preferredName != nil {
		u.PreferredName = *preferredName
	}
	if neptunID != nil {
		u.NeptunID = *neptunID
	}
	return u, nil
}

func (r *Repository) UpdateUserTokens(ctx context.Context, id uuid.UUID, sealedAccess, sealedRefresh string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET sealed_access_token = $2, sealed_refresh_token = $3,
			token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`, id, sealedAccess, sealedRefresh, expiresAt)
	if err != nil {
		return fmt.Errorf("updating user tokens: %w", err)
	}
	return nil
}

// --- Messages --------------------------------------------------------------

func (r *Repository) CreateMessage(ctx context.Context, m *Message) error {
	attachmentsJSON, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("marshaling attachments: %w", err)
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	query := `
		INSERT INTO messages (
			id, owner_id, provider, external_id, thread_id, subject,
			sender_email, sender_name, received_at, body_text, body_html,
			attachments, processed, processed_at, processing_error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (owner_id, provider, external_id) WHERE external_id != '' DO NOTHING
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query,
		m.ID, m.OwnerID, m.Provider, nullIfEmpty(m.ExternalID), nullIfEmpty(m.ProviderThreadID),
		m.Subject, m.SenderEmail, nullIfEmpty(m.SenderName), m.ReceivedAt,
		m.BodyText, nullIfEmpty(m.BodyHTML), attachmentsJSON,
		m.Processed, m.ProcessedAt, nullIfEmpty(m.ProcessingError),
	).Scan(&m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Debug("message already ingested, skipping duplicate",
			logging.F("owner_id", m.OwnerID), logging.F("external_id", m.ExternalID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	return nil
}

func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, provider, external_id, thread_id, subject,
			sender_email, sender_name, received_at, body_text, body_html,
			attachments, processed, processed_at, processing_error, created_at
		FROM messages WHERE id = $1
	`, id)
	return r.scanMessage(row)
}

func (r *Repository) scanMessage(row pgx.Row) (*Message, error) {
	m := &Message{}
	var externalID, threadID, senderName, bodyHTML, processingError *string
	var attachmentsJSON []byte

	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Provider, &externalID, &threadID, &m.Subject,
		&m.SenderEmail, &senderName, &m.ReceivedAt, &m.BodyText, &bodyHTML,
		&attachmentsJSON, &m.Processed, &m.ProcessedAt, &processingError, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	if externalID != nil {
		m.ExternalID = *externalID
	}
	if threadID != nil {
		m.ProviderThreadID = *threadID
	}
	if senderName != nil {
		m.SenderName = *senderName
	}
	if bodyHTML != nil {
		m.BodyHTML = *bodyHTML
	}
	if processingError != nil {
		m.ProcessingError = *processingError
	}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decoding attachments: %w", err)
		}
	}
	return m, nil
}

// MarkMessageProcessed persists the outcome of one pipeline run over m.
func (r *Repository) MarkMessageProcessed(ctx context.Context, m *Message) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages SET processed = $2, processed_at = $3,
			processing_error = $4, body_text = $5, body_html = $6
		WHERE id = $1
	`, m.ID, m.Processed, m.ProcessedAt, nullIfEmpty(m.ProcessingError), m.BodyText, nullIfEmpty(m.BodyHTML))
	if err != nil {
		return fmt.Errorf("marking message processed: %w", err)
	}
	return nil
}

// ListUnprocessedMessages returns up to limit messages awaiting pipeline
// processing, oldest first, for backfill/recovery.
func (r *Repository) ListUnprocessedMessages(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, provider, external_id, thread_id, subject,
			sender_email, sender_name, received_at, body_text, body_html,
			attachments, processed, processed_at, processing_error, created_at
		FROM messages WHERE processed = false ORDER BY received_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unprocessed messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Events ------------------------------------------------------------

func (r *Repository) CreateEvent(ctx context.Context, e *Event) error {
	attendeesJSON, err := json.Marshal(e.Attendees)
	if err != nil {
		return fmt.Errorf("marshaling attendees: %w", err)
	}
	remindersJSON, err := json.Marshal(e.Reminders)
	if err != nil {
		return fmt.Errorf("marshaling reminders: %w", err)
	}
	labelsJSON, err := json.Marshal(e.Labels)
	if err != nil {
		return fmt.Errorf("marshaling labels: %w", err)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `
		INSERT INTO events (
			id, owner_id, type, title, start_at, end_at, allday, timezone,
			location, online_url, notes, attendees, reminders, rrule, labels,
			confidence, method, source_message_id, status, target_calendar_id,
			external_event_id, approved_at, rejected_at, synced_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		e.ID, e.OwnerID, e.Type, e.Title, e.Start, e.End, e.AllDay, e.Timezone,
		nullIfEmpty(e.Location), nullIfEmpty(e.OnlineURL), nullIfEmpty(e.Notes),
		attendeesJSON, remindersJSON, nullIfEmpty(e.RRule), labelsJSON,
		e.Confidence, e.Method, e.SourceMessageID, e.Status, e.TargetCalendarID,
		nullIfEmpty(e.ExternalEventID), e.ApprovedAt, e.RejectedAt, e.SyncedAt,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, type, title, start_at, end_at, allday, timezone,
			location, online_url, notes, attendees, reminders, rrule, labels,
			confidence, method, source_message_id, status, target_calendar_id,
			external_event_id, approved_at, rejected_at, synced_at,
			created_at, updated_at
		FROM events WHERE id = $1
	`, id)
	return r.scanEvent(row)
}

func (r *Repository) scanEvent(row pgx.Row) (*Event, error) {
	e := &Event{}
	var location, onlineURL, notes, rrule, externalEventID *string
	var attendeesJSON, remindersJSON, labelsJSON []byte

	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Type, &e.Title, &e.Start, &e.End, &e.AllDay, &e.Timezone,
		&location, &onlineURL, &notes, &attendeesJSON, &remindersJSON, &rrule, &labelsJSON,
		&e.Confidence, &e.Method, &e.SourceMessageID, &e.Status, &e.TargetCalendarID,
		&externalEventID, &e.ApprovedAt, &e.RejectedAt, &e.SyncedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	if location != nil {
		e.Location = *location
	}
	if onlineURL != nil {
		e.OnlineURL = *onlineURL
	}
	if notes != nil {
		e.Notes = *notes
	}
	if rrule != nil {
		e.RRule = *rrule
	}
	if externalEventID != nil {
		e.ExternalEventID = *externalEventID
	}
	if len(attendeesJSON) > 0 {
		json.Unmarshal(attendeesJSON, &e.Attendees)
	}
	if len(remindersJSON) > 0 {
		json.Unmarshal(remindersJSON, &e.Reminders)
	}
	if len(labelsJSON) > 0 {
		json.Unmarshal(labelsJSON, &e.Labels)
	}
	return e, nil
}

// UpdateEventStatus transitions status and the matching timestamp column
// (approved_at/rejected_at/synced_at), mirroring pkg/lifecycle's state
// machine output.
func (r *Repository) UpdateEventStatus(ctx context.Context, e *Event) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE events SET status = $2, approved_at = $3, rejected_at = $4,
			synced_at = $5, external_event_id = $6, target_calendar_id = $7,
			updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.Status, e.ApprovedAt, e.RejectedAt, e.SyncedAt,
		nullIfEmpty(e.ExternalEventID), e.TargetCalendarID)
	if err != nil {
		return fmt.Errorf("updating event status: %w", err)
	}
	return nil
}

// DeleteEvent removes an event permanently. calendarsync's Undo uses it
// (via EventDeleter) for the §4.6 local delete; no caller deletes the
// expired REJECTED events that lifecycle.SweepExpiredRejected selects.
func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return nil
}

// ListEventsByStatus returns events in the given status for one owner,
// oldest first.
func (r *Repository) ListEventsByStatus(ctx context.Context, ownerID uuid.UUID, status EventStatus) ([]*Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, type, title, start_at, end_at, allday, timezone,
			location, online_url, notes, attendees, reminders, rrule, labels,
			confidence, method, source_message_id, status, target_calendar_id,
			external_event_id, approved_at, rejected_at, synced_at,
			created_at, updated_at
		FROM events WHERE owner_id = $1 AND status = $2 ORDER BY created_at ASC
	`, ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("listing events by status: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Calendars ---------------------------------------------------------

func (r *Repository) CreateCalendar(ctx context.Context, c *Calendar) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO calendars (
			id, owner_id, provider, external_id, display_name, color,
			is_default, is_active, sync_enabled, sealed_access_token,
			sealed_refresh_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.ID, c.OwnerID, c.Provider, c.ExternalID, c.DisplayName, nullIfEmpty(c.Color),
		c.IsDefault, c.IsActive, c.SyncEnabled, c.SealedAccessToken, c.SealedRefreshToken,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating calendar: %w", err)
	}
	return nil
}

// GetCalendar loads a calendar by its own id, used when a SyncJob names an
// explicit target calendar rather than relying on the owner's default.
func (r *Repository) GetCalendar(ctx context.Context, id uuid.UUID) (*Calendar, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, provider, external_id, display_name, color,
			is_default, is_active, sync_enabled, sealed_access_token,
			sealed_refresh_token, created_at, updated_at
		FROM calendars WHERE id = $1
	`, id)
	return r.scanCalendar(row)
}

func (r *Repository) GetDefaultCalendar(ctx context.Context, ownerID uuid.UUID) (*Calendar, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, provider, external_id, display_name, color,
			is_default, is_active, sync_enabled, sealed_access_token,
			sealed_refresh_token, created_at, updated_at
		FROM calendars WHERE owner_id = $1 AND is_default = true AND is_active = true
		LIMIT 1
	`, ownerID)
	return r.scanCalendar(row)
}

func (r *Repository) scanCalendar(row pgx.Row) (*Calendar, error) {
	c := &Calendar{}
	var color *string
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Provider, &c.ExternalID, &c.DisplayName, &color,
		&c.IsDefault, &c.IsActive, &c.SyncEnabled, &c.SealedAccessToken,
		&c.SealedRefreshToken, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning calendar: %w", err)
	}
	if color != nil {
		c.Color = *color
	}
	return c, nil
}
