// Package pipeline provides the ingestion pipeline orchestrator (spec C5):
// resolve the message's source, OCR its attachments, extract candidate
// events, merge and score them, persist the survivors, and apply the
// auto-approval policy before finalizing the message.
//
// Grounded on pkg/enrichment/pipeline/pipeline.go's stage-by-stage
// orchestration shape (each stage logged, errors recorded, a final status
// write), generalized from the teacher's six enrichment stages to the
// spec's six ingestion stages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Csabesz1130/eventhint/pkg/extraction"
	"github.com/Csabesz1130/eventhint/pkg/lifecycle"
	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/merge"
	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/ocr"
	"github.com/Csabesz1130/eventhint/pkg/providers"
)

// maxLinks is the number of outbound links stored as a synthetic
// attachment when resolving a website source, per spec §4.5 stage 1.
const maxLinks = 50

// AttachmentReader loads the bytes for an attachment already written to
// storage, keyed by its storage path. Kept as a narrow interface so tests
// can substitute an in-memory map instead of a real object store.
type AttachmentReader interface {
	ReadAttachment(ctx context.Context, storagePath string) ([]byte, error)
}

// EventStore persists a merged, scored, status-decided Event.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *model.Event) error
}

// SyncEnqueuer schedules a sync job for an event that entered APPROVED
// directly (auto-approval), so the calendar sync engine picks it up
// without waiting for a human approval action.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, eventID uuid.UUID, calendarID *uuid.UUID) error
}

// Pipeline wires the extraction/merge/lifecycle components into the
// six-stage orchestration described in spec.md §4.5.
type Pipeline struct {
	Scraper       *providers.Scraper
	OCR           ocr.Provider
	LLM           *extraction.LLMExtractor
	Events        EventStore
	Sync          SyncEnqueuer
	Attachments   AttachmentReader
	DefaultTarget *uuid.UUID // calendar to enqueue sync jobs against when an event auto-approves
}

// Process runs the full pipeline for one message. msg and owner must
// already be loaded by the caller (the queue/worker layer); Process
// mutates msg in place and the caller is responsible for persisting it.
func (p *Pipeline) Process(ctx context.Context, msg *model.Message, owner model.User, trustedSender bool, now time.Time) error {
	log := logging.Global().With(logging.F("component", "pipeline"), logging.F("message_id", msg.ID))

	if msg.Processed {
		log.Debug("message already processed, skipping")
		return nil
	}

	log.Info("processing message", logging.F("provider", string(msg.Provider)))

	if msg.Provider == model.ProviderWebsite {
		if err := p.resolveWebsiteSource(ctx, msg); err != nil {
			msg.MarkProcessed(now, false, err.Error())
			log.Warn("resolving website source failed, message finalized with no events", logging.Err(err))
			return nil
		}
	}

	fullText := p.ocrAttachments(ctx, msg, log)

	drafts := p.extract(ctx, owner, fullText)

	minOCRConfidence := attachmentConfidence(msg.Attachments)
	events := merge.MergeAndValidate(drafts)

	hadEvents := false
	for i := range events {
		ev := &events[i]
		ev.ID = uuid.New()
		ev.OwnerID = owner.ID
		ev.SourceMessageID = msg.ID
		ev.Status = model.StatusPendingApproval
		ev.Confidence = merge.CalculateConfidence(*ev, merge.ConfidenceInput{
			TrustedSender: trustedSender,
			OCRConfidence: minOCRConfidence,
		})
		ev.CreatedAt = now
		ev.UpdatedAt = now

		if err := lifecycle.MaybeAutoApprove(ev, owner, trustedSender, now); err != nil {
			log.Warn("auto-approval transition failed", logging.Err(err), logging.F("event_id", ev.ID))
		}

		if err := p.Events.CreateEvent(ctx, ev); err != nil {
			log.Error("failed to persist event", logging.Err(err), logging.F("event_id", ev.ID))
			continue
		}
		hadEvents = true

		if ev.Status == model.StatusApproved && p.Sync != nil {
			if err := p.Sync.EnqueueSync(ctx, ev.ID, p.DefaultTarget); err != nil {
				log.Warn("failed to enqueue sync job for auto-approved event", logging.Err(err), logging.F("event_id", ev.ID))
			}
		}
	}

	msg.MarkProcessed(now, hadEvents, "")
	log.Info("message processed", logging.F("event_count", len(events)))
	return nil
}

// resolveWebsiteSource treats msg.BodyText as a URL, fetches it via the
// scraper adapter, and overwrites the message's text fields with the
// scraped page, storing up to maxLinks outbound links as a synthetic
// attachment.
func (p *Pipeline) resolveWebsiteSource(ctx context.Context, msg *model.Message) error {
	page, err := p.Scraper.Scrape(ctx, msg.BodyText)
	if err != nil {
		return fmt.Errorf("resolving website source: %w", err)
	}

	msg.Subject = page.Title
	msg.BodyText = page.Text
	msg.BodyHTML = page.HTML

	links := page.Links
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	if len(links) > 0 {
		linkText := ""
		for _, l := range links {
			linkText += fmt.Sprintf("%s - %s\n", l.Text, l.URL)
		}
		msg.Attachments = append(msg.Attachments, model.Attachment{
			Filename: "links.txt",
			MIMEType: "text/plain",
			OCRText:  linkText,
		})
	}
	return nil
}

// ocrAttachments runs the OCR router over every attachment with a stored
// path, appending each result to a running full_text string. A single
// attachment's OCR failure is logged and skipped, never aborting the job.
func (p *Pipeline) ocrAttachments(ctx context.Context, msg *model.Message, log logging.Logger) string {
	fullText := msg.BodyText

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if att.StoragePath == "" || p.Attachments == nil || p.OCR == nil {
			continue
		}

		data, err := p.Attachments.ReadAttachment(ctx, att.StoragePath)
		if err != nil {
			log.Warn("reading attachment failed, skipping OCR", logging.Err(err), logging.F("filename", att.Filename))
			continue
		}

		result, err := p.OCR.Extract(ctx, data)
		if err != nil {
			log.Warn("ocr failed, skipping attachment", logging.Err(err), logging.F("filename", att.Filename))
			continue
		}

		att.OCRText = result.Text
		att.OCRConfidence = result.Confidence
		fullText += fmt.Sprintf("\n\n--- %s ---\n%s", att.Filename, result.Text)
	}

	return fullText
}

// extract runs the deterministic and LLM extractors over full_text and
// returns their combined drafts, tagged by source as merge.MergeAndValidate
// expects.
func (p *Pipeline) extract(ctx context.Context, owner model.User, fullText string) []merge.Draft {
	det := &extraction.DeterministicExtractor{
		Timezone: owner.Timezone,
		UserName: owner.PreferredName,
		NeptunID: owner.NeptunID,
	}

	drafts := det.Extract(fullText)

	if p.LLM != nil {
		drafts = append(drafts, p.LLM.Extract(ctx, fullText, owner.Timezone)...)
	}

	return drafts
}

// attachmentConfidence returns the minimum OCR confidence across
// attachments that went through OCR, or 1.0 if none did (merge.CalculateConfidence
// treats 1.0 as "not OCR-derived", matching spec §4.4's scoring rule).
func attachmentConfidence(attachments []model.Attachment) float64 {
	min := 1.0
	seen := false
	for _, a := range attachments {
		if a.OCRConfidence == 0 {
			continue
		}
		seen = true
		if a.OCRConfidence < min {
			min = a.OCRConfidence
		}
	}
	if !seen {
		return 1.0
	}
	return min
}
