package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/ocr"
	"github.com/Csabesz1130/eventhint/pkg/providers"
)

type fakeOCR struct {
	result ocr.Result
	err    error
}

func (f *fakeOCR) Extract(ctx context.Context, imageBytes []byte) (ocr.Result, error) {
	return f.result, f.err
}
func (f *fakeOCR) ExtractFromPDF(ctx context.Context, pdfBytes []byte) ([]ocr.Result, error) {
	return nil, errors.New("not supported in test")
}
func (f *fakeOCR) SupportsTables() bool { return false }
func (f *fakeOCR) SupportsLayout() bool { return false }

type fakeAttachmentReader struct {
	data map[string][]byte
}

func (f *fakeAttachmentReader) ReadAttachment(ctx context.Context, storagePath string) ([]byte, error) {
	data, ok := f.data[storagePath]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type fakeEventStore struct {
	created []model.Event
}

func (f *fakeEventStore) CreateEvent(ctx context.Context, ev *model.Event) error {
	f.created = append(f.created, *ev)
	return nil
}

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueSync(ctx context.Context, eventID uuid.UUID, calendarID *uuid.UUID) error {
	f.enqueued = append(f.enqueued, eventID)
	return nil
}

func TestPipeline_Process_SkipsAlreadyProcessedMessage(t *testing.T) {
	events := &fakeEventStore{}
	p := &Pipeline{Events: events}
	msg := &model.Message{ID: uuid.New(), Processed: true}

	if err := p.Process(context.Background(), msg, model.User{}, false, time.Now()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(events.created) != 0 {
		t.Errorf("expected no events created for an already-processed message, got %d", len(events.created))
	}
}

func TestPipeline_Process_MarksBodyTextMessageProcessed(t *testing.T) {
	events := &fakeEventStore{}
	enqueuer := &fakeEnqueuer{}
	owner := model.User{ID: uuid.New(), Timezone: "Europe/Budapest"}
	msg := &model.Message{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Provider: model.ProviderUpload,
		BodyText: "Standup meeting on 2026.03.05. at 10:00",
	}

	p := &Pipeline{Events: events, Sync: enqueuer}

	if err := p.Process(context.Background(), msg, owner, false, time.Now()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !msg.Processed {
		t.Error("expected message marked processed")
	}
	if msg.ProcessedAt == nil {
		t.Error("expected processed_at stamped")
	}
}

func TestPipeline_Process_OCRsAttachmentsAndSkipsFailures(t *testing.T) {
	events := &fakeEventStore{}
	reader := &fakeAttachmentReader{data: map[string][]byte{
		"att-1": []byte("fake-image-bytes"),
	}}
	ocrProvider := &fakeOCR{result: ocr.Result{Text: "Exam on 2026.03.05.", Confidence: 0.9}}

	owner := model.User{ID: uuid.New(), Timezone: "Europe/Budapest"}
	msg := &model.Message{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Provider: model.ProviderUpload,
		Attachments: []model.Attachment{
			{Filename: "scan.png", StoragePath: "att-1"},
			{Filename: "missing.png", StoragePath: "att-missing"},
		},
	}

	p := &Pipeline{Events: events, OCR: ocrProvider, Attachments: reader}

	if err := p.Process(context.Background(), msg, owner, false, time.Now()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if msg.Attachments[0].OCRText != "Exam on 2026.03.05." {
		t.Errorf("expected ocr text stored on attachment, got %q", msg.Attachments[0].OCRText)
	}
	if msg.Attachments[1].OCRText != "" {
		t.Errorf("expected missing attachment's ocr to be skipped, got %q", msg.Attachments[1].OCRText)
	}
	if !msg.Processed {
		t.Error("expected message processed despite one attachment failure")
	}
}

func TestPipeline_Process_AutoApprovedEventEnqueuesSync(t *testing.T) {
	events := &fakeEventStore{}
	enqueuer := &fakeEnqueuer{}
	owner := model.User{ID: uuid.New(), Timezone: "Europe/Budapest", AutoApproveEnabled: true}
	msg := &model.Message{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Provider: model.ProviderUpload,
		BodyText: "Standup meeting on 2026.03.05. at 10:00, location: Room 4, https://meet.example.com/x",
	}

	p := &Pipeline{Events: events, Sync: enqueuer}

	if err := p.Process(context.Background(), msg, owner, true, time.Now()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	for _, ev := range events.created {
		if ev.Status == model.StatusApproved {
			found := false
			for _, id := range enqueuer.enqueued {
				if id == ev.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("expected auto-approved event %s to be enqueued for sync", ev.ID)
			}
		}
	}
}

func TestPipeline_Process_WebsiteSourceFailureFinalizesWithoutEvents(t *testing.T) {
	events := &fakeEventStore{}
	owner := model.User{ID: uuid.New()}
	msg := &model.Message{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Provider: model.ProviderWebsite,
		BodyText: "not-a-valid-url",
	}

	p := &Pipeline{Events: events, Scraper: &providers.Scraper{}}

	if err := p.Process(context.Background(), msg, owner, false, time.Now()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !msg.Processed {
		t.Error("expected message finalized even when source resolution fails")
	}
	if msg.ProcessingError == "" {
		t.Error("expected processing_error recorded for a failed scrape")
	}
	if len(events.created) != 0 {
		t.Errorf("expected no events created when source resolution fails, got %d", len(events.created))
	}
}
