package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Csabesz1130/eventhint/pkg/logging"
	"github.com/Csabesz1130/eventhint/pkg/merge"
	"github.com/Csabesz1130/eventhint/pkg/model"
)

// LLMClient is the interface for the chat-completion API used by
// LLMExtractor, matching the shape of pkg/enrichment/extraction's
// CompletionRequest/Response so a provider implementation can be shared
// across both extractors.
type LLMClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single chat-completion call.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	Content string
}

const systemPrompt = `You are an expert at extracting calendar events and tasks from text.

Extract events/tasks and return them as JSON matching this schema:
{
  "events": [
    {
      "type": "event" | "task",
      "title": "string",
      "start": "ISO-8601 datetime",
      "end": "ISO-8601 datetime or null",
      "allday": boolean,
      "timezone": "IANA timezone",
      "location": "string or null",
      "online_url": "string or null",
      "notes": "string or null",
      "attendees": [{"name": "", "email": ""}],
      "reminders": [{"method": "popup", "minutes": 30}],
      "labels": ["exam", "meeting", "deadline"]
    }
  ]
}

Rules:
- Extract ALL events you find, not just one.
- Never invent locations - only extract if explicitly mentioned.
- For exams, add reminders at -1 day, -2 hours, -30 minutes.
- For flights, add reminders at -24h, -3h, -1h.
- Return an empty array if no events found.`

// llmEventPayload mirrors the JSON object the prompt asks the model to
// return for one event.
type llmEventPayload struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Start     string            `json:"start"`
	End       *string           `json:"end"`
	AllDay    bool              `json:"allday"`
	Timezone  string            `json:"timezone"`
	Location  string            `json:"location"`
	OnlineURL string            `json:"online_url"`
	Notes     string            `json:"notes"`
	Attendees []model.Attendee  `json:"attendees"`
	Reminders []model.Reminder  `json:"reminders"`
	Labels    []string          `json:"labels"`
}

type llmResponsePayload struct {
	Events []llmEventPayload `json:"events"`
}

// LLMExtractor calls an LLMClient with a structured-output prompt and
// parses its response into merge.Draft candidates.
type LLMExtractor struct {
	Client      LLMClient
	Model       string
	MaxTokens   int
	Enabled     bool
}

// Extract calls the LLM and returns whatever events it finds. Unlike every
// other error-returning function in this codebase, Extract never
// propagates a failure: a disabled extractor, an API error, or a
// malformed response all just mean zero LLM-sourced drafts, mirroring
// extract_events_llm's except-and-return-empty-list behavior. Pipeline
// correctness must not depend on the LLM being reachable.
func (e *LLMExtractor) Extract(ctx context.Context, text, timezone string) []merge.Draft {
	log := logging.Global()

	if !e.Enabled || e.Client == nil {
		log.Info("llm extraction skipped", logging.F("reason", "not configured"))
		return nil
	}

	resp, err := e.Client.Complete(ctx, &CompletionRequest{
		Model:       e.Model,
		System:      systemPrompt,
		Prompt:      fmt.Sprintf("Extract calendar events from this text:\n\n%s\n\nDefault timezone: %s", text, timezone),
		MaxTokens:   e.MaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		log.Error("llm extraction failed", logging.Err(err))
		return nil
	}

	var parsed llmResponsePayload
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		log.Error("llm response was not valid json", logging.Err(err))
		return nil
	}

	drafts := make([]merge.Draft, 0, len(parsed.Events))
	for _, p := range parsed.Events {
		ev, ok := toModelEvent(p, timezone)
		if !ok {
			continue
		}
		ev.Notes = joinNotes(ev.Notes, "[Extracted by AI]")
		ev.Method = model.MethodLLM
		drafts = append(drafts, merge.Draft{Event: ev, Source: model.MethodLLM})
	}

	log.Info("llm extraction complete", logging.F("count", len(drafts)))
	return drafts
}

func joinNotes(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}
