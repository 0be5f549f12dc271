package extraction

import (
	"time"

	"github.com/Csabesz1130/eventhint/pkg/model"
)

// toModelEvent converts one LLM response payload into a model.Event,
// rejecting payloads with an unparseable start time rather than letting a
// zero-value start corrupt downstream bucketing/merge.
func toModelEvent(p llmEventPayload, defaultTimezone string) (model.Event, bool) {
	start, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return model.Event{}, false
	}

	var end *time.Time
	if p.End != nil {
		if t, err := time.Parse(time.RFC3339, *p.End); err == nil {
			end = &t
		}
	}

	eventType := model.EventTypeEvent
	if p.Type == string(model.EventTypeTask) {
		eventType = model.EventTypeTask
	}

	timezone := p.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}

	return model.Event{
		Type:      eventType,
		Title:     p.Title,
		Start:     start,
		End:       end,
		AllDay:    p.AllDay,
		Timezone:  timezone,
		Location:  p.Location,
		OnlineURL: p.OnlineURL,
		Notes:     p.Notes,
		Attendees: p.Attendees,
		Reminders: p.Reminders,
		Labels:    p.Labels,
	}, true
}
