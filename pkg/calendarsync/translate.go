// Package calendarsync implements the CalendarSync component (spec C6):
// translating a canonical model.Event into a provider's wire format,
// pushing it through a ProviderClient, and tracking the resulting
// external_event_id so repeated syncs are idempotent.
//
// The canonical-to-provider field mapping is a direct port of
// backend/app/services/calendar/google.py's _convert_to_gcal_format:
// title->summary, notes->description, start/end->dateTime-or-date,
// reminders->reminders.overrides, rrule->recurrence, online_url appended
// to the description, and a label-based colorId hint.
package calendarsync

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/Csabesz1130/eventhint/pkg/model"
	"github.com/Csabesz1130/eventhint/pkg/providers"
)

// colorHints maps a label to the provider's colorId, mirroring
// google.py's exam=red/meeting=blue/deadline=orange convention.
var colorHints = map[string]string{
	model.LabelExam:     "11",
	model.LabelMeeting:  "9",
	model.LabelDeadline: "6",
}

// ToProviderEvent converts a canonical Event into the Google Calendar wire
// format CalendarClient expects.
func ToProviderEvent(ev model.Event) providers.GCalEvent {
	out := providers.GCalEvent{
		"summary":     ev.Title,
		"description": ev.Notes,
		"location":    ev.Location,
	}

	tz := ev.Timezone
	if tz == "" {
		tz = "UTC"
	}

	if ev.AllDay {
		out["start"] = map[string]string{"date": ev.Start.Format("2006-01-02")}
		if ev.End != nil {
			out["end"] = map[string]string{"date": ev.End.Format("2006-01-02")}
		} else {
			out["end"] = out["start"]
		}
	} else {
		out["start"] = map[string]string{"dateTime": ev.Start.Format(time.RFC3339), "timeZone": tz}
		end := ev.End
		if end == nil {
			t := ev.Start.Add(time.Hour)
			end = &t
		}
		out["end"] = map[string]string{"dateTime": end.Format(time.RFC3339), "timeZone": tz}
	}

	if len(ev.Reminders) > 0 {
		overrides := make([]map[string]any, 0, len(ev.Reminders))
		for _, r := range ev.Reminders {
			method := "email"
			if r.Method == model.ReminderPopup {
				method = "popup"
			}
			overrides = append(overrides, map[string]any{"method": method, "minutes": r.Minutes})
		}
		out["reminders"] = map[string]any{"useDefault": false, "overrides": overrides}
	}

	if ev.RRule != "" {
		out["recurrence"] = []string{ev.RRule}
	}

	if ev.OnlineURL != "" {
		desc, _ := out["description"].(string)
		out["description"] = fmt.Sprintf("%s\n\nJoin: %s", desc, ev.OnlineURL)
	}

	if len(ev.Attendees) > 0 {
		attendees := make([]map[string]string, 0, len(ev.Attendees))
		for _, a := range ev.Attendees {
			attendees = append(attendees, map[string]string{"email": a.Email, "displayName": a.Name})
		}
		out["attendees"] = attendees
	}

	for _, label := range ev.Labels {
		if colorID, ok := colorHints[label]; ok {
			out["colorId"] = colorID
			break
		}
	}

	return out
}

// ValidateRRule parses an RRULE string with teambition/rrule-go, catching
// a malformed recurrence rule before it's sent to the provider rather than
// surfacing the provider's own 400 response.
func ValidateRRule(rruleStr string) error {
	if rruleStr == "" {
		return nil
	}
	if _, err := rrule.StrToRRule(rruleStr); err != nil {
		return fmt.Errorf("calendarsync: invalid rrule %q: %w", rruleStr, err)
	}
	return nil
}
