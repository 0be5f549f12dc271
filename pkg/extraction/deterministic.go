// Package extraction implements the Extractor components (spec C2, C3): a
// deterministic regex/pattern extractor grounded on
// backend/app/services/extraction/{deterministic,patterns/*}.py, and an
// LLM extractor that never lets a provider failure fail the pipeline.
package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/Csabesz1130/eventhint/pkg/merge"
	"github.com/Csabesz1130/eventhint/pkg/model"
)

var hungarianMarkers = []string{"óra", "perc", "neptun", "vizsga", "évfolyam", "terem", "hallgató"}

// hungarianDateHeader matches a Hungarian schedule's date header, e.g.
// "2025.11.04.".
var hungarianDateHeader = regexp.MustCompile(`(\d{4})\.(\d{2})\.(\d{2})\.`)

// hungarianTime matches "8 óra 50 perc"; hungarianTimeAlt matches "08:50".
var hungarianTime = regexp.MustCompile(`(\d{1,2})\s*óra\s*(\d{1,2})\s*perc`)
var hungarianTimeAlt = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

var hungarianRoomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)terem\s*:?\s*([A-Z0-9\-.]+)`),
	regexp.MustCompile(`\b([A-Z]{1,2}[\-.]?\d{2,4})\b`),
}

// DeterministicExtractor finds events in plain text using regex patterns
// specific to Hungarian university exam schedules and English
// meeting/flight/deadline phrasing, falling back to generic date grepping
// when nothing more specific matches.
type DeterministicExtractor struct {
	// Timezone is the IANA zone assigned to extracted events.
	Timezone string
	// UserName and NeptunID, when set, restrict Hungarian exam-schedule
	// rows to lines mentioning this user; when both are empty every row
	// is extracted.
	UserName string
	NeptunID string
}

func (d *DeterministicExtractor) timezone() string {
	if d.Timezone != "" {
		return d.Timezone
	}
	return "UTC"
}

// Extract runs every deterministic pattern against text and returns
// merge.Draft candidates tagged as model.MethodDeterministic.
func (d *DeterministicExtractor) Extract(text string) []merge.Draft {
	var events []model.Event

	if isLikelyHungarian(text) {
		events = append(events, d.extractHungarianExamSchedule(text)...)
	}
	events = append(events, d.extractMeetings(text)...)
	events = append(events, d.extractFlights(text)...)
	events = append(events, d.extractDeadlines(text)...)

	if len(events) == 0 {
		events = append(events, d.extractGenericDates(text)...)
	}

	events = deduplicateByStartAndTitle(events)

	drafts := make([]merge.Draft, 0, len(events))
	for _, ev := range events {
		ev.Method = model.MethodDeterministic
		drafts = append(drafts, merge.Draft{Event: ev, Source: model.MethodDeterministic})
	}
	return drafts
}

func isLikelyHungarian(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range hungarianMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (d *DeterministicExtractor) extractHungarianExamSchedule(text string) []model.Event {
	dateMatch := hungarianDateHeader.FindStringSubmatch(text)
	if dateMatch == nil {
		return nil
	}
	baseDate := parseYMD(dateMatch[1], dateMatch[2], dateMatch[3])

	var events []model.Event
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		matchesUser := d.UserName == "" && d.NeptunID == ""
		lower := strings.ToLower(line)
		if d.UserName != "" && strings.Contains(lower, strings.ToLower(d.UserName)) {
			matchesUser = true
		}
		if d.NeptunID != "" && strings.Contains(strings.ToUpper(line), strings.ToUpper(d.NeptunID)) {
			matchesUser = true
		}
		if !matchesUser {
			continue
		}

		hour, minute, ok := parseHungarianTime(line)
		if !ok {
			continue
		}

		loc, err := time.LoadLocation(d.timezone())
		if err != nil {
			loc = time.UTC
		}
		start := time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day(), hour, minute, 0, 0, loc)
		end := start.Add(30 * time.Minute)
		location := extractRoomFromLine(line)

		namePart := ""
		if idx := strings.Index(line, "—"); idx >= 0 {
			namePart = strings.TrimSpace(line[:idx])
		}
		notes := "Imported from schedule."
		if namePart != "" {
			notes = "Imported from schedule. " + namePart
		}

		events = append(events, model.Event{
			Type:      model.EventTypeEvent,
			Title:     "Exam appointment",
			Start:     start,
			End:       &end,
			Timezone:  d.timezone(),
			Location:  location,
			Notes:     notes,
			Labels:    []string{model.LabelExam},
			Reminders: []model.Reminder{
				{Method: model.ReminderPopup, Minutes: 1440},
				{Method: model.ReminderPopup, Minutes: 120},
				{Method: model.ReminderPopup, Minutes: 30},
			},
		})
	}
	return events
}

func extractRoomFromLine(line string) string {
	for _, p := range hungarianRoomPatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

var meetingPattern = regexp.MustCompile(`(?i)meeting[:\s]+([^.]+?)\s+(?:on\s+)?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})\s+(?:at\s+)?(\d{1,2}:\d{2}\s*(?:AM|PM)?)`)

func (d *DeterministicExtractor) extractMeetings(text string) []model.Event {
	var events []model.Event
	for _, m := range meetingPattern.FindAllStringSubmatch(text, -1) {
		title := strings.TrimSpace(m[1])
		start, ok := parseDateTime(m[2], m[3], d.timezone())
		if !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(title), "meeting") {
			title += " meeting"
		}
		end := start.Add(time.Hour)
		events = append(events, model.Event{
			Type:      model.EventTypeEvent,
			Title:     title,
			Start:     start,
			End:       &end,
			Timezone:  d.timezone(),
			Labels:    []string{model.LabelMeeting},
			Reminders: []model.Reminder{{Method: model.ReminderPopup, Minutes: 15}},
		})
	}
	return events
}

var flightPattern = regexp.MustCompile(`(?i)(?:flight\s+)?([A-Z]{2}\s*\d{3,4}).*?(?:from\s+)?([A-Z]{3}).*?(?:to\s+)?([A-Z]{3}).*?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})\s+(?:at\s+)?(\d{1,2}:\d{2}\s*(?:AM|PM)?)`)

func (d *DeterministicExtractor) extractFlights(text string) []model.Event {
	var events []model.Event
	for _, m := range flightPattern.FindAllStringSubmatch(text, -1) {
		flightNo := strings.TrimSpace(m[1])
		origin, dest := m[2], m[3]
		start, ok := parseDateTime(m[4], m[5], d.timezone())
		if !ok {
			continue
		}
		end := start.Add(3 * time.Hour)
		events = append(events, model.Event{
			Type:     model.EventTypeEvent,
			Title:    "Flight " + flightNo + ": " + origin + " → " + dest,
			Start:    start,
			End:      &end,
			Timezone: d.timezone(),
			Notes:    "Flight from " + origin + " to " + dest,
			Labels:   []string{model.LabelFlight, model.LabelTravel},
			Reminders: []model.Reminder{
				{Method: model.ReminderPopup, Minutes: 1440},
				{Method: model.ReminderPopup, Minutes: 180},
				{Method: model.ReminderPopup, Minutes: 60},
			},
		})
	}
	return events
}

var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([^.]+?)\s+due\s+(?:on\s+)?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
	regexp.MustCompile(`(?i)deadline[:\s]+([^.]+?)\s+(?:on\s+)?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
}

func (d *DeterministicExtractor) extractDeadlines(text string) []model.Event {
	var events []model.Event
	for _, p := range deadlinePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			task := strings.TrimSpace(m[1])
			start, ok := parseDateTime(m[2], "23:59", d.timezone())
			if !ok {
				continue
			}
			events = append(events, model.Event{
				Type:      model.EventTypeTask,
				Title:     task,
				Start:     start,
				Timezone:  d.timezone(),
				AllDay:    true,
				Labels:    []string{model.LabelDeadline},
				Reminders: []model.Reminder{
					{Method: model.ReminderPopup, Minutes: 1440},
					{Method: model.ReminderPopup, Minutes: 360},
				},
			})
		}
	}
	return events
}

var titlePrefixPattern = regexp.MustCompile(`^([^:;,.]{5,50})`)

func (d *DeterministicExtractor) extractGenericDates(text string) []model.Event {
	var events []model.Event
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < 10 {
			continue
		}
		start, ok := parseLooseDate(trimmed, d.timezone())
		if !ok {
			continue
		}
		title := "Event"
		if m := titlePrefixPattern.FindStringSubmatch(trimmed); m != nil {
			title = strings.TrimSpace(m[1])
		}
		end := start.Add(time.Hour)
		events = append(events, model.Event{
			Type:     model.EventTypeEvent,
			Title:    title,
			Start:    start,
			End:      &end,
			Timezone: d.timezone(),
			Notes:    trimmed,
		})
	}
	return events
}

func deduplicateByStartAndTitle(events []model.Event) []model.Event {
	seen := make(map[string]bool)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		title := strings.ToLower(strings.TrimSpace(ev.Title))
		if len(title) > 20 {
			title = title[:20]
		}
		key := ev.Start.Format(time.RFC3339) + ":" + title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	return out
}
