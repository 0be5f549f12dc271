package extraction

import (
	"strconv"
	"strings"
	"time"
)

func parseYMD(y, m, d string) time.Time {
	yi, _ := strconv.Atoi(y)
	mi, _ := strconv.Atoi(m)
	di, _ := strconv.Atoi(d)
	return time.Date(yi, time.Month(mi), di, 0, 0, 0, 0, time.UTC)
}

func parseHungarianTime(line string) (hour, minute int, ok bool) {
	if m := hungarianTime.FindStringSubmatch(line); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h, mi, true
	}
	if m := hungarianTimeAlt.FindStringSubmatch(line); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h, mi, true
	}
	return 0, 0, false
}

// dateLayouts are tried in order against a "M/D/YYYY"-or-"M-D-YYYY"-style
// numeric date string, the formats the source text's regex patterns
// capture.
var dateLayouts = []string{"1/2/2006", "1-2-2006", "1/2/06", "1-2-06"}

func parseDateOnly(dateStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseClockTime(timeStr string) (hour, minute int, ok bool) {
	timeStr = strings.ToUpper(strings.TrimSpace(timeStr))
	pm := strings.HasSuffix(timeStr, "PM")
	am := strings.HasSuffix(timeStr, "AM")
	timeStr = strings.TrimSuffix(strings.TrimSuffix(timeStr, "PM"), "AM")
	timeStr = strings.TrimSpace(timeStr)

	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	mi, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if pm && h < 12 {
		h += 12
	}
	if am && h == 12 {
		h = 0
	}
	return h, mi, true
}

// parseDateTime combines a captured date string and time string into a
// time.Time in the given IANA zone, falling back to UTC if the zone name
// doesn't load.
func parseDateTime(dateStr, timeStr, tz string) (time.Time, bool) {
	date, ok := parseDateOnly(dateStr)
	if !ok {
		return time.Time{}, false
	}
	hour, minute, ok := parseClockTime(timeStr)
	if !ok {
		return time.Time{}, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), true
}

// parseLooseDate is the generic fallback: it looks for a bare numeric date
// anywhere in the line, defaulting to midnight when no time is present.
func parseLooseDate(line, tz string) (time.Time, bool) {
	fields := strings.Fields(line)
	for _, f := range fields {
		f = strings.Trim(f, ".,;:()")
		if date, ok := parseDateOnly(f); ok {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				loc = time.UTC
			}
			return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}
