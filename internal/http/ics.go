package httpx

import (
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/unitimetable/timetable/internal/model"
)

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/unitimetable/timetable/events"))

// renderCalendar turns lessons into an iCalendar document. Lessons whose
// timestamps are not millisecond epochs are left out and counted.
func renderCalendar(sourceID string, lessons []model.Lesson, now time.Time) (string, int) {
	cal := ics.NewCalendarFor("Timetable")
	cal.SetProductId("-//Timetable//Timetable Calendar//IT")
	cal.SetMethod(ics.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	cal.SetXWRCalName(strings.ToUpper(sourceID) + " Timetable")
	cal.SetXWRCalDesc("Lessons timetable for " + sourceID)

	skipped := 0
	for _, l := range lessons {
		start, err := parseMillis(l.StartsAt)
		if err != nil {
			skipped++
			continue
		}
		end, err := parseMillis(l.EndsAt)
		if err != nil {
			skipped++
			continue
		}

		ev := cal.AddEvent(eventUID(sourceID, l))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(l.Subject)
		if desc := eventDescription(l); desc != "" {
			ev.SetDescription(desc)
		}
		if l.Location != nil && *l.Location != "" {
			ev.SetLocation(*l.Location)
		}
	}
	return cal.Serialize(), skipped
}

// eventUID is stable for the same source, subject and start so calendar
// clients update events in place on refresh.
func eventUID(sourceID string, l model.Lesson) string {
	name := sourceID + "\x00" + l.Subject + "\x00" + l.StartsAt
	return uuid.NewSHA1(eventNamespace, []byte(name)).String() + "@timetable"
}

func eventDescription(l model.Lesson) string {
	var parts []string
	if l.Teacher != nil && *l.Teacher != "" {
		parts = append(parts, "Docenti: "+*l.Teacher)
	}
	if l.Description != nil && *l.Description != "" {
		parts = append(parts, *l.Description)
	}
	return strings.Join(parts, "\n")
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
