package unicam

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/unitimetable/timetable/internal/model"
)

const (
	defaultWeeks = 3
	minWeeks     = 1
	maxWeeks     = 5
)

var courseYearPattern = regexp.MustCompile(`^[0-5]$`)

type lessonParams struct {
	courseID   string
	courseYear string
	weeks      int
}

func parseLessonQuery(query map[string]string) (lessonParams, error) {
	p := lessonParams{
		courseID:   strings.TrimSpace(query["course_id"]),
		courseYear: strings.TrimSpace(query["course_year"]),
		weeks:      defaultWeeks,
	}
	if p.courseID == "" {
		return lessonParams{}, model.UserError("Missing course_id in query parameters")
	}
	if p.courseYear == "" {
		return lessonParams{}, model.UserError("Missing course_year in query parameters")
	}
	if !courseYearPattern.MatchString(p.courseYear) {
		return lessonParams{}, model.UserError("course_year must be a number from 0 to 5")
	}

	if raw := strings.TrimSpace(query["weeks"]); raw != "" {
		weeks, err := strconv.Atoi(raw)
		if err != nil {
			return lessonParams{}, model.UserError("weeks must be an integer between 1 and 5")
		}
		p.weeks = weeks
	}
	if p.weeks < minWeeks || p.weeks > maxWeeks {
		return lessonParams{}, model.UserError("weeks must be between 1 and 5")
	}
	return p, nil
}

// Window returns the first and last day of the period starting on the Monday
// of the week containing now and spanning the given number of weeks. Both
// bounds are UTC midnights.
func Window(now time.Time, weeks int) (start, end time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	start = day.AddDate(0, 0, -sinceMonday)
	end = start.AddDate(0, 0, weeks*7-1)
	return start, end
}
