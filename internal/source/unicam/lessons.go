package unicam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	"github.com/unitimetable/timetable/internal/model"
)

// teacherMarker separates the room from the teacher list in the upstream
// event description.
const teacherMarker = ` <div style="height:8px"></div><b>Docenti:</b> `

var digitsOnly = regexp.MustCompile(`^-?\d+$`)

// rawLesson is a parsed lesson together with the upstream id used to look up
// its detail modal.
type rawLesson struct {
	id     string
	lesson model.Lesson
}

type lessonParser struct {
	policy *bluemonday.Policy
}

func newLessonParser() *lessonParser {
	return &lessonParser{policy: bluemonday.StrictPolicy()}
}

// parse decodes the schedule response. Any malformed record fails the whole
// response with the record index in the error.
func (p *lessonParser) parse(body []byte) ([]rawLesson, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("response is not a JSON array")
	}

	items := root.Array()
	out := make([]rawLesson, 0, len(items))
	for i, item := range items {
		l, err := p.parseOne(item)
		if err != nil {
			return nil, fmt.Errorf("lesson %d: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (p *lessonParser) parseOne(item gjson.Result) (rawLesson, error) {
	if !item.IsObject() {
		return rawLesson{}, fmt.Errorf("not an object")
	}
	start, err := epochMillis(item.Get("start"))
	if err != nil {
		return rawLesson{}, fmt.Errorf("start: %w", err)
	}
	end, err := epochMillis(item.Get("end"))
	if err != nil {
		return rawLesson{}, fmt.Errorf("end: %w", err)
	}

	description := item.Get("description").String()
	location, teacher, found := strings.Cut(description, teacherMarker)
	if !found {
		return rawLesson{}, fmt.Errorf("description has no teacher marker: %q", description)
	}

	return rawLesson{
		id: item.Get("idLezione").String(),
		lesson: model.Lesson{
			StartsAt: start,
			EndsAt:   end,
			Subject:  p.text(item.Get("title").String()),
			Location: optional(p.text(location)),
			Teacher:  optional(p.text(teacher)),
		},
	}, nil
}

// text strips markup from an upstream fragment and returns its plain text.
func (p *lessonParser) text(fragment string) string {
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(fragment)))
}

// epochMillis normalizes a timestamp to millisecond epoch text. Integers are
// kept as they are; RFC 3339 strings are converted.
func epochMillis(r gjson.Result) (string, error) {
	if !r.Exists() {
		return "", fmt.Errorf("missing")
	}
	s := strings.TrimSpace(r.String())
	if digitsOnly.MatchString(s) {
		return s, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("unrecognized timestamp %q", s)
	}
	return strconv.FormatInt(t.UnixMilli(), 10), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return model.Ptr(s)
}
