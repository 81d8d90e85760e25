package unicam

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/unitimetable/timetable/internal/model"
)

var (
	optgroupPattern = regexp.MustCompile(`<optgroup\s+label="([^"]+)"[^>]*>([\s\S]*?)</optgroup>`)
	optionPattern   = regexp.MustCompile(`<option(?:\s+[^>]*)?\s+value="(\d+)"[^>]*>([^<]+)</option>`)
	anyOptionTag    = regexp.MustCompile(`<option\b[^>]*>[\s\S]*?</option>`)
)

const labelSeparator = " - "

// errNoCatalog means the page carries no course groups at all, which is what
// maintenance pages and markup changes look like.
var errNoCatalog = errors.New("catalog page has no course groups")

// parseCourses extracts every course from the catalog page. Options that do
// not carry a numeric value and a plain label are reported through skip.
func parseCourses(page string, skip func(reason string, attrs ...any)) ([]model.Course, error) {
	groups := optgroupPattern.FindAllStringSubmatch(page, -1)
	if len(groups) == 0 {
		return nil, errNoCatalog
	}

	courses := []model.Course{}
	for _, group := range groups {
		category := html.UnescapeString(strings.TrimSpace(group[1]))
		block := group[2]
		if strings.TrimSpace(block) == "" {
			continue
		}

		for _, tag := range anyOptionTag.FindAllString(block, -1) {
			m := optionPattern.FindStringSubmatch(tag)
			if m == nil {
				skip("unrecognized course option",
					slog.String("category", category),
					slog.String("option", tag),
				)
				continue
			}
			code, name := splitLabel(html.UnescapeString(strings.TrimSpace(m[2])))
			courses = append(courses, model.Course{
				ID:       m[1],
				Code:     code,
				Name:     name,
				Category: category,
			})
		}
	}
	return courses, nil
}

func splitLabel(label string) (code, name string) {
	parts := strings.Split(label, labelSeparator)
	code = parts[0]
	if len(parts) > 1 {
		name = parts[1]
	}
	return code, name
}
