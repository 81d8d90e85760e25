package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unitimetable/timetable/internal/model"
)

func TestEventUID_Stable(t *testing.T) {
	t.Parallel()

	a := model.Lesson{StartsAt: "1718006400000", Subject: "Programmazione"}
	b := model.Lesson{StartsAt: "1718006400000", Subject: "Programmazione", Location: model.Ptr("Aula 2")}
	c := model.Lesson{StartsAt: "1718092800000", Subject: "Programmazione"}

	assert.Equal(t, eventUID("unicam", a), eventUID("unicam", b))
	assert.NotEqual(t, eventUID("unicam", a), eventUID("unicam", c))
	assert.NotEqual(t, eventUID("unicam", a), eventUID("unibo", a))
}

func TestEventDescription(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", eventDescription(model.Lesson{}))
	assert.Equal(t, "Docenti: ROSSI", eventDescription(model.Lesson{Teacher: model.Ptr("ROSSI")}))
	assert.Equal(t, "Docenti: ROSSI\nLink webex: \nhttps://x",
		eventDescription(model.Lesson{Teacher: model.Ptr("ROSSI"), Description: model.Ptr("Link webex: \nhttps://x")}))
}

func TestRenderCalendar_SkipsInvalidTimestamps(t *testing.T) {
	t.Parallel()

	lessons := []model.Lesson{
		{StartsAt: "1718006400000", EndsAt: "1718013600000", Subject: "A, B; C"},
		{StartsAt: "1718006400000", EndsAt: "", Subject: "no end"},
	}
	out, skipped := renderCalendar("unicam", lessons, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, skipped)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "DTSTART:20240610T080000Z")
	assert.Contains(t, out, "DTEND:20240610T100000Z")
	assert.Contains(t, out, `SUMMARY:A\, B\; C`)
	assert.Contains(t, out, "DTSTAMP:20240601T000000Z")
}
