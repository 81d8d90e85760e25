package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitimetable/timetable/internal/model"
)

func TestCodec_CoursesRoundTrip(t *testing.T) {
	t.Parallel()

	courses := []model.Course{
		{ID: "1", Code: "L-31", Name: "Informatica", Category: "Lauree"},
		{ID: "2", Code: "", Name: "", Category: "Master"},
	}

	payload, err := Encode(courses)
	require.NoError(t, err)

	got, err := Decode[model.Course](payload)
	require.NoError(t, err)
	assert.Equal(t, courses, got)
}

func TestCodec_LessonsRoundTrip(t *testing.T) {
	t.Parallel()

	lessons := []model.Lesson{
		{
			StartsAt: "1717398000000",
			EndsAt:   "1717405200000",
			Subject:  "Algoritmi",
			Teacher:  model.Ptr("Rossi Mario"),
			Location: model.Ptr("Aula A"),
		},
		{StartsAt: "1717405200000", EndsAt: "1717412400000", Subject: "Reti"},
	}

	payload, err := Encode(lessons)
	require.NoError(t, err)

	got, err := Decode[model.Lesson](payload)
	require.NoError(t, err)
	assert.Equal(t, lessons, got)
}

func TestCodec_EmptyList(t *testing.T) {
	t.Parallel()

	payload, err := Encode([]model.Course{})
	require.NoError(t, err)

	got, err := Decode[model.Course](payload)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestCodec_DecodeGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decode[model.Course]([]byte("this was never brotli"))
	assert.Error(t, err)
}
