package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBoundsFollowLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	rc := NewRequestContext(Caller{ID: 1}, time.Now(), "", loc)

	day, err := rc.ParseDay("2024-03-10")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC), rc.StartOfDay(day))
	assert.Equal(t, time.Date(2024, 3, 10, 16, 59, 59, 999999999, time.UTC), rc.EndOfDay(day))
	assert.Equal(t, "en", rc.Locale)
}

func TestParseDayRejectsMalformed(t *testing.T) {
	rc := NewRequestContext(Caller{}, time.Now(), "th", nil)
	_, err := rc.ParseDay("10/03/2024")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, rc.Location)
}

func TestCallerMembership(t *testing.T) {
	c := Caller{EnrolledCourses: []uint{1, 2}, EnrolledSections: []uint{5}}
	assert.True(t, c.IsEnrolledIn(2))
	assert.False(t, c.IsEnrolledIn(3))
	assert.True(t, c.InSection(5))
	assert.False(t, c.InSection(6))
}

func TestFormatDayUsesRequestZone(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	rc := NewRequestContext(Caller{}, time.Now(), "th", bangkok)
	assert.Equal(t, "2024-03-11", rc.FormatDay(time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-10", RequestContext{}.FormatDay(time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)))
}
