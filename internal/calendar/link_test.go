package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLink_Timed(t *testing.T) {
	link, err := EventLink("פגישה עם דנה", "2026-03-05", "14:00", "", "Zoom", "")
	require.NoError(t, err)
	assert.Contains(t, link, "calendar.google.com/calendar/render")
	assert.Contains(t, link, "20260305T140000%2F20260305T150000")
	assert.Contains(t, link, "location=Zoom")
}

func TestEventLink_AllDay(t *testing.T) {
	link, err := EventLink("offsite", "2026-03-05", "", "", "", "")
	require.NoError(t, err)
	assert.Contains(t, link, "20260305%2F20260306")
}

func TestEventLink_BadDate(t *testing.T) {
	_, err := EventLink("x", "not-a-date", "", "", "", "")
	assert.Error(t, err)
}
