package extract

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/model"
)

// fixed Wednesday
var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newFallbackExtractor() *Extractor {
	return NewWithClock(nil, zerolog.Nop(), func() time.Time { return testNow })
}

func TestExtractTask_FillerAndPriorityAndDate(t *testing.T) {
	e := newFallbackExtractor()
	got := e.ExtractTask(context.Background(), "remind me to call the dentist tomorrow at 15:00, urgent")

	assert.Equal(t, "call the dentist tomorrow at 15:00, urgent", got.Title)
	assert.NotContains(t, got.Title, "remind me")
	assert.Equal(t, model.PriorityUrgent, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-03-05", *got.DueDate)
	require.NotNil(t, got.DueTime)
	assert.Equal(t, "15:00", *got.DueTime)
}

func TestExtractTask_TitleNeverEmpty(t *testing.T) {
	e := newFallbackExtractor()
	got := e.ExtractTask(context.Background(), "buy milk")
	assert.Equal(t, "buy milk", got.Title)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, model.PriorityMedium, got.Priority)
}

func TestExtractTask_FirstSentenceClamp(t *testing.T) {
	e := newFallbackExtractor()
	got := e.ExtractTask(context.Background(), "buy milk. also do a hundred other things")
	assert.Equal(t, "buy milk", got.Title)

	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	got = e.ExtractTask(context.Background(), long)
	assert.LessOrEqual(t, len([]rune(got.Title)), 80)
	assert.Contains(t, got.Title, "...")
}

func TestExtractTask_HebrewDates(t *testing.T) {
	e := newFallbackExtractor()

	got := e.ExtractTask(context.Background(), "לקנות חלב מחר")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-03-05", *got.DueDate)

	got = e.ExtractTask(context.Background(), "לקנות חלב מחרתיים")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-03-06", *got.DueDate)

	// testNow is a Wednesday; next Sunday is 2026-03-08
	got = e.ExtractTask(context.Background(), "להתקשר לרופא ביום ראשון")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-03-08", *got.DueDate)
}

func TestExtractTask_ExplicitDates(t *testing.T) {
	e := newFallbackExtractor()

	got := e.ExtractTask(context.Background(), "submit report 2026-04-01")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-04-01", *got.DueDate)

	got = e.ExtractTask(context.Background(), "submit report 25/03/2026")
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-03-25", *got.DueDate)

	got = e.ExtractTask(context.Background(), "submit report 31/02/2026")
	assert.Nil(t, got.DueDate)
}

func TestDetectAndExtract_MeetingKeywordFastPath(t *testing.T) {
	e := newFallbackExtractor()

	got := e.DetectAndExtract(context.Background(), "פגישה עם דנה מחר")
	assert.Equal(t, KindMeeting, got.Kind)
	require.NotNil(t, got.Meeting)
	require.NotNil(t, got.Meeting.Date)
	assert.Equal(t, "2026-03-05", *got.Meeting.Date)

	got = e.DetectAndExtract(context.Background(), "team meeting on 2026-03-10")
	assert.Equal(t, KindMeeting, got.Kind)

	got = e.DetectAndExtract(context.Background(), "buy milk")
	assert.Equal(t, KindTask, got.Kind)
	require.NotNil(t, got.Task)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, model.PriorityMedium, normPriority("banana"))
	assert.Equal(t, model.PriorityUrgent, normPriority(" URGENT "))
	assert.Nil(t, normDate("tomorrow"))
	assert.NotNil(t, normDate("2026-01-02"))
	assert.Nil(t, normTime("25:00"))
	assert.NotNil(t, normTime("09:30"))
}
