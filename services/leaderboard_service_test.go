package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodWindowDaily(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	start, end, windowed, ok := PeriodWindow("daily", now)

	require.True(t, ok)
	assert.True(t, windowed)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindowWeeklyStartsMonday(t *testing.T) {
	// 2025-03-14 is a Friday; the week began Monday 2025-03-10.
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	start, end, _, ok := PeriodWindow("weekly", now)

	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindowWeeklySunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	now := time.Date(2025, 3, 16, 23, 59, 59, 0, time.UTC)
	start, _, _, ok := PeriodWindow("weekly", now)

	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
}

func TestPeriodWindowMonthly(t *testing.T) {
	now := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	start, end, _, ok := PeriodWindow("monthly", now)

	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodWindowAllTime(t *testing.T) {
	_, _, windowed, ok := PeriodWindow("all_time", time.Now())
	require.True(t, ok)
	assert.False(t, windowed)
}

func TestPeriodWindowUnknown(t *testing.T) {
	_, _, _, ok := PeriodWindow("fortnightly", time.Now())
	assert.False(t, ok)
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		Score:   420,
		FirstAt: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		UserID:  "user-abc",
	}

	token := EncodeCursor(in)
	require.NotEmpty(t, token)

	out, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, in.Score, out.Score)
	assert.True(t, in.FirstAt.Equal(out.FirstAt))
	assert.Equal(t, in.UserID, out.UserID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not!!!base64url")
	require.Error(t, err)

	svcErr, ok := err.(*ServiceError)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, svcErr.Code)
}
