package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFindWindow_AfterCloseRollsToNextDay(t *testing.T) {
	expiries := []time.Time{
		day(2026, 9, 4),
		day(2026, 9, 11),
		day(2026, 9, 18),
	}

	// Report at 16:30 on the 4th: the same-day expiry settles before the
	// report, so the event expiry is the 11th.
	afterClose := time.Date(2026, 9, 4, 16, 30, 0, 0, time.UTC)
	w := FindWindow(afterClose, expiries)
	require.NotNil(t, w.Event)
	assert.Equal(t, day(2026, 9, 11), *w.Event)
	require.NotNil(t, w.Prev)
	assert.Equal(t, day(2026, 9, 4), *w.Prev)
	require.NotNil(t, w.Next)
	assert.Equal(t, day(2026, 9, 18), *w.Next)
}

func TestFindWindow_BeforeOpenKeepsSameDay(t *testing.T) {
	expiries := []time.Time{day(2026, 9, 4), day(2026, 9, 11)}

	beforeOpen := time.Date(2026, 9, 4, 8, 0, 0, 0, time.UTC)
	w := FindWindow(beforeOpen, expiries)
	require.NotNil(t, w.Event)
	assert.Equal(t, day(2026, 9, 4), *w.Event)
	assert.Nil(t, w.Prev)
	require.NotNil(t, w.Next)
	assert.Equal(t, day(2026, 9, 11), *w.Next)
}

func TestFindWindow_UnsortedInput(t *testing.T) {
	expiries := []time.Time{day(2026, 9, 18), day(2026, 9, 4), day(2026, 9, 11)}
	w := FindWindow(time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC), expiries)
	require.NotNil(t, w.Event)
	assert.Equal(t, day(2026, 9, 11), *w.Event)
}

func TestFindWindow_NoFutureExpiry(t *testing.T) {
	expiries := []time.Time{day(2026, 8, 1)}
	w := FindWindow(time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC), expiries)
	assert.Nil(t, w.Event)
	assert.Nil(t, w.Prev)
	assert.Nil(t, w.Next)
}

func TestWindowAround_ReusesGivenEventExpiry(t *testing.T) {
	expiries := []time.Time{
		day(2026, 9, 4),
		day(2026, 9, 11),
		day(2026, 9, 18),
	}

	w := WindowAround(day(2026, 9, 11), expiries)
	require.NotNil(t, w.Event)
	assert.Equal(t, day(2026, 9, 11), *w.Event)
	require.NotNil(t, w.Prev)
	assert.Equal(t, day(2026, 9, 4), *w.Prev)
	require.NotNil(t, w.Next)
	assert.Equal(t, day(2026, 9, 18), *w.Next)
}

func TestWindowAround_UnsortedPicksNearestNeighbors(t *testing.T) {
	expiries := []time.Time{
		day(2026, 9, 25),
		day(2026, 8, 28),
		day(2026, 9, 18),
		day(2026, 9, 4),
	}

	// Nearest on each side of the 11th, not the first seen.
	w := WindowAround(day(2026, 9, 11), expiries)
	require.NotNil(t, w.Prev)
	assert.Equal(t, day(2026, 9, 4), *w.Prev)
	require.NotNil(t, w.Next)
	assert.Equal(t, day(2026, 9, 18), *w.Next)
}

func TestWindowAround_NoListedNeighbors(t *testing.T) {
	// The chosen expiry need not appear in the listing; neighbors stay nil
	// when nothing straddles it.
	w := WindowAround(day(2026, 9, 11), nil)
	require.NotNil(t, w.Event)
	assert.Equal(t, day(2026, 9, 11), *w.Event)
	assert.Nil(t, w.Prev)
	assert.Nil(t, w.Next)
}

func TestValidate(t *testing.T) {
	c := DefaultConstraints()
	earnings := time.Date(2026, 9, 4, 16, 30, 0, 0, time.UTC)

	t.Run("valid window", func(t *testing.T) {
		w := FindWindow(earnings, []time.Time{day(2026, 9, 4), day(2026, 9, 11), day(2026, 9, 18)})
		v := Validate(w, earnings, c)
		assert.True(t, v.Valid)
		assert.True(t, v.EventDTEOK)
		assert.True(t, v.NextGapOK)
	})

	t.Run("event too far out", func(t *testing.T) {
		w := FindWindow(earnings, []time.Time{day(2026, 12, 18)})
		v := Validate(w, earnings, c)
		assert.True(t, v.HasEvent)
		assert.False(t, v.EventDTEOK)
		assert.False(t, v.Valid)
	})

	t.Run("no event expiry", func(t *testing.T) {
		v := Validate(Window{}, earnings, c)
		assert.False(t, v.Valid)
	})

	t.Run("tight next gap is advisory", func(t *testing.T) {
		w := FindWindow(earnings, []time.Time{day(2026, 9, 11), day(2026, 9, 14)})
		v := Validate(w, earnings, c)
		assert.False(t, v.NextGapOK)
		assert.True(t, v.Valid)
	})
}
