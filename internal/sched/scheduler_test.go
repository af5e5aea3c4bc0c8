package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresDueTasksInOrder(t *testing.T) {
	s := New()
	var fired []string
	s.Schedule("a", 2.0, func(float64) { fired = append(fired, "second") })
	s.Schedule("b", 1.0, func(float64) { fired = append(fired, "first") })
	s.Schedule("c", 3.0, func(float64) { fired = append(fired, "late") })

	s.Advance(2.5)
	require.Equal(t, []string{"first", "second"}, fired)
	require.Equal(t, 1, s.Pending())

	s.Advance(3.0)
	require.Equal(t, []string{"first", "second", "late"}, fired)
	require.Zero(t, s.Pending())
}

func TestTasksFireAtMostOnce(t *testing.T) {
	s := New()
	count := 0
	s.Schedule("a", 1.0, func(float64) { count++ })
	s.Advance(1.0)
	s.Advance(2.0)
	require.Equal(t, 1, count)
}

func TestCancelHandle(t *testing.T) {
	s := New()
	fired := false
	handle := s.Schedule("a", 1.0, func(float64) { fired = true })

	require.True(t, s.Cancel(handle))
	require.False(t, s.Cancel(handle), "second cancel must report not pending")

	s.Advance(5.0)
	require.False(t, fired)
	require.Zero(t, s.Pending())
}

func TestCancelOwnerDropsAllOwnedTasks(t *testing.T) {
	s := New()
	var fired []string
	s.Schedule("victim", 1.0, func(float64) { fired = append(fired, "hit") })
	s.Schedule("victim", 2.0, func(float64) { fired = append(fired, "stun") })
	s.Schedule("other", 1.5, func(float64) { fired = append(fired, "other") })

	require.Equal(t, 2, s.PendingFor("victim"))
	require.Equal(t, 2, s.CancelOwner("victim"))
	require.Zero(t, s.PendingFor("victim"))

	s.Advance(10)
	require.Equal(t, []string{"other"}, fired)
}

func TestTaskScheduledDuringAdvanceFiresWhenDue(t *testing.T) {
	s := New()
	var fired []string
	s.Schedule("a", 1.0, func(now float64) {
		fired = append(fired, "outer")
		s.Schedule("a", now+0.5, func(float64) { fired = append(fired, "inner-due") })
		s.Schedule("a", now+10, func(float64) { fired = append(fired, "inner-later") })
	})

	s.Advance(2.0)
	require.Equal(t, []string{"outer", "inner-due"}, fired)
	require.Equal(t, 1, s.Pending())
}

func TestTieBreakIsScheduleOrder(t *testing.T) {
	s := New()
	var fired []string
	s.Schedule("a", 1.0, func(float64) { fired = append(fired, "one") })
	s.Schedule("b", 1.0, func(float64) { fired = append(fired, "two") })
	s.Advance(1.0)
	require.Equal(t, []string{"one", "two"}, fired)
}

func TestClearDropsEverything(t *testing.T) {
	s := New()
	fired := false
	s.Schedule("a", 1.0, func(float64) { fired = true })
	s.Clear()
	s.Advance(10)
	require.False(t, fired)
	require.Zero(t, s.Pending())
}
