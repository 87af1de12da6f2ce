package pairing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerDefaultsWindow(t *testing.T) {
	require.Equal(t, DefaultWindow, NewScheduler(0, nil).Window())
	require.Equal(t, time.Second, NewScheduler(time.Second, nil).Window())
}

func TestSchedulerArmsTimerForWindow(t *testing.T) {
	timers := &manualTimers{}
	s := NewScheduler(90*time.Second, timers.AfterFunc)

	var fired atomic.Int32
	s.Schedule(func() { fired.Add(1) })

	all := timers.all()
	require.Len(t, all, 1)
	require.Equal(t, 90*time.Second, all[0].delay)

	timers.fireAll()
	require.Equal(t, int32(1), fired.Load())
}

func TestSchedulerCancelIsIdempotent(t *testing.T) {
	timers := &manualTimers{}
	s := NewScheduler(time.Minute, timers.AfterFunc)

	var fired atomic.Int32
	cancel := s.Schedule(func() { fired.Add(1) })

	require.True(t, cancel())
	require.True(t, cancel(), "repeated cancel reports the first result")

	timers.fireAll()
	require.Zero(t, fired.Load())
}

func TestSchedulerRealTimerFires(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, nil)

	done := make(chan struct{})
	s.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
