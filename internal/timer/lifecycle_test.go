package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseResumeRoundTrip(t *testing.T) {
	tm := Timer{ID: "t1", Name: "Work", UserID: "u1", TimerType: TypeStopwatch}

	tm, entry := Start(tm, baseTime)
	require.NotNil(t, entry)
	assert.Equal(t, EventStart, entry.EventType)
	assert.True(t, tm.IsRunning)
	assert.Equal(t, baseTime.UnixMilli(), tm.FirstStartTime)

	tm, entry = Pause(tm, baseTime.Add(3*time.Second))
	require.NotNil(t, entry)
	assert.Equal(t, int64(3000), tm.ElapsedTime)
	assert.False(t, tm.IsRunning)
	assert.Equal(t, int64(0), tm.StartTime)

	// Resuming continues from the accumulated value, not from zero.
	resumeAt := baseTime.Add(time.Minute)
	tm, _ = Start(tm, resumeAt)
	tm, _ = Pause(tm, resumeAt.Add(2*time.Second))
	assert.Equal(t, int64(5000), tm.ElapsedTime)
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch}
	tm, _ = Start(tm, baseTime)
	startTime := tm.StartTime

	tm2, entry := Start(tm, baseTime.Add(time.Second))
	assert.Nil(t, entry)
	assert.Equal(t, startTime, tm2.StartTime)
}

func TestPauseWhileStoppedIsNoOp(t *testing.T) {
	tm := Timer{ID: "t1", ElapsedTime: 100}
	tm2, entry := Pause(tm, baseTime)
	assert.Nil(t, entry)
	assert.Equal(t, tm, tm2)
}

func TestResetClearsStateKeepsFirstStart(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch}
	tm, _ = Start(tm, baseTime)
	tm, _ = RecordLap(tm, baseTime.Add(time.Second))

	tm, entry := Reset(tm, baseTime.Add(5*time.Second))
	require.NotNil(t, entry)
	require.NotNil(t, entry.PreviousValue)
	assert.Equal(t, int64(5000), *entry.PreviousValue)
	assert.Equal(t, int64(0), tm.ElapsedTime)
	assert.False(t, tm.IsRunning)
	assert.Empty(t, tm.Laps)
	assert.Equal(t, baseTime.UnixMilli(), tm.FirstStartTime)
}

func TestLapOrdering(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch}
	tm, _ = Start(tm, baseTime)
	tm, _ = RecordLap(tm, baseTime.Add(2*time.Second))
	tm, _ = RecordLap(tm, baseTime.Add(5*time.Second))
	tm, _ = RecordLap(tm, baseTime.Add(6*time.Second))

	require.Len(t, tm.Laps, 3)
	for i, lap := range tm.Laps {
		assert.Equal(t, i+1, lap.Number)
		if i == 0 {
			assert.Equal(t, lap.SplitTime, lap.LapTime)
			continue
		}
		assert.Greater(t, lap.SplitTime, tm.Laps[i-1].SplitTime)
		assert.Equal(t, lap.SplitTime-tm.Laps[i-1].SplitTime, lap.LapTime)
	}
	assert.Equal(t, int64(2000), tm.Laps[0].LapTime)
	assert.Equal(t, int64(3000), tm.Laps[1].LapTime)
	assert.Equal(t, int64(1000), tm.Laps[2].LapTime)
}

func TestEditTime(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch, ElapsedTime: 8000}
	tm, entry := EditTime(tm, 2000, baseTime)
	require.NotNil(t, entry)
	assert.Equal(t, EventTimeEdit, entry.EventType)
	assert.Equal(t, int64(8000), *entry.PreviousValue)
	assert.Equal(t, int64(2000), *entry.NewValue)
	assert.Equal(t, int64(2000), tm.ElapsedTime)
}

func TestEditTimeWhileRunningRestartsSegment(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch}
	tm, _ = Start(tm, baseTime)

	editAt := baseTime.Add(10 * time.Second)
	tm, _ = EditTime(tm, 1000, editAt)
	assert.Equal(t, editAt.UnixMilli(), tm.StartTime)

	value, _ := Display(tm, editAt.Add(time.Second))
	assert.Equal(t, int64(2000), value)
}

func TestAdvancePhaseCycle(t *testing.T) {
	tm := Timer{
		ID:        "t1",
		TimerType: TypePomodoro,
		PomodoroSettings: &PomodoroSettings{
			WorkDuration:       1000,
			ShortBreakDuration: 200,
			LongBreakDuration:  500,
			SessionsUntilLong:  2,
		},
	}
	tm, _ = Start(tm, baseTime)
	require.Equal(t, PhaseWork, tm.PomodoroPhase)

	tm, entry := AdvancePhase(tm, baseTime.Add(time.Second))
	require.NotNil(t, entry)
	assert.Equal(t, EventComplete, entry.EventType)
	assert.Equal(t, PhaseShortBreak, tm.PomodoroPhase)
	assert.Equal(t, 1, tm.PomodoroSessionCount)
	assert.Equal(t, int64(200), tm.Duration)
	assert.Equal(t, int64(0), tm.ElapsedTime)

	tm, entry = AdvancePhase(tm, baseTime.Add(2*time.Second))
	assert.Nil(t, entry)
	assert.Equal(t, PhaseWork, tm.PomodoroPhase)

	// Second completed work phase hits the long break.
	tm, entry = AdvancePhase(tm, baseTime.Add(3*time.Second))
	require.NotNil(t, entry)
	assert.Equal(t, PhaseLongBreak, tm.PomodoroPhase)
	assert.Equal(t, 2, tm.PomodoroSessionCount)
	assert.Equal(t, int64(500), tm.Duration)
}

func TestAdvancePhaseNonPomodoro(t *testing.T) {
	tm := Timer{ID: "t1", TimerType: TypeStopwatch, ElapsedTime: 42}
	tm2, entry := AdvancePhase(tm, baseTime)
	assert.Nil(t, entry)
	assert.Equal(t, tm, tm2)
}
