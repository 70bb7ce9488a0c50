package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed rate, measured from each start.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}

// FixedDelaySchedule waits Delay after each run completes before the next.
type FixedDelaySchedule struct {
	Delay time.Duration

	// InitialDelay postpones the first run after registration.
	InitialDelay time.Duration
}

// NewFixedDelaySchedule creates a schedule whose first run is due immediately.
func NewFixedDelaySchedule(delay time.Duration) *FixedDelaySchedule {
	return &FixedDelaySchedule{Delay: delay}
}

// NewFixedDelayScheduleMillis builds a schedule from a millisecond setting.
func NewFixedDelayScheduleMillis(ms int64) *FixedDelaySchedule {
	return NewFixedDelaySchedule(time.Duration(ms) * time.Millisecond)
}

// Next returns t + Delay, where t is the previous completion.
func (s *FixedDelaySchedule) Next(t time.Time) time.Time {
	return t.Add(s.Delay)
}

// First returns the first due time after registration at t.
func (s *FixedDelaySchedule) First(t time.Time) time.Time {
	return t.Add(s.InitialDelay)
}

// AfterCompletion marks the schedule as anchored on completion.
func (s *FixedDelaySchedule) AfterCompletion() bool { return true }

// String returns the string representation of the schedule.
func (s *FixedDelaySchedule) String() string {
	return fmt.Sprintf("@fixed-delay %s", s.Delay.String())
}
