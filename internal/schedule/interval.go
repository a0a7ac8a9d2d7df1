package schedule

import "time"

// MinEventDuration is the shortest interval an event may span.
const MinEventDuration = 15 * time.Minute

// ValidateInterval checks ordering first, then the minimum duration.
// Nothing else (overlap, dates in the past) is checked.
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return newError(ErrInvalidInterval, "end time must be after start time")
	}
	if end.Sub(start) < MinEventDuration {
		return newError(ErrInvalidInterval, "event must be at least 15 minutes long")
	}
	return nil
}
