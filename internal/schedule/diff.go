package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// logSeparator joins the per-field lines of one audit entry.
const logSeparator = " | "

// UpdateEventPatch lists the fields a caller wants to set. Nil means "leave as is".
type UpdateEventPatch struct {
	Profiles  []string
	TimeZone  *string
	StartTime *time.Time
	EndTime   *time.Time
}

// eventDiff is the outcome of comparing a patch against the stored event.
type eventDiff struct {
	fields          models.EventFields
	lines           []string
	timeZoneChanged bool
}

func (d eventDiff) empty() bool {
	return len(d.lines) == 0
}

func (d eventDiff) description() string {
	return strings.Join(d.lines, logSeparator)
}

// diffEvent computes the effective field values and the audit lines, in the order
// profiles, timezone, startTime, endTime.
//
// A timezone change takes precedence over time edits in the same patch: supplied
// start/end values are taken as the same instants re-expressed in the new zone, so
// they are applied without startTime/endTime lines.
func diffEvent(cur models.Event, patch UpdateEventPatch) eventDiff {
	d := eventDiff{
		fields: models.EventFields{
			Profiles:  cur.Profiles,
			TimeZone:  cur.TimeZone,
			StartTime: cur.StartTime,
			EndTime:   cur.EndTime,
		},
	}

	if patch.Profiles != nil && !slices.Equal(patch.Profiles, cur.Profiles) {
		d.fields.Profiles = slices.Clone(patch.Profiles)
		d.lines = append(d.lines, fmt.Sprintf("profiles: %s → %s",
			strings.Join(cur.Profiles, ", "), strings.Join(patch.Profiles, ", ")))
	}

	if patch.TimeZone != nil && *patch.TimeZone != cur.TimeZone {
		d.timeZoneChanged = true
		d.fields.TimeZone = *patch.TimeZone
		d.lines = append(d.lines, fmt.Sprintf("timezone: %s → %s", cur.TimeZone, *patch.TimeZone))
	}

	if patch.StartTime != nil && !patch.StartTime.Equal(cur.StartTime) {
		d.fields.StartTime = patch.StartTime.UTC()
		if !d.timeZoneChanged {
			d.lines = append(d.lines, fmt.Sprintf("startTime: %s → %s",
				formatInstant(cur.StartTime), formatInstant(*patch.StartTime)))
		}
	}

	if patch.EndTime != nil && !patch.EndTime.Equal(cur.EndTime) {
		d.fields.EndTime = patch.EndTime.UTC()
		if !d.timeZoneChanged {
			d.lines = append(d.lines, fmt.Sprintf("endTime: %s → %s",
				formatInstant(cur.EndTime), formatInstant(*patch.EndTime)))
		}
	}

	return d
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
