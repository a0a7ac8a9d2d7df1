// Package calendar exports scheduled events as iCalendar (RFC 5545) feeds.
package calendar

import (
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

const productID = "-//event-scheduling-service//schedule//EN"

// Item pairs a stored event with its presented form. Instants come from Event
// in UTC; participant names and the display zone come from View.
type Item struct {
	Event models.Event
	View  models.PresentedEvent
}

// Build returns a VCALENDAR with one VEVENT per item.
func Build(name string, items []Item) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	for _, it := range items {
		ev := cal.AddEvent(it.Event.ID)
		ev.SetDtStampTime(it.Event.UpdatedAt.UTC())
		ev.SetCreatedTime(it.Event.CreatedAt.UTC())
		ev.SetModifiedAt(it.Event.UpdatedAt.UTC())
		ev.SetStartAt(it.Event.StartTime.UTC())
		ev.SetEndAt(it.Event.EndTime.UTC())
		ev.SetSummary(summary(it.View))
		ev.SetDescription(description(it.View))
	}
	return cal
}

// Render serializes Build(name, items).
func Render(name string, items []Item) string {
	return Build(name, items).Serialize()
}

func summary(v models.PresentedEvent) string {
	names := make([]string, 0, len(v.Profiles))
	for _, p := range v.Profiles {
		if p.Username != "" {
			names = append(names, p.Username)
		} else {
			names = append(names, p.ID)
		}
	}
	return "Event with " + strings.Join(names, ", ")
}

func description(v models.PresentedEvent) string {
	return fmt.Sprintf("%s to %s (%s)", v.StartTime, v.EndTime, v.DisplayTimeZone)
}

// Filename is the attachment name used for a participant's feed.
func Filename(participantID string) string {
	return fmt.Sprintf("events-%s.ics", participantID)
}

