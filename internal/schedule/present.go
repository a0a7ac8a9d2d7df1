package schedule

import (
	"time"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// DisplayLayout renders local wall-clock time, e.g. "2024-06-01 09:00".
const DisplayLayout = "2006-01-02 15:04"

// utcLabel is reported when neither the requested nor the stored label resolves.
const utcLabel = "UTC"

// Formatter renders stored UTC instants in a display timezone.
type Formatter struct {
	catalog Catalog
}

func NewFormatter(catalog Catalog) *Formatter {
	return &Formatter{catalog: catalog}
}

// ResolveDisplay picks the zone to render ev in: displayLabel when it resolves,
// otherwise the event's stored label, otherwise UTC. It returns the label used.
func (f *Formatter) ResolveDisplay(ev models.Event, displayLabel string) (string, *time.Location) {
	if displayLabel != "" {
		if loc, err := f.catalog.Location(displayLabel); err == nil {
			return displayLabel, loc
		}
	}
	if loc, err := f.catalog.Location(ev.TimeZone); err == nil {
		return ev.TimeZone, loc
	}
	return utcLabel, time.UTC
}

// Present copies ev with every instant rendered in the resolved zone.
// users expands profile ids into summaries; unknown ids keep an empty username.
func (f *Formatter) Present(ev models.Event, displayLabel string, users map[string]models.User) models.PresentedEvent {
	label, loc := f.ResolveDisplay(ev, displayLabel)
	render := func(t time.Time) string {
		return t.In(loc).Format(DisplayLayout)
	}

	profiles := make([]models.ProfileSummary, 0, len(ev.Profiles))
	for _, id := range ev.Profiles {
		profiles = append(profiles, models.ProfileSummary{ID: id, Username: users[id].Username})
	}

	logs := make([]models.PresentedLog, 0, len(ev.Logs))
	for _, l := range ev.Logs {
		logs = append(logs, models.PresentedLog{Description: l.Description, At: render(l.At)})
	}

	return models.PresentedEvent{
		ID:              ev.ID,
		Profiles:        profiles,
		TimeZone:        ev.TimeZone,
		DisplayTimeZone: label,
		CreatedBy:       ev.CreatedBy,
		StartTime:       render(ev.StartTime),
		EndTime:         render(ev.EndTime),
		Logs:            logs,
		CreatedAt:       render(ev.CreatedAt),
		UpdatedAt:       render(ev.UpdatedAt),
	}
}
