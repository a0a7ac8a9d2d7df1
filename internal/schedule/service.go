package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/clock"
	"github.com/PratikDhanave/event-scheduling-service/internal/models"
	"github.com/PratikDhanave/event-scheduling-service/internal/notify"
)

const tracerName = "schedule"

// Catalog resolves timezone labels. *timezone.Catalog implements it.
type Catalog interface {
	Resolve(label string) (string, error)
	Location(label string) (*time.Location, error)
}

// EventStore persists events and their audit log.
type EventStore interface {
	// InsertEvent stores ev unless an event with the same id exists.
	// It returns the stored row and whether this call inserted it.
	InsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error)
	GetEvent(ctx context.Context, id string) (models.Event, bool, error)
	ListEventsByParticipant(ctx context.Context, participantID string) ([]models.Event, error)
	// UpdateEvent loads the event under a row lock and calls apply with it.
	// A nil change commits nothing. found is false when no event has that id.
	UpdateEvent(ctx context.Context, id string, apply func(current models.Event) (*models.EventChange, error)) (found bool, err error)
}

// UserDirectory looks participants up by id.
type UserDirectory interface {
	FindUsers(ctx context.Context, ids []string) ([]models.User, error)
}

// CreateEventInput is the validated shape of a create request.
// ID is optional; when set, a repeated create with the same ID is a replay.
type CreateEventInput struct {
	ID        string
	Profiles  []string
	TimeZone  string
	StartTime time.Time
	EndTime   time.Time
	CreatedBy string
}

// UpdateResult tells a real update apart from a no-op.
type UpdateResult struct {
	Updated bool
}

// EventService owns every mutation of an event so each change is paired with an audit entry.
type EventService struct {
	events    EventStore
	users     UserDirectory
	catalog   Catalog
	formatter *Formatter
	clock     clock.Clock
	publisher notify.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option customizes an EventService.
type Option func(*EventService)

// WithPublisher sets where change notifications go. Defaults to a no-op.
func WithPublisher(p notify.Publisher) Option {
	return func(s *EventService) { s.publisher = p }
}

// WithLogger sets the service logger. Defaults to zap.NewNop.
func WithLogger(l *zap.Logger) Option {
	return func(s *EventService) { s.logger = l }
}

func NewEventService(events EventStore, users UserDirectory, catalog Catalog, clk clock.Clock, opts ...Option) *EventService {
	s := &EventService{
		events:    events,
		users:     users,
		catalog:   catalog,
		formatter: NewFormatter(catalog),
		clock:     clk,
		publisher: notify.NewNoOpPublisher(),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new event with an empty log.
// The returned bool is false when ID matched an existing event and nothing was inserted.
func (s *EventService) Create(ctx context.Context, in CreateEventInput) (models.Event, bool, error) {
	ctx, span := s.tracer.Start(ctx, "EventService.Create")
	defer span.End()

	if err := checkCreateFields(in); err != nil {
		return models.Event{}, false, err
	}
	in.StartTime = truncate(in.StartTime)
	in.EndTime = truncate(in.EndTime)
	if _, err := s.catalog.Resolve(in.TimeZone); err != nil {
		return models.Event{}, false, newError(ErrUnknownTimezone, "unknown timezone %q", in.TimeZone)
	}
	if err := ValidateInterval(in.StartTime, in.EndTime); err != nil {
		return models.Event{}, false, err
	}

	profiles := dedupe(in.Profiles)
	if err := s.requireParticipants(ctx, append(slices.Clone(profiles), in.CreatedBy)); err != nil {
		return models.Event{}, false, err
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	ev := models.Event{
		ID:        id,
		Profiles:  profiles,
		TimeZone:  in.TimeZone,
		CreatedBy: in.CreatedBy,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Logs:      []models.LogEntry{},
	}
	span.SetAttributes(attribute.String("event.id", id))

	stored, inserted, err := s.events.InsertEvent(ctx, ev)
	if err != nil {
		span.RecordError(err)
		return models.Event{}, false, fmt.Errorf("insert event: %w", err)
	}
	if !inserted {
		s.logger.Info("event create replayed", zap.String("event_id", id))
		return stored, false, nil
	}

	s.logger.Info("event created",
		zap.String("event_id", stored.ID),
		zap.Strings("profiles", stored.Profiles),
		zap.String("time_zone", stored.TimeZone),
	)
	if err := s.publisher.PublishEventCreated(ctx, stored); err != nil {
		s.logger.Warn("publish event created failed", zap.String("event_id", stored.ID), zap.Error(err))
	}
	return stored, true, nil
}

// Update applies patch to the event and appends exactly one log entry when
// something changed. A patch matching the stored values returns Updated=false
// and writes nothing.
func (s *EventService) Update(ctx context.Context, id string, patch UpdateEventPatch) (UpdateResult, error) {
	ctx, span := s.tracer.Start(ctx, "EventService.Update", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	if id == "" {
		return UpdateResult{}, newError(ErrMissingField, "event id is required")
	}
	if patch.Profiles != nil && len(patch.Profiles) == 0 {
		return UpdateResult{}, newError(ErrMissingField, "profiles must not be empty")
	}
	if patch.Profiles != nil {
		if slices.Contains(patch.Profiles, "") {
			return UpdateResult{}, newError(ErrMissingField, "profiles must not contain empty ids")
		}
		patch.Profiles = dedupe(patch.Profiles)
		// Checked before UpdateEvent: the lookup must not run while the event row is locked.
		if err := s.requireParticipants(ctx, patch.Profiles); err != nil {
			return UpdateResult{}, err
		}
	}
	patch.StartTime = truncatePtr(patch.StartTime)
	patch.EndTime = truncatePtr(patch.EndTime)

	var (
		updated models.Event
		entry   models.LogEntry
		changed bool
	)
	found, err := s.events.UpdateEvent(ctx, id, func(cur models.Event) (*models.EventChange, error) {
		d := diffEvent(cur, patch)
		if d.timeZoneChanged {
			if _, err := s.catalog.Resolve(d.fields.TimeZone); err != nil {
				return nil, newError(ErrUnknownTimezone, "unknown timezone %q", d.fields.TimeZone)
			}
		}
		if err := ValidateInterval(d.fields.StartTime, d.fields.EndTime); err != nil {
			return nil, err
		}
		if d.empty() {
			return nil, nil
		}

		entry = models.LogEntry{Description: d.description(), At: s.clock.Now()}
		updated = cur
		updated.Profiles = d.fields.Profiles
		updated.TimeZone = d.fields.TimeZone
		updated.StartTime = d.fields.StartTime
		updated.EndTime = d.fields.EndTime
		updated.Logs = append(slices.Clone(cur.Logs), entry)
		updated.UpdatedAt = entry.At
		changed = true
		return &models.EventChange{Fields: d.fields, Log: entry}, nil
	})
	if err != nil {
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			span.RecordError(err)
			err = fmt.Errorf("update event %s: %w", id, err)
		}
		return UpdateResult{}, err
	}
	if !found {
		return UpdateResult{}, newError(ErrNotFound, "event %s not found", id)
	}
	if !changed {
		return UpdateResult{Updated: false}, nil
	}

	s.logger.Info("event updated", zap.String("event_id", id), zap.String("change", entry.Description))
	if err := s.publisher.PublishEventUpdated(ctx, updated, entry); err != nil {
		s.logger.Warn("publish event updated failed", zap.String("event_id", id), zap.Error(err))
	}
	return UpdateResult{Updated: true}, nil
}

// Get returns one event rendered in displayLabel (or its own zone).
func (s *EventService) Get(ctx context.Context, id, displayLabel string) (models.PresentedEvent, error) {
	ev, found, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return models.PresentedEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	if !found {
		return models.PresentedEvent{}, newError(ErrNotFound, "event %s not found", id)
	}
	out, err := s.Present(ctx, []models.Event{ev}, displayLabel)
	if err != nil {
		return models.PresentedEvent{}, err
	}
	return out[0], nil
}

// ListForParticipant returns every event the participant is attached to,
// rendered in displayLabel (or each event's own zone).
func (s *EventService) ListForParticipant(ctx context.Context, participantID, displayLabel string) ([]models.PresentedEvent, error) {
	if participantID == "" {
		return nil, newError(ErrMissingField, "participant id is required")
	}
	events, err := s.ListEvents(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.Present(ctx, events, displayLabel)
}

// ListEvents returns the participant's stored events without presentation.
func (s *EventService) ListEvents(ctx context.Context, participantID string) ([]models.Event, error) {
	events, err := s.events.ListEventsByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", participantID, err)
	}
	return events, nil
}

// Present renders events in displayLabel, expanding profile ids with one
// participant lookup for the whole batch.
func (s *EventService) Present(ctx context.Context, events []models.Event, displayLabel string) ([]models.PresentedEvent, error) {
	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.Profiles...)
	}
	users, err := s.users.FindUsers(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]models.PresentedEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, s.formatter.Present(ev, displayLabel, byID))
	}
	return out, nil
}

func (s *EventService) requireParticipants(ctx context.Context, ids []string) error {
	want := dedupe(ids)
	found, err := s.users.FindUsers(ctx, want)
	if err != nil {
		return fmt.Errorf("find participants: %w", err)
	}
	known := make(map[string]struct{}, len(found))
	for _, u := range found {
		known[u.ID] = struct{}{}
	}
	for _, id := range want {
		if _, ok := known[id]; !ok {
			return newError(ErrUnknownParticipant, "participant %s does not exist", id)
		}
	}
	return nil
}

func checkCreateFields(in CreateEventInput) error {
	switch {
	case len(in.Profiles) == 0:
		return newError(ErrMissingField, "profiles is required")
	case in.TimeZone == "":
		return newError(ErrMissingField, "timeZone is required")
	case in.StartTime.IsZero():
		return newError(ErrMissingField, "startTime is required")
	case in.EndTime.IsZero():
		return newError(ErrMissingField, "endTime is required")
	case in.CreatedBy == "":
		return newError(ErrMissingField, "createdBy is required")
	}
	for _, p := range in.Profiles {
		if p == "" {
			return newError(ErrMissingField, "profiles must not contain empty ids")
		}
	}
	return nil
}

// instantPrecision matches Postgres TIMESTAMPTZ, so a re-sent instant compares
// equal to the stored one.
const instantPrecision = time.Microsecond

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(instantPrecision)
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := truncate(*t)
	return &v
}

// dedupe drops repeated ids, keeping first-occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
