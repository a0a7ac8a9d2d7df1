package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/event-scheduling-service/internal/clock"
	"github.com/PratikDhanave/event-scheduling-service/internal/models"
	"github.com/PratikDhanave/event-scheduling-service/internal/timezone"
)

const eastern = "Eastern Time (ET)"

var (
	createdAt = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	updatedAt = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEventCreated(ctx context.Context, event models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishEventUpdated(ctx context.Context, event models.Event, entry models.LogEntry) error {
	args := m.Called(ctx, event, entry)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func ptr[T any](v T) *T {
	return &v
}

func newTestService(t *testing.T, opts ...Option) (*EventService, *memStore) {
	t.Helper()
	catalog, err := timezone.Default()
	require.NoError(t, err)
	store := newMemStore(createdAt, "u1", "u2", "u3")
	svc := NewEventService(store, store, catalog, clock.NewFixed(updatedAt), opts...)
	return svc, store
}

func validInput(t *testing.T) CreateEventInput {
	return CreateEventInput{
		Profiles:  []string{"u1"},
		TimeZone:  eastern,
		StartTime: mustTime(t, "2024-06-01T13:00:00Z"),
		EndTime:   mustTime(t, "2024-06-01T14:00:00Z"),
		CreatedBy: "u1",
	}
}

func seedEvent(t *testing.T, svc *EventService) models.Event {
	t.Helper()
	ev, created, err := svc.Create(context.Background(), validInput(t))
	require.NoError(t, err)
	require.True(t, created)
	return ev
}

func TestCreate_Succeeds(t *testing.T) {
	svc, store := newTestService(t)

	ev, created, err := svc.Create(context.Background(), validInput(t))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, eastern, ev.TimeZone, "the label is stored, not the iana id")
	assert.Empty(t, ev.Logs)
	assert.Equal(t, 1, store.writes)
}

func TestCreate_IntervalRules(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr string
	}{
		{"nine minutes", "2024-01-01T09:00:00Z", "2024-01-01T09:10:00Z", "event must be at least 15 minutes long"},
		{"end before start", "2024-01-01T10:00:00Z", "2024-01-01T09:00:00Z", "end time must be after start time"},
		{"end equals start", "2024-01-01T10:00:00Z", "2024-01-01T10:00:00Z", "end time must be after start time"},
		{"exactly fifteen minutes", "2024-01-01T10:00:00Z", "2024-01-01T10:15:00Z", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			in := validInput(t)
			in.StartTime = mustTime(t, tt.start)
			in.EndTime = mustTime(t, tt.end)

			_, _, err := svc.Create(context.Background(), in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInterval)
			assert.EqualError(t, err, tt.wantErr)
			assert.Zero(t, store.writes)
		})
	}
}

func TestCreate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateEventInput)
	}{
		{"no profiles", func(in *CreateEventInput) { in.Profiles = nil }},
		{"empty profiles", func(in *CreateEventInput) { in.Profiles = []string{} }},
		{"blank profile id", func(in *CreateEventInput) { in.Profiles = []string{""} }},
		{"no timezone", func(in *CreateEventInput) { in.TimeZone = "" }},
		{"no start", func(in *CreateEventInput) { in.StartTime = time.Time{} }},
		{"no end", func(in *CreateEventInput) { in.EndTime = time.Time{} }},
		{"no creator", func(in *CreateEventInput) { in.CreatedBy = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			in := validInput(t)
			tt.mutate(&in)

			_, _, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.Zero(t, store.writes)
		})
	}
}

func TestCreate_UnknownTimezoneNeverPersists(t *testing.T) {
	svc, store := newTestService(t)
	in := validInput(t)
	in.TimeZone = "America/New_York"

	_, _, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrUnknownTimezone)
	assert.Zero(t, store.writes)
	assert.Empty(t, store.events)
}

func TestCreate_UnknownParticipant(t *testing.T) {
	svc, store := newTestService(t)

	in := validInput(t)
	in.Profiles = []string{"u1", "ghost"}
	_, _, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	in = validInput(t)
	in.CreatedBy = "ghost"
	_, _, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	assert.Zero(t, store.writes)
}

func TestCreate_DedupesProfiles(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput(t)
	in.Profiles = []string{"u2", "u1", "u2"}

	ev, _, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, ev.Profiles)
}

func TestCreate_ReplayWithSameID(t *testing.T) {
	svc, store := newTestService(t)
	in := validInput(t)
	in.ID = "client-key-1"

	first, created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, store.writes)
}

func TestCreate_StoreErrorIsNotADomainError(t *testing.T) {
	svc, store := newTestService(t)
	store.insertErr = errors.New("connection reset")

	_, _, err := svc.Create(context.Background(), validInput(t))
	require.Error(t, err)
	var domainErr *Error
	assert.False(t, errors.As(err, &domainErr))
}

func TestCreate_PresentsInStoredZone(t *testing.T) {
	svc, _ := newTestService(t)
	ev := seedEvent(t, svc)

	got, err := svc.Get(context.Background(), ev.ID, "")
	require.NoError(t, err)
	assert.Equal(t, eastern, got.DisplayTimeZone)
	assert.Equal(t, "2024-06-01 09:00", got.StartTime)
	assert.Equal(t, "2024-06-01 10:00", got.EndTime)
	assert.Equal(t, []models.ProfileSummary{{ID: "u1", Username: "user-u1"}}, got.Profiles)
}

func TestUpdate_ProfilesOnly(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"u1", "u2"}})
	require.NoError(t, err)
	assert.True(t, res.Updated)

	stored := store.event(ev.ID)
	require.Len(t, stored.Logs, 1)
	assert.Equal(t, "profiles: u1 → u1, u2", stored.Logs[0].Description)
	assert.Equal(t, updatedAt, stored.Logs[0].At)
	assert.Equal(t, []string{"u1", "u2"}, stored.Profiles)
}

func TestUpdate_IdenticalPatchIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)
	writes := store.writes

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		Profiles:  []string{"u1"},
		TimeZone:  ptr(eastern),
		StartTime: ptr(mustTime(t, "2024-06-01T13:00:00Z")),
		EndTime:   ptr(mustTime(t, "2024-06-01T09:00:00-05:00")),
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, store.event(ev.ID).Logs)
	assert.Equal(t, writes, store.writes)
}

func TestUpdate_EmptyPatchIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, store.event(ev.ID).Logs)
}

func TestUpdate_SegmentsInFieldOrder(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		EndTime:   ptr(mustTime(t, "2024-06-01T16:00:00Z")),
		StartTime: ptr(mustTime(t, "2024-06-01T15:00:00Z")),
		Profiles:  []string{"u2"},
	})
	require.NoError(t, err)
	require.True(t, res.Updated)

	logs := store.event(ev.ID).Logs
	require.Len(t, logs, 1)
	assert.Equal(t,
		"profiles: u1 → u2 | startTime: 2024-06-01T13:00:00Z → 2024-06-01T15:00:00Z | endTime: 2024-06-01T14:00:00Z → 2024-06-01T16:00:00Z",
		logs[0].Description)
}

func TestUpdate_TimezoneOnlyHasNoTimeSegments(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{TimeZone: ptr("Pacific Time (PT)")})
	require.NoError(t, err)
	require.True(t, res.Updated)

	stored := store.event(ev.ID)
	require.Len(t, stored.Logs, 1)
	assert.Equal(t, "timezone: Eastern Time (ET) → Pacific Time (PT)", stored.Logs[0].Description)
	assert.Equal(t, ev.StartTime, stored.StartTime)
}

func TestUpdate_TimezoneChangeSuppressesTimeSegments(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)
	newStart := mustTime(t, "2024-06-01T16:00:00Z")
	newEnd := mustTime(t, "2024-06-01T17:00:00Z")

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		Profiles:  []string{"u1", "u3"},
		TimeZone:  ptr("Pacific Time (PT)"),
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	require.NoError(t, err)
	require.True(t, res.Updated)

	stored := store.event(ev.ID)
	require.Len(t, stored.Logs, 1)
	assert.Equal(t, "profiles: u1 → u1, u3 | timezone: Eastern Time (ET) → Pacific Time (PT)", stored.Logs[0].Description)
	assert.True(t, stored.StartTime.Equal(newStart), "new instants still take effect")
	assert.True(t, stored.EndTime.Equal(newEnd))
}

func TestUpdate_RevalidatesEffectiveInterval(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	_, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		EndTime: ptr(mustTime(t, "2024-06-01T13:10:00Z")),
	})
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		StartTime: ptr(mustTime(t, "2024-06-01T15:00:00Z")),
	})
	require.ErrorIs(t, err, ErrInvalidInterval)

	stored := store.event(ev.ID)
	assert.Empty(t, stored.Logs)
	assert.Equal(t, ev.StartTime, stored.StartTime)
	assert.Equal(t, ev.EndTime, stored.EndTime)
}

func TestUpdate_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ev := seedEvent(t, svc)

	_, err := svc.Update(context.Background(), "missing", UpdateEventPatch{Profiles: []string{"u2"}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{TimeZone: ptr("Mars Time (MT)")})
	assert.ErrorIs(t, err, ErrUnknownTimezone)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{}})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"ghost"}})
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = svc.Update(context.Background(), "", UpdateEventPatch{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpdate_StoreErrorIsWrapped(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)
	store.updateErr = errors.New("deadlock detected")

	_, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"u2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	var domainErr *Error
	assert.False(t, errors.As(err, &domainErr))
}

func TestUpdate_OneEntryPerCall(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	for _, profiles := range [][]string{{"u1", "u2"}, {"u2"}, {"u2"}, {"u3", "u2"}} {
		_, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: profiles})
		require.NoError(t, err)
	}

	logs := store.event(ev.ID).Logs
	require.Len(t, logs, 3, "the repeated {u2} patch is a no-op")
	assert.Equal(t, "profiles: u2 → u3, u2", logs[2].Description)
}

func TestPublisher_ReceivesChanges(t *testing.T) {
	pub := &mockPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))

	pub.On("PublishEventCreated", mock.Anything, mock.AnythingOfType("models.Event")).Return(nil).Once()
	ev := seedEvent(t, svc)

	pub.On("PublishEventUpdated", mock.Anything,
		mock.MatchedBy(func(e models.Event) bool { return e.ID == ev.ID && len(e.Logs) == 1 }),
		models.LogEntry{Description: "profiles: u1 → u2", At: updatedAt},
	).Return(errors.New("broker unavailable")).Once()

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"u2"}})
	require.NoError(t, err, "publish failures are logged, not returned")
	assert.True(t, res.Updated)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"u2"}})
	require.NoError(t, err)

	pub.AssertExpectations(t)
}

func TestListForParticipant(t *testing.T) {
	svc, _ := newTestService(t)
	seedEvent(t, svc)
	in := validInput(t)
	in.Profiles = []string{"u2"}
	_, _, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	got, err := svc.ListForParticipant(context.Background(), "u1", "Japan Standard Time (JST)")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-01 22:00", got[0].StartTime)
	assert.Equal(t, "Japan Standard Time (JST)", got[0].DisplayTimeZone)

	_, err = svc.ListForParticipant(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpdate_ParticipantsLookedUpOutsideEventLock(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"u2", "u3"}})
	require.NoError(t, err)
	assert.True(t, res.Updated)

	_, err = svc.Update(context.Background(), ev.ID, UpdateEventPatch{Profiles: []string{"ghost"}})
	require.ErrorIs(t, err, ErrUnknownParticipant)

	assert.Zero(t, store.lookupsDuringUpdate.Load())
	assert.Equal(t, []string{"u2", "u3"}, store.event(ev.ID).Profiles)
}

func TestUpdate_SubSecondChangeIsVisibleInLog(t *testing.T) {
	svc, store := newTestService(t)
	ev := seedEvent(t, svc)

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		StartTime: ptr(ev.StartTime.Add(500 * time.Millisecond)),
	})
	require.NoError(t, err)
	require.True(t, res.Updated)

	logs := store.event(ev.ID).Logs
	require.Len(t, logs, 1)
	assert.Equal(t, "startTime: 2024-06-01T13:00:00Z → 2024-06-01T13:00:00.5Z", logs[0].Description)
}

func TestUpdate_ResentSubMicrosecondInstantIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	in := validInput(t)
	in.StartTime = in.StartTime.Add(123456789 * time.Nanosecond)
	in.EndTime = in.EndTime.Add(123456789 * time.Nanosecond)

	ev, created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 123456000, ev.StartTime.Nanosecond(), "stored at microsecond precision")

	res, err := svc.Update(context.Background(), ev.ID, UpdateEventPatch{
		StartTime: ptr(in.StartTime),
		EndTime:   ptr(in.EndTime),
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Empty(t, store.event(ev.ID).Logs)
}
