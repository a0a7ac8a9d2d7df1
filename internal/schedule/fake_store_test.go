package schedule

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// memStore is an in-memory EventStore, UserDirectory and UserStore.
// Events and users have separate locks, like separate rows in Postgres.
type memStore struct {
	mu     sync.Mutex
	events map[string]models.Event
	now    time.Time

	usersMu sync.Mutex
	users   map[string]models.User

	// inUpdate is set while UpdateEvent holds the event lock and runs apply.
	inUpdate            atomic.Bool
	lookupsDuringUpdate atomic.Int32

	insertErr error
	updateErr error
	writes    int
}

func newMemStore(now time.Time, users ...string) *memStore {
	s := &memStore{
		events: map[string]models.Event{},
		users:  map[string]models.User{},
		now:    now,
	}
	for _, id := range users {
		s.users[id] = models.User{ID: id, Username: "user-" + id}
	}
	return s
}

func (s *memStore) InsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return models.Event{}, false, s.insertErr
	}
	if existing, ok := s.events[ev.ID]; ok {
		return cloneEvent(existing), false, nil
	}
	ev.CreatedAt = s.now
	ev.UpdatedAt = s.now
	s.events[ev.ID] = cloneEvent(ev)
	s.writes++
	return cloneEvent(ev), true, nil
}

func (s *memStore) GetEvent(ctx context.Context, id string) (models.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	return cloneEvent(ev), ok, nil
}

func (s *memStore) ListEventsByParticipant(ctx context.Context, participantID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if slices.Contains(ev.Profiles, participantID) {
			out = append(out, cloneEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *memStore) UpdateEvent(ctx context.Context, id string, apply func(models.Event) (*models.EventChange, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[id]
	if !ok {
		return false, nil
	}
	s.inUpdate.Store(true)
	change, err := apply(cloneEvent(cur))
	s.inUpdate.Store(false)
	if err != nil {
		return true, err
	}
	if change == nil {
		return true, nil
	}
	if s.updateErr != nil {
		return true, s.updateErr
	}
	cur.Profiles = slices.Clone(change.Fields.Profiles)
	cur.TimeZone = change.Fields.TimeZone
	cur.StartTime = change.Fields.StartTime
	cur.EndTime = change.Fields.EndTime
	cur.Logs = append(cur.Logs, change.Log)
	cur.UpdatedAt = change.Log.At
	s.events[id] = cur
	s.writes++
	return true, nil
}

func (s *memStore) FindUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if s.inUpdate.Load() {
		s.lookupsDuringUpdate.Add(1)
	}
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memStore) InsertUser(ctx context.Context, u models.User) (bool, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return false, nil
		}
	}
	s.users[u.ID] = u
	return true, nil
}

func (s *memStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memStore) event(id string) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvent(s.events[id])
}

func cloneEvent(ev models.Event) models.Event {
	ev.Profiles = slices.Clone(ev.Profiles)
	ev.Logs = slices.Clone(ev.Logs)
	return ev
}
