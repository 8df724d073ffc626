package stores

import (
	"context"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
)

// MoodState is the observable state of a MoodStore. Moods are newest first.
type MoodState struct {
	Moods   []models.Mood
	Loading bool
	Error   string
}

func cloneMoodState(s MoodState) MoodState {
	s.Moods = append([]models.Mood(nil), s.Moods...)
	return s
}

// MoodStore mirrors the moods table.
type MoodStore struct {
	base
	rows  gateway.Rows
	state *cell[MoodState]
}

// NewMoodStore returns an empty MoodStore.
func NewMoodStore(rows gateway.Rows, opts ...Option) *MoodStore {
	return &MoodStore{
		base:  newBase("moods", opts),
		rows:  rows,
		state: newCell(MoodState{}, cloneMoodState),
	}
}

func (s *MoodStore) Snapshot() MoodState { return s.state.get() }

func (s *MoodStore) Subscribe(fn func(MoodState)) (unsubscribe func()) {
	return s.state.subscribe(fn)
}

func (s *MoodStore) Close() {
	if s.close() {
		s.state.clearObservers()
	}
}

func (s *MoodStore) failWith(ctx context.Context, action string, err error) Result {
	return s.fail(ctx, action, err, func(msg string) {
		s.state.update(func(st *MoodState) { st.Loading = false; st.Error = msg })
	})
}

// LoadMoods replaces the list with the owner's moods, newest first.
func (s *MoodStore) LoadMoods(ctx context.Context, userID string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *MoodState) { st.Loading = true; st.Error = "" })
	var moods []models.Mood
	q := gateway.Where("user_id", userID).OrderBy("created_at", false)
	if err := s.rows.Select(ctx, gateway.TableMoods, q, &moods); err != nil {
		return s.failWith(ctx, "load moods", err)
	}
	s.state.update(func(st *MoodState) { st.Moods = moods; st.Loading = false })
	return ok()
}

// AddMood persists the entry, prepends it and notifies the webhook with the
// label and note.
func (s *MoodStore) AddMood(ctx context.Context, in models.NewMood) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *MoodState) { st.Loading = true; st.Error = "" })
	in, err = in.Normalize()
	if err != nil {
		return s.failWith(ctx, "add mood", err)
	}

	var created models.Mood
	if err := s.rows.Insert(ctx, gateway.TableMoods, in, &created); err != nil {
		return s.failWith(ctx, "add mood", err)
	}
	s.state.update(func(st *MoodState) {
		st.Moods = append([]models.Mood{created}, st.Moods...)
		st.Loading = false
	})
	s.sink.Dispatch(notifier.Primary, notifier.MoodPayload(string(created.Mood), created.UserID, created.Note, s.now()))
	return ok()
}

// TodayMood returns the first entry of userID logged on the current local
// calendar day, scanning the loaded list. It is nil when there is none.
func (s *MoodStore) TodayMood(userID string) *models.Mood {
	now := s.now()
	for _, m := range s.Snapshot().Moods {
		if m.UserID == userID && models.SameLocalDay(m.CreatedAt, now, s.loc) {
			return &m
		}
	}
	return nil
}
