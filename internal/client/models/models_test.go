package models

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/kumo/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Normalize(t *testing.T) {
	desc := "   "
	n, err := NewTask{UserID: "u1", Title: "  Walk  ", Description: &desc}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Walk", n.Title)
	assert.Nil(t, n.Description)
	assert.Equal(t, PriorityMedium, n.Priority)
}

func TestNewTask_Normalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   NewTask
	}{
		{"blank title", NewTask{UserID: "u1", Title: " \t\n"}},
		{"no owner", NewTask{Title: "x"}},
		{"bad priority", NewTask{UserID: "u1", Title: "x", Priority: "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestTaskPatch_Columns(t *testing.T) {
	due := time.Date(2026, 10, 20, 9, 0, 0, 0, time.FixedZone("X", 3600))
	prio := PriorityHigh
	cols, err := TaskPatch{
		Title:     StringPtr(" Read "),
		Completed: BoolPtr(true),
		Priority:  &prio,
		DueDate:   &due,
	}.Columns()
	require.NoError(t, err)
	assert.Equal(t, "Read", cols["title"])
	assert.Equal(t, true, cols["completed"])
	assert.Equal(t, PriorityHigh, cols["priority"])
	assert.Equal(t, due.UTC(), cols["due_date"])
	_, hasDesc := cols["description"]
	assert.False(t, hasDesc)
}

func TestTaskPatch_ClearFlags(t *testing.T) {
	cols, err := TaskPatch{ClearDescription: true, ClearDueDate: true}.Columns()
	require.NoError(t, err)
	v, ok := cols["description"]
	assert.True(t, ok)
	assert.Nil(t, v)
	v, ok = cols["due_date"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestTaskPatch_Invalid(t *testing.T) {
	_, err := TaskPatch{Title: StringPtr("  ")}.Columns()
	require.ErrorIs(t, err, common.ErrValidation)

	bad := Priority("later")
	_, err = TaskPatch{Priority: &bad}.Columns()
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = TaskPatch{}.Columns()
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestMoodLabels(t *testing.T) {
	assert.Len(t, MoodLabels, 5)
	for _, l := range MoodLabels {
		assert.True(t, l.Valid())
	}
	assert.False(t, MoodLabel("ecstatic").Valid())
}

func TestNewMood_Normalize(t *testing.T) {
	note := "  slept well "
	n, err := NewMood{UserID: "u1", Mood: MoodHappy, Note: &note}.Normalize()
	require.NoError(t, err)
	require.NotNil(t, n.Note)
	assert.Equal(t, "slept well", *n.Note)

	_, err = NewMood{UserID: "u1", Mood: "meh"}.Normalize()
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSameLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	a := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC) // Oct 14 22:00 local
	b := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC) // Oct 15 01:00 local

	assert.False(t, SameLocalDay(a, b, loc))
	assert.True(t, SameLocalDay(a, b, time.UTC))
}

func TestIdentityFromSession(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Session{User: SessionUser{
		ID:           "u1",
		Email:        "ana@example.com",
		UserMetadata: map[string]any{"full_name": "Ana", "avatar_url": ""},
		CreatedAt:    created,
	}}

	id := IdentityFromSession(s)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "ana@example.com", id.Email)
	require.NotNil(t, id.FullName)
	assert.Equal(t, "Ana", *id.FullName)
	assert.Nil(t, id.AvatarURL)
	assert.Equal(t, created, id.UpdatedAt)
}

func TestSession_ExpiresWithin(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := Session{ExpiresAt: now.Add(30 * time.Second).Unix()}

	assert.True(t, s.ExpiresWithin(now, time.Minute))
	assert.False(t, s.ExpiresWithin(now, 10*time.Second))
	assert.False(t, Session{}.ExpiresWithin(now, time.Hour))
}

func TestProfilePatch(t *testing.T) {
	name := "Old"
	id := Identity{ID: "u1", Email: "a@b.com", FullName: &name}

	p := ProfilePatch{FullName: StringPtr("   ")}
	assert.False(t, p.Empty())
	cols := p.Columns()
	v, ok := cols["full_name"]
	assert.True(t, ok)
	assert.Nil(t, v)

	got := p.Apply(id)
	assert.Nil(t, got.FullName)
	assert.Equal(t, "a@b.com", got.DisplayName())

	got = ProfilePatch{FullName: StringPtr(" Ana ")}.Apply(id)
	assert.Equal(t, "Ana", got.DisplayName())
	assert.True(t, ProfilePatch{}.Empty())
}

func TestChatMessage_IsTemporary(t *testing.T) {
	assert.True(t, ChatMessage{ID: TempIDPrefix + "abc"}.IsTemporary())
	assert.False(t, ChatMessage{ID: "7b1c"}.IsTemporary())
}
