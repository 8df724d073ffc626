package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/kumo/internal/common"
)

// MoodLabel is one point of the five-point mood scale.
type MoodLabel string

const (
	MoodVeryHappy MoodLabel = "very_happy"
	MoodHappy     MoodLabel = "happy"
	MoodNeutral   MoodLabel = "neutral"
	MoodSad       MoodLabel = "sad"
	MoodVerySad   MoodLabel = "very_sad"
)

// MoodLabels lists the scale from best to worst.
var MoodLabels = []MoodLabel{MoodVeryHappy, MoodHappy, MoodNeutral, MoodSad, MoodVerySad}

// Valid reports whether l is on the scale.
func (l MoodLabel) Valid() bool {
	for _, known := range MoodLabels {
		if l == known {
			return true
		}
	}
	return false
}

// Mood is a row of the moods table.
type Mood struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      MoodLabel `json:"mood"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMood is the insert payload for moods.
type NewMood struct {
	UserID string    `json:"user_id"`
	Mood   MoodLabel `json:"mood"`
	Note   *string   `json:"note"`
}

// Normalize trims the note (blank → NULL) and validates the label.
func (n NewMood) Normalize() (NewMood, error) {
	if n.Note != nil {
		n.Note = blankToNil(*n.Note)
	}
	if n.UserID == "" {
		return n, fmt.Errorf("%w: mood owner is required", common.ErrValidation)
	}
	if !n.Mood.Valid() {
		return n, fmt.Errorf("%w: unknown mood %q", common.ErrValidation, n.Mood)
	}
	return n, nil
}

// SameLocalDay reports whether a and b fall on the same calendar day in loc.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
