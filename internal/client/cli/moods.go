package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

var moodEmoji = map[models.MoodLabel]string{
	models.MoodVeryHappy: "😄",
	models.MoodHappy:     "🙂",
	models.MoodNeutral:   "😐",
	models.MoodSad:       "🙁",
	models.MoodVerySad:   "😢",
}

// LogMood records a mood. The label may also be given by its position on
// the scale, 1 (very happy) to 5 (very sad).
func (a *App) LogMood(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mood <label> [note]; labels: %s", moodLabels())
	}
	label := parseMood(args[0])

	in := models.NewMood{UserID: a.userID(), Mood: label}
	if note := strings.Join(args[1:], " "); note != "" {
		in.Note = &note
	}
	if err := a.Moods.AddMood(ctx, in).Err(); err != nil {
		return err
	}
	a.printf("Logged %s %s\n", moodEmoji[label], label)
	return nil
}

func parseMood(s string) models.MoodLabel {
	s = strings.ToLower(strings.ReplaceAll(s, "-", "_"))
	if len(s) == 1 && s[0] >= '1' && s[0] <= '5' {
		return models.MoodLabels[s[0]-'1']
	}
	return models.MoodLabel(s)
}

func moodLabels() string {
	names := make([]string, len(models.MoodLabels))
	for i, l := range models.MoodLabels {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

func (a *App) ListMoods(context.Context, []string) error {
	moods := a.Moods.Snapshot().Moods
	if len(moods) == 0 {
		a.println("No moods logged yet.")
		return nil
	}
	for _, m := range moods {
		a.println(formatMood(m))
	}
	return nil
}

func formatMood(m models.Mood) string {
	line := fmt.Sprintf("%s %s %s", m.CreatedAt.Local().Format("2006-01-02 15:04"), moodEmoji[m.Mood], m.Mood)
	if m.Note != nil {
		line += ": " + *m.Note
	}
	return line
}

func (a *App) TodayMood(context.Context, []string) error {
	m := a.Moods.TodayMood(a.userID())
	if m == nil {
		a.println("No mood logged today. How are you feeling?")
		return nil
	}
	a.println(formatMood(*m))
	return nil
}
