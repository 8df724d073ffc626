package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

const dateLayout = "2006-01-02"

func (a *App) ListTasks(context.Context, []string) error {
	tasks := a.Tasks.Snapshot().Tasks
	if len(tasks) == 0 {
		a.println("No tasks. Add one with: addtask")
		return nil
	}
	for i, t := range tasks {
		a.println(formatTask(i+1, t))
	}
	return nil
}

func formatTask(n int, t models.Task) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	line := fmt.Sprintf("%2d. %s %s (%s)", n, box, t.Title, t.Priority)
	if t.DueDate != nil {
		line += " due " + t.DueDate.Local().Format(dateLayout)
	}
	if t.Description != nil {
		line += "\n      " + *t.Description
	}
	return line
}

// AddTask creates a task. The title may be given inline; the remaining
// fields are prompted for and may be left blank.
func (a *App) AddTask(ctx context.Context, args []string) error {
	title := strings.Join(args, " ")
	var err error
	if title == "" {
		if title, err = promptLine(a.reader, a.out, "Title"); err != nil {
			return err
		}
	}
	desc, err := promptLine(a.reader, a.out, "Description (optional)")
	if err != nil {
		return err
	}
	prio, err := promptLine(a.reader, a.out, "Priority low|medium|high (default medium)")
	if err != nil {
		return err
	}
	dueText, err := promptLine(a.reader, a.out, "Due date YYYY-MM-DD (optional)")
	if err != nil {
		return err
	}
	due, err := parseDate(dueText)
	if err != nil {
		return err
	}

	in := models.NewTask{
		UserID:   a.userID(),
		Title:    title,
		Priority: models.Priority(strings.ToLower(prio)),
		DueDate:  due,
	}
	if desc != "" {
		in.Description = &desc
	}
	if err := a.Tasks.AddTask(ctx, in).Err(); err != nil {
		return err
	}
	a.println("Task added.")
	return nil
}

// EditTask prompts for each field; blank keeps the current value and "-"
// clears optional ones.
func (a *App) EditTask(ctx context.Context, args []string) error {
	t, err := a.resolveTask(args)
	if err != nil {
		return err
	}

	var patch models.TaskPatch
	if v, err := promptLine(a.reader, a.out, fmt.Sprintf("Title [%s]", t.Title)); err != nil {
		return err
	} else if v != "" {
		patch.Title = &v
	}
	if v, err := promptLine(a.reader, a.out, fmt.Sprintf("Description [%s]", orDash(t.Description))); err != nil {
		return err
	} else if v == "-" {
		patch.ClearDescription = true
	} else if v != "" {
		patch.Description = &v
	}
	if v, err := promptLine(a.reader, a.out, fmt.Sprintf("Priority [%s]", t.Priority)); err != nil {
		return err
	} else if v != "" {
		p := models.Priority(strings.ToLower(v))
		patch.Priority = &p
	}
	due := "-"
	if t.DueDate != nil {
		due = t.DueDate.Local().Format(dateLayout)
	}
	if v, err := promptLine(a.reader, a.out, fmt.Sprintf("Due date [%s]", due)); err != nil {
		return err
	} else if v == "-" {
		patch.ClearDueDate = true
	} else if v != "" {
		d, err := parseDate(v)
		if err != nil {
			return err
		}
		patch.DueDate = d
	}

	if err := a.Tasks.UpdateTask(ctx, t.ID, patch).Err(); err != nil {
		return err
	}
	a.println("Task updated.")
	return nil
}

func (a *App) ToggleTask(ctx context.Context, args []string) error {
	t, err := a.resolveTask(args)
	if err != nil {
		return err
	}
	if err := a.Tasks.ToggleTask(ctx, t.ID).Err(); err != nil {
		return err
	}
	if t.Completed {
		a.printf("Reopened %q.\n", t.Title)
	} else {
		a.printf("Completed %q. Nice work!\n", t.Title)
	}
	return nil
}

func (a *App) DeleteTask(ctx context.Context, args []string) error {
	t, err := a.resolveTask(args)
	if err != nil {
		return err
	}
	if err := a.Tasks.DeleteTask(ctx, t.ID).Err(); err != nil {
		return err
	}
	a.printf("Deleted %q.\n", t.Title)
	return nil
}

// resolveTask finds a loaded task by its 1-based list number or by id.
func (a *App) resolveTask(args []string) (models.Task, error) {
	if len(args) != 1 {
		return models.Task{}, errors.New("expected a task number or id")
	}
	tasks := a.Tasks.Snapshot().Tasks
	if n, err := strconv.Atoi(args[0]); err == nil {
		if n < 1 || n > len(tasks) {
			return models.Task{}, fmt.Errorf("no task #%d", n)
		}
		return tasks[n-1], nil
	}
	for _, t := range tasks {
		if t.ID == args[0] {
			return t, nil
		}
	}
	return models.Task{}, errors.New("task not found")
}

// parseDate reads a local calendar date. Blank input means no date.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &d, nil
}
