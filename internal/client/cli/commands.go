package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/common"
)

type command struct {
	name      string
	args      string
	help      string
	auth      bool
	guestOnly bool
	run       func(a *App, ctx context.Context, args []string) error
}

func (c command) usage() string {
	if c.args == "" {
		return c.name
	}
	return c.name + " " + c.args
}

// commandTable lists every REPL command in help order.
var commandTable = []command{
	{name: "register", help: "create an account", guestOnly: true, run: (*App).Register},
	{name: "login", help: "sign in", guestOnly: true, run: (*App).Login},
	{name: "reset", args: "[email]", help: "send a password reset email", guestOnly: true, run: (*App).ResetPassword},
	{name: "logout", help: "sign out", auth: true, run: (*App).Logout},
	{name: "profile", help: "show your profile", auth: true, run: (*App).Profile},
	{name: "rename", args: "<full name>", help: "change your display name", auth: true, run: (*App).Rename},
	{name: "avatar", args: "<image path>", help: "upload a profile picture", auth: true, run: (*App).Avatar},

	{name: "chat", args: "[text]", help: "talk to Kumo", auth: true, run: (*App).Chat},
	{name: "history", help: "show the conversation", auth: true, run: (*App).History},
	{name: "clear", help: "clear the conversation on screen", auth: true, run: (*App).ClearChat},

	{name: "tasks", help: "list tasks", auth: true, run: (*App).ListTasks},
	{name: "addtask", args: "[title]", help: "add a task", auth: true, run: (*App).AddTask},
	{name: "edit", args: "<n|id>", help: "edit a task", auth: true, run: (*App).EditTask},
	{name: "toggle", args: "<n|id>", help: "mark a task done or not done", auth: true, run: (*App).ToggleTask},
	{name: "deltask", args: "<n|id>", help: "delete a task", auth: true, run: (*App).DeleteTask},

	{name: "mood", args: "<label> [note]", help: "log how you feel", auth: true, run: (*App).LogMood},
	{name: "moods", help: "list mood entries", auth: true, run: (*App).ListMoods},
	{name: "today", help: "show today's mood", auth: true, run: (*App).TodayMood},

	{name: "reload", help: "reload data from the backend", auth: true, run: (*App).Reload},
	{name: "webhook-test", args: "[text]", help: "send a test webhook", run: (*App).WebhookTest},
	{name: "stats", help: "show webhook delivery counters", run: (*App).Stats},
}

var commandIndex = func() map[string]command {
	m := make(map[string]command, len(commandTable))
	for _, c := range commandTable {
		m[c.name] = c
	}
	return m
}()

func (a *App) execute(ctx context.Context, name string, args []string) (bool, error) {
	c, ok := commandIndex[strings.ToLower(name)]
	if !ok {
		return false, nil
	}
	if c.auth && !a.isLoggedIn() {
		return true, common.ErrNotAuthenticated
	}
	return true, c.run(a, ctx, args)
}
