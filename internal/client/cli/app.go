package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
	"github.com/dmitrijs2005/kumo/internal/client/stores"
	"github.com/dmitrijs2005/kumo/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Webhooks sends notifications synchronously and reports delivery counters.
// *notifier.Dispatcher implements it.
type Webhooks interface {
	Send(ctx context.Context, ep notifier.Endpoint, p notifier.Payload) notifier.Result
	Stats() notifier.Stats
}

// Deps are the collaborators App drives. Webhooks may be nil, in which case
// webhook-test and stats report that webhooks are off.
type Deps struct {
	Auth         gateway.Auth
	Session      *stores.SessionStore
	Conversation *stores.ConversationStore
	Tasks        *stores.TaskStore
	Moods        *stores.MoodStore
	Webhooks     Webhooks
	Log          logging.Logger
	Now          func() time.Time
}

type App struct {
	Deps

	reader *bufio.Reader
	out    io.Writer

	mu   sync.Mutex
	mode Mode
}

// NewApp builds an App reading from stdin and writing to stdout.
func NewApp(d Deps) *App {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &App{Deps: d, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Mode returns the connectivity mode last observed by the watcher.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.Log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.Session.Identity() != nil
}

func (a *App) userID() string {
	if id := a.Session.Identity(); id != nil {
		return id.ID
	}
	return ""
}

// Run restores the session, starts the connectivity watcher and blocks in
// the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context, onlineCheck time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.checkOnline(ctx)
	if res := a.Session.Initialize(ctx); !res.Success {
		a.printf("Could not restore session: %s\n", res.Error)
	}
	if a.isLoggedIn() {
		a.printf("Welcome back, %s\n", a.Session.Identity().DisplayName())
		a.reload(ctx)
	}

	go a.StartOnlineStatusWatcher(ctx, onlineCheck)

	a.println("Kumo CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// StartOnlineStatusWatcher pings the backend every interval until ctx is
// done, updating Mode on each transition.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.Auth.Ping(pingCtx)
	cancel()

	if err != nil {
		a.Log.Debug(ctx, "ping failed", "error", err)
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// Reload is the REPL form of reload with a summary line.
func (a *App) Reload(ctx context.Context, _ []string) error {
	a.reload(ctx)
	a.printf("Loaded %d tasks, %d moods, %d messages.\n",
		len(a.Tasks.Snapshot().Tasks), len(a.Moods.Snapshot().Moods), len(a.Conversation.Snapshot().Messages))
	return nil
}

// reload fetches tasks, moods and chat history for the signed-in user.
func (a *App) reload(ctx context.Context) {
	uid := a.userID()
	if uid == "" {
		return
	}
	loads := []struct {
		name string
		res  stores.Result
	}{
		{"tasks", a.Tasks.LoadTasks(ctx, uid)},
		{"moods", a.Moods.LoadMoods(ctx, uid)},
		{"messages", a.Conversation.LoadMessages(ctx, uid)},
	}
	for _, l := range loads {
		if !l.res.Success {
			a.printf("Could not load %s: %s\n", l.name, l.res.Error)
		}
	}
}

func (a *App) getStatus() string {
	var parts []string
	if id := a.Session.Identity(); id != nil {
		parts = append(parts, id.DisplayName())
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}
