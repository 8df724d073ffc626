package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("X", 3600))

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "2025-03-04T04:06:07.890Z", Timestamp(fixed))
}

func TestPayloadBuilders(t *testing.T) {
	m := MessagePayload("hola", "u1", fixed)
	assert.Equal(t, Payload{Message: "hola", UserID: "u1", Timestamp: "2025-03-04T04:06:07.890Z"}, m)
	assert.Equal(t, "message", m.Type())

	tp := TestPayload("ping", "u1", fixed)
	assert.Equal(t, map[string]any{"test": true}, tp.Metadata)

	note := "slept well"
	mp := MoodPayload("happy", "u1", &note, fixed)
	assert.Equal(t, "Mood update: happy", mp.Message)
	assert.Equal(t, map[string]any{"type": "mood_update", "mood": "happy", "note": "slept well"}, mp.Metadata)
	_, hasNote := MoodPayload("sad", "u1", nil, fixed).Metadata["note"]
	assert.False(t, hasNote)

	task := TaskPayload("Walk", TaskDeleted, "u1", fixed)
	assert.Equal(t, "Task deleted: Walk", task.Message)
	assert.Equal(t, "task_update", task.Type())
	assert.Equal(t, "Walk", task.Metadata["taskTitle"])
}

func TestPayload_JSONShape(t *testing.T) {
	b, err := json.Marshal(Payload{Message: "m", Timestamp: "ts"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"m","timestamp":"ts"}`, string(b))

	b, err = json.Marshal(MoodPayload("sad", "u1", nil, fixed))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Mood update: sad","userId":"u1","timestamp":"2025-03-04T04:06:07.890Z","metadata":{"type":"mood_update","mood":"sad"}}`, string(b))
}

func TestWebhook_PostsJSONToSelectedEndpoint(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]Payload{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		paths[r.URL.Path] = p
		mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL+"/hook", srv.URL+"/hook-test", nil)

	res := w.Notify(context.Background(), Primary, MessagePayload("hi", "u1", fixed))
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t, `{"ok":true}`, string(res.Data))

	res = w.Notify(context.Background(), Test, TestPayload("ping", "u1", fixed))
	require.True(t, res.Success)

	assert.Equal(t, "hi", paths["/hook"].Message)
	assert.Equal(t, true, paths["/hook-test"].Metadata["test"])
}

func TestWebhook_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/500":
			w.WriteHeader(http.StatusInternalServerError)
		case "/html":
			_, _ = io.WriteString(w, "<html>")
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()
	ctx := context.Background()
	p := MessagePayload("x", "u1", fixed)

	res := NewWebhook(srv.URL+"/500", "", nil).Notify(ctx, Primary, p)
	assert.False(t, res.Success)
	assert.Equal(t, "HTTP error! status: 500", res.Error)

	res = NewWebhook(srv.URL+"/html", "", nil).Notify(ctx, Primary, p)
	assert.False(t, res.Success)

	res = NewWebhook(srv.URL+"/empty", "", nil).Notify(ctx, Primary, p)
	assert.True(t, res.Success)

	res = NewWebhook(srv.URL+"/empty", "", nil).Notify(ctx, Test, p)
	assert.False(t, res.Success)
	assert.Equal(t, "test webhook not configured", res.Error)

	srv.Close()
	res = NewWebhook(srv.URL+"/empty", "", nil).Notify(ctx, Primary, p)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

type fakeNotifier struct {
	mu    sync.Mutex
	got   []Payload
	fail  bool
	delay time.Duration
}

func (f *fakeNotifier) Notify(ctx context.Context, ep Endpoint, p Payload) Result {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.got = append(f.got, p)
	f.mu.Unlock()
	if f.fail {
		return Result{Error: "down"}
	}
	return Result{Success: true}
}

func TestDispatcher_BackgroundDeliveryAndStats(t *testing.T) {
	fn := &fakeNotifier{delay: 5 * time.Millisecond}
	d := NewDispatcher(fn, time.Second, nil)

	for i := 0; i < 5; i++ {
		d.Dispatch(Primary, MessagePayload("m", "u1", fixed))
	}
	d.Wait()

	assert.Len(t, fn.got, 5)
	assert.Equal(t, Stats{Sent: 5}, d.Stats())
}

func TestDispatcher_FailuresCountedAndCloseDrops(t *testing.T) {
	fn := &fakeNotifier{fail: true}
	d := NewDispatcher(fn, time.Second, nil)

	res := d.Send(context.Background(), Test, TestPayload("ping", "u1", fixed))
	assert.False(t, res.Success)

	d.Dispatch(Primary, MessagePayload("m", "u1", fixed))
	d.Close()
	d.Dispatch(Primary, MessagePayload("late", "u1", fixed))

	assert.Len(t, fn.got, 2)
	assert.Equal(t, Stats{Failed: 3}, d.Stats())
}
