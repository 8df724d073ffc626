package stores

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
)

// TaskState is the observable state of a TaskStore. Tasks are newest first.
type TaskState struct {
	Tasks   []models.Task
	Loading bool
	Error   string
}

func cloneTaskState(s TaskState) TaskState {
	s.Tasks = append([]models.Task(nil), s.Tasks...)
	return s
}

// TaskStore mirrors the tasks table. Every mutation is persisted first and
// reflected locally only on success.
type TaskStore struct {
	base
	rows  gateway.Rows
	state *cell[TaskState]
}

// NewTaskStore returns an empty TaskStore.
func NewTaskStore(rows gateway.Rows, opts ...Option) *TaskStore {
	return &TaskStore{
		base:  newBase("tasks", opts),
		rows:  rows,
		state: newCell(TaskState{}, cloneTaskState),
	}
}

// Snapshot returns a copy of the current state.
func (s *TaskStore) Snapshot() TaskState { return s.state.get() }

// Subscribe calls fn after every state change.
func (s *TaskStore) Subscribe(fn func(TaskState)) (unsubscribe func()) {
	return s.state.subscribe(fn)
}

// Close drops observers; later actions fail with common.ErrStoreClosed.
func (s *TaskStore) Close() {
	if s.close() {
		s.state.clearObservers()
	}
}

func (s *TaskStore) start() {
	s.state.update(func(st *TaskState) { st.Loading = true; st.Error = "" })
}

func (s *TaskStore) failWith(ctx context.Context, action string, err error) Result {
	return s.fail(ctx, action, err, func(msg string) {
		s.state.update(func(st *TaskState) { st.Loading = false; st.Error = msg })
	})
}

// LoadTasks replaces the list with the owner's tasks, newest first.
func (s *TaskStore) LoadTasks(ctx context.Context, userID string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.start()
	var tasks []models.Task
	q := gateway.Where("user_id", userID).OrderBy("created_at", false)
	if err := s.rows.Select(ctx, gateway.TableTasks, q, &tasks); err != nil {
		return s.failWith(ctx, "load tasks", err)
	}
	s.state.update(func(st *TaskState) { st.Tasks = tasks; st.Loading = false })
	return ok()
}

// AddTask validates and inserts in, then prepends the stored row.
func (s *TaskStore) AddTask(ctx context.Context, in models.NewTask) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.start()
	in, err = in.Normalize()
	if err != nil {
		return s.failWith(ctx, "add task", err)
	}

	var created models.Task
	if err := s.rows.Insert(ctx, gateway.TableTasks, in, &created); err != nil {
		return s.failWith(ctx, "add task", err)
	}
	s.state.update(func(st *TaskState) {
		st.Tasks = append([]models.Task{created}, st.Tasks...)
		st.Loading = false
	})
	s.notify(notifier.TaskCreated, created)
	return ok()
}

// UpdateTask applies patch to the task and replaces the local entry with
// the stored row.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	return s.updateLocked(ctx, id, patch)
}

func (s *TaskStore) updateLocked(ctx context.Context, id string, patch models.TaskPatch) Result {
	s.start()
	cols, err := patch.Columns()
	if err != nil {
		return s.failWith(ctx, "update task", err)
	}

	var updated models.Task
	if err := s.rows.Update(ctx, gateway.TableTasks, id, cols, &updated); err != nil {
		return s.failWith(ctx, "update task", err)
	}
	s.state.update(func(st *TaskState) {
		for i := range st.Tasks {
			if st.Tasks[i].ID == id {
				st.Tasks[i] = updated
			}
		}
		st.Loading = false
	})
	s.notify(notifier.TaskUpdated, updated)
	return ok()
}

// ToggleTask flips the completed flag of a loaded task. An id that is not
// in the local list is logged and reported without touching the error field.
func (s *TaskStore) ToggleTask(ctx context.Context, id string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	task, found := s.find(id)
	if !found {
		err := errors.New("task not found")
		s.log.Warn(ctx, "toggle task failed", "id", id, "error", err)
		return failed(err)
	}
	return s.updateLocked(ctx, id, models.TaskPatch{Completed: models.BoolPtr(!task.Completed)})
}

// DeleteTask removes the task remotely and then locally.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.start()
	task, known := s.find(id)
	if err := s.rows.Delete(ctx, gateway.TableTasks, id); err != nil {
		return s.failWith(ctx, "delete task", err)
	}
	s.state.update(func(st *TaskState) {
		kept := st.Tasks[:0:0]
		for _, t := range st.Tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		st.Tasks = kept
		st.Loading = false
	})
	if known {
		s.notify(notifier.TaskDeleted, task)
	} else {
		s.log.Debug(ctx, "deleted task was not loaded; no notification", "id", id)
	}
	return ok()
}

func (s *TaskStore) find(id string) (models.Task, bool) {
	for _, t := range s.Snapshot().Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *TaskStore) notify(action notifier.TaskAction, t models.Task) {
	s.sink.Dispatch(notifier.Primary, notifier.TaskPayload(t.Title, action, t.UserID, s.now()))
}
