package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

// TaskCollection is the signed-in user's tasks in server order, newest
// first. Mutations are applied locally only after the server confirms them.
type TaskCollection struct {
	client client.Client
	auth   Authorizer
	logger logging.Logger

	group singleflight.Group

	mu         sync.Mutex
	tasks      []models.Task
	loaded     bool
	generation uint64
	closed     bool
	busy       map[int64]struct{}

	observers observers[struct{}]
}

func NewTaskCollection(c client.Client, auth Authorizer, logger logging.Logger) *TaskCollection {
	return &TaskCollection{
		client: c,
		auth:   auth,
		logger: logger.With("component", "tasks"),
		busy:   map[int64]struct{}{},
	}
}

// Subscribe registers fn to be called after every change to the collection.
func (s *TaskCollection) Subscribe(fn func()) (unsubscribe func()) {
	return s.observers.add(func(struct{}) { fn() })
}

func (s *TaskCollection) changed() {
	s.observers.notify(struct{}{})
}

// begin checks the session and returns the generation the call belongs to.
func (s *TaskCollection) begin() (uint64, error) {
	if s.auth.Current() == nil {
		return 0, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrDetached
	}
	return s.generation, nil
}

// currentLocked reports whether results for gen may still be applied. Caller
// holds s.mu.
func (s *TaskCollection) currentLocked(gen uint64) bool {
	return !s.closed && s.generation == gen
}

func (s *TaskCollection) remoteFailed(ctx context.Context, op string, err error) error {
	s.logger.Warn(ctx, op+" failed", "error", err)
	if client.IsAuthFailure(err) {
		s.auth.Expire(ctx)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// LoadAll replaces the collection with the server's list. Overlapping calls
// share one fetch. On failure the previous collection is kept.
func (s *TaskCollection) LoadAll(ctx context.Context) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	// The fetch is shared, so it must outlive any single caller's context.
	// Each caller still stops waiting when its own ctx is done.
	ch := s.group.DoChan(fmt.Sprintf("tasks/%d", gen), func() (any, error) {
		return s.client.ListTasks(context.WithoutCancel(ctx))
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	v, err := res.Val, res.Err

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return ErrDetached
	}
	s.loaded = true
	if err == nil {
		s.tasks = slices.Clone(v.([]models.Task))
	}
	s.mu.Unlock()

	if err != nil {
		s.changed()
		return s.remoteFailed(ctx, "load tasks", err)
	}
	s.logger.Debug(ctx, "tasks loaded", "count", len(v.([]models.Task)))
	s.changed()
	return nil
}

// Create validates d, creates the task remotely and prepends the server's
// version to the collection.
func (s *TaskCollection) Create(ctx context.Context, d models.Draft) (*models.Task, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}
	if err := d.Validate(timeNow()); err != nil {
		return nil, err
	}

	t, err := s.client.CreateTask(ctx, payload(d.Apply(models.Task{})))
	if err != nil {
		return nil, s.remoteFailed(ctx, "create task", err)
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return nil, ErrDetached
	}
	s.tasks = append([]models.Task{*t}, s.tasks...)
	s.mu.Unlock()

	s.changed()
	out := *t
	return &out, nil
}

// Update validates d and replaces task id with the server's version, in
// place. Fields the draft does not carry come from the local copy.
func (s *TaskCollection) Update(ctx context.Context, id int64, d models.Draft) (*models.Task, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}
	if err := d.Validate(timeNow()); err != nil {
		return nil, err
	}

	base, release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.replace(ctx, gen, "update task", d.Apply(base))
}

// ToggleStatus flips the status of t, using the local copy of the task as
// the source of every other field. No draft validation applies, so a task
// whose due date has passed can still be completed.
func (s *TaskCollection) ToggleStatus(ctx context.Context, t models.Task) (*models.Task, error) {
	gen, err := s.begin()
	if err != nil {
		return nil, err
	}

	base, release, err := s.acquire(t.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	base.Status = base.Status.Toggled()
	return s.replace(ctx, gen, "toggle task", base)
}

func (s *TaskCollection) replace(ctx context.Context, gen uint64, op string, want models.Task) (*models.Task, error) {
	t, err := s.client.UpdateTask(ctx, want.ID, payload(want))
	if err != nil {
		return nil, s.remoteFailed(ctx, op, err)
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return nil, ErrDetached
	}
	if i := s.indexLocked(want.ID); i >= 0 {
		s.tasks[i] = *t
	}
	s.mu.Unlock()

	s.changed()
	out := *t
	return &out, nil
}

// Remove deletes task id. Removing a task that is not in the collection, or
// that the server no longer has, succeeds.
func (s *TaskCollection) Remove(ctx context.Context, id int64) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	_, release, err := s.acquire(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer release()

	if err := s.client.DeleteTask(ctx, id); err != nil && !errors.Is(err, client.ErrNotFound) {
		return s.remoteFailed(ctx, "delete task", err)
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return ErrDetached
	}
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// acquire marks id busy and returns the local copy of the task.
func (s *TaskCollection) acquire(id int64) (models.Task, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Task{}, nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if _, ok := s.busy[id]; ok {
		return models.Task{}, nil, fmt.Errorf("task %d: %w", id, ErrBusy)
	}
	s.busy[id] = struct{}{}

	return s.tasks[i], func() {
		s.mu.Lock()
		delete(s.busy, id)
		s.mu.Unlock()
	}, nil
}

func (s *TaskCollection) indexLocked(id int64) int {
	return slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
}

// Tasks returns a copy of the collection.
func (s *TaskCollection) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// Filter returns the tasks matching f, in collection order.
func (s *TaskCollection) Filter(f models.Filter) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *TaskCollection) Counts() models.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CountTasks(s.tasks)
}

func (s *TaskCollection) Find(id int64) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return models.Task{}, false
}

// Loaded reports whether a load has completed since the last reset.
func (s *TaskCollection) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Reset empties the collection. Results of calls started before Reset are
// discarded.
func (s *TaskCollection) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.loaded = false
	s.generation++
	s.mu.Unlock()
	s.changed()
}

// Close detaches the store; later calls fail with ErrDetached.
func (s *TaskCollection) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()
}

func payload(t models.Task) client.TaskPayload {
	return client.TaskPayload{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      t.Status,
	}
}
