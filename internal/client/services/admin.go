package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Stats is the admin summary over every user's tasks.
type Stats struct {
	TotalUsers     int
	TotalTasks     int
	Completed      int
	Pending        int
	CompletionRate int
	Overdue        int
}

// ComputeStats summarizes users and tasks. CompletionRate is a rounded
// percentage and zero when there are no tasks.
func ComputeStats(users []models.User, tasks []models.Task, now time.Time) Stats {
	c := models.CountTasks(tasks)
	st := Stats{
		TotalUsers: len(users),
		TotalTasks: c.Total,
		Completed:  c.Completed,
		Pending:    c.Pending,
	}
	if c.Total > 0 {
		st.CompletionRate = int(math.Round(float64(c.Completed) / float64(c.Total) * 100))
	}
	for _, t := range tasks {
		if t.OverdueAt(now) {
			st.Overdue++
		}
	}
	return st
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

// FilterTasks keeps tasks matching status whose title or owner name
// contains term, ignoring case.
func FilterTasks(tasks []models.Task, term string, status models.Filter) []models.Task {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !status.Match(t) {
			continue
		}
		if term != "" && !containsFold(t.Title, term) && !containsFold(t.OwnerName, term) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterUsers keeps users whose name or email contains term, ignoring case.
func FilterUsers(users []models.User, term string) []models.User {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if term == "" || containsFold(u.Name, term) || containsFold(u.Email, term) {
			out = append(out, u)
		}
	}
	return out
}

type overview struct {
	users    []models.User
	tasks    []models.Task
	usersErr error
	tasksErr error
}

// AdminOverview is the read-only view over every user and task.
type AdminOverview struct {
	client client.Client
	auth   Authorizer
	logger logging.Logger

	group singleflight.Group

	mu         sync.Mutex
	users      []models.User
	tasks      []models.Task
	usersErr   error
	tasksErr   error
	loaded     bool
	search     string
	status     models.Filter
	generation uint64
	closed     bool
}

func NewAdminOverview(c client.Client, auth Authorizer, logger logging.Logger) *AdminOverview {
	return &AdminOverview{
		client: c,
		auth:   auth,
		logger: logger.With("component", "admin"),
		status: models.FilterAll,
	}
}

// LoadOverview fetches users and tasks concurrently. A part that fails keeps
// its previous data and reports its error through UsersErr or TasksErr; the
// other part is still applied.
func (s *AdminOverview) LoadOverview(ctx context.Context) error {
	u := s.auth.Current()
	if u == nil {
		return ErrNoSession
	}
	if !u.IsAdmin {
		return ErrForbidden
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrDetached
	}
	gen := s.generation
	s.mu.Unlock()

	ch := s.group.DoChan(fmt.Sprintf("overview/%d", gen), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx)), nil
	})
	var shared singleflight.Result
	select {
	case shared = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	res := shared.Val.(*overview)

	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return ErrDetached
	}
	if res.usersErr == nil {
		s.users = res.users
	}
	if res.tasksErr == nil {
		s.tasks = res.tasks
	}
	s.usersErr, s.tasksErr = res.usersErr, res.tasksErr
	s.loaded = true
	s.mu.Unlock()

	var errs []error
	if res.usersErr != nil {
		errs = append(errs, &LoadError{Part: "users", Err: res.usersErr})
	}
	if res.tasksErr != nil {
		errs = append(errs, &LoadError{Part: "tasks", Err: res.tasksErr})
	}
	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warn(ctx, "admin overview incomplete", "error", err)
		if client.IsAuthFailure(err) {
			s.auth.Expire(ctx)
		}
	}
	return err
}

func (s *AdminOverview) fetch(ctx context.Context) *overview {
	res := &overview{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.users, res.usersErr = s.client.ListAllUsers(ctx)
	}()
	go func() {
		defer wg.Done()
		res.tasks, res.tasksErr = s.client.ListAllTasks(ctx)
	}()
	wg.Wait()
	return res
}

func (s *AdminOverview) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

func (s *AdminOverview) AllTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *AdminOverview) UsersErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersErr
}

func (s *AdminOverview) TasksErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksErr
}

func (s *AdminOverview) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *AdminOverview) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.users, s.tasks, timeNow())
}

func (s *AdminOverview) SetSearch(term string) {
	s.mu.Lock()
	s.search = term
	s.mu.Unlock()
}

// SetStatusFilter sets the status criterion for FilteredTasks. Users are
// not affected.
func (s *AdminOverview) SetStatusFilter(f models.Filter) {
	s.mu.Lock()
	s.status = f
	s.mu.Unlock()
}

func (s *AdminOverview) Search() (string, models.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search, s.status
}

func (s *AdminOverview) FilteredTasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterTasks(s.tasks, s.search, s.status)
}

func (s *AdminOverview) FilteredUsers() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterUsers(s.users, s.search)
}

// RecentActivity returns the first n tasks in server order.
func (s *AdminOverview) RecentActivity(n int) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 {
		n = 0
	}
	return slices.Clone(s.tasks[:min(n, len(s.tasks))])
}

// Reset drops loaded data and filters. In-flight loads are discarded.
func (s *AdminOverview) Reset() {
	s.mu.Lock()
	s.users, s.tasks = nil, nil
	s.usersErr, s.tasksErr = nil, nil
	s.loaded = false
	s.search, s.status = "", models.FilterAll
	s.generation++
	s.mu.Unlock()
}

func (s *AdminOverview) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()
}
