package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

type userJSON struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
	TaskCount *int   `json:"task_count,omitempty"`
}

type taskJSON struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UserName    string  `json:"user_name,omitempty"`
	UserEmail   string  `json:"user_email,omitempty"`
}

type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
}

func toUserJSON(u *user, taskCount *int) userJSON {
	return userJSON{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		TaskCount: taskCount,
	}
}

func toTaskJSON(t *task, owner *user) taskJSON {
	out := taskJSON{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		out.DueDate = &d
	}
	if owner != nil {
		out.UserName = owner.Name
		out.UserEmail = owner.Email
	}
	return out
}

// parseDue accepts a date, an RFC 3339 timestamp, null or "".
func parseDue(s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r.Context())

	s.mu.Lock()
	tasks := s.data.newestFirst(func(t *task) bool { return t.UserID == uid })
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskJSON(t, nil))
	}
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) readTask(w http.ResponseWriter, r *http.Request) (taskRequest, *time.Time, bool) {
	var in taskRequest
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid request body")
		return in, nil, false
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "Title is required")
		return in, nil, false
	}
	due, ok := parseDue(in.DueDate)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "Invalid due date")
		return in, nil, false
	}
	switch in.Status {
	case "", "pending", "completed":
	default:
		s.writeError(w, r, http.StatusBadRequest, "validation_error", "Invalid status")
		return in, nil, false
	}
	return in, due, true
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	in, due, ok := s.readTask(w, r)
	if !ok {
		return
	}
	status := in.Status
	if status == "" {
		status = "pending"
	}

	s.mu.Lock()
	t := s.data.addTask(&task{
		UserID:      userIDFrom(r.Context()),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     due,
		Status:      status,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	})
	out := toTaskJSON(t, nil)
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusCreated, out)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid task id")
		return
	}
	in, due, ok := s.readTask(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	t := s.data.taskByID(id)
	if t == nil || t.UserID != userIDFrom(r.Context()) {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "not_found", "Task not found")
		return
	}
	t.Title = in.Title
	t.Description = in.Description
	t.DueDate = due
	if in.Status != "" {
		t.Status = in.Status
	}
	out := toTaskJSON(t, nil)
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid task id")
		return
	}

	s.mu.Lock()
	t := s.data.taskByID(id)
	if t == nil || t.UserID != userIDFrom(r.Context()) {
		s.mu.Unlock()
		s.writeError(w, r, http.StatusNotFound, "not_found", "Task not found")
		return
	}
	s.data.deleteTask(id)
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]userJSON, 0, len(s.data.users))
	for i := len(s.data.users) - 1; i >= 0; i-- {
		u := s.data.users[i]
		n := s.data.countTasks(u.ID)
		out = append(out, toUserJSON(u, &n))
	}
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAdminTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tasks := s.data.newestFirst(func(*task) bool { return true })
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskJSON(t, s.data.userByID(t.UserID)))
	}
	s.mu.Unlock()

	s.writeJSON(w, r, http.StatusOK, out)
}
