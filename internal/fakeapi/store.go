package fakeapi

import (
	"slices"
	"strings"
	"time"
)

type user struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
	// TokenVersion is embedded in issued tokens; bumping it revokes them.
	TokenVersion int
}

type task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	DueDate     *time.Time
	Status      string
	CreatedAt   time.Time
}

// store holds users and tasks. Callers hold Server.mu.
type store struct {
	users      []*user
	tasks      []*task
	nextUserID int64
	nextTaskID int64
}

func (st *store) userByEmail(email string) *user {
	for _, u := range st.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (st *store) userByID(id int64) *user {
	for _, u := range st.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (st *store) addUser(u *user) *user {
	st.nextUserID++
	u.ID = st.nextUserID
	st.users = append(st.users, u)
	return u
}

func (st *store) addTask(t *task) *task {
	st.nextTaskID++
	t.ID = st.nextTaskID
	st.tasks = append(st.tasks, t)
	return t
}

func (st *store) taskByID(id int64) *task {
	for _, t := range st.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (st *store) deleteTask(id int64) {
	st.tasks = slices.DeleteFunc(st.tasks, func(t *task) bool { return t.ID == id })
}

// newestFirst returns tasks matching keep ordered by descending id.
func (st *store) newestFirst(keep func(*task) bool) []*task {
	out := make([]*task, 0, len(st.tasks))
	for i := len(st.tasks) - 1; i >= 0; i-- {
		if keep(st.tasks[i]) {
			out = append(out, st.tasks[i])
		}
	}
	return out
}

func (st *store) countTasks(userID int64) int {
	n := 0
	for _, t := range st.tasks {
		if t.UserID == userID {
			n++
		}
	}
	return n
}
