package models

import (
	"math"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggled returns the opposite status.
func (s Status) Toggled() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Task is the canonical record of a task as returned by the API.
// OwnerName and OwnerEmail are only populated in the admin listing.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	DueDate     *time.Time
	Status      Status
	CreatedAt   time.Time
	OwnerName   string
	OwnerEmail  string
}

// Completed reports whether the task is done.
func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// OverdueAt reports whether the due date is strictly before now and the task
// is not completed. A task due exactly at now is not overdue.
func (t Task) OverdueAt(now time.Time) bool {
	if t.DueDate == nil || t.Completed() {
		return false
	}
	return t.DueDate.Before(now)
}

// IsOverdue is the list-view flavour of overdue: a task due earlier today is
// not shown as overdue until the calendar day has passed.
func (t Task) IsOverdue(now time.Time) bool {
	if !t.OverdueAt(now) {
		return false
	}
	return !sameDay(*t.DueDate, now)
}

// DaysUntilDue returns the number of days left until the due date, rounded up.
// The second value is false when the task has no due date.
func (t Task) DaysUntilDue(now time.Time) (int, bool) {
	if t.DueDate == nil {
		return 0, false
	}
	days := t.DueDate.Sub(now).Hours() / 24
	return int(math.Ceil(days)), true
}

// Urgency buckets a task for display.
type Urgency string

const (
	UrgencyCompleted Urgency = "completed"
	UrgencyNone      Urgency = "none"
	UrgencyOverdue   Urgency = "overdue"
	UrgencyDueSoon   Urgency = "due_soon"
	UrgencyUpcoming  Urgency = "upcoming"
	UrgencyNormal    Urgency = "normal"
)

// Urgency classifies the task relative to now.
func (t Task) Urgency(now time.Time) Urgency {
	if t.Completed() {
		return UrgencyCompleted
	}
	days, ok := t.DaysUntilDue(now)
	switch {
	case !ok:
		return UrgencyNone
	case days < 0:
		return UrgencyOverdue
	case days <= 1:
		return UrgencyDueSoon
	case days <= 3:
		return UrgencyUpcoming
	default:
		return UrgencyNormal
	}
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Filter selects a subset of tasks by status.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter maps user input to a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterPending, FilterCompleted:
		return Filter(s), true
	}
	return "", false
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterPending:
		return t.Status == StatusPending
	case FilterCompleted:
		return t.Status == StatusCompleted
	default:
		return true
	}
}

// Counts is a summary of a task collection.
type Counts struct {
	Total     int
	Pending   int
	Completed int
}

// CountTasks computes Counts over tasks.
func CountTasks(tasks []Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusCompleted:
			c.Completed++
		}
	}
	return c
}

// DateLayout is the wire format of a due date.
const DateLayout = "2006-01-02"
