package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskdesk/internal/common"
)

// MinTitleLength is the shortest accepted task title, in characters.
const MinTitleLength = 3

// Draft is unvalidated user input for creating or updating a task.
// A nil Status keeps the current status on update and means pending on create.
type Draft struct {
	Title       string
	Description string
	DueDate     *time.Time
	Status      *Status
}

// Validate checks the draft against today's date as seen from now.
// A due date earlier today is accepted; anything before today is not.
func (d Draft) Validate(now time.Time) error {
	fields := map[string]string{}

	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		fields["title"] = "Task title is required"
	case utf8.RuneCountInString(title) < MinTitleLength:
		fields["title"] = "Title must be at least 3 characters long"
	}

	if d.DueDate != nil {
		y, m, day := now.Date()
		today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
		if d.DueDate.Before(today) {
			fields["due_date"] = "Due date cannot be in the past"
		}
	}

	if d.Status != nil && !d.Status.Valid() {
		fields["status"] = "Unknown status"
	}

	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}

// Apply overlays the draft on base and returns the resulting task.
func (d Draft) Apply(base Task) Task {
	base.Title = strings.TrimSpace(d.Title)
	base.Description = d.Description
	base.DueDate = d.DueDate
	if d.Status != nil {
		base.Status = *d.Status
	}
	return base
}
