package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/common"
)

// describeError turns a command error into the line shown to the user. An
// empty result means nothing should be printed.
func describeError(err error) string {
	if err == nil {
		return ""
	}

	var ue usageError
	if errors.As(err, &ue) {
		return "Usage: " + string(ue)
	}

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve.Fields))
		for _, f := range []string{"name", "email", "title", "due_date", "status", "password", "confirm_password"} {
			if m := ve.Field(f); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "\n")
	}

	switch {
	case errors.Is(err, services.ErrDetached):
		return ""
	case errors.Is(err, client.ErrUnauthorized):
		// The session observer prints the expiry notice.
		return ""
	case errors.Is(err, client.ErrInvalidCredentials):
		if msg, ok := client.Message(err); ok {
			return msg
		}
		return "Invalid credentials"
	case errors.Is(err, services.ErrNoSession):
		return "Please log in first."
	case errors.Is(err, services.ErrForbidden):
		return "Admin access required."
	case errors.Is(err, services.ErrBusy):
		return "That task is already being updated. Try again in a moment."
	case errors.Is(err, client.ErrNotFound):
		return "Task not found."
	case errors.Is(err, client.ErrUnavailable):
		return "Cannot reach the server. Please try again."
	case errors.Is(err, client.ErrBadResponse):
		return "The server sent an unexpected response."
	}
	var se *client.ServerError
	if errors.As(err, &se) && se.StatusCode < 500 && se.Message != "" {
		return se.Message
	}
	if msg, ok := client.Message(err); ok {
		return "Server error: " + msg
	}
	return "Error: " + err.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(models.DateLayout)
}

// dueLabel describes the due date of t relative to now.
func dueLabel(t models.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	label := "due " + formatDate(t.DueDate)
	switch t.Urgency(now) {
	case models.UrgencyOverdue:
		label += " (overdue)"
	case models.UrgencyDueSoon:
		if days, _ := t.DaysUntilDue(now); days <= 0 {
			label += " (today)"
		} else {
			label += " (tomorrow)"
		}
	case models.UrgencyUpcoming:
		days, _ := t.DaysUntilDue(now)
		label += fmt.Sprintf(" (in %d days)", days)
	}
	return label
}

func checkbox(t models.Task) string {
	if t.Completed() {
		return "[x]"
	}
	return "[ ]"
}

func writeTasks(w io.Writer, tasks []models.Task, now time.Time, withOwner bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range tasks {
		fields := []string{checkbox(t), fmt.Sprintf("#%d", t.ID), t.Title, dueLabel(t, now)}
		if withOwner {
			fields = append(fields, fmt.Sprintf("%s <%s>", t.OwnerName, t.OwnerEmail))
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
		if t.Description != "" && !withOwner {
			fmt.Fprintf(tw, "\t\t  %s\n", t.Description)
		}
	}
	_ = tw.Flush()
}

func writeUsers(w io.Writer, users []models.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tTASKS\tJOINED")
	for _, u := range users {
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		joined := ""
		if !u.CreatedAt.IsZero() {
			joined = u.CreatedAt.Local().Format(models.DateLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Email, role, u.TaskCount, joined)
	}
	_ = tw.Flush()
}
