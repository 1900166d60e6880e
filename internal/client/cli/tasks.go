package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
)

// clearValue in an edit prompt empties an optional field.
const clearValue = "-"

func (a *App) requireSession() error {
	if !a.isLoggedIn() {
		return services.ErrNoSession
	}
	return nil
}

// usageError reports a malformed command line; its text is the expected syntax.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func parseID(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, usageError(usage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(usage)
	}
	return id, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return &t, nil
}

// List prints the tasks matching the optional filter together with the
// per-filter counts.
func (a *App) List(_ context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	f := models.FilterAll
	if len(args) > 0 {
		var ok bool
		if f, ok = models.ParseFilter(args[0]); !ok {
			return usageError("list [all|pending|completed]")
		}
	}

	if !a.tasks.Loaded() {
		fmt.Fprintln(a.out, "Tasks are not loaded yet. Use 'reload'.")
		return nil
	}

	c := a.tasks.Counts()
	fmt.Fprintf(a.out, "All (%d)  Pending (%d)  Completed (%d)\n", c.Total, c.Pending, c.Completed)

	tasks := a.tasks.Filter(f)
	if len(tasks) == 0 {
		if f == models.FilterAll {
			fmt.Fprintln(a.out, "No tasks yet. Use 'add' to create one.")
		} else {
			fmt.Fprintf(a.out, "No %s tasks.\n", f)
		}
		return nil
	}
	writeTasks(a.out, tasks, timeNow(), false)
	return nil
}

// Add prompts for a new task and creates it.
func (a *App) Add(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	desc, err := getSimpleText(a.reader, "Description (optional)", a.out)
	if err != nil {
		return err
	}
	rawDue, err := getSimpleText(a.reader, "Due date YYYY-MM-DD (optional)", a.out)
	if err != nil {
		return err
	}
	due, err := parseDate(rawDue)
	if err != nil {
		return err
	}

	t, err := a.tasks.Create(ctx, models.Draft{Title: title, Description: desc, DueDate: due})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created task #%d.\n", t.ID)
	return nil
}

// Edit prompts for new values of task id. An empty answer keeps the current
// value; "-" clears the description or due date.
func (a *App) Edit(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	id, err := parseID(args, "edit <id>")
	if err != nil {
		return err
	}
	cur, ok := a.tasks.Find(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, services.ErrNotFound)
	}

	d := models.Draft{Title: cur.Title, Description: cur.Description, DueDate: cur.DueDate}

	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", cur.Title), a.out)
	if err != nil {
		return err
	}
	if title != "" {
		d.Title = title
	}

	desc, err := getSimpleText(a.reader, fmt.Sprintf("Description [%s] ('-' clears)", cur.Description), a.out)
	if err != nil {
		return err
	}
	switch desc {
	case "":
	case clearValue:
		d.Description = ""
	default:
		d.Description = desc
	}

	rawDue, err := getSimpleText(a.reader, fmt.Sprintf("Due date [%s] ('-' clears)", formatDate(cur.DueDate)), a.out)
	if err != nil {
		return err
	}
	switch rawDue {
	case "":
	case clearValue:
		d.DueDate = nil
	default:
		if d.DueDate, err = parseDate(rawDue); err != nil {
			return err
		}
	}

	t, err := a.tasks.Update(ctx, id, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated task #%d.\n", t.ID)
	return nil
}

// Toggle flips task id between pending and completed.
func (a *App) Toggle(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	id, err := parseID(args, "toggle <id>")
	if err != nil {
		return err
	}
	cur, ok := a.tasks.Find(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, services.ErrNotFound)
	}

	t, err := a.tasks.ToggleStatus(ctx, cur)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Task #%d is now %s.\n", t.ID, t.Status)
	return nil
}

// Delete removes task id after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}
	cur, ok := a.tasks.Find(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, services.ErrNotFound)
	}

	ok, err = Confirm(a.reader, fmt.Sprintf("Delete %q?", cur.Title), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.tasks.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted task #%d.\n", id)
	return nil
}

// Stats prints the signed-in user's task counts.
func (a *App) Stats(_ context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	c := a.tasks.Counts()
	overdue := 0
	now := timeNow()
	for _, t := range a.tasks.Tasks() {
		if t.OverdueAt(now) {
			overdue++
		}
	}
	fmt.Fprintf(a.out, "Total: %d\nPending: %d\nCompleted: %d\nOverdue: %d\n", c.Total, c.Pending, c.Completed, overdue)
	return nil
}

// Reload refetches the task list from the server.
func (a *App) Reload(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.tasks.LoadAll(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d tasks.\n", len(a.tasks.Tasks()))
	return nil
}
