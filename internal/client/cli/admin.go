package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
)

const (
	adminUsage     = "admin [overview|users|tasks] [-s term] [-f all|pending|completed]"
	recentActivity = 5
)

type adminArgs struct {
	view   string
	search string
	status models.Filter
}

func parseAdminArgs(args []string) (adminArgs, error) {
	out := adminArgs{view: "overview", status: models.FilterAll}
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		out.view, args = args[0], args[1:]
	}
	switch out.view {
	case "overview", "users", "tasks":
	default:
		return out, usageError(adminUsage)
	}

	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("s", "", "search term")
	status := fs.String("f", string(models.FilterAll), "status filter")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		return out, usageError(adminUsage)
	}

	f, ok := models.ParseFilter(*status)
	if !ok {
		return out, usageError(adminUsage)
	}
	out.search, out.status = *search, f
	return out, nil
}

// Admin loads the cross-user overview and prints one of its views.
func (a *App) Admin(ctx context.Context, args []string) error {
	opts, err := parseAdminArgs(args)
	if err != nil {
		return err
	}

	if err := a.admin.LoadOverview(ctx); err != nil {
		if client.IsAuthFailure(err) || !isPartial(err) {
			return err
		}
		if err := a.admin.UsersErr(); err != nil {
			fmt.Fprintf(a.out, "Users unavailable. %s\n", describeError(err))
		}
		if err := a.admin.TasksErr(); err != nil {
			fmt.Fprintf(a.out, "Tasks unavailable. %s\n", describeError(err))
		}
	}

	a.admin.SetSearch(opts.search)
	a.admin.SetStatusFilter(opts.status)

	switch opts.view {
	case "users":
		users := a.admin.FilteredUsers()
		if len(users) == 0 {
			fmt.Fprintln(a.out, "No users found.")
			return nil
		}
		writeUsers(a.out, users)
	case "tasks":
		tasks := a.admin.FilteredTasks()
		if len(tasks) == 0 {
			fmt.Fprintln(a.out, "No tasks found.")
			return nil
		}
		writeTasks(a.out, tasks, timeNow(), true)
	default:
		st := a.admin.Stats()
		fmt.Fprintf(a.out, "Users: %d  Tasks: %d  Completed: %d  Pending: %d  Overdue: %d  Completion: %d%%\n",
			st.TotalUsers, st.TotalTasks, st.Completed, st.Pending, st.Overdue, st.CompletionRate)
		if recent := a.admin.RecentActivity(recentActivity); len(recent) > 0 {
			fmt.Fprintln(a.out, "Recent activity:")
			writeTasks(a.out, recent, timeNow(), true)
		}
	}
	return nil
}

// isPartial reports whether err only carries per-part load failures, in
// which case whatever did load is still worth showing.
func isPartial(err error) bool {
	var le *services.LoadError
	return errors.As(err, &le)
}
