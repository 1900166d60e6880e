package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/config"
	"github.com/dmitrijs2005/taskdesk/internal/client/platform"
	"github.com/dmitrijs2005/taskdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskdesk/internal/client/services"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
)

// timeNow is the clock used for due-date display.
var timeNow = time.Now

// App is the interactive client: the stores plus the terminal they render to.
type App struct {
	logger logging.Logger
	db     *sql.DB
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer

	session *services.SessionStore
	prefs   *services.PreferenceStore
	tasks   *services.TaskCollection
	admin   *services.AdminOverview

	unsubscribe []func()
}

// NewApp opens local storage and connects the stores to the API named in c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	api := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout, logger.With("component", "api"))
	scheme := platform.NewPoller(c.SchemePollInterval, c.SchemeFile)

	return newApp(api, db, scheme, logger, in, out), nil
}

func newApp(api client.Client, db *sql.DB, scheme platform.SchemeSource, logger logging.Logger, in io.Reader, out io.Writer) *App {
	a := &App{
		logger: logger,
		db:     db,
		in:     in,
		reader: bufio.NewReader(in),
		out:    out,
	}
	a.session = services.NewSessionStore(api, db, logger)
	a.prefs = services.NewPreferenceStore(metadata.NewSQLiteRepository(db), scheme, logger)
	a.tasks = services.NewTaskCollection(api, a.session, logger)
	a.admin = services.NewAdminOverview(api, a.session, logger)

	a.unsubscribe = append(a.unsubscribe, a.session.Subscribe(a.onSession))
	return a
}

// onSession drops per-user state whenever the signed-in identity changes,
// including a login on top of an existing session.
func (a *App) onSession(e services.SessionEvent) {
	switch e.Kind {
	case services.EventLogin, services.EventRestored, services.EventLogout, services.EventExpired:
		a.tasks.Reset()
		a.admin.Reset()
	}
	if e.Kind == services.EventExpired {
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
	}
}

// Run restores the previous session, then serves the REPL until the user
// exits, in is exhausted, or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	a.reader = bufio.NewReader(newCancelReader(ctx, a.in))

	if err := a.prefs.Activate(ctx); err != nil {
		a.logger.Warn(ctx, "theme preference unavailable", "error", err)
	}

	fmt.Fprintln(a.out, "Welcome to taskdesk (type 'help' for commands)")
	if err := a.session.Restore(ctx); err != nil {
		fmt.Fprintln(a.out, "Could not reach the server to restore your session. Log in again when it is back.")
	}
	if u := a.session.Current(); u != nil {
		fmt.Fprintf(a.out, "Signed in as %s.\n", u.Name)
		if msg := describeError(a.tasks.LoadAll(ctx)); msg != "" {
			fmt.Fprintln(a.out, msg)
		}
	}

	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}

// Close detaches the stores and releases local storage. It is safe to call
// more than once.
func (a *App) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.unsubscribe = nil
	a.prefs.Close()
	a.tasks.Close()
	a.admin.Close()
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

func (a *App) isAdmin() bool {
	return a.session.IsAdmin()
}

// status is the prompt decoration: "(user, theme)".
func (a *App) status() string {
	parts := make([]string, 0, 3)
	if u := a.session.Current(); u != nil {
		parts = append(parts, u.Name)
		if u.IsAdmin {
			parts = append(parts, "admin")
		}
	}
	parts = append(parts, string(a.prefs.Get().Resolved))
	return "(" + strings.Join(parts, ", ") + ")"
}
