package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected call")

// fakeClient implements client.Client with per-method hooks. A nil hook
// fails the call.
type fakeClient struct {
	mu     sync.Mutex
	token  string
	calls  map[string]int
	tokens []string

	login    func(ctx context.Context, email, password string) (*models.Session, error)
	register func(ctx context.Context, name, email, password string) (*models.Session, error)
	verify   func(ctx context.Context) error
	list     func(ctx context.Context) ([]models.Task, error)
	create   func(ctx context.Context, p client.TaskPayload) (*models.Task, error)
	update   func(ctx context.Context, id int64, p client.TaskPayload) (*models.Task, error)
	del      func(ctx context.Context, id int64) error
	users    func(ctx context.Context) ([]models.User, error)
	allTasks func(ctx context.Context) ([]models.Task, error)
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{calls: map[string]int{}}
}

func (f *fakeClient) called(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeClient) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	f.called("login")
	if f.login == nil {
		return nil, errUnexpectedCall
	}
	return f.login(ctx, email, password)
}

func (f *fakeClient) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	f.called("register")
	if f.register == nil {
		return nil, errUnexpectedCall
	}
	return f.register(ctx, name, email, password)
}

func (f *fakeClient) VerifySession(ctx context.Context) error {
	f.called("verify")
	if f.verify == nil {
		return errUnexpectedCall
	}
	return f.verify(ctx)
}

func (f *fakeClient) ListTasks(ctx context.Context) ([]models.Task, error) {
	f.called("list")
	if f.list == nil {
		return nil, errUnexpectedCall
	}
	return f.list(ctx)
}

func (f *fakeClient) CreateTask(ctx context.Context, p client.TaskPayload) (*models.Task, error) {
	f.called("create")
	if f.create == nil {
		return nil, errUnexpectedCall
	}
	return f.create(ctx, p)
}

func (f *fakeClient) UpdateTask(ctx context.Context, id int64, p client.TaskPayload) (*models.Task, error) {
	f.called("update")
	if f.update == nil {
		return nil, errUnexpectedCall
	}
	return f.update(ctx, id, p)
}

func (f *fakeClient) DeleteTask(ctx context.Context, id int64) error {
	f.called("delete")
	if f.del == nil {
		return errUnexpectedCall
	}
	return f.del(ctx, id)
}

func (f *fakeClient) ListAllUsers(ctx context.Context) ([]models.User, error) {
	f.called("users")
	if f.users == nil {
		return nil, errUnexpectedCall
	}
	return f.users(ctx)
}

func (f *fakeClient) ListAllTasks(ctx context.Context) ([]models.Task, error) {
	f.called("all_tasks")
	if f.allTasks == nil {
		return nil, errUnexpectedCall
	}
	return f.allTasks(ctx)
}

// fakeAuth is a fixed session that counts expirations.
type fakeAuth struct {
	mu      sync.Mutex
	user    *models.User
	expired int
}

func (a *fakeAuth) Current() *models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *fakeAuth) Expire(context.Context) {
	a.mu.Lock()
	a.user = nil
	a.expired++
	a.mu.Unlock()
}

func (a *fakeAuth) Expired() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expired
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) ([]byte, bool) {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	require.NoError(t, err)
	return v, true
}

func setMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

func freezeTime(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func nop() logging.Logger {
	return logging.NewNopLogger()
}

func ptr[T any](v T) *T {
	return &v
}
