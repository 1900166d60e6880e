package services

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taskdesk/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stack struct {
	api     *fakeapi.Server
	client  *client.HTTPClient
	session *SessionStore
	tasks   *TaskCollection
	admin   *AdminOverview
	events  []SessionEvent
}

func newStack(t *testing.T) *stack {
	t.Helper()
	api, err := fakeapi.New(fakeapi.Config{Secret: []byte("0123456789abcdef"), BcryptCost: bcrypt.MinCost}, nop())
	require.NoError(t, err)
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	st := &stack{api: api, client: client.NewHTTPClient(ts.URL, 2*time.Second, nop())}
	st.session = NewSessionStore(st.client, setupDB(t), nop())
	st.tasks = NewTaskCollection(st.client, st.session, nop())
	st.admin = NewAdminOverview(st.client, st.session, nop())
	st.session.Subscribe(func(e SessionEvent) {
		st.events = append(st.events, e)
		if e.Kind == EventLogout || e.Kind == EventExpired {
			st.tasks.Reset()
			st.admin.Reset()
		}
	})
	require.NoError(t, st.session.Restore(context.Background()))
	return st
}

func TestEndToEnd_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.session.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	require.NoError(t, st.tasks.LoadAll(ctx))
	assert.True(t, st.tasks.Loaded())
	assert.Empty(t, st.tasks.Tasks())

	created, err := st.tasks.Create(ctx, models.Draft{Title: "Buy milk"})
	require.NoError(t, err)
	found, ok := st.tasks.Find(created.ID)
	require.True(t, ok)
	assert.Equal(t, *created, found)

	once, err := st.tasks.ToggleStatus(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, once.Status)
	twice, err := st.tasks.ToggleStatus(ctx, *once)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, twice.Status)

	require.NoError(t, st.tasks.Remove(ctx, created.ID))
	require.NoError(t, st.tasks.Remove(ctx, created.ID))
	assert.Empty(t, st.tasks.Tasks())
}

func TestEndToEnd_RevokedSessionExpires(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	u, err := st.session.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	_, err = st.tasks.Create(ctx, models.Draft{Title: "Buy milk"})
	require.NoError(t, err)

	st.api.RevokeSessions(u.ID)

	err = st.tasks.LoadAll(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, StateAnonymous, st.session.State())
	assert.Empty(t, st.tasks.Tasks())
	assert.Equal(t, EventExpired, st.events[len(st.events)-1].Kind)

	tok, err := metadata.NewSQLiteRepository(st.session.db).Get(ctx, metadata.KeySessionToken)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestEndToEnd_RestoreAcrossRestart(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	_, err := st.session.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)

	restarted := NewSessionStore(st.client, st.session.db, nop())
	st.client.SetToken("")
	require.NoError(t, restarted.Restore(ctx))
	assert.Equal(t, StateAuthenticated, restarted.State())
	assert.Equal(t, "Ann", restarted.Current().Name)
}

func TestEndToEnd_AdminOverview(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	_, err := st.api.SeedUser("Root", "root@x.io", "rootpass", true)
	require.NoError(t, err)

	_, err = st.session.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@x.io", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	_, err = st.tasks.Create(ctx, models.Draft{Title: "Ann's first"})
	require.NoError(t, err)
	assert.ErrorIs(t, st.admin.LoadOverview(ctx), ErrForbidden)

	st.session.Logout(ctx)
	_, err = st.session.Login(ctx, "root@x.io", "rootpass")
	require.NoError(t, err)
	require.NoError(t, st.admin.LoadOverview(ctx))

	stats := st.admin.Stats()
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 0, stats.CompletionRate)

	st.admin.SetSearch("ANN")
	require.Len(t, st.admin.FilteredTasks(), 1)
	assert.Equal(t, "ann@x.io", st.admin.FilteredTasks()[0].OwnerEmail)
}
