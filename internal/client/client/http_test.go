package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method  string
	path    string
	auth    string
	reqID   string
	ctype   string
	body    map[string]any
	rawBody []byte
}

func newTestServer(t *testing.T, status int, response string, got *captured) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.method = r.Method
			got.path = r.URL.Path
			got.auth = r.Header.Get("Authorization")
			got.reqID = r.Header.Get("X-Request-ID")
			got.ctype = r.Header.Get("Content-Type")
			got.rawBody, _ = io.ReadAll(r.Body)
			if len(got.rawBody) > 0 {
				_ = json.Unmarshal(got.rawBody, &got.body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL+"/", 2*time.Second, logging.NewNopLogger())
}

func TestLogin_Success(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusOK,
		`{"user":{"id":7,"name":"Ann","email":"ann@example.com","is_admin":1,"created_at":"2024-03-01T10:00:00Z"},"token":"tok"}`, &got)

	s, err := c.Login(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/auth/login", got.path)
	assert.Empty(t, got.auth, "no token before login")
	assert.NotEmpty(t, got.reqID)
	assert.Equal(t, "application/json", got.ctype)
	assert.Equal(t, map[string]any{"email": "ann@example.com", "password": "secret1"}, got.body)

	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, int64(7), s.User.ID)
	assert.True(t, s.User.IsAdmin)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), s.User.CreatedAt.UTC())
}

func TestLogin_InvalidCredentialsCarriesServerMessage(t *testing.T) {
	c := newTestServer(t, http.StatusUnauthorized, `{"error":"Invalid email or password"}`, nil)

	_, err := c.Login(context.Background(), "ann@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.False(t, errors.Is(err, ErrUnauthorized))

	msg, ok := Message(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid email or password", msg)
}

func TestRegister_ConflictIsServerError(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusConflict, `{"error":"conflict","message":"User already exists"}`, &got)

	_, err := c.Register(context.Background(), "Ann", "ann@example.com", "secret1")
	require.ErrorIs(t, err, ErrServer)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.Equal(t, "User already exists", se.Message)
	assert.Equal(t, "/auth/register", got.path)
	assert.Equal(t, "Ann", got.body["name"])
}

func TestRegister_BadRequestIsNotInvalidCredentials(t *testing.T) {
	c := newTestServer(t, http.StatusBadRequest, `{"message":"User already exists"}`, nil)

	_, err := c.Register(context.Background(), "Ann", "ann@example.com", "secret1")
	require.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	msg, ok := Message(err)
	assert.True(t, ok)
	assert.Equal(t, "User already exists", msg)
}

func TestLogin_BadRequestIsInvalidCredentials(t *testing.T) {
	c := newTestServer(t, http.StatusBadRequest, `{"message":"Email is required"}`, nil)

	_, err := c.Login(context.Background(), "", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ResponseWithoutTokenIsBadResponse(t *testing.T) {
	c := newTestServer(t, http.StatusOK, `{"user":{"id":1,"name":"a","email":"a@b"}}`, nil)

	_, err := c.Login(context.Background(), "a@b", "secret1")
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestListTasks_AttachesTokenAndDecodes(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusOK, `[
		{"id":2,"user_id":1,"title":"Write report","description":null,"due_date":"2030-05-01","status":"pending","created_at":"2024-01-02 03:04:05"},
		{"id":1,"user_id":1,"title":"Buy milk","status":"completed","created_at":"2024-01-01T00:00:00.000Z"}
	]`, &got)
	c.SetToken("abc")

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc", got.auth)
	assert.Equal(t, http.MethodGet, got.method)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(2), tasks[0].ID)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2030-05-01", tasks[0].DueDate.Format(models.DateLayout))
	assert.Empty(t, tasks[0].Description)
	assert.Equal(t, models.StatusCompleted, tasks[1].Status)
	assert.Nil(t, tasks[1].DueDate)
}

func TestListTasks_RejectsUnknownStatus(t *testing.T) {
	c := newTestServer(t, http.StatusOK, `[{"id":1,"title":"x y z","status":"archived"}]`, nil)

	_, err := c.ListTasks(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestListTasks_RejectsGarbage(t *testing.T) {
	c := newTestServer(t, http.StatusOK, `{"not":"an array"}`, nil)

	_, err := c.ListTasks(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestResourceStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "401", status: http.StatusUnauthorized, body: `{"error":"Invalid token"}`, want: ErrUnauthorized},
		{name: "403", status: http.StatusForbidden, body: `{"error":"Admin only"}`, want: ErrUnauthorized},
		{name: "404", status: http.StatusNotFound, body: `{"error":"Task not found"}`, want: ErrNotFound},
		{name: "500", status: http.StatusInternalServerError, body: `oops`, want: ErrServer},
		{name: "503", status: http.StatusServiceUnavailable, body: ``, want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.status, tt.body, nil)
			_, err := c.UpdateTask(context.Background(), 5, TaskPayload{Title: "abc", Status: models.StatusPending})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServerMessageFallsBackToStatusText(t *testing.T) {
	c := newTestServer(t, http.StatusInternalServerError, `not json`, nil)

	_, err := c.ListAllUsers(context.Background())
	msg, ok := Message(err)
	require.True(t, ok)
	assert.Equal(t, "Internal Server Error", msg)
}

func TestCreateTask_Payload(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusCreated,
		`{"id":1,"user_id":3,"title":"Buy milk","status":"pending","created_at":"2024-06-01T08:00:00Z"}`, &got)

	due := time.Date(2030, 1, 15, 0, 0, 0, 0, time.Local)
	task, err := c.CreateTask(context.Background(), TaskPayload{Title: "Buy milk", DueDate: &due})
	require.NoError(t, err)

	assert.Equal(t, "/tasks", got.path)
	assert.Equal(t, "Buy milk", got.body["title"])
	assert.Equal(t, "2030-01-15", got.body["due_date"])
	_, hasStatus := got.body["status"]
	assert.False(t, hasStatus, "create must not send a status")
	assert.Equal(t, int64(1), task.ID)
}

func TestUpdateTask_SendsFullFieldsAndNullDueDate(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusOK, `{"id":9,"title":"Renamed","status":"completed"}`, &got)

	_, err := c.UpdateTask(context.Background(), 9, TaskPayload{Title: "Renamed", Status: models.StatusCompleted})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/tasks/9", got.path)
	assert.Equal(t, "completed", got.body["status"])
	assert.Equal(t, "", got.body["description"])
	v, present := got.body["due_date"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestDeleteTask_EmptyBody(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusNoContent, ``, &got)

	require.NoError(t, c.DeleteTask(context.Background(), 4))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/tasks/4", got.path)
}

func TestAdminListings(t *testing.T) {
	t.Run("users", func(t *testing.T) {
		var got captured
		c := newTestServer(t, http.StatusOK, `[{"id":1,"name":"Ann","email":"a@x","is_admin":true,"task_count":3,"created_at":"2024-01-01"}]`, &got)
		users, err := c.ListAllUsers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/tasks/admin/users", got.path)
		require.Len(t, users, 1)
		assert.Equal(t, 3, users[0].TaskCount)
	})

	t.Run("tasks", func(t *testing.T) {
		var got captured
		c := newTestServer(t, http.StatusOK, `[{"id":1,"user_id":2,"title":"Ship it","status":"pending","user_name":"Bob","user_email":"bob@x"}]`, &got)
		tasks, err := c.ListAllTasks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/tasks/admin/all-tasks", got.path)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Bob", tasks[0].OwnerName)
		assert.Equal(t, "bob@x", tasks[0].OwnerEmail)
	})

	t.Run("negative task count rejected", func(t *testing.T) {
		c := newTestServer(t, http.StatusOK, `[{"id":1,"name":"Ann","email":"a@x","task_count":-1}]`, nil)
		_, err := c.ListAllUsers(context.Background())
		require.ErrorIs(t, err, ErrBadResponse)
	})
}

func TestVerifySession(t *testing.T) {
	ok := newTestServer(t, http.StatusOK, `[]`, nil)
	require.NoError(t, ok.VerifySession(context.Background()))

	expired := newTestServer(t, http.StatusUnauthorized, `{"error":"Token expired"}`, nil)
	require.ErrorIs(t, expired.VerifySession(context.Background()), ErrUnauthorized)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewHTTPClient(url, time.Second, logging.NewNopLogger())
	_, err := c.ListTasks(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeoutIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 30*time.Millisecond, logging.NewNopLogger())
	_, err := c.ListTasks(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSetToken_ClearStopsSendingHeader(t *testing.T) {
	var got captured
	c := newTestServer(t, http.StatusOK, `[]`, &got)

	c.SetToken("abc")
	c.SetToken("")
	_, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.auth)
	assert.Empty(t, c.Token())
}
