package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
)

// TaskPayload is the body of create and update calls. Update sends every
// field; create leaves Status empty.
type TaskPayload struct {
	Title       string
	Description string
	DueDate     *time.Time
	Status      models.Status
}

// Client is the remote task API as seen by the stores.
type Client interface {
	// SetToken sets the bearer credential attached to subsequent requests.
	// An empty token sends requests unauthenticated.
	SetToken(token string)

	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, name, email, password string) (*models.Session, error)
	// VerifySession checks that the current token is still accepted.
	VerifySession(ctx context.Context) error

	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, p TaskPayload) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, p TaskPayload) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	ListAllUsers(ctx context.Context) ([]models.User, error)
	ListAllTasks(ctx context.Context) ([]models.Task, error)
}
