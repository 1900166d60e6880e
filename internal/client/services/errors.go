package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskdesk/internal/client/client"
)

var (
	ErrBusy      = errors.New("another change to this task is in progress")
	ErrNoSession = errors.New("not signed in")
	ErrForbidden = errors.New("admin access required")
	ErrDetached  = errors.New("store was reset before the result arrived")
	ErrNotFound  = client.ErrNotFound
)

// LoadError reports which part of a multi-part load failed.
type LoadError struct {
	Part string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Part, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
