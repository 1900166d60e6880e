package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
)

// Wire shapes. Everything the server sends is decoded into these first and
// then checked on the way into models.

type userDTO struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	IsAdmin   flexBool `json:"is_admin"`
	CreatedAt *string  `json:"created_at"`
	TaskCount *int     `json:"task_count"`
}

type taskDTO struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
	CreatedAt   *string `json:"created_at"`
	UserName    *string `json:"user_name"`
	UserEmail   *string `json:"user_email"`
}

type authResponseDTO struct {
	User  *userDTO `json:"user"`
	Token string   `json:"token"`
}

type loginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type taskRequestDTO struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status,omitempty"`
}

type errorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// flexBool accepts true/false as well as 0/1, which SQL-backed APIs often emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func optionalTime(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseTime(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (d userDTO) toModel() (models.User, error) {
	if d.ID <= 0 {
		return models.User{}, fmt.Errorf("%w: user id %d", ErrBadResponse, d.ID)
	}
	u := models.User{
		ID:      d.ID,
		Name:    d.Name,
		Email:   d.Email,
		IsAdmin: bool(d.IsAdmin),
	}
	created, err := optionalTime(d.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: user %d created_at: %v", ErrBadResponse, d.ID, err)
	}
	if created != nil {
		u.CreatedAt = *created
	}
	if d.TaskCount != nil {
		if *d.TaskCount < 0 {
			return models.User{}, fmt.Errorf("%w: user %d task_count %d", ErrBadResponse, d.ID, *d.TaskCount)
		}
		u.TaskCount = *d.TaskCount
	}
	return u, nil
}

func (d taskDTO) toModel() (models.Task, error) {
	if d.ID <= 0 {
		return models.Task{}, fmt.Errorf("%w: task id %d", ErrBadResponse, d.ID)
	}
	if strings.TrimSpace(d.Title) == "" {
		return models.Task{}, fmt.Errorf("%w: task %d has no title", ErrBadResponse, d.ID)
	}
	status := models.Status(d.Status)
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: task %d status %q", ErrBadResponse, d.ID, d.Status)
	}

	due, err := optionalTime(d.DueDate)
	if err != nil {
		return models.Task{}, fmt.Errorf("%w: task %d due_date: %v", ErrBadResponse, d.ID, err)
	}
	created, err := optionalTime(d.CreatedAt)
	if err != nil {
		return models.Task{}, fmt.Errorf("%w: task %d created_at: %v", ErrBadResponse, d.ID, err)
	}

	t := models.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: deref(d.Description),
		DueDate:     due,
		Status:      status,
		OwnerName:   deref(d.UserName),
		OwnerEmail:  deref(d.UserEmail),
	}
	if created != nil {
		t.CreatedAt = *created
	}
	return t, nil
}

func decodeTasks(data []byte) ([]models.Task, error) {
	var dtos []taskDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	tasks := make([]models.Task, 0, len(dtos))
	for _, d := range dtos {
		t, err := d.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func decodeTask(data []byte) (*models.Task, error) {
	var dto taskDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	t, err := dto.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeUsers(data []byte) ([]models.User, error) {
	var dtos []userDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	users := make([]models.User, 0, len(dtos))
	for _, d := range dtos {
		u, err := d.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var dto authResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if dto.Token == "" || dto.User == nil {
		return nil, fmt.Errorf("%w: auth response without user or token", ErrBadResponse)
	}
	u, err := dto.User.toModel()
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: dto.Token, User: u}, nil
}

func encodeTask(p TaskPayload) taskRequestDTO {
	req := taskRequestDTO{
		Title:       p.Title,
		Description: p.Description,
		Status:      string(p.Status),
	}
	if p.DueDate != nil {
		s := p.DueDate.Format(models.DateLayout)
		req.DueDate = &s
	}
	return req
}
