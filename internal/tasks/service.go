package tasks

import (
	"errors"
	"time"

	"github.com/chepyr/task-manager/internal/db"
	"github.com/chepyr/task-manager/shared/models"
	"github.com/google/uuid"
)

const maxIDAttempts = 3

// ErrIDExhausted means the id generator kept returning ids already in use.
var ErrIDExhausted = errors.New("could not allocate a unique task id")

// Service holds the task business rules on top of a store.
type Service struct {
	store db.TaskStoreInterface
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides uuid based id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store db.TaskStoreInterface, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetAllTasks() []models.Task {
	return s.store.GetAll()
}

func (s *Service) GetTask(id string) (models.Task, bool) {
	return s.store.Get(id)
}

// CreateTask validates p and stores a new pending task. It fails with
// *ValidationError when p breaks a rule.
func (s *Service) CreateTask(p Payload) (models.Task, error) {
	if errs := Validate(p, false); len(errs) > 0 {
		return models.Task{}, &ValidationError{Details: errs}
	}

	title, _ := p["title"].(string)
	now := s.now()
	task := models.Task{
		ID:          s.newID(),
		Title:       title,
		Description: "",
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if desc, ok := nonEmptyString(p["description"]); ok {
		task.Description = desc
	}
	if status, ok := nonEmptyString(p["status"]); ok {
		task.Status = models.TaskStatus(status)
	}

	for attempt := 1; ; attempt++ {
		if _, exists := s.store.Get(task.ID); !exists {
			break
		}
		if attempt == maxIDAttempts {
			return models.Task{}, ErrIDExhausted
		}
		task.ID = s.newID()
	}
	s.store.Put(task)
	return task, nil
}

// UpdateTask merges p over the task with the given id. found is false when no
// such task exists; validation is not run in that case.
func (s *Service) UpdateTask(id string, p Payload) (task models.Task, found bool, err error) {
	task, err = s.store.Update(id, func(t *models.Task) error {
		if errs := Validate(p, true); len(errs) > 0 {
			return &ValidationError{Details: errs}
		}
		merge(t, p)

		now := s.now()
		if now.Before(t.UpdatedAt) {
			now = t.UpdatedAt
		}
		t.UpdatedAt = now
		return nil
	})
	if errors.Is(err, db.ErrTaskNotFound) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, true, err
	}
	return task, true, nil
}

// merge copies supplied fields onto t. Falsy title and status values are
// treated as absent so the stored task keeps a title and a valid status.
func merge(t *models.Task, p Payload) {
	if title, ok := nonEmptyString(p["title"]); ok {
		t.Title = title
	}
	if desc, ok := p["description"].(string); ok {
		t.Description = desc
	}
	if status, ok := nonEmptyString(p["status"]); ok {
		t.Status = models.TaskStatus(status)
	}
}

func (s *Service) DeleteTask(id string) bool {
	return s.store.Remove(id)
}

// GetStats counts tasks per status. Tasks with an unknown status only count
// towards the total.
func (s *Service) GetStats() models.Stats {
	all := s.store.GetAll()
	stats := models.Stats{
		Total:    len(all),
		ByStatus: make(map[models.TaskStatus]int, len(models.TaskStatuses)),
	}
	for _, status := range models.TaskStatuses {
		stats.ByStatus[status] = 0
	}
	for _, task := range all {
		if _, ok := stats.ByStatus[task.Status]; ok {
			stats.ByStatus[task.Status]++
		}
	}
	return stats
}
