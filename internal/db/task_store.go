package db

import (
	"errors"
	"slices"
	"sync"

	"github.com/chepyr/task-manager/shared/models"
)

var ErrTaskNotFound = errors.New("task not found")

// defines methods for task storage operations
type TaskStoreInterface interface {
	GetAll() []models.Task
	Get(id string) (models.Task, bool)
	Put(task models.Task)
	Update(id string, mutate func(task *models.Task) error) (models.Task, error)
	Remove(id string) bool
	Clear()
}

// TaskStore keeps tasks in memory in insertion order. All methods are safe
// for concurrent use; values are copied in and out.
type TaskStore struct {
	tasks map[string]models.Task
	order []string
	mutex sync.Mutex
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]models.Task)}
}

func (s *TaskStore) GetAll() []models.Task {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := make([]models.Task, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.tasks[id])
	}
	return result
}

func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, ok := s.tasks[id]
	return task, ok
}

// Put inserts or overwrites. An overwritten task keeps its original position.
func (s *TaskStore) Put(task models.Task) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.put(task)
}

func (s *TaskStore) put(task models.Task) {
	if _, exists := s.tasks[task.ID]; !exists {
		s.order = append(s.order, task.ID)
	}
	s.tasks[task.ID] = task
}

// Update runs mutate on a copy of the stored task while holding the lock and
// stores the result unless mutate fails. It returns ErrTaskNotFound when no
// task has the given id.
func (s *TaskStore) Update(id string, mutate func(task *models.Task) error) (models.Task, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	if err := mutate(&task); err != nil {
		return models.Task{}, err
	}
	task.ID = id
	s.put(task)
	return task, nil
}

func (s *TaskStore) Remove(id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

func (s *TaskStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks = make(map[string]models.Task)
	s.order = nil
}

func (s *TaskStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.tasks)
}
