package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/m41k1204/taskflow/internal/task"
	"github.com/m41k1204/taskflow/internal/user"
	"github.com/m41k1204/taskflow/pkg/cerr"
	"github.com/m41k1204/taskflow/pkg/storage"
)

// document is the persisted layout: one JSON object with two top-level
// arrays holding every serialized entity.
type document struct {
	Users []*user.User `json:"users"`
	Tasks []*task.Task `json:"tasks"`
}

// Store owns the canonical in-memory collections of users and tasks and is
// the sole read/write path to the backing document. Every successful
// mutation rewrites the document wholesale.
//
// The store is constructed once in main and injected into the handlers;
// there is no ambient instance.
type Store struct {
	mu      sync.RWMutex
	users   []*user.User
	tasks   []*task.Task
	backend storage.Backend
	lastSum [sha256.Size]byte
}

func New(backend storage.Backend) *Store {
	return &Store{
		users:   []*user.User{},
		tasks:   []*task.Task{},
		backend: backend,
	}
}

// Load reads the backing document. A missing document is not an error: the
// store starts empty. Malformed content is fatal.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return cerr.WrapStorageReadError("store document", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to parse store document: %w", err))
	}
	if doc.Users == nil {
		doc.Users = []*user.User{}
	}
	if doc.Tasks == nil {
		doc.Tasks = []*task.Task{}
	}
	s.users = doc.Users
	s.tasks = doc.Tasks
	s.lastSum = sha256.Sum256(data)
	return nil
}

// AddUser appends u and persists. No two users may share an id or an email.
func (s *Store) AddUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == u.ID || existing.Email == u.Email {
			return cerr.NewError(cerr.AlreadyExists, "user with the same id or email already exists", nil)
		}
	}
	s.users = append(s.users, u)
	if err := s.persistLocked(ctx); err != nil {
		s.users = s.users[:len(s.users)-1]
		return err
	}
	return nil
}

// ListUsers returns all users in insertion order.
func (s *Store) ListUsers(_ context.Context) []*user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*user.User, len(s.users))
	copy(out, s.users)
	return out
}

// FindUserByEmail returns the first user whose email matches.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "user not found", nil)
}

// AddTask appends t and persists. Task identity is a generated UUID, so no
// uniqueness check is made here.
func (s *Store) AddTask(ctx context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, t)
	if err := s.persistLocked(ctx); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return err
	}
	return nil
}

// ListTasks returns snapshots of all tasks in insertion order.
func (s *Store) ListTasks(_ context.Context) []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*task.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// FindTaskByID returns a snapshot of the first task whose id matches.
func (s *Store) FindTaskByID(_ context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.findTaskLocked(id)
	if t == nil {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return t.Clone(), nil
}

// UpdateTask looks the task up under the write lock, applies fn and persists
// only when fn succeeds. A failing fn leaves the store untouched. The
// returned task is a snapshot of the updated state.
func (s *Store) UpdateTask(ctx context.Context, id string, fn func(*task.Task) error) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findTaskLocked(id)
	if t == nil {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// Save rewrites the backing document from the current collections.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// LastWrittenSum returns the checksum of the document content this store
// last wrote or loaded. The store watcher compares it against the file on
// disk to tell our writes apart from foreign ones.
func (s *Store) LastWrittenSum() [sha256.Size]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSum
}

func (s *Store) findTaskLocked(id string) *task.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	doc := document{Users: s.users, Tasks: s.tasks}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal store document: %w", err))
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return cerr.WrapStorageWriteError("store document", err)
	}
	s.lastSum = sha256.Sum256(data)
	return nil
}
