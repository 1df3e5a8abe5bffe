package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m41k1204/taskflow/internal/task"
	"github.com/m41k1204/taskflow/internal/user"
	"github.com/m41k1204/taskflow/pkg/cerr"
	"github.com/m41k1204/taskflow/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	backend, err := storage.NewLocalBackend(path)
	require.NoError(t, err)
	return New(backend), path
}

func TestLoadMissingDocumentStartsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Load(ctx))
	assert.Empty(t, s.ListUsers(ctx))
	assert.Empty(t, s.ListTasks(ctx))
}

func TestLoadMalformedDocument(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := s.Load(ctx)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
}

func TestAddUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	ana := user.New("u1", "Ana", "ana@utec.edu")
	require.NoError(t, s.AddUser(ctx, ana))

	err := s.AddUser(ctx, user.New("u2", "Ana Clone", "ana@utec.edu"))
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "duplicate email: %v", err)

	err = s.AddUser(ctx, user.New("u1", "Other", "other@utec.edu"))
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "duplicate id: %v", err)

	found, err := s.FindUserByEmail(ctx, "ana@utec.edu")
	require.NoError(t, err)
	assert.Equal(t, ana, found)

	_, err = s.FindUserByEmail(ctx, "nobody@utec.edu")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestTaskPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	require.NoError(t, s.AddUser(ctx, user.New("u1", "Ana", "ana@utec.edu")))

	tk := task.New("deploy", "ship it")
	a, err := task.NewAssignment("ana@utec.edu", "infra")
	require.NoError(t, err)
	require.NoError(t, tk.AddAssignment(a))
	require.NoError(t, s.AddTask(ctx, tk))

	_, err = s.UpdateTask(ctx, tk.ID, func(t *task.Task) error {
		return t.SetState(task.StateInProgress)
	})
	require.NoError(t, err)

	// A fresh store loading the same document sees the same data.
	backend, err := storage.NewLocalBackend(path)
	require.NoError(t, err)
	reloaded := New(backend)
	require.NoError(t, reloaded.Load(ctx))

	got, err := reloaded.FindTaskByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StateInProgress, got.State)
	require.Len(t, got.Assignments, 1)
	assert.Equal(t, a.Timestamp, got.Assignments[0].Timestamp)

	users := reloaded.ListUsers(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "ana@utec.edu", users[0].Email)

	assert.Equal(t, s.LastWrittenSum(), reloaded.LastWrittenSum())
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tk := task.New("t", "d")
	require.NoError(t, s.AddTask(ctx, tk))

	_, err := s.UpdateTask(ctx, "missing", func(*task.Task) error { return nil })
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	// A failing fn leaves the stored task untouched.
	boom := cerr.NewError(cerr.FailedPrecondition, "nope", nil)
	_, err = s.UpdateTask(ctx, tk.ID, func(*task.Task) error { return boom })
	assert.Equal(t, boom, err)
	got, err := s.FindTaskByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatePending, got.State)

	updated, err := s.UpdateTask(ctx, tk.ID, func(t *task.Task) error {
		return t.SetState(task.StateDone)
	})
	require.NoError(t, err)
	assert.Equal(t, task.StateDone, updated.State)
}

func TestFindTaskReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tk := task.New("t", "d")
	require.NoError(t, s.AddTask(ctx, tk))

	got, err := s.FindTaskByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NoError(t, got.AddDependency("other"))

	again, err := s.FindTaskByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Dependencies, "mutating a snapshot must not touch the store")
}
