package task

import (
	"context"

	"github.com/m41k1204/taskflow/internal/user"
)

type Repository interface {
	AddTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context) []*Task
	FindTaskByID(ctx context.Context, id string) (*Task, error)
	// UpdateTask applies fn to the stored task under the write lock and
	// persists only when fn succeeds.
	UpdateTask(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
}

// UserDirectory resolves user aliases at the boundary. Assignments keep the
// alias as a plain identifier; this is the only existence check made.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
}
