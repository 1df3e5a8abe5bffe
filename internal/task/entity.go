package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m41k1204/taskflow/pkg/cerr"
)

// Role classifies what an assigned user does on a task.
type Role string

const (
	RoleProgrammer Role = "programmer"
	RoleTester     Role = "tester"
	RoleInfra      Role = "infra"
)

// ParseRole normalizes s to lower case and rejects anything outside the
// closed role set.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(s)); r {
	case RoleProgrammer, RoleTester, RoleInfra:
		return r, nil
	default:
		return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid role: %q", s), nil)
	}
}

// State is the lifecycle state of a task. StateDone is terminal: the only
// transition out of it is the done -> done no-op.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
)

func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(s)); st {
	case StatePending, StateInProgress, StateDone:
		return st, nil
	default:
		return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid state: %q", s), nil)
	}
}

func (s State) valid() bool {
	switch s {
	case StatePending, StateInProgress, StateDone:
		return true
	default:
		return false
	}
}

// TimestampLayout is ISO-8601 with second precision; assignments are always
// stamped in UTC.
const TimestampLayout = "2006-01-02T15:04:05"

// Assignment pairs a user alias (the user's email) with a role on one task.
// It has no identity of its own and lives only inside its owning task.
type Assignment struct {
	UserAlias string `json:"user_alias"`
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`
}

func NewAssignment(userAlias, role string) (Assignment, error) {
	r, err := ParseRole(role)
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{
		UserAlias: userAlias,
		Role:      r,
		Timestamp: time.Now().UTC().Format(TimestampLayout),
	}, nil
}

func (a *Assignment) UnmarshalJSON(data []byte) error {
	type plain Assignment
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r, err := ParseRole(string(raw.Role))
	if err != nil {
		return err
	}
	raw.Role = r
	// The timestamp is preserved verbatim, never regenerated.
	*a = Assignment(raw)
	return nil
}

// Task is the aggregate root: it owns its assignments and its dependency
// list and enforces every mutation invariant. References to users (by email)
// and to other tasks (by id) are plain identifiers; their existence is
// checked at the handler layer, not here.
type Task struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	State        State        `json:"state"`
	Assignments  []Assignment `json:"assignments"`
	Dependencies []string     `json:"dependencies"`
}

// New creates a pending task with a generated UUID and empty lists.
func New(name, description string) *Task {
	return &Task{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		State:        StatePending,
		Assignments:  []Assignment{},
		Dependencies: []string{},
	}
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           *string      `json:"id"`
		Name         *string      `json:"name"`
		Description  *string      `json:"description"`
		State        *string      `json:"state"`
		Assignments  []Assignment `json:"assignments"`
		Dependencies []string     `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for field, v := range map[string]*string{"id": raw.ID, "name": raw.Name, "description": raw.Description} {
		if v == nil {
			return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("task missing required field %q", field), nil)
		}
	}
	state := StatePending
	if raw.State != nil {
		parsed, err := ParseState(*raw.State)
		if err != nil {
			return err
		}
		state = parsed
	}
	if raw.Assignments == nil {
		raw.Assignments = []Assignment{}
	}
	if raw.Dependencies == nil {
		raw.Dependencies = []string{}
	}
	*t = Task{
		ID:           *raw.ID,
		Name:         *raw.Name,
		Description:  *raw.Description,
		State:        state,
		Assignments:  raw.Assignments,
		Dependencies: raw.Dependencies,
	}
	return nil
}

// Clone returns a deep copy, so snapshots can be serialized outside the
// store lock.
func (t *Task) Clone() *Task {
	c := *t
	c.Assignments = make([]Assignment, len(t.Assignments))
	copy(c.Assignments, t.Assignments)
	c.Dependencies = make([]string, len(t.Dependencies))
	copy(c.Dependencies, t.Dependencies)
	return &c
}

// SetState replaces the task state. Leaving the done state is rejected;
// done -> done is an allowed no-op.
func (t *Task) SetState(next State) error {
	if !next.valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid state: %q", next), nil)
	}
	if t.State == StateDone && next != StateDone {
		return cerr.NewError(cerr.FailedPrecondition, "cannot leave the done state", nil)
	}
	t.State = next
	return nil
}

// IsAssigned reports whether any assignment matches the alias.
func (t *Task) IsAssigned(userAlias string) bool {
	for _, a := range t.Assignments {
		if a.UserAlias == userAlias {
			return true
		}
	}
	return false
}

// AddAssignment appends a; each alias may hold at most one assignment per
// task.
func (t *Task) AddAssignment(a Assignment) error {
	if t.IsAssigned(a.UserAlias) {
		return cerr.NewError(cerr.AlreadyExists, "user already assigned to task", nil)
	}
	t.Assignments = append(t.Assignments, a)
	return nil
}

// RemoveAssignment removes every assignment matching the alias, keeping the
// relative order of the rest.
func (t *Task) RemoveAssignment(userAlias string) error {
	if !t.IsAssigned(userAlias) {
		return cerr.NewError(cerr.NotFound, "user not assigned to task", nil)
	}
	kept := make([]Assignment, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		if a.UserAlias != userAlias {
			kept = append(kept, a)
		}
	}
	t.Assignments = kept
	return nil
}

// HasDependency reports whether depID is already in the dependency list.
func (t *Task) HasDependency(depID string) bool {
	for _, id := range t.Dependencies {
		if id == depID {
			return true
		}
	}
	return false
}

func (t *Task) AddDependency(depID string) error {
	if depID == t.ID {
		return cerr.NewError(cerr.Aborted, "task cannot depend on itself", nil)
	}
	if t.HasDependency(depID) {
		return cerr.NewError(cerr.AlreadyExists, "dependency already exists", nil)
	}
	t.Dependencies = append(t.Dependencies, depID)
	return nil
}

func (t *Task) RemoveDependency(depID string) error {
	for i, id := range t.Dependencies {
		if id == depID {
			t.Dependencies = append(t.Dependencies[:i], t.Dependencies[i+1:]...)
			return nil
		}
	}
	return cerr.NewError(cerr.NotFound, "dependency not found", nil)
}
