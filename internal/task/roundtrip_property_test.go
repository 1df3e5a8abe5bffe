package task

import (
	"encoding/json"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// drawTask builds an arbitrary valid task the same way the handlers do:
// through the constructors, so every generated value satisfies the
// entity invariants.
func drawTask(t *rapid.T) *Task {
	tk := New(
		rapid.StringMatching(`[a-zA-Z0-9 ]{1,40}`).Draw(t, "name"),
		rapid.StringMatching(`[a-zA-Z0-9 ]{0,80}`).Draw(t, "description"),
	)
	tk.State = rapid.SampledFrom([]State{StatePending, StateInProgress, StateDone}).Draw(t, "state")

	aliases := rapid.SliceOfNDistinct(
		rapid.StringMatching(`[a-z]{1,8}@[a-z]{1,8}\.edu`), 0, 5,
		func(s string) string { return s },
	).Draw(t, "aliases")
	for _, alias := range aliases {
		a := Assignment{
			UserAlias: alias,
			Role:      rapid.SampledFrom([]Role{RoleProgrammer, RoleTester, RoleInfra}).Draw(t, "role"),
			Timestamp: time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "ts"), 0).UTC().Format(TimestampLayout),
		}
		if err := tk.AddAssignment(a); err != nil {
			t.Fatalf("AddAssignment: %v", err)
		}
	}

	deps := rapid.SliceOfNDistinct(
		rapid.StringMatching(`[a-f0-9]{8}`), 0, 5,
		func(s string) string { return s },
	).Draw(t, "deps")
	for _, dep := range deps {
		if dep == tk.ID {
			continue
		}
		if err := tk.AddDependency(dep); err != nil {
			t.Fatalf("AddDependency: %v", err)
		}
	}
	return tk
}

// Serializing a task and reading it back yields the same document, so a
// store reload never changes what the next save writes.
func TestTaskRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		orig := drawTask(t)

		data, err := json.Marshal(orig)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded Task
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		again, err := json.Marshal(&decoded)
		if err != nil {
			t.Fatalf("marshal decoded: %v", err)
		}
		if string(data) != string(again) {
			t.Fatalf("round trip changed document:\n%s\n%s", data, again)
		}
	})
}
