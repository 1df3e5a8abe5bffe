package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	app    = kingpin.New("taskflow", "Command line client for the taskflow API")
	addr   = app.Flag("addr", "Server address").Envar("TASKFLOW_ADDR").Default("http://localhost:8080").String()
	output = app.Flag("output", "Output format (json or yaml)").Short('o').Default("json").Enum("json", "yaml")

	userCmd = app.Command("user", "User management commands")

	userCreateCmd   = userCmd.Command("create", "Register a new user")
	userCreateID    = userCreateCmd.Arg("id", "User id").Required().String()
	userCreateName  = userCreateCmd.Arg("name", "User name").Required().String()
	userCreateEmail = userCreateCmd.Arg("email", "User email").Required().String()

	userListCmd = userCmd.Command("list", "List all users")

	userFindCmd   = userCmd.Command("find", "Find a user by alias (email)")
	userFindAlias = userFindCmd.Arg("alias", "User alias").Required().String()

	taskCmd = app.Command("task", "Task management commands")

	taskCreateCmd   = taskCmd.Command("create", "Create a task with one initial assignment")
	taskCreateName  = taskCreateCmd.Arg("name", "Task name").Required().String()
	taskCreateDesc  = taskCreateCmd.Arg("description", "Task description").Required().String()
	taskCreateUser  = taskCreateCmd.Flag("user", "Assignee email").Required().String()
	taskCreateRole  = taskCreateCmd.Flag("role", "Assignee role (programmer, tester, infra)").Required().String()

	taskListCmd = taskCmd.Command("list", "List all tasks")

	taskShowCmd = taskCmd.Command("show", "Show task details")
	taskShowID  = taskShowCmd.Arg("id", "Task id").Required().String()

	taskStateCmd   = taskCmd.Command("state", "Update task state")
	taskStateID    = taskStateCmd.Arg("id", "Task id").Required().String()
	taskStateValue = taskStateCmd.Arg("state", "New state (pending, in_progress, done)").Required().String()

	taskAssignCmd   = taskCmd.Command("assign", "Assign a user to a task")
	taskAssignID    = taskAssignCmd.Arg("id", "Task id").Required().String()
	taskAssignUser  = taskAssignCmd.Arg("email", "User email").Required().String()
	taskAssignRole  = taskAssignCmd.Arg("role", "Role (programmer, tester, infra)").Required().String()

	taskUnassignCmd  = taskCmd.Command("unassign", "Remove a user from a task")
	taskUnassignID   = taskUnassignCmd.Arg("id", "Task id").Required().String()
	taskUnassignUser = taskUnassignCmd.Arg("email", "User email").Required().String()

	taskDepCmd = taskCmd.Command("dep", "Task dependency commands")

	taskDepAddCmd = taskDepCmd.Command("add", "Add a dependency to a task")
	taskDepAddID  = taskDepAddCmd.Arg("id", "Task id").Required().String()
	taskDepAddDep = taskDepAddCmd.Arg("dep-id", "Dependency task id").Required().String()

	taskDepRemoveCmd = taskDepCmd.Command("remove", "Remove a dependency from a task")
	taskDepRemoveID  = taskDepRemoveCmd.Arg("id", "Task id").Required().String()
	taskDepRemoveDep = taskDepRemoveCmd.Arg("dep-id", "Dependency task id").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	client := newAPIClient(*addr)

	var (
		payload json.RawMessage
		err     error
	)
	switch command {
	case userCreateCmd.FullCommand():
		payload, err = client.post("/api/users", map[string]string{
			"id":    *userCreateID,
			"name":  *userCreateName,
			"email": *userCreateEmail,
		})
	case userListCmd.FullCommand():
		payload, err = client.get("/api/users")
	case userFindCmd.FullCommand():
		payload, err = client.get("/api/users/" + url.PathEscape(*userFindAlias))
	case taskCreateCmd.FullCommand():
		payload, err = client.post("/api/tasks", map[string]string{
			"name":        *taskCreateName,
			"description": *taskCreateDesc,
			"user_email":  *taskCreateUser,
			"role":        *taskCreateRole,
		})
	case taskListCmd.FullCommand():
		payload, err = client.get("/api/tasks")
	case taskShowCmd.FullCommand():
		payload, err = client.get("/api/tasks/" + url.PathEscape(*taskShowID))
	case taskStateCmd.FullCommand():
		payload, err = client.post("/api/tasks/"+url.PathEscape(*taskStateID)+"/state", map[string]string{
			"state": *taskStateValue,
		})
	case taskAssignCmd.FullCommand():
		payload, err = client.post("/api/tasks/"+url.PathEscape(*taskAssignID)+"/users", map[string]string{
			"user_email": *taskAssignUser,
			"role":       *taskAssignRole,
			"action":     "add",
		})
	case taskUnassignCmd.FullCommand():
		payload, err = client.post("/api/tasks/"+url.PathEscape(*taskUnassignID)+"/users", map[string]string{
			"user_email": *taskUnassignUser,
			"action":     "remove",
		})
	case taskDepAddCmd.FullCommand():
		payload, err = client.post("/api/tasks/"+url.PathEscape(*taskDepAddID)+"/dependencies", map[string]string{
			"dependency_task_id": *taskDepAddDep,
			"action":             "add",
		})
	case taskDepRemoveCmd.FullCommand():
		payload, err = client.post("/api/tasks/"+url.PathEscape(*taskDepRemoveID)+"/dependencies", map[string]string{
			"dependency_task_id": *taskDepRemoveDep,
			"action":             "remove",
		})
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := printPayload(payload); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printPayload(payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}
	switch *output {
	case "yaml":
		var v any
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to render yaml: %w", err)
		}
		fmt.Print(string(data))
	default:
		var v any
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render json: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}
