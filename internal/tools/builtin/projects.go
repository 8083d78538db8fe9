// Package builtin provides the reference toolset: project management,
// echo, and web fetch.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/tools"
)

// Project is one entry in the in-memory project store.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectStore holds projects and the active-project marker.
// All access is mutex-guarded; tools bound to the same store may be
// executed concurrently from independent conversations.
type ProjectStore struct {
	mu       sync.Mutex
	projects map[string]Project
	activeID string
}

// NewProjectStore creates an empty store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: make(map[string]Project)}
}

func (s *ProjectStore) create(name, description string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.projects[id] = Project{ID: id, Name: name, Description: description}
	return id
}

func (s *ProjectStore) list() ([]Project, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, s.activeID
}

func (s *ProjectStore) get(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

func (s *ProjectStore) delete(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	delete(s.projects, id)
	if s.activeID == id {
		s.activeID = ""
	}
	return p, true
}

func (s *ProjectStore) activate(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	s.activeID = id
	return p, true
}

func (s *ProjectStore) active() (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return Project{}, false
	}
	p, ok := s.projects[s.activeID]
	return p, ok
}

const projectIDSchema = `{
  "type": "object",
  "properties": {
    "project_id": {"type": "string", "description": "ID of the project"}
  },
  "required": ["project_id"]
}`

const emptySchema = `{"type": "object", "properties": {}}`

// ProjectTools returns the project management toolset bound to store.
func ProjectTools(store *ProjectStore) []schema.Tool {
	return []schema.Tool{
		tools.Func{
			ToolName:        "create_project",
			ToolDescription: "Create a new project with a name and description. Returns the new project's ID.",
			ParamSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Project name"},
    "description": {"type": "string", "description": "Project description"}
  },
  "required": ["name", "description"]
}`),
			Fn: func(_ context.Context, args map[string]any) (string, error) {
				name, _ := args["name"].(string)
				description, _ := args["description"].(string)
				return store.create(name, description), nil
			},
		},
		tools.Func{
			ToolName:        "list_projects",
			ToolDescription: "List all projects with their IDs, names, and descriptions.",
			ParamSchema:     json.RawMessage(emptySchema),
			Fn: func(_ context.Context, _ map[string]any) (string, error) {
				projects, activeID := store.list()
				if len(projects) == 0 {
					return "No projects found.", nil
				}
				out := ""
				for _, p := range projects {
					marker := ""
					if p.ID == activeID {
						marker = " (ACTIVE)"
					}
					out += fmt.Sprintf("ID: %s%s\nName: %s\nDescription: %s\n\n", p.ID, marker, p.Name, p.Description)
				}
				return out, nil
			},
		},
		tools.Func{
			ToolName:        "delete_project",
			ToolDescription: "Delete a project by ID.",
			ParamSchema:     json.RawMessage(projectIDSchema),
			Fn: func(_ context.Context, args map[string]any) (string, error) {
				id, _ := args["project_id"].(string)
				p, ok := store.delete(id)
				if !ok {
					return "", fmt.Errorf("project %q not found", id)
				}
				return fmt.Sprintf("Project %q (ID: %s) has been deleted", p.Name, p.ID), nil
			},
		},
		tools.Func{
			ToolName:        "switch_project",
			ToolDescription: "Switch the active project to the given ID.",
			ParamSchema:     json.RawMessage(projectIDSchema),
			Fn: func(_ context.Context, args map[string]any) (string, error) {
				id, _ := args["project_id"].(string)
				p, ok := store.activate(id)
				if !ok {
					return "", fmt.Errorf("project %q not found", id)
				}
				return fmt.Sprintf("Switched to project %q (ID: %s)", p.Name, p.ID), nil
			},
		},
		tools.Func{
			ToolName:        "get_project_details",
			ToolDescription: "Get a project's details by ID.",
			ParamSchema:     json.RawMessage(projectIDSchema),
			Fn: func(_ context.Context, args map[string]any) (string, error) {
				id, _ := args["project_id"].(string)
				p, ok := store.get(id)
				if !ok {
					return "", fmt.Errorf("project %q not found", id)
				}
				out, _ := json.Marshal(p)
				return string(out), nil
			},
		},
		tools.Func{
			ToolName:        "get_active_project",
			ToolDescription: "Get the currently active project's details.",
			ParamSchema:     json.RawMessage(emptySchema),
			Fn: func(_ context.Context, _ map[string]any) (string, error) {
				p, ok := store.active()
				if !ok {
					return "No active project.", nil
				}
				out, _ := json.Marshal(p)
				return string(out), nil
			},
		},
	}
}

// RegisterAll registers every tool in ts, stopping at the first failure.
func RegisterAll(reg *tools.Registry, ts []schema.Tool) error {
	for _, t := range ts {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
