package board

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "moonboard.schema.json"

// bundledSchema describes the stored collections. Validation runs against
// the document {"tasks": [...], "sprints": [...]}.
const bundledSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Scrum for Witches board",
  "type": "object",
  "required": ["tasks", "sprints"],
  "properties": {
    "tasks": { "type": "array", "items": { "$ref": "#/$defs/task" } },
    "sprints": { "type": "array", "items": { "$ref": "#/$defs/sprint" } }
  },
  "$defs": {
    "checklistItem": {
      "type": "object",
      "required": ["id", "text", "completed"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "text": { "type": "string" },
        "completed": { "type": "boolean" }
      }
    },
    "standup": {
      "type": "object",
      "required": ["id", "date", "yesterday", "today", "blockers"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "date": { "type": "string" },
        "yesterday": { "type": "string" },
        "today": { "type": "string" },
        "blockers": { "type": "string" }
      }
    },
    "task": {
      "type": "object",
      "required": ["id", "title", "role", "action", "goal", "status", "definitionOfDone", "dailyStandups"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string", "minLength": 1 },
        "role": { "type": "string" },
        "action": { "type": "string" },
        "goal": { "type": "string" },
        "status": { "type": "string", "enum": ["backlog", "sprint", "done"] },
        "priority": { "type": "string", "enum": ["low", "medium", "high"] },
        "dueDate": { "type": ["string", "null"] },
        "definitionOfDone": { "type": "array", "items": { "$ref": "#/$defs/checklistItem" } },
        "dailyStandups": { "type": "array", "items": { "$ref": "#/$defs/standup" } }
      }
    },
    "retrospective": {
      "type": "object",
      "required": ["whatWentWell", "whatDidntGoWell", "doDifferently"],
      "properties": {
        "whatWentWell": { "type": "string" },
        "whatDidntGoWell": { "type": "string" },
        "doDifferently": { "type": "string" }
      }
    },
    "sprint": {
      "type": "object",
      "required": ["id", "name", "startDate", "endDate", "goal", "taskIds", "retrospective", "status"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string" },
        "startDate": { "type": "string" },
        "endDate": { "type": "string" },
        "goal": { "type": "string" },
        "taskIds": { "type": "array", "items": { "type": "string" } },
        "retrospective": {
          "oneOf": [ { "type": "null" }, { "$ref": "#/$defs/retrospective" } ]
        },
        "status": { "type": "string", "enum": ["active", "completed"] }
      }
    }
  }
}`

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []error
	Warnings []string
}

// Err folds the result into a single error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("invalid board data: %s", strings.Join(msgs, "; "))
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}
}

// ValidateRaw validates the raw stored collections against the bundled
// schema. Either argument may be nil, meaning an empty collection.
func ValidateRaw(tasksJSON, sprintsJSON []byte) *ValidationResult {
	result := newResult()

	doc := map[string]any{}
	for name, raw := range map[string][]byte{"tasks": tasksJSON, "sprints": sprintsJSON} {
		if len(raw) == 0 {
			doc[name] = []any{}
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: name,
				Err:  fmt.Errorf("malformed JSON: %w", err),
			})
			continue
		}
		doc[name] = v
	}
	if !result.Valid {
		return result
	}

	schema, err := compileSchema()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("invalid bundled schema: %v", err))
		return result
	}
	if err := schema.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
	return result
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, strings.NewReader(bundledSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

// Validate checks the structural invariants the schema cannot express:
// unique task and sprint ids, at most one active sprint and member ids that
// resolve.
func (b *Board) Validate() *ValidationResult {
	result := newResult()

	seen := make(map[string]bool, len(b.Tasks))
	for i, t := range b.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if err := validateTask(&t, path); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
		}
		if seen[t.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: path + ".id",
				Err:  fmt.Errorf("duplicate task id %q", t.ID),
			})
		}
		seen[t.ID] = true
	}

	active := 0
	sprintSeen := make(map[string]bool, len(b.Sprints))
	for i, s := range b.Sprints {
		path := fmt.Sprintf("sprints[%d]", i)
		if sprintSeen[s.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: path + ".id",
				Err:  fmt.Errorf("duplicate sprint id %q", s.ID),
			})
		}
		sprintSeen[s.ID] = true
		switch s.Status {
		case SprintActive:
			active++
			if active > 1 {
				result.Valid = false
				result.Errors = append(result.Errors, &ValidationError{
					Path: path + ".status",
					Err:  fmt.Errorf("more than one active sprint"),
				})
			}
		case SprintCompleted:
		default:
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: path + ".status",
				Err:  fmt.Errorf("invalid status %q, must be one of: active, completed", s.Status),
			})
		}
		for j, id := range s.TaskIDs {
			if !seen[id] {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s.taskIds[%d]: unknown task %q", path, j, id))
			}
		}
	}

	for _, t := range b.Tasks {
		if t.Status == StatusSprint {
			if s := b.ActiveSprint(); s == nil || !s.HasTask(t.ID) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("task %q is in sprint status but not in the active sprint", t.ID))
			}
		}
	}

	return result
}

func validateTask(t *Task, path string) *ValidationError {
	if t.ID == "" {
		return &ValidationError{Path: path + ".id", Err: fmt.Errorf("missing required field")}
	}
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Path: path + ".title", Err: fmt.Errorf("missing required field")}
	}
	if _, err := ParseStatus(string(t.Status)); err != nil || t.Status == "" {
		return &ValidationError{Path: path + ".status", Err: fmt.Errorf("invalid status %q, must be one of: backlog, sprint, done", t.Status)}
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return &ValidationError{Path: path + ".priority", Err: err}
	}
	return nil
}

func appendSchemaErrors(result *ValidationResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

// jsonPointerToPath converts "/tasks/0/status" into "tasks[0].status".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	path := ""
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
