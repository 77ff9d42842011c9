package board

import (
	"encoding/json"
	"strings"
	"testing"
)

const validTasksJSON = `[
  {"id":"t1","title":"Master the Tarot","role":"Diviner","action":"pull","goal":"learn",
   "status":"sprint","priority":"high","dueDate":"2024-10-31",
   "definitionOfDone":[{"id":"c1","text":"22 cards","completed":false}],
   "dailyStandups":[{"id":"s1","date":"2024-10-02","yesterday":"","today":"pull","blockers":""}]},
  {"id":"t2","title":"Altar","role":"","action":"","goal":"","status":"backlog","dueDate":null,
   "definitionOfDone":[],"dailyStandups":[]}
]`

const validSprintsJSON = `[
  {"id":"s1","name":"Moon Cycle 1","startDate":"2024-10-01T00:00:00Z","endDate":"",
   "goal":"focus","taskIds":["t1"],"retrospective":null,"status":"active"}
]`

func TestValidateRawValid(t *testing.T) {
	res := ValidateRaw([]byte(validTasksJSON), []byte(validSprintsJSON))
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Err())
	}
	if res.Err() != nil {
		t.Error("Err() should be nil when valid")
	}
}

func TestValidateRawEmpty(t *testing.T) {
	if res := ValidateRaw(nil, nil); !res.Valid {
		t.Errorf("missing collections should be valid, got %v", res.Err())
	}
	if res := ValidateRaw([]byte(`[]`), []byte(`[]`)); !res.Valid {
		t.Errorf("empty collections should be valid, got %v", res.Err())
	}
}

func TestValidateRawInvalid(t *testing.T) {
	tests := []struct {
		name     string
		tasks    string
		sprints  string
		wantPath string
	}{
		{
			name:     "malformed tasks",
			tasks:    `[{"id":`,
			sprints:  `[]`,
			wantPath: "tasks",
		},
		{
			name:     "tasks not an array",
			tasks:    `{"id":"t1"}`,
			sprints:  `[]`,
			wantPath: "tasks",
		},
		{
			name:     "bad task status",
			tasks:    strings.Replace(validTasksJSON, `"status":"backlog"`, `"status":"doing"`, 1),
			sprints:  validSprintsJSON,
			wantPath: "tasks[1].status",
		},
		{
			name:     "missing checklist",
			tasks:    `[{"id":"t1","title":"x","role":"","action":"","goal":"","status":"backlog","dailyStandups":[]}]`,
			sprints:  `[]`,
			wantPath: "tasks[0]",
		},
		{
			name:     "bad sprint status",
			tasks:    validTasksJSON,
			sprints:  strings.Replace(validSprintsJSON, `"status":"active"`, `"status":"paused"`, 1),
			wantPath: "sprints[0].status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateRaw([]byte(tt.tasks), []byte(tt.sprints))
			if res.Valid {
				t.Fatal("expected invalid")
			}
			if err := res.Err(); err == nil || !strings.Contains(err.Error(), tt.wantPath) {
				t.Errorf("Err(): got %v, want mention of %q", err, tt.wantPath)
			}
		})
	}
}

func TestBoardValidate(t *testing.T) {
	var b Board
	if err := json.Unmarshal([]byte(validTasksJSON), &b.Tasks); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(validSprintsJSON), &b.Sprints); err != nil {
		t.Fatal(err)
	}
	if res := b.Validate(); !res.Valid || len(res.Warnings) != 0 {
		t.Fatalf("expected clean board, got errors=%v warnings=%v", res.Errors, res.Warnings)
	}

	t.Run("duplicate ids", func(t *testing.T) {
		c := b.Clone()
		c.Tasks[1].ID = c.Tasks[0].ID
		if res := c.Validate(); res.Valid {
			t.Error("expected duplicate id error")
		}
	})

	t.Run("duplicate sprint ids", func(t *testing.T) {
		c := b.Clone()
		extra := c.Sprints[0].Clone()
		extra.Status = SprintCompleted
		c.Sprints = append(c.Sprints, extra)
		res := c.Validate()
		if res.Valid {
			t.Fatal("expected duplicate sprint id error")
		}
		if !strings.Contains(res.Err().Error(), "sprints[1].id") {
			t.Errorf("unexpected error %v", res.Err())
		}
	})

	t.Run("two active sprints", func(t *testing.T) {
		c := b.Clone()
		extra := c.Sprints[0].Clone()
		extra.ID = "s2"
		c.Sprints = append(c.Sprints, extra)
		res := c.Validate()
		if res.Valid {
			t.Fatal("expected error for two active sprints")
		}
		if !strings.Contains(res.Err().Error(), "sprints[1].status") {
			t.Errorf("unexpected error %v", res.Err())
		}
	})

	t.Run("unknown member is a warning", func(t *testing.T) {
		c := b.Clone()
		c.Sprints[0].TaskIDs = append(c.Sprints[0].TaskIDs, "ghost")
		res := c.Validate()
		if !res.Valid {
			t.Fatalf("unexpected errors %v", res.Errors)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "ghost") {
			t.Errorf("warnings: got %v", res.Warnings)
		}
	})

	t.Run("orphaned sprint task is a warning", func(t *testing.T) {
		c := b.Clone()
		c.Sprints[0].TaskIDs = nil
		res := c.Validate()
		if !res.Valid || len(res.Warnings) != 1 {
			t.Errorf("got valid=%v warnings=%v", res.Valid, res.Warnings)
		}
	})

	t.Run("blank title", func(t *testing.T) {
		c := b.Clone()
		c.Tasks[0].Title = "  "
		if res := c.Validate(); res.Valid {
			t.Error("expected error for blank title")
		}
	})
}

func TestJSONPointerToPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"#", ""},
		{"/tasks", "tasks"},
		{"/tasks/0/status", "tasks[0].status"},
		{"#/sprints/2/taskIds/1", "sprints[2].taskIds[1]"},
		{"/a~1b/c~0d", "a/b.c~d"},
	}
	for _, tt := range tests {
		if got := jsonPointerToPath(tt.in); got != tt.want {
			t.Errorf("jsonPointerToPath(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBundledSchemaCompiles(t *testing.T) {
	if _, err := compileSchema(); err != nil {
		t.Fatalf("bundled schema does not compile: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(bundledSchema), &v); err != nil {
		t.Fatalf("bundled schema is not JSON: %v", err)
	}
}
