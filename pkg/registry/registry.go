// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

var ErrActivityNotFound = errors.New("activity not found")

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry with LastUpdated set to now.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (r *ActivityRegistry) Find(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, taskType)
}

// Validate checks required fields, uniqueness, statuses, timeouts and that
// every declared schema compiles. All problems are reported together.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return errors.New("registry contains no activities")
	}

	var problems []string
	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		label := a.ID
		if label == "" {
			label = "<unnamed>"
		}
		if a.ID == "" || a.TaskType == "" || a.DisplayName == "" {
			problems = append(problems, label+": id, taskType and displayName are required")
		}
		if ids[a.ID] {
			problems = append(problems, label+": duplicate id")
		}
		if taskTypes[a.TaskType] {
			problems = append(problems, label+": duplicate taskType "+a.TaskType)
		}
		ids[a.ID], taskTypes[a.TaskType] = true, true

		if !validStatuses[a.ImplementationStatus] {
			problems = append(problems, fmt.Sprintf("%s: unknown implementationStatus %q", label, a.ImplementationStatus))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("%s: timeout %q: %v", label, a.Timeout, err))
			}
		}
		for name, schema := range map[string]map[string]interface{}{"inputSchema": a.InputSchema, "outputSchema": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s does not compile: %v", label, name, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("registry has %d problem(s): %s", len(problems), strings.Join(problems, "; "))
	}
	return nil
}

// ValidateInput checks job variables against the activity's input schema.
// It returns the violations; an activity without a schema accepts anything.
func (a *Activity) ValidateInput(variables []byte) ([]string, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	res, err := gojsonschema.Validate(gojsonschema.NewGoLoader(a.InputSchema), gojsonschema.NewBytesLoader(variables))
	if err != nil {
		return nil, err
	}
	var violations []string
	for _, e := range res.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}

// Update sets one scalar field on the activity with the given id.
func (r *ActivityRegistry) Update(id, field, value string) error {
	for i := range r.Activities {
		a := &r.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			if !validStatuses[value] {
				return fmt.Errorf("unknown status %q", value)
			}
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "description":
			a.Description = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			a.Timeout = value
		case "retries":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = n
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActivityNotFound, id)
}

// Add appends a new activity. The id and task type must be unused.
func (r *ActivityRegistry) Add(a Activity) error {
	if a.ID == "" || a.TaskType == "" {
		return errors.New("id and taskType are required")
	}
	for _, existing := range r.Activities {
		if existing.ID == a.ID || existing.TaskType == a.TaskType {
			return fmt.Errorf("activity %s already registered", a.ID)
		}
	}
	if a.ImplementationStatus == "" {
		a.ImplementationStatus = StatusPlanned
	}
	if !validStatuses[a.ImplementationStatus] {
		return fmt.Errorf("unknown status %q", a.ImplementationStatus)
	}
	r.Activities = append(r.Activities, a)
	return nil
}
