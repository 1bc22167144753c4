package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"agentflow/internal/status"
)

// WorkflowState is the small record persisted after every role so an
// interrupted run can resume.
type WorkflowState struct {
	UpdatedAt        string       `yaml:"updated_at,omitempty"`
	RunID            string       `yaml:"run_id,omitempty"`
	Cycle            int          `yaml:"cycle"`
	CurrentStep      string       `yaml:"current_step"`
	NextRole         status.Role  `yaml:"next_role,omitempty"`
	DevStatus        status.Value `yaml:"dev_status,omitempty"`
	ReviewStatus     status.Value `yaml:"review_status,omitempty"`
	TestStatus       status.Value `yaml:"test_status,omitempty"`
	ComplianceStatus status.Value `yaml:"compliance_status,omitempty"`
	SafeguardStatus  status.Value `yaml:"safeguard_status,omitempty"`
}

// IsZero reports whether nothing has been recorded yet.
func (s WorkflowState) IsZero() bool {
	return s.NextRole == "" && s.CurrentStep == "" && s.Cycle == 0
}

// Record reads and writes the workflow-state file.
type Record struct {
	path string
	now  func() time.Time
}

// NewRecord creates a Record backed by the YAML file at path.
func NewRecord(path string) *Record {
	return &Record{path: path, now: time.Now}
}

// Path returns the record location.
func (r *Record) Path() string {
	return r.path
}

// Load returns the persisted state. A missing, empty or unparseable file
// yields the zero state so a corrupt record can only cause a restart at
// DEVELOPER, never a skipped role.
func (r *Record) Load() (WorkflowState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WorkflowState{}, nil
		}
		return WorkflowState{}, fmt.Errorf("failed to read workflow state: %w", err)
	}

	var st WorkflowState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return WorkflowState{}, nil
	}
	return st, nil
}

// Save stamps UpdatedAt and atomically replaces the record.
func (r *Record) Save(st WorkflowState) error {
	now := r.now
	if now == nil {
		now = time.Now
	}
	st.UpdatedAt = now().Format(timestampLayout)

	data, err := yaml.Marshal(&st)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("failed to write workflow state: %w", err)
	}
	return nil
}
