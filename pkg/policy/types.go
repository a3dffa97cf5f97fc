package policy

import (
	"time"

	"github.com/incus-composer/incus-composer/pkg/compose"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// block the result.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that make the result not allowed.
	SeverityError Severity = "error"

	// SeverityCritical is for violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocks reports whether a violation at this severity makes the
// evaluation result not allowed.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not carry
	// their own.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Container is the container the violation applies to.
	Container string `json:"container,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the outcome of evaluating all enabled policies
// against a resolved model.
type Result struct {
	// Allowed is false when any violation carries a blocking severity.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate. An evaluation
	// failure never blocks the result.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of the policies that ran, in
	// lexicographic order.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation finished.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// CountBySeverity returns the number of violations per severity. Absent
// severities are not present in the map.
func (r *Result) CountBySeverity() map[Severity]int {
	if len(r.Violations) == 0 {
		return map[Severity]int{}
	}
	counts := make(map[Severity]int)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}

// Input is the document fed to each policy evaluation. Policies are
// evaluated once per container with the container's effective
// configuration, so rules see profile contributions already applied.
type Input struct {
	// Container is the container under evaluation.
	Container *ContainerInput `json:"container,omitempty"`

	// Context provides evaluation metadata.
	Context *Context `json:"context"`
}

// ContainerInput is one container as seen by policies: declaration
// fields plus the effective configuration after profile application.
type ContainerInput struct {
	Name         string                    `json:"name"`
	InstanceType string                    `json:"instance_type"`
	Image        string                    `json:"image"`
	ImageServer  string                    `json:"image_server"`
	Description  string                    `json:"description,omitempty"`
	CPU          *compose.CPULimits        `json:"cpu,omitempty"`
	Memory       *compose.MemoryLimits     `json:"memory,omitempty"`
	Config       map[string]string         `json:"config,omitempty"`
	Environment  map[string]string         `json:"environment,omitempty"`
	Devices      map[string]compose.Device `json:"devices,omitempty"`
	Networks     []string                  `json:"networks,omitempty"`
	Profiles     []string                  `json:"profiles,omitempty"`
	DependsOn    []string                  `json:"depends_on,omitempty"`
	Autostart    bool                      `json:"autostart"`
	BootPriority int                       `json:"boot_priority"`
}

// Context provides metadata for policy evaluation.
type Context struct {
	// Operation is the operation being evaluated, e.g. "validate".
	Operation string `json:"operation,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}
