package core

import (
	"context"
	"time"
)

// Reserved profile names with special handling in the orchestrator.
const (
	ProfileCustom = "custom"
	ProfileManage = "manage"
)

// DefaultTimeout applies when neither the profile nor the config sets one.
const DefaultTimeout = 30 * time.Second

// Module is the interface that all recon modules must implement.
type Module interface {
	Name() string
	Description() string
	// Profiles returns the merged catalog in display order.
	Profiles() []Profile
	// Run invokes the wrapped tool. It never fails: errors are encoded
	// in the ExecutionResult.
	Run(ctx context.Context, target, profile string) ExecutionResult
	// Parse turns raw stdout into structured intelligence. It is
	// deterministic for a given (profile, stdout) pair.
	Parse(profile, stdout string) Intelligence
}

// CustomRunner is implemented by modules that accept free-form arguments.
type CustomRunner interface {
	RunCustom(ctx context.Context, target string, args []string) ExecutionResult
}

// Profile is a named argument preset for a module.
type Profile struct {
	Name           string        `json:"name" yaml:"name"`
	Args           []string      `json:"args" yaml:"args"`
	Description    string        `json:"desc" yaml:"desc"`
	Recommendation string        `json:"recommendation" yaml:"recommendation"`
	Timeout        time.Duration `json:"timeout" yaml:"-"`
	UserDefined    bool          `json:"user_defined,omitempty" yaml:"-"`
}

// ExecutionResult is the (stdout, stderr, exit code) triple of one run.
type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Exit codes used when the tool could not produce its own.
const (
	ExitFailure  = 1
	ExitTimeout  = 124
	ExitNotFound = 127
)

// OK reports whether the tool exited cleanly.
func (r ExecutionResult) OK() bool { return r.ExitCode == 0 }

// Intelligence is module-specific structured data extracted from stdout.
type Intelligence map[string]interface{}

// Err returns the explicit error indicator, if any.
func (i Intelligence) Err() string {
	if v, ok := i["error"].(string); ok {
		return v
	}
	return ""
}

// UnknownProfileResult is what Run returns for a profile it does not know.
func UnknownProfileResult(profile string) ExecutionResult {
	return ExecutionResult{Stderr: "Unknown profile: " + profile, ExitCode: ExitFailure}
}
