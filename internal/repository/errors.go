package repository

import (
	"errors"
	"fmt"
)

// Failures a caller can correct are returned synchronously and
// precisely. Remote-sync failures never appear here; they are absorbed
// into the background push path.
var (
	ErrNotFound   = errors.New("not found")
	ErrNotAMember = errors.New("not a member of this project")
)

// PermissionError is a role-hierarchy or capability denial. It is
// terminal: no component retries it.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

// ValidationError reports a mutation that would violate a data
// invariant, such as removing a project's last admin.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}
