package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskCompleted     = errors.New("task is complete and cannot be rescheduled")
	ErrNegativeDelay     = errors.New("delay days must not be negative")
	ErrStaleSnapshot     = errors.New("plan was computed against a different lot snapshot")
	ErrPlanNotApplicable = errors.New("plan has no changes to apply")
)

// ConfigurationError reports a template or task graph that cannot produce a
// valid schedule. No partial lot is ever returned alongside it.
type ConfigurationError struct {
	TaskID string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.TaskID != "" {
		msg = fmt.Sprintf("%s: task %q", msg, e.TaskID)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErrorf(taskID, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{TaskID: taskID, Reason: fmt.Sprintf(format, args...)}
}
