package domain

import "strings"

// RunStatus is the outcome of a single item in a batch optimisation run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

var runStatusLabels = map[RunStatus]string{
	RunStatusPending:   "Pending",
	RunStatusSucceeded: "Succeeded",
	RunStatusFailed:    "Failed",
}

// RunStatusLabel returns a human-readable label for a run status.
func RunStatusLabel(status RunStatus) string {
	if label, ok := runStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParseRunStatus accepts any casing and surrounding whitespace.
func ParseRunStatus(value string) (RunStatus, bool) {
	status := RunStatus(strings.ToLower(strings.TrimSpace(value)))
	_, ok := runStatusLabels[status]
	return status, ok
}
