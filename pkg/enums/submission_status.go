package enums

import "fmt"

// SubmissionStatus tracks how far an order form submission got with the backend.
type SubmissionStatus string

const (
	SubmissionStatusPending      SubmissionStatus = "pending"
	SubmissionStatusOrderCreated SubmissionStatus = "order_created"
	SubmissionStatusCompleted    SubmissionStatus = "completed"
	SubmissionStatusFailed       SubmissionStatus = "failed"
)

var validSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusOrderCreated,
	SubmissionStatusCompleted,
	SubmissionStatusFailed,
}

// String implements fmt.Stringer.
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubmissionStatus.
func (s SubmissionStatus) IsValid() bool {
	for _, candidate := range validSubmissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubmissionStatus converts raw input into a SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	for _, candidate := range validSubmissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission status %q", value)
}
