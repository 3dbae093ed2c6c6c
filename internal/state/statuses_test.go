package state

import (
	"testing"
)

func TestScheduleStatus_String(t *testing.T) {
	tests := []struct {
		name     string
		status   ScheduleStatus
		expected string
	}{
		{name: "Scheduled status", status: StatusScheduled, expected: "SCHEDULED"},
		{name: "Running status", status: StatusRunning, expected: "RUNNING"},
		{name: "Completed status", status: StatusCompleted, expected: "COMPLETED"},
		{name: "Error status", status: StatusError, expected: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.status.String()
			if result != tt.expected {
				t.Errorf("String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     ScheduleStatus
		to       ScheduleStatus
		expected bool
	}{
		{name: "Valid: Scheduled to Running", from: StatusScheduled, to: StatusRunning, expected: true},
		{name: "Valid: Running to Completed", from: StatusRunning, to: StatusCompleted, expected: true},
		{name: "Valid: Running to Error", from: StatusRunning, to: StatusError, expected: true},
		{name: "Valid: Running to Scheduled (stale sweep)", from: StatusRunning, to: StatusScheduled, expected: true},
		{name: "Valid: Error to Scheduled (requeue)", from: StatusError, to: StatusScheduled, expected: true},
		{name: "Invalid: Scheduled to Completed", from: StatusScheduled, to: StatusCompleted, expected: false},
		{name: "Invalid: Scheduled to Error", from: StatusScheduled, to: StatusError, expected: false},
		{name: "Invalid: Completed to Scheduled", from: StatusCompleted, to: StatusScheduled, expected: false},
		{name: "Invalid: Completed to Running", from: StatusCompleted, to: StatusRunning, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if StatusScheduled.IsTerminal() || StatusRunning.IsTerminal() {
		t.Error("open statuses must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusError.IsTerminal() {
		t.Error("COMPLETED and ERROR must be terminal")
	}
}

func TestParse(t *testing.T) {
	st, ok := Parse("RUNNING")
	if !ok || st != StatusRunning {
		t.Errorf("Parse(RUNNING) = %v, %v", st, ok)
	}
	if _, ok := Parse("queued"); ok {
		t.Error("Parse should reject unknown statuses")
	}
}
