package state

// ScheduleStatus is the lifecycle state of a schedule entry.
type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "SCHEDULED"
	StatusRunning   ScheduleStatus = "RUNNING"
	StatusCompleted ScheduleStatus = "COMPLETED"
	StatusError     ScheduleStatus = "ERROR"
)

func (s ScheduleStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no dispatcher will touch the entry again
// without an explicit requeue.
func (s ScheduleStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

var AllStatuses = []ScheduleStatus{
	StatusScheduled,
	StatusRunning,
	StatusCompleted,
	StatusError,
}

// OpenStatuses are the non-terminal statuses. An item with an entry in one of
// these must not be scheduled again.
var OpenStatuses = []ScheduleStatus{
	StatusScheduled,
	StatusRunning,
}

type Transition struct {
	From ScheduleStatus
	To   ScheduleStatus
}

var ValidTransitions = []Transition{
	{From: StatusScheduled, To: StatusRunning},
	{From: StatusRunning, To: StatusCompleted},
	{From: StatusRunning, To: StatusError},
	// stale claim sweep
	{From: StatusRunning, To: StatusScheduled},
	// operator requeue
	{From: StatusError, To: StatusScheduled},
}

func IsValidTransition(from, to ScheduleStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Parse converts a stored status value back into a ScheduleStatus.
func Parse(s string) (ScheduleStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
