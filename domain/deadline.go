package domain

import (
	"fmt"
	"math"
	"time"
)

// DeadlineLayout is the calendar-date form deadlines are stored in.
const DeadlineLayout = "2006-01-02"

// Urgency categories ordered from no tracking to most slack.
const (
	DeadlineNone    = "none"
	DeadlineOverdue = "overdue"
	DeadlineToday   = "today"
	DeadlineUrgent  = "urgent"
	DeadlineSoon    = "soon"
	DeadlineSafe    = "safe"
)

// DeadlineStatus is the derived urgency of a task deadline.
type DeadlineStatus struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

// ClassifyDeadline maps a deadline and completion flag to an urgency
// category relative to now. Completed tasks and tasks without a deadline are
// not tracked. The caller injects now; the function touches no global clock.
func ClassifyDeadline(deadline string, done bool, now time.Time) DeadlineStatus {
	if deadline == "" || done {
		return DeadlineStatus{Category: DeadlineNone}
	}
	due, err := time.ParseInLocation(DeadlineLayout, deadline, time.UTC)
	if err != nil {
		return DeadlineStatus{Category: DeadlineNone}
	}
	diffDays := int(math.Ceil(due.Sub(now).Hours() / 24))
	switch {
	case diffDays < 0:
		return DeadlineStatus{Category: DeadlineOverdue, Label: fmt.Sprintf("Overdue by %d day(s)", -diffDays)}
	case diffDays == 0:
		return DeadlineStatus{Category: DeadlineToday, Label: "Due today!"}
	case diffDays <= 2:
		return DeadlineStatus{Category: DeadlineUrgent, Label: fmt.Sprintf("Due in %d day(s)", diffDays)}
	case diffDays <= 7:
		return DeadlineStatus{Category: DeadlineSoon, Label: fmt.Sprintf("Due in %d days", diffDays)}
	default:
		return DeadlineStatus{Category: DeadlineSafe, Label: fmt.Sprintf("Due in %d days", diffDays)}
	}
}
