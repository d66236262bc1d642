package domain

import (
	"strings"
	"time"
)

// Task statuses. A task only ever moves between these two.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Evidence types.
const (
	EvidenceLink = "link"
	EvidenceFile = "file"
)

// Task represents a single board item.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Member    string    `json:"member"`
	Weight    int       `json:"weight"`
	Deadline  string    `json:"deadline,omitempty"`
	Status    string    `json:"status"`
	Evidence  *Evidence `json:"evidence,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Evidence is an optional proof of completion attached to a completed task.
// File evidence carries a reference into the evidence vault, never raw bytes.
type Evidence struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// MemberKey returns the normalized grouping key for an assignee name.
func MemberKey(member string) string {
	return strings.ToLower(strings.TrimSpace(member))
}

// NewTask validates and builds a pending task. ID and CreatedAt are left for
// the persistence gateway to assign.
func NewTask(title, member string, weight int, deadline string) (Task, error) {
	title = strings.TrimSpace(title)
	member = strings.TrimSpace(member)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if member == "" {
		return Task{}, &ValidationError{Field: "member", Reason: "must not be empty"}
	}
	if weight < 1 || weight > 10 {
		return Task{}, &ValidationError{Field: "weight", Reason: "must be an integer between 1 and 10"}
	}
	deadline = strings.TrimSpace(deadline)
	if deadline != "" {
		if _, err := time.Parse(DeadlineLayout, deadline); err != nil {
			return Task{}, &ValidationError{Field: "deadline", Reason: "must be a date in YYYY-MM-DD form"}
		}
	}
	return Task{
		Title:    title,
		Member:   member,
		Weight:   weight,
		Deadline: deadline,
		Status:   StatusPending,
	}, nil
}
