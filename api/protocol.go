package api

import "teambalance/domain"

const (
	createTaskMaxSize = 64 * 1024        // 64 KiB
	evidenceMaxSize   = 10 * 1024 * 1024 // 10 MiB
)

// taskView is a task decorated with its derived deadline urgency.
type taskView struct {
	domain.Task
	DeadlineStatus domain.DeadlineStatus `json:"deadlineStatus"`
}

type tasksResponse struct {
	Tasks []taskView `json:"tasks"`
}

// memberView is a member stat decorated with its completion rate.
type memberView struct {
	domain.MemberStat
	CompletionRate int `json:"completionRate"`
}

type statsResponse struct {
	Members     []memberView               `json:"members"`
	Split       []domain.ContributionSlice `json:"split"`
	TotalPoints int                        `json:"totalPoints"`
}

// POST /api/tasks request body
type createTaskRequest struct {
	Title    string `json:"title"`
	Member   string `json:"member"`
	Weight   int    `json:"weight"`
	Deadline string `json:"deadline"`
}

// POST /api/tasks/:id/complete JSON request body
type completeTaskRequest struct {
	Link string `json:"link"`
}
