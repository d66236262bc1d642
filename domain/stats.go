package domain

import (
	"math"
	"strings"
)

// MemberStat summarizes one member's contribution across the board.
type MemberStat struct {
	Name            string `json:"name"`
	Completed       int    `json:"completed"`
	Pending         int    `json:"pending"`
	TotalPoints     int    `json:"totalPoints"`
	CompletedPoints int    `json:"completedPoints"`
}

// CompletionRate is the member's completed share of their own points,
// rounded to whole percent.
func (m MemberStat) CompletionRate() int {
	if m.TotalPoints <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(m.CompletedPoints) / float64(m.TotalPoints)))
}

// ContributionSlice is one member's completed points for the split chart.
type ContributionSlice struct {
	Name            string  `json:"name"`
	CompletedPoints int     `json:"completedPoints"`
	Share           float64 `json:"share"`
}

// MemberStats groups tasks per assignee. Grouping is case-insensitive and
// whitespace-trimmed; the first-seen spelling is kept for display and
// members appear in first-seen task order.
func MemberStats(tasks []Task) []MemberStat {
	byKey := make(map[string]*MemberStat)
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		key := MemberKey(t.Member)
		stat, ok := byKey[key]
		if !ok {
			stat = &MemberStat{Name: strings.TrimSpace(t.Member)}
			byKey[key] = stat
			order = append(order, key)
		}
		if t.Status == StatusCompleted {
			stat.Completed++
			stat.CompletedPoints += t.Weight
		} else {
			stat.Pending++
		}
		stat.TotalPoints += t.Weight
	}
	out := make([]MemberStat, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// ContributionSplit reduces tasks to per-member completed points with
// normalized shares. Members with no completed points are omitted; with no
// completed work at all the split is empty rather than dividing by zero.
func ContributionSplit(tasks []Task) []ContributionSlice {
	stats := MemberStats(tasks)
	total := 0
	for _, s := range stats {
		total += s.CompletedPoints
	}
	if total == 0 {
		return []ContributionSlice{}
	}
	out := make([]ContributionSlice, 0, len(stats))
	for _, s := range stats {
		if s.CompletedPoints == 0 {
			continue
		}
		out = append(out, ContributionSlice{
			Name:            s.Name,
			CompletedPoints: s.CompletedPoints,
			Share:           float64(s.CompletedPoints) / float64(total),
		})
	}
	return out
}

// TotalGroupPoints sums the weight of all completed tasks.
func TotalGroupPoints(tasks []Task) int {
	total := 0
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			total += t.Weight
		}
	}
	return total
}
