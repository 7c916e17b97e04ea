package columns

import (
	"time"

	"taskboard/internal/domain"
)

const dayFormat = "2006-01-02"

// Day formats a time at day granularity, the resolution schedule matching
// works at.
func Day(t time.Time) string {
	return t.Format(dayFormat)
}

// ScheduleFor selects the top-level tasks scheduled for the given day and
// every one of their descendants. Schedule membership is inherited downward:
// a subtask belongs to its nearest scheduled ancestor's day regardless of
// its own schedule date. Input tasks are nested trees; the result keeps the
// trees whole.
func ScheduleFor(tasks []domain.Task, day string) []domain.Task {
	var out []domain.Task
	for _, t := range tasks {
		if t.ScheduleDate != nil && *t.ScheduleDate == day {
			out = append(out, t)
		}
	}
	return out
}

// DescendantIDs collects the root's id and the ids of every task whose
// parent chain leads back to it, transitively. The input is a flat slice of
// rows carrying ParentID, the shape the repository stores.
func DescendantIDs(flat []domain.Task, rootID string) []string {
	children := map[string][]string{}
	for _, t := range flat {
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}
	ids := []string{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}
