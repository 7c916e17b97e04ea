package columns

import "taskboard/internal/domain"

// Group is one board's column store inside a multi-board view (schedule or
// folder aggregation).
type Group struct {
	BoardID string  `json:"board_id"`
	Label   string  `json:"label"`
	Columns Columns `json:"columns"`
}

// BuildGroups partitions tasks by board in encounter order and buckets each
// partition by status. The display label comes from the boardName lookup,
// falling back to the raw board id when unresolved.
func BuildGroups(tasks []domain.Task, boardName func(string) string) []Group {
	var groups []Group
	byBoard := map[string]int{}
	for _, t := range tasks {
		idx, ok := byBoard[t.BoardID]
		if !ok {
			label := t.BoardID
			if boardName != nil {
				if n := boardName(t.BoardID); n != "" {
					label = n
				}
			}
			groups = append(groups, Group{BoardID: t.BoardID, Label: label, Columns: New()})
			idx = len(groups) - 1
			byBoard[t.BoardID] = idx
		}
		t.Status = domain.ParseStatus(string(t.Status))
		t.Priority = domain.ParsePriority(string(t.Priority))
		groups[idx].Columns[t.Status] = append(groups[idx].Columns[t.Status], t)
	}
	return groups
}

// ReorderInGroup applies Reorder to one group's columns, leaving every other
// group in the sequence referentially unchanged. An out-of-range groupIndex
// returns the input.
func ReorderInGroup(groups []Group, groupIndex int, taskID string, status domain.Status, index int) []Group {
	if groupIndex < 0 || groupIndex >= len(groups) {
		return groups
	}
	out := make([]Group, len(groups))
	copy(out, groups)
	out[groupIndex].Columns = Reorder(out[groupIndex].Columns, taskID, status, index)
	return out
}

// MoveInGroup applies Move to one group's columns. The caller names the
// group known to hold the task; a fallback task supports optimistic moves of
// tasks the group has not rendered yet.
func MoveInGroup(groups []Group, groupIndex int, taskID string, newStatus domain.Status, index int, fallback *domain.Task) []Group {
	if groupIndex < 0 || groupIndex >= len(groups) {
		return groups
	}
	out := make([]Group, len(groups))
	copy(out, groups)
	out[groupIndex].Columns = Move(out[groupIndex].Columns, taskID, newStatus, index, fallback)
	return out
}

// FindInGroups locates a task across all groups.
func FindInGroups(groups []Group, taskID string) (task domain.Task, groupIndex int, status domain.Status, ok bool) {
	for gi := range groups {
		if t, s, found := Find(groups[gi].Columns, taskID); found {
			return t, gi, s, true
		}
	}
	return domain.Task{}, -1, "", false
}
