// Package columns holds the per-status read models a board renders from:
// a single board's three ordered lists, and the grouped variant used when
// several boards are shown together. All operations are pure: they return
// new stores and never mutate their input, so snapshots can be shared across
// concurrent reads.
//
// Ordering is positional. The array index is the order; there is no stored
// rank. Moves rewrite whole lists, which is fine at human-curated board
// sizes.
package columns

import "taskboard/internal/domain"

// Columns maps each status to its ordered task list.
type Columns map[domain.Status][]domain.Task

// New returns a store with all three status buckets present and empty.
func New() Columns {
	c := make(Columns, 3)
	for _, s := range domain.Statuses() {
		c[s] = []domain.Task{}
	}
	return c
}

// Build buckets tasks by status, coercing unknown values on the way in.
// Task order within a bucket follows the input order.
func Build(tasks []domain.Task) Columns {
	c := New()
	for _, t := range tasks {
		t.Status = domain.ParseStatus(string(t.Status))
		t.Priority = domain.ParsePriority(string(t.Priority))
		c[t.Status] = append(c[t.Status], t)
	}
	return c
}

// AppendEnd requests insertion at the end of a column. Any out-of-range
// index behaves the same way.
const AppendEnd = -1

// Reorder moves the task within its current status column to index. The
// index is interpreted against the list after removal, clamped so that
// negative or past-the-end values append. An absent task returns the store
// unchanged.
func Reorder(c Columns, taskID string, status domain.Status, index int) Columns {
	list := c[status]
	from := indexOf(list, taskID)
	if from < 0 {
		return c
	}
	task := list[from]
	rest := make([]domain.Task, 0, len(list)-1)
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+1:]...)
	out := clone(c)
	out[status] = insertAt(rest, task, index)
	return out
}

// Move removes the task from whichever column holds it, rewrites its status
// and inserts it into the new column at index (same append/clamp rule as
// Reorder). When the task is not present in any column, a non-nil fallback
// is inserted instead; this carries optimistic moves of tasks that are not
// part of the currently rendered subset. With no fallback the store is
// returned unchanged.
func Move(c Columns, taskID string, newStatus domain.Status, index int, fallback *domain.Task) Columns {
	out := clone(c)
	var task domain.Task
	found := false
	for _, s := range domain.Statuses() {
		if i := indexOf(out[s], taskID); i >= 0 {
			task = out[s][i]
			rest := make([]domain.Task, 0, len(out[s])-1)
			rest = append(rest, out[s][:i]...)
			rest = append(rest, out[s][i+1:]...)
			out[s] = rest
			found = true
			break
		}
	}
	if !found {
		if fallback == nil {
			return c
		}
		task = *fallback
	}
	task.Status = newStatus
	out[newStatus] = insertAt(out[newStatus], task, index)
	return out
}

// Find returns the task and the status column holding it.
func Find(c Columns, taskID string) (domain.Task, domain.Status, bool) {
	for _, s := range domain.Statuses() {
		if i := indexOf(c[s], taskID); i >= 0 {
			return c[s][i], s, true
		}
	}
	return domain.Task{}, "", false
}

// IndexOf returns the task's position within its column, or -1.
func IndexOf(c Columns, taskID string, status domain.Status) int {
	return indexOf(c[status], taskID)
}

func indexOf(list []domain.Task, taskID string) int {
	for i := range list {
		if list[i].ID == taskID {
			return i
		}
	}
	return -1
}

func insertAt(list []domain.Task, task domain.Task, index int) []domain.Task {
	out := make([]domain.Task, 0, len(list)+1)
	if index < 0 || index > len(list) {
		out = append(out, list...)
		return append(out, task)
	}
	out = append(out, list[:index]...)
	out = append(out, task)
	return append(out, list[index:]...)
}

func clone(c Columns) Columns {
	out := make(Columns, len(c))
	for s, list := range c {
		copied := make([]domain.Task, len(list))
		copy(copied, list)
		out[s] = copied
	}
	return out
}
