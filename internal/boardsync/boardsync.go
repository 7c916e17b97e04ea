// Package boardsync reconciles optimistic local board state with the
// persistence layer. A move is applied to the local column stores
// immediately, the status change is persisted, and the same transform is
// re-applied once the call resolves so interleaved changes converge without
// a flicker. Order is never persisted; only the status travels.
package boardsync

import (
	"context"
	"log"
	"sync"

	"taskboard/internal/columns"
	"taskboard/internal/domain"
)

// StatusStore is the persistence collaborator. Implementations are expected
// to be atomic per call but not across calls.
type StatusStore interface {
	UpdateTaskStatus(ctx context.Context, taskID string, status string) error
}

// Reconciler owns a grouped-board snapshot and applies drag-and-drop and
// status-change actions to it. A single-board view is just a one-group
// reconciler.
type Reconciler struct {
	mu     sync.Mutex
	groups []columns.Group
	store  StatusStore
	logger *log.Logger
}

func New(groups []columns.Group, store StatusStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{groups: groups, store: store, logger: logger}
}

// Reset replaces the local snapshot, e.g. after an authoritative reload.
func (r *Reconciler) Reset(groups []columns.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = groups
}

// Groups returns a copy of the current snapshot for rendering.
func (r *Reconciler) Groups() []columns.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]columns.Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// MoveRequest describes one drag-and-drop or status-change action.
type MoveRequest struct {
	TaskID     string
	GroupIndex int
	Status     domain.Status
	Index      int
	// Fallback carries the task object for optimistic moves of a task not
	// present in the currently rendered subset.
	Fallback *domain.Task
}

// Move runs the two-phase protocol: locate, short-circuit pure reorders,
// apply optimistically, persist the status, then re-apply idempotently. On
// persistence failure the optimistic move is reverted and the error
// returned, so the caller can surface a retry affordance.
func (r *Reconciler) Move(ctx context.Context, req MoveRequest) error {
	r.mu.Lock()
	task, gi, current, found := columns.FindInGroups(r.groups, req.TaskID)
	if !found && req.Fallback == nil {
		r.mu.Unlock()
		r.logger.Printf("boardsync: task %s not in local state, ignoring move", req.TaskID)
		return nil
	}
	if found && current == req.Status {
		// pure reorder; order is local-only, nothing to persist
		r.groups = columns.ReorderInGroup(r.groups, gi, req.TaskID, req.Status, req.Index)
		r.mu.Unlock()
		return nil
	}
	prevIndex := 0
	if found {
		prevIndex = columns.IndexOf(r.groups[gi].Columns, req.TaskID, current)
	} else {
		gi = req.GroupIndex
		task = *req.Fallback
		current = task.Status
	}
	r.groups = columns.MoveInGroup(r.groups, gi, req.TaskID, req.Status, req.Index, req.Fallback)
	r.mu.Unlock()

	if err := r.store.UpdateTaskStatus(ctx, req.TaskID, string(req.Status)); err != nil {
		r.mu.Lock()
		if found {
			restore := task
			r.groups = columns.MoveInGroup(r.groups, gi, req.TaskID, current, prevIndex, &restore)
		} else {
			r.groups = removeFromGroup(r.groups, gi, req.TaskID)
		}
		r.mu.Unlock()
		r.logger.Printf("boardsync: persist move of %s failed, reverted: %v", req.TaskID, err)
		return err
	}

	// converge: the task already sits in the target status, so this only
	// folds in mutations that interleaved during the await
	r.mu.Lock()
	r.groups = columns.MoveInGroup(r.groups, gi, req.TaskID, req.Status, req.Index, req.Fallback)
	r.mu.Unlock()
	return nil
}

func removeFromGroup(groups []columns.Group, groupIndex int, taskID string) []columns.Group {
	if groupIndex < 0 || groupIndex >= len(groups) {
		return groups
	}
	out := make([]columns.Group, len(groups))
	copy(out, groups)
	cols := columns.New()
	for s, list := range groups[groupIndex].Columns {
		kept := make([]domain.Task, 0, len(list))
		for _, t := range list {
			if t.ID != taskID {
				kept = append(kept, t)
			}
		}
		cols[s] = kept
	}
	out[groupIndex].Columns = cols
	return out
}
