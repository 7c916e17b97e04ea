// Package tasktree implements recursive lookups and copy-on-write updates
// over a task and its nested subtasks. Update returns new nodes only along
// the path from the root to the mutated node; sibling branches keep their
// backing storage so render layers holding references see no change.
package tasktree

import (
	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/taskkey"
)

// FindByID walks the tree depth-first, checking the node itself before its
// subtasks in order, and returns the first match or nil.
func FindByID(root *domain.Task, id string) *domain.Task {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for i := range root.Subtasks {
		if found := FindByID(&root.Subtasks[i], id); found != nil {
			return found
		}
	}
	return nil
}

// FindByKey returns the first task matching key along with its immediate
// parent, so callers can reconstruct breadcrumbs. The root matches with a
// nil parent. Both are nil when the key is absent.
func FindByKey(root *domain.Task, key string) (task, parent *domain.Task) {
	if root == nil {
		return nil, nil
	}
	if root.Key == key {
		return root, nil
	}
	return findByKeyIn(root, key)
}

func findByKeyIn(parent *domain.Task, key string) (*domain.Task, *domain.Task) {
	for i := range parent.Subtasks {
		child := &parent.Subtasks[i]
		if child.Key == key {
			return child, parent
		}
		if t, p := findByKeyIn(child, key); t != nil {
			return t, p
		}
	}
	return nil, nil
}

// Update applies patch to the node with the given id and returns the new
// root plus the updated node. The returned ok is false when the id is absent
// anywhere in the tree; the root is then returned unchanged and callers are
// expected to treat that as a recoverable no-op.
//
// When the patch replaces the matched node's subtasks, incoming subtasks
// without a valid id are treated as fresh: they receive a generated id and a
// key derived from the parent, with every assigned key feeding the sibling
// set for the next. Subtasks that already carry an id pass through untouched,
// so re-deriving never changes an assigned key.
func Update(root domain.Task, id string, patch domain.TaskPatch) (domain.Task, *domain.Task, bool) {
	if root.ID == id {
		updated := patch.Apply(root)
		if patch.Subtasks != nil {
			updated.Subtasks = AdoptSubtasks(updated, patch.Subtasks)
		}
		return updated, &updated, true
	}
	for i := range root.Subtasks {
		child, target, ok := Update(root.Subtasks[i], id, patch)
		if !ok {
			continue
		}
		subtasks := make([]domain.Task, len(root.Subtasks))
		copy(subtasks, root.Subtasks)
		subtasks[i] = child
		root.Subtasks = subtasks
		return root, target, true
	}
	return root, nil, false
}

// AdoptSubtasks prepares an incoming subtask set for a parent: fresh entries
// (empty id) get an id, the parent's board, a parent reference and a
// generated key. Existing entries pass through unchanged apart from slice
// ownership.
func AdoptSubtasks(parent domain.Task, incoming []domain.Task) []domain.Task {
	siblings := make([]string, 0, len(incoming))
	for _, st := range incoming {
		if st.Key != "" {
			siblings = append(siblings, st.Key)
		}
	}
	out := make([]domain.Task, len(incoming))
	for i, st := range incoming {
		if st.ID == "" {
			st.ID = uuid.New().String()
			st.Key = taskkey.NextSubtaskKey(parent.Key, siblings)
			siblings = append(siblings, st.Key)
		}
		st.BoardID = parent.BoardID
		parentID := parent.ID
		st.ParentID = &parentID
		out[i] = st
	}
	return out
}
