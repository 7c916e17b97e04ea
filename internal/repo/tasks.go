package repo

import (
	"context"
	"database/sql"

	"taskboard/internal/columns"
	"taskboard/internal/domain"
	"taskboard/internal/tasktree"
)

const taskColumns = `id,board_id,parent_id,key,summary,COALESCE(description,''),status,priority,due_date,schedule_date,estimation,position,created_at,updated_at`

// TaskFilters selects top-level tasks. ScheduleOn is a day (YYYY-MM-DD) and
// spans all boards; ParentID narrows to one parent's subtask set.
type TaskFilters struct {
	BoardID    string
	ParentID   string
	ScheduleOn string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (domain.Task, error) {
	var t domain.Task
	var parentID, dueDate, scheduleDate sql.NullString
	var estimation sql.NullFloat64
	var status, priority string
	var position int
	err := s.Scan(&t.ID, &t.BoardID, &parentID, &t.Key, &t.Summary, &t.Description,
		&status, &priority, &dueDate, &scheduleDate, &estimation, &position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	// coercion happens here, once, at the storage boundary
	t.Status = domain.ParseStatus(status)
	t.Priority = domain.ParsePriority(priority)
	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if scheduleDate.Valid {
		t.ScheduleDate = &scheduleDate.String
	}
	if estimation.Valid {
		t.Estimation = &estimation.Float64
	}
	return t, nil
}

func (r Repo) taskRows(ctx context.Context, where string, args ...any) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY position ASC, created_at ASC, key ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ListTasks returns top-level tasks matching the filter with their full
// descendant subtrees nested. For schedule filters the subtrees ride along
// regardless of the subtasks' own schedule dates: membership is inherited
// downward.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var flat []domain.Task
	var err error
	switch {
	case f.BoardID != "":
		flat, err = r.taskRows(ctx, "board_id=?", f.BoardID)
	default:
		flat, err = r.taskRows(ctx, "")
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachLabels(ctx, flat); err != nil {
		return nil, err
	}
	trees := assembleTrees(flat)
	if f.ParentID != "" {
		for i := range trees {
			if found := tasktree.FindByID(&trees[i], f.ParentID); found != nil {
				return found.Subtasks, nil
			}
		}
		return nil, nil
	}
	if f.ScheduleOn != "" {
		return columns.ScheduleFor(trees, f.ScheduleOn), nil
	}
	return trees, nil
}

// assembleTrees nests flat rows into trees by parent id, keeping the
// per-parent row order (position, created_at).
func assembleTrees(flat []domain.Task) []domain.Task {
	children := map[string][]domain.Task{}
	var roots []domain.Task
	for _, t := range flat {
		if t.ParentID == nil {
			roots = append(roots, t)
		} else {
			children[*t.ParentID] = append(children[*t.ParentID], t)
		}
	}
	var attach func(t domain.Task) domain.Task
	attach = func(t domain.Task) domain.Task {
		subs := children[t.ID]
		if len(subs) == 0 {
			return t
		}
		t.Subtasks = make([]domain.Task, len(subs))
		for i, st := range subs {
			t.Subtasks[i] = attach(st)
		}
		return t
	}
	for i := range roots {
		roots[i] = attach(roots[i])
	}
	return roots
}

// GetTask returns one flat row (no subtasks attached).
func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	labels, err := r.taskLabels(ctx, t.ID)
	if err != nil {
		return t, err
	}
	t.Labels = labels
	return t, nil
}

// GetTaskTree returns the task with its whole subtree nested. The id may
// name a subtask; the returned root is that node, not its top-level
// ancestor.
func (r Repo) GetTaskTree(ctx context.Context, id string) (domain.Task, error) {
	t, err := r.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	flat, err := r.taskRows(ctx, "board_id=?", t.BoardID)
	if err != nil {
		return t, err
	}
	if err := r.attachLabels(ctx, flat); err != nil {
		return t, err
	}
	for _, tree := range assembleTrees(flat) {
		if found := tasktree.FindByID(&tree, id); found != nil {
			return *found, nil
		}
	}
	return t, nil
}

// GetTaskByKey resolves a task by its human-readable key anywhere in the
// system, returning the matched node and its immediate parent (nil for
// top-level tasks).
func (r Repo) GetTaskByKey(ctx context.Context, key string) (domain.Task, *domain.Task, error) {
	var boardID string
	err := r.DB.QueryRowContext(ctx, `SELECT board_id FROM tasks WHERE key=?`, key).Scan(&boardID)
	if err == sql.ErrNoRows {
		return domain.Task{}, nil, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, nil, err
	}
	flat, err := r.taskRows(ctx, "board_id=?", boardID)
	if err != nil {
		return domain.Task{}, nil, err
	}
	if err := r.attachLabels(ctx, flat); err != nil {
		return domain.Task{}, nil, err
	}
	for _, tree := range assembleTrees(flat) {
		if task, parent := tasktree.FindByKey(&tree, key); task != nil {
			return *task, parent, nil
		}
	}
	return domain.Task{}, nil, ErrNotFound
}

// TopLevelKeys returns the keys of a board's top-level tasks.
func (r Repo) TopLevelKeys(ctx context.Context, boardID string) ([]string, error) {
	return r.keys(ctx, `SELECT key FROM tasks WHERE board_id=? AND parent_id IS NULL`, boardID)
}

// KeysByPrefix returns every key in the system that belongs to a prefix
// family. Key uniqueness is global, so suffix generation must see keys from
// other boards that happen to share a prefix.
func (r Repo) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return r.keys(ctx, `SELECT key FROM tasks WHERE key LIKE ?`, prefix+"-%")
}

// SubtaskKeys returns the keys of a parent's direct subtasks.
func (r Repo) SubtaskKeys(ctx context.Context, parentID string) ([]string, error) {
	return r.keys(ctx, `SELECT key FROM tasks WHERE parent_id=?`, parentID)
}

func (r Repo) keys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

// InsertTaskTx inserts one flat row.
func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task, position int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,board_id,parent_id,key,summary,description,status,priority,due_date,schedule_date,estimation,position,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.BoardID, nullableStringPtr(t.ParentID), t.Key, t.Summary, nullable(t.Description),
		string(t.Status), string(t.Priority), nullableStringPtr(t.DueDate), nullableStringPtr(t.ScheduleDate),
		nullableFloatPtr(t.Estimation), position, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return err
	}
	return r.setTaskLabelsTx(ctx, tx, t.ID, t.Labels, t.CreatedAt)
}

// InsertTaskTreeTx inserts a task and all nested subtasks, positions
// following subtask order.
func (r Repo) InsertTaskTreeTx(ctx context.Context, tx *sql.Tx, t domain.Task, position int) error {
	if err := r.InsertTaskTx(ctx, tx, t, position); err != nil {
		return err
	}
	for i, st := range t.Subtasks {
		if err := r.InsertTaskTreeTx(ctx, tx, st, i); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTaskFieldsTx rewrites a row's mutable fields (key and board stay).
func (r Repo) UpdateTaskFieldsTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET summary=?, description=?, status=?, priority=?, due_date=?, schedule_date=?, estimation=?, updated_at=? WHERE id=?`,
		t.Summary, nullable(t.Description), string(t.Status), string(t.Priority),
		nullableStringPtr(t.DueDate), nullableStringPtr(t.ScheduleDate), nullableFloatPtr(t.Estimation),
		t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if t.Labels != nil {
		return r.setTaskLabelsTx(ctx, tx, t.ID, t.Labels, t.UpdatedAt)
	}
	return nil
}

// DeleteSubtasksOfTx removes a task's entire descendant closure, leaving
// the task itself in place. Used by the replace-all subtask update path.
func (r Repo) DeleteSubtasksOfTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	ids, err := r.descendantIDsTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == taskID {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTaskTx removes a task and all descendants.
func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, taskID string) error {
	if err := r.DeleteSubtasksOfTx(ctx, tx, taskID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) descendantIDsTx(ctx context.Context, tx *sql.Tx, rootID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, parent_id FROM tasks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var flat []domain.Task
	for rows.Next() {
		var id string
		var parent sql.NullString
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		t := domain.Task{ID: id}
		if parent.Valid {
			t.ParentID = &parent.String
		}
		flat = append(flat, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ids := columns.DescendantIDs(flat, rootID)
	// delete leaves before parents to keep the FK happy
	reverse(ids)
	return ids, nil
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
