package repo

import (
	"context"
	"database/sql"

	"taskboard/internal/domain"
)

// ListLabels returns every known label ordered by name.
func (r Repo) ListLabels(ctx context.Context) ([]domain.Label, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name, created_at FROM labels ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// EnsureLabelTx creates a label on first use. Existing labels are kept
// untouched, so the call is safe to repeat.
func (r Repo) EnsureLabelTx(ctx context.Context, tx *sql.Tx, name, now string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO labels(name, created_at) VALUES (?,?)`, name, now)
	return err
}

// setTaskLabelsTx replaces a task's label set, creating unseen labels.
func (r Repo) setTaskLabelsTx(ctx context.Context, tx *sql.Tx, taskID string, labels []string, now string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id=?`, taskID); err != nil {
		return err
	}
	for _, name := range labels {
		if err := r.EnsureLabelTx(ctx, tx, name, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_labels(task_id, label) VALUES (?,?)`, taskID, name); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) taskLabels(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT label FROM task_labels WHERE task_id=? ORDER BY label ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

// attachLabels fills Labels on each task in place with one query.
func (r Repo) attachLabels(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT task_id, label FROM task_labels ORDER BY label ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	byTask := map[string][]string{}
	for rows.Next() {
		var taskID, name string
		if err := rows.Scan(&taskID, &name); err != nil {
			return err
		}
		byTask[taskID] = append(byTask[taskID], name)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].Labels = byTask[tasks[i].ID]
	}
	return nil
}
