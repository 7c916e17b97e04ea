package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskboard/internal/domain"
)

// Repo is the persistence surface over SQLite. Every operation is
// transactionally consistent per call but not across calls.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertBoard(ctx context.Context, b domain.Board) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO boards(id,name,folder_id,created_at) VALUES (?,?,?,?)`,
		b.ID, b.Name, nullableStringPtr(b.FolderID), b.CreatedAt)
	return err
}

func (r Repo) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	var b domain.Board
	var folderID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,folder_id,created_at FROM boards WHERE id=?`, id).
		Scan(&b.ID, &b.Name, &folderID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if folderID.Valid {
		b.FolderID = &folderID.String
	}
	return b, err
}

// GetBoardByName resolves a board by exact name. Names are not unique by
// schema; the first match by creation order wins.
func (r Repo) GetBoardByName(ctx context.Context, name string) (domain.Board, error) {
	var b domain.Board
	var folderID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,folder_id,created_at FROM boards WHERE name=? ORDER BY created_at ASC LIMIT 1`, name).
		Scan(&b.ID, &b.Name, &folderID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if folderID.Valid {
		b.FolderID = &folderID.String
	}
	return b, err
}

func (r Repo) SingleBoard(ctx context.Context) (domain.Board, error) {
	boards, err := r.ListBoards(ctx, "")
	if err != nil {
		return domain.Board{}, err
	}
	if len(boards) == 0 {
		return domain.Board{}, ErrNotFound
	}
	if len(boards) > 1 {
		return domain.Board{}, errors.New("multiple boards exist; specify --board")
	}
	return boards[0], nil
}

func (r Repo) ListBoards(ctx context.Context, folderID string) ([]domain.Board, error) {
	query := `SELECT id,name,folder_id,created_at FROM boards`
	var args []any
	if folderID != "" {
		query += ` WHERE folder_id=?`
		args = append(args, folderID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Board
	for rows.Next() {
		var b domain.Board
		var fid sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &fid, &b.CreatedAt); err != nil {
			return nil, err
		}
		if fid.Valid {
			b.FolderID = &fid.String
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// BoardNames returns the boardID -> name lookup used to label groups.
func (r Repo) BoardNames(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM boards`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		res[id] = name
	}
	return res, rows.Err()
}

func (r Repo) UpdateBoard(ctx context.Context, id, name string, folderID *string) error {
	var (
		fields []string
		args   []any
	)
	if name != "" {
		fields = append(fields, "name=?")
		args = append(args, name)
	}
	if folderID != nil {
		fields = append(fields, "folder_id=?")
		args = append(args, nullable(*folderID))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE boards SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteBoard(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM boards WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertFolder(ctx context.Context, f domain.Folder) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO folders(id,name,created_at) VALUES (?,?,?)`,
		f.ID, f.Name, f.CreatedAt)
	return err
}

func (r Repo) GetFolder(ctx context.Context, id string) (domain.Folder, error) {
	var f domain.Folder
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM folders WHERE id=?`, id).
		Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	return f, err
}

func (r Repo) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM folders ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Folder
	for rows.Next() {
		var f domain.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) DeleteFolder(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM folders WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
