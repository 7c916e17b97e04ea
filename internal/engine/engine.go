package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/config"
	"taskboard/internal/domain"
	"taskboard/internal/events"
	"taskboard/internal/repo"
	"taskboard/internal/taskkey"
	"taskboard/internal/tasktree"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// CreateBoard creates a board, optionally inside a folder.
func (e Engine) CreateBoard(ctx context.Context, name string, folderID *string, actorID string) (domain.Board, error) {
	if name == "" {
		return domain.Board{}, errors.New("name is required")
	}
	if folderID != nil {
		if _, err := e.Repo.GetFolder(ctx, *folderID); err != nil {
			return domain.Board{}, fmt.Errorf("folder %s: %w", *folderID, err)
		}
	}
	b := domain.Board{
		ID:        uuid.New().String(),
		Name:      name,
		FolderID:  folderID,
		CreatedAt: e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Board{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO boards(id,name,folder_id,created_at) VALUES (?,?,?,?)`,
		b.ID, b.Name, nullableStringPtr(b.FolderID), b.CreatedAt); err != nil {
		return domain.Board{}, fmt.Errorf("insert board: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "board.created", b.ID, "board", b.ID, actorID, events.EventPayload{"name": b.Name}); err != nil {
		return domain.Board{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// UpdateBoard renames a board or moves it between folders.
func (e Engine) UpdateBoard(ctx context.Context, id string, name *string, folderID *string, actorID string) (domain.Board, error) {
	b, err := e.Repo.GetBoard(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	if name != nil && *name == "" {
		return domain.Board{}, errors.New("name is required")
	}
	if folderID != nil && *folderID != "" {
		if _, err := e.Repo.GetFolder(ctx, *folderID); err != nil {
			return domain.Board{}, fmt.Errorf("folder %s: %w", *folderID, err)
		}
	}
	newName := b.Name
	if name != nil {
		newName = *name
	}
	if err := e.Repo.UpdateBoard(ctx, id, newName, folderID); err != nil {
		return domain.Board{}, err
	}
	b.Name = newName
	if folderID != nil {
		if *folderID == "" {
			b.FolderID = nil
		} else {
			b.FolderID = folderID
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Board{}, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, "board.updated", b.ID, "board", b.ID, actorID, events.EventPayload{"name": b.Name}); err != nil {
		return domain.Board{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

// DeleteBoard removes a board and every task on it.
func (e Engine) DeleteBoard(ctx context.Context, id, actorID string) error {
	b, err := e.Repo.GetBoard(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id=?`, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "board.deleted", b.ID, "board", b.ID, actorID, events.EventPayload{"name": b.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateFolder(ctx context.Context, name, actorID string) (domain.Folder, error) {
	if name == "" {
		return domain.Folder{}, errors.New("name is required")
	}
	f := domain.Folder{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Folder{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO folders(id,name,created_at) VALUES (?,?,?)`,
		f.ID, f.Name, f.CreatedAt); err != nil {
		return domain.Folder{}, fmt.Errorf("insert folder: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "folder.created", "", "folder", f.ID, actorID, events.EventPayload{"name": f.Name}); err != nil {
		return domain.Folder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Folder{}, err
	}
	return f, nil
}

// DeleteFolder removes a folder. Its boards survive and become folderless.
func (e Engine) DeleteFolder(ctx context.Context, id, actorID string) error {
	f, err := e.Repo.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id=?`, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "folder.deleted", "", "folder", f.ID, actorID, events.EventPayload{"name": f.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// EnsureLabel creates a label on first use and reports it back either way.
func (e Engine) EnsureLabel(ctx context.Context, name, actorID string) (domain.Label, error) {
	if name == "" {
		return domain.Label{}, errors.New("name is required")
	}
	now := e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Label{}, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO labels(name, created_at) VALUES (?,?)`, name, now)
	if err != nil {
		return domain.Label{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := e.Events.Append(ctx, tx, "label.created", "", "label", name, actorID, nil); err != nil {
			return domain.Label{}, err
		}
	}
	var l domain.Label
	if err := tx.QueryRowContext(ctx, `SELECT name, created_at FROM labels WHERE name=?`, name).Scan(&l.Name, &l.CreatedAt); err != nil {
		return domain.Label{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Label{}, err
	}
	return l, nil
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	BoardID      string
	ParentID     string
	Key          string
	Summary      string
	Description  string
	Status       string
	Priority     string
	Labels       []string
	DueDate      string
	ScheduleDate string
	Estimation   *float64
	Subtasks     []domain.Task
	ActorID      string
}

// CreateTask inserts a task, generating its key when none is supplied and
// keying any nested fresh subtasks, all in one transaction.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Summary == "" {
		return domain.Task{}, errors.New("summary is required")
	}
	if opts.BoardID == "" {
		return domain.Task{}, errors.New("board is required")
	}
	board, err := e.Repo.GetBoard(ctx, opts.BoardID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("board %s: %w", opts.BoardID, err)
	}

	var parent *domain.Task
	var position int
	if opts.ParentID != "" {
		p, err := e.Repo.GetTask(ctx, opts.ParentID)
		if err != nil {
			return domain.Task{}, fmt.Errorf("parent %s: %w", opts.ParentID, err)
		}
		if p.BoardID != opts.BoardID {
			return domain.Task{}, errors.New("parent is on a different board")
		}
		parent = &p
	}

	key := opts.Key
	if key == "" {
		if parent != nil {
			siblings, err := e.Repo.SubtaskKeys(ctx, parent.ID)
			if err != nil {
				return domain.Task{}, err
			}
			// The suffix must clear the whole key family, not just the
			// direct siblings, or two parents can mint the same key.
			family, err := e.Repo.KeysByPrefix(ctx, taskkey.Prefix(parent.Key))
			if err != nil {
				return domain.Task{}, err
			}
			key = taskkey.NextSubtaskKey(parent.Key, append(siblings, family...))
			position = len(siblings)
		} else {
			key, position, err = e.nextBoardKey(ctx, board)
			if err != nil {
				return domain.Task{}, err
			}
		}
	} else {
		if _, _, err := e.Repo.GetTaskByKey(ctx, key); err == nil {
			return domain.Task{}, fmt.Errorf("key %s already in use", key)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, err
		}
		position, err = e.siblingCount(ctx, opts.BoardID, opts.ParentID)
		if err != nil {
			return domain.Task{}, err
		}
	}

	now := e.timestamp()
	status := opts.Status
	if status == "" {
		status = string(e.Config.DefaultStatus())
	}
	priority := opts.Priority
	if priority == "" {
		priority = string(e.Config.DefaultPriority())
	}
	t := domain.Task{
		ID:           uuid.New().String(),
		BoardID:      opts.BoardID,
		Key:          key,
		Summary:      opts.Summary,
		Description:  opts.Description,
		Status:       domain.ParseStatus(status),
		Priority:     domain.ParsePriority(priority),
		Labels:       opts.Labels,
		DueDate:      optionalString(opts.DueDate),
		ScheduleDate: optionalString(opts.ScheduleDate),
		Estimation:   opts.Estimation,
		Subtasks:     opts.Subtasks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if parent != nil {
		parentID := parent.ID
		t.ParentID = &parentID
	}
	t = e.adoptTree(t, now)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTaskTreeTx(ctx, tx, t, position); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "task.created", t.BoardID, "task", t.ID, opts.ActorID, events.EventPayload{
		"key":     t.Key,
		"summary": t.Summary,
		"status":  string(t.Status),
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// nextBoardKey derives the key for a new top-level task. The prefix family
// is picked from the board's existing keys first and the board name second;
// the numeric suffix is chosen against every key in the family, across
// boards, so keys stay globally unique.
func (e Engine) nextBoardKey(ctx context.Context, board domain.Board) (string, int, error) {
	topKeys, err := e.Repo.TopLevelKeys(ctx, board.ID)
	if err != nil {
		return "", 0, err
	}
	candidate := taskkey.NextTopLevelKey(board.Name, topKeys)
	global, err := e.Repo.KeysByPrefix(ctx, taskkey.Prefix(candidate))
	if err != nil {
		return "", 0, err
	}
	return taskkey.NextTopLevelKey(board.Name, append(topKeys, global...)), len(topKeys), nil
}

func (e Engine) siblingCount(ctx context.Context, boardID, parentID string) (int, error) {
	if parentID != "" {
		keys, err := e.Repo.SubtaskKeys(ctx, parentID)
		return len(keys), err
	}
	keys, err := e.Repo.TopLevelKeys(ctx, boardID)
	return len(keys), err
}

// adoptTree walks the whole subtree assigning ids, keys, board and parent
// references, and timestamps to fresh nodes at every depth.
func (e Engine) adoptTree(t domain.Task, now string) domain.Task {
	t.Subtasks = tasktree.AdoptSubtasks(t, t.Subtasks)
	for i := range t.Subtasks {
		st := t.Subtasks[i]
		if st.CreatedAt == "" {
			st.CreatedAt = now
		}
		st.UpdatedAt = now
		st.Status = domain.ParseStatus(string(st.Status))
		st.Priority = domain.ParsePriority(string(st.Priority))
		t.Subtasks[i] = e.adoptTree(st, now)
	}
	return t
}

// UpdateTask applies a patch to one node of a task tree. A patch carrying
// Subtasks replaces the node's entire subtask set: the previous descendants
// are deleted and the incoming set is inserted, with fresh entries keyed
// against the node's key and the surviving sibling keys.
func (e Engine) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch, actorID string) (domain.Task, error) {
	flat, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	rootID := flat.ID
	for {
		t, err := e.Repo.GetTask(ctx, rootID)
		if err != nil {
			return domain.Task{}, err
		}
		if t.ParentID == nil {
			break
		}
		rootID = *t.ParentID
	}
	tree, err := e.Repo.GetTaskTree(ctx, rootID)
	if err != nil {
		return domain.Task{}, err
	}
	_, node, ok := tasktree.Update(tree, id, patch)
	if !ok {
		return domain.Task{}, repo.ErrNotFound
	}
	now := e.timestamp()
	updated := *node
	if patch.Subtasks != nil {
		updated = e.adoptTree(updated, now)
	}
	updated.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTaskFieldsTx(ctx, tx, updated); err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	if patch.Subtasks != nil {
		if err := e.Repo.DeleteSubtasksOfTx(ctx, tx, updated.ID); err != nil {
			return domain.Task{}, fmt.Errorf("replace subtasks: %w", err)
		}
		for i, st := range updated.Subtasks {
			if err := e.Repo.InsertTaskTreeTx(ctx, tx, st, i); err != nil {
				return domain.Task{}, fmt.Errorf("replace subtasks: %w", err)
			}
		}
	}
	if err := e.Events.Append(ctx, tx, "task.updated", updated.BoardID, "task", updated.ID, actorID, events.EventPayload{
		"key":    updated.Key,
		"status": string(updated.Status),
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// MoveTask is the status-only persistence target used by board drags.
// Ordering inside the destination column is a view concern and is not
// written here.
func (e Engine) MoveTask(ctx context.Context, id, status, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	from := t.Status
	t.Status = domain.ParseStatus(status)
	t.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTaskFieldsTx(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("move task: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "task.moved", t.BoardID, "task", t.ID, actorID, events.EventPayload{
		"key":  t.Key,
		"from": string(from),
		"to":   string(t.Status),
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ReorderTasks rewrites the stored positions of a board column to match the
// given order. IDs not on the board's column are ignored.
func (e Engine) ReorderTasks(ctx context.Context, boardID, status string, orderedIDs []string, actorID string) error {
	if _, err := e.Repo.GetBoard(ctx, boardID); err != nil {
		return err
	}
	st := domain.ParseStatus(status)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET position=? WHERE id=? AND board_id=? AND status=?`,
			i, id, boardID, string(st)); err != nil {
			return err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.reordered", boardID, "board", boardID, actorID, events.EventPayload{
		"status": string(st),
		"count":  len(orderedIDs),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteTask removes a task and its whole subtree.
func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTaskTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", t.BoardID, "task", t.ID, actorID, events.EventPayload{"key": t.Key}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAPIKey mints a key for an actor and returns the plaintext once.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor is required")
	}
	plaintext := "tb_" + uuid.New().String()
	key := domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plaintext),
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plaintext, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
