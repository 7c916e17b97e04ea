package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Board  domain.Board
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	board, err := eng.CreateBoard(ctx, "Sport", nil, "tester")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Board: board}
}

func TestCreateTaskDerivesKeyFromBoardName(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Summary: "Morning run",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Key != "SPO-001" {
		t.Fatalf("key = %q, want SPO-001", task.Key)
	}
	if task.Status != domain.StatusTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("defaults not applied: %s/%s", task.Status, task.Priority)
	}
}

func TestCreateTaskFollowsExistingKeyFamily(t *testing.T) {
	env := newTestEnv(t)
	for _, key := range []string{"RUN-001", "RUN-003"} {
		_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			BoardID: env.Board.ID,
			Key:     key,
			Summary: "seed " + key,
			ActorID: "tester",
		})
		if err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Summary: "Long run",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	// the family on the board wins over the board-name prefix, and the
	// suffix continues past the highest number rather than filling gaps
	if task.Key != "RUN-004" {
		t.Fatalf("key = %q, want RUN-004", task.Key)
	}
}

func TestCreateTaskKeysStayGloballyUnique(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.Engine.CreateBoard(env.Ctx, "Running drills", nil, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: other.ID, Key: "RUN-007", Summary: "other board", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Key: "RUN-001", Summary: "seed", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Summary: "new", ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	// RUN-007 lives on another board but still blocks the suffix
	if task.Key != "RUN-008" {
		t.Fatalf("key = %q, want RUN-008", task.Key)
	}
}

func TestCreateSubtaskKeysStayGloballyUnique(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Key: "RUN-001", Summary: "first", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Key: "RUN-004", Summary: "second", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	sub, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, ParentID: second.ID, Summary: "under second", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Key != "RUN-5" {
		t.Fatalf("key = %q, want RUN-5", sub.Key)
	}
	// subtasks of a lower-numbered parent still clear the whole family
	want := []string{"RUN-6", "RUN-7", "RUN-8", "RUN-9"}
	for _, key := range want {
		sub, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			BoardID: env.Board.ID, ParentID: first.ID, Summary: "under first", ActorID: "tester",
		})
		if err != nil {
			t.Fatalf("create subtask: %v", err)
		}
		if sub.Key != key {
			t.Fatalf("key = %q, want %q", sub.Key, key)
		}
	}
}

func TestCreateTaskRejectsDuplicateKey(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Key: "RUN-001", Summary: "first", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Key: "RUN-001", Summary: "second", ActorID: "tester",
	})
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestCreateTaskKeysNestedSubtasks(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Key:     "PS-2",
		Summary: "Plan session",
		ActorID: "tester",
		Subtasks: []domain.Task{
			{Summary: "Warm up"},
			{Summary: "Intervals", Subtasks: []domain.Task{{Summary: "400m repeats"}}},
		},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if len(task.Subtasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(task.Subtasks))
	}
	if task.Subtasks[0].Key != "PS-3" || task.Subtasks[1].Key != "PS-4" {
		t.Fatalf("subtask keys = %q, %q", task.Subtasks[0].Key, task.Subtasks[1].Key)
	}
	if got := task.Subtasks[1].Subtasks[0].Key; got != "PS-5" {
		t.Fatalf("nested key = %q, want PS-5", got)
	}
	stored, err := env.Engine.Repo.GetTaskTree(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(stored.Subtasks) != 2 || stored.Subtasks[1].Subtasks[0].Key != "PS-5" {
		t.Fatalf("stored tree does not match: %+v", stored)
	}
}

func TestUpdateTaskReplacesSubtaskSet(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Key:     "RUN-1",
		Summary: "Race prep",
		ActorID: "tester",
		Subtasks: []domain.Task{
			{Summary: "old a"},
			{Summary: "old b"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	kept := task.Subtasks[0]
	updated, err := env.Engine.UpdateTask(env.Ctx, task.ID, domain.TaskPatch{
		Subtasks: []domain.Task{kept, {Summary: "new c"}},
	}, "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Subtasks) != 2 {
		t.Fatalf("subtasks = %d, want 2", len(updated.Subtasks))
	}
	if updated.Subtasks[0].ID != kept.ID || updated.Subtasks[0].Key != kept.Key {
		t.Fatalf("kept subtask changed: %+v", updated.Subtasks[0])
	}
	// fresh entry keyed past the kept sibling and the parent number; the
	// dropped sibling's key is free again
	if updated.Subtasks[1].Key != "RUN-3" {
		t.Fatalf("new key = %q, want RUN-3", updated.Subtasks[1].Key)
	}
	stored, err := env.Engine.Repo.GetTaskTree(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Subtasks) != 2 || stored.Subtasks[1].Summary != "new c" {
		t.Fatalf("stored subtasks: %+v", stored.Subtasks)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.Subtasks[1].ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("dropped subtask still present: %v", err)
	}
}

func TestUpdateTaskPatchSemantics(t *testing.T) {
	env := newTestEnv(t)
	due := "2024-06-01"
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Summary: "original",
		DueDate: due,
		ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	summary := "renamed"
	clear := ""
	updated, err := env.Engine.UpdateTask(env.Ctx, task.ID, domain.TaskPatch{
		Summary: &summary,
		DueDate: &clear,
	}, "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Summary != "renamed" {
		t.Fatalf("summary = %q", updated.Summary)
	}
	if updated.DueDate != nil {
		t.Fatalf("due date not cleared: %v", *updated.DueDate)
	}
	if updated.Status != task.Status || updated.Priority != task.Priority {
		t.Fatal("untouched fields changed")
	}
	stored, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Summary != "renamed" || stored.DueDate != nil {
		t.Fatalf("stored row: %+v", stored)
	}
}

func TestUpdateTaskMissingIDReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateTask(env.Ctx, "nope", domain.TaskPatch{}, "tester")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveTaskPersistsStatusAndLogsEvent(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Summary: "drag me", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	moved, err := env.Engine.MoveTask(env.Ctx, task.ID, "DONE", "tester")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != domain.StatusDone {
		t.Fatalf("status = %s", moved.Status)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, env.Board.ID, "task.moved", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 1 {
		t.Fatalf("task.moved events = %d, want 1", len(evts))
	}
}

func TestMoveTaskCoercesUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Summary: "drag me", Status: "DONE", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	moved, err := env.Engine.MoveTask(env.Ctx, task.ID, "blocked", "tester")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != domain.StatusTodo {
		t.Fatalf("status = %s, want TODO", moved.Status)
	}
}

func TestReorderTasksRewritesPositions(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for _, s := range []string{"a", "b", "c"} {
		task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			BoardID: env.Board.ID, Summary: s, ActorID: "tester",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, task.ID)
	}
	order := []string{ids[2], ids[0], ids[1]}
	if err := env.Engine.ReorderTasks(env.Ctx, env.Board.ID, "TODO", order, "tester"); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{BoardID: env.Board.ID})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range order {
		if tasks[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, tasks[i].ID, want)
		}
	}
}

func TestDeleteTaskRemovesSubtree(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID,
		Summary: "root",
		ActorID: "tester",
		Subtasks: []domain.Task{
			{Summary: "child", Subtasks: []domain.Task{{Summary: "grandchild"}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	grandchild := task.Subtasks[0].Subtasks[0]
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, grandchild.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("grandchild survived: %v", err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID: env.Board.ID, Summary: "tracked", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	summary := "tracked v2"
	if _, err := env.Engine.UpdateTask(env.Ctx, task.ID, domain.TaskPatch{Summary: &summary}, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, task.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	for _, typ := range []string{"task.created", "task.updated", "task.deleted"} {
		evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, env.Board.ID, typ, "task", task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(evts) != 1 {
			t.Fatalf("%s events = %d, want 1", typ, len(evts))
		}
	}
}

func TestEnsureLabelIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.Engine.EnsureLabel(env.Ctx, "cardio", "tester")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.EnsureLabel(env.Ctx, "cardio", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if first.CreatedAt != second.CreatedAt {
		t.Fatalf("label recreated: %s vs %s", first.CreatedAt, second.CreatedAt)
	}
	labels, err := env.Engine.Repo.ListLabels(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 {
		t.Fatalf("labels = %d, want 1", len(labels))
	}
}

func TestScheduleViewIncludesSubtasks(t *testing.T) {
	env := newTestEnv(t)
	day := "2024-01-02"
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		BoardID:      env.Board.ID,
		Summary:      "scheduled",
		ScheduleDate: day,
		ActorID:      "tester",
		Subtasks:     []domain.Task{{Summary: "ride along"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{ScheduleOn: day})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("schedule view: %+v", tasks)
	}
	if len(tasks[0].Subtasks) != 1 {
		t.Fatal("subtask not carried into the schedule view")
	}
	empty, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{ScheduleOn: "2024-01-03"})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("unexpected tasks on other day: %+v", empty)
	}
}
