package boardsync

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"taskboard/internal/columns"
	"taskboard/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	calls   []string
	err     error
	release chan struct{} // when non-nil, UpdateTaskStatus blocks until closed
}

func (f *fakeStore) UpdateTaskStatus(ctx context.Context, taskID string, status string) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, taskID+":"+string(status))
	return f.err
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func seed() []columns.Group {
	return columns.BuildGroups([]domain.Task{
		{ID: "a", BoardID: "b1", Key: "RUN-001", Status: domain.StatusTodo},
		{ID: "b", BoardID: "b1", Key: "RUN-002", Status: domain.StatusTodo},
		{ID: "c", BoardID: "b1", Key: "RUN-003", Status: domain.StatusInProgress},
	}, nil)
}

func TestPureReorderSkipsPersistence(t *testing.T) {
	store := &fakeStore{}
	r := New(seed(), store, quiet())
	if err := r.Move(context.Background(), MoveRequest{TaskID: "b", GroupIndex: 0, Status: domain.StatusTodo, Index: 0}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("reorder must not persist, got calls %v", store.calls)
	}
	todo := r.Groups()[0].Columns[domain.StatusTodo]
	if todo[0].ID != "b" || todo[1].ID != "a" {
		t.Fatalf("reorder not applied: %v", todo)
	}
}

func TestMovePersistsStatusOnly(t *testing.T) {
	store := &fakeStore{}
	r := New(seed(), store, quiet())
	if err := r.Move(context.Background(), MoveRequest{TaskID: "a", GroupIndex: 0, Status: domain.StatusDone, Index: 0}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(store.calls) != 1 || store.calls[0] != "a:DONE" {
		t.Fatalf("unexpected persistence calls %v", store.calls)
	}
	g := r.Groups()[0].Columns
	if len(g[domain.StatusDone]) != 1 || g[domain.StatusDone][0].ID != "a" {
		t.Fatalf("move not applied locally")
	}
	if g[domain.StatusDone][0].Status != domain.StatusDone {
		t.Fatalf("status field diverges from bucket")
	}
}

func TestUnknownTaskIsLoggedNoOp(t *testing.T) {
	store := &fakeStore{}
	r := New(seed(), store, quiet())
	if err := r.Move(context.Background(), MoveRequest{TaskID: "ghost", GroupIndex: 0, Status: domain.StatusDone}); err != nil {
		t.Fatalf("expected recoverable no-op, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("no-op must not persist")
	}
}

func TestFailedPersistenceRevertsOptimisticMove(t *testing.T) {
	store := &fakeStore{err: errors.New("server down")}
	r := New(seed(), store, quiet())
	err := r.Move(context.Background(), MoveRequest{TaskID: "a", GroupIndex: 0, Status: domain.StatusDone, Index: 0})
	if err == nil {
		t.Fatalf("expected error surfaced for retry")
	}
	g := r.Groups()[0].Columns
	if len(g[domain.StatusDone]) != 0 {
		t.Fatalf("optimistic move not reverted")
	}
	todo := g[domain.StatusTodo]
	if len(todo) != 2 || todo[0].ID != "a" || todo[0].Status != domain.StatusTodo {
		t.Fatalf("task not restored to original column/position: %v", todo)
	}
}

func TestFallbackMoveInsertsAndRevertsCleanly(t *testing.T) {
	fb := domain.Task{ID: "x", BoardID: "b1", Key: "RUN-009", Status: domain.StatusTodo}
	store := &fakeStore{}
	r := New(seed(), store, quiet())
	if err := r.Move(context.Background(), MoveRequest{TaskID: "x", GroupIndex: 0, Status: domain.StatusDone, Index: 0, Fallback: &fb}); err != nil {
		t.Fatalf("fallback move: %v", err)
	}
	g := r.Groups()[0].Columns
	if len(g[domain.StatusDone]) != 1 || g[domain.StatusDone][0].ID != "x" {
		t.Fatalf("fallback not inserted")
	}

	// failure path removes the speculative insert again
	store2 := &fakeStore{err: errors.New("boom")}
	r2 := New(seed(), store2, quiet())
	if err := r2.Move(context.Background(), MoveRequest{TaskID: "x", GroupIndex: 0, Status: domain.StatusDone, Index: 0, Fallback: &fb}); err == nil {
		t.Fatalf("expected error")
	}
	if len(r2.Groups()[0].Columns[domain.StatusDone]) != 0 {
		t.Fatalf("speculative insert not removed on failure")
	}
}

func TestReconcileConvergesAfterInterleavedReorder(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{release: release}
	r := New(seed(), store, quiet())

	done := make(chan error, 1)
	go func() {
		done <- r.Move(context.Background(), MoveRequest{TaskID: "a", GroupIndex: 0, Status: domain.StatusDone, Index: 0})
	}()

	// interleave a reorder of the DONE column while the persist call is in
	// flight; once a lands there the reconcile pass pins it back to index 0
	for {
		if g := r.Groups(); len(g[0].Columns[domain.StatusDone]) == 1 {
			break
		}
	}
	_ = r.Move(context.Background(), MoveRequest{TaskID: "a", GroupIndex: 0, Status: domain.StatusDone, Index: 5})
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("move: %v", err)
	}
	g := r.Groups()[0].Columns
	if g[domain.StatusDone][0].ID != "a" {
		t.Fatalf("reconcile did not converge to requested index")
	}
}
