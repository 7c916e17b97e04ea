package columns

import (
	"testing"

	"taskboard/internal/domain"
)

func task(id string, status domain.Status) domain.Task {
	return domain.Task{ID: id, BoardID: "b1", Key: "T-" + id, Summary: id, Status: status, Priority: domain.PriorityMedium}
}

func ids(list []domain.Task) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func equalIDs(got []domain.Task, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBuildCoercesUnknownValues(t *testing.T) {
	c := Build([]domain.Task{
		{ID: "a", Status: "BACKLOG", Priority: "URGENT"},
		{ID: "b", Status: domain.StatusDone},
	})
	if !equalIDs(c[domain.StatusTodo], "a") {
		t.Fatalf("unknown status should land in TODO, got %v", ids(c[domain.StatusTodo]))
	}
	if c[domain.StatusTodo][0].Priority != domain.PriorityMedium {
		t.Fatalf("unknown priority should coerce to MEDIUM")
	}
	if !equalIDs(c[domain.StatusDone], "b") {
		t.Fatalf("DONE bucket wrong: %v", ids(c[domain.StatusDone]))
	}
}

func TestReorderInterpretsIndexPostRemoval(t *testing.T) {
	c := Build([]domain.Task{
		task("a", domain.StatusTodo),
		task("b", domain.StatusTodo),
		task("c", domain.StatusTodo),
	})
	// moving a to index 1 of the post-removal list [b c] gives [b a c]
	got := Reorder(c, "a", domain.StatusTodo, 1)
	if !equalIDs(got[domain.StatusTodo], "b", "a", "c") {
		t.Fatalf("got %v", ids(got[domain.StatusTodo]))
	}
	// out of range appends
	got = Reorder(c, "a", domain.StatusTodo, 99)
	if !equalIDs(got[domain.StatusTodo], "b", "c", "a") {
		t.Fatalf("got %v", ids(got[domain.StatusTodo]))
	}
	got = Reorder(c, "a", domain.StatusTodo, AppendEnd)
	if !equalIDs(got[domain.StatusTodo], "b", "c", "a") {
		t.Fatalf("got %v", ids(got[domain.StatusTodo]))
	}
}

func TestReorderAbsentTaskIsNoOp(t *testing.T) {
	c := Build([]domain.Task{task("a", domain.StatusTodo)})
	got := Reorder(c, "ghost", domain.StatusTodo, 0)
	if !equalIDs(got[domain.StatusTodo], "a") {
		t.Fatalf("store changed for absent task")
	}
}

func TestMoveBetweenColumns(t *testing.T) {
	c := Build([]domain.Task{
		task("a", domain.StatusTodo),
		task("b", domain.StatusTodo),
		task("c", domain.StatusInProgress),
	})
	got := Move(c, "a", domain.StatusDone, 0, nil)
	if len(got[domain.StatusTodo]) != 1 || len(got[domain.StatusInProgress]) != 1 || len(got[domain.StatusDone]) != 1 {
		t.Fatalf("bucket sizes wrong: %d/%d/%d",
			len(got[domain.StatusTodo]), len(got[domain.StatusInProgress]), len(got[domain.StatusDone]))
	}
	moved := got[domain.StatusDone][0]
	if moved.ID != "a" || moved.Status != domain.StatusDone {
		t.Fatalf("moved task wrong: %+v", moved)
	}
	// input untouched
	if len(c[domain.StatusTodo]) != 2 || len(c[domain.StatusDone]) != 0 {
		t.Fatalf("input store mutated")
	}
}

func TestMoveIsStableOnRepetition(t *testing.T) {
	c := Build([]domain.Task{
		task("a", domain.StatusTodo),
		task("b", domain.StatusTodo),
		task("c", domain.StatusTodo),
	})
	once := Move(c, "c", domain.StatusTodo, 0, nil)
	twice := Move(once, "c", domain.StatusTodo, 0, nil)
	if !equalIDs(once[domain.StatusTodo], "c", "a", "b") || !equalIDs(twice[domain.StatusTodo], "c", "a", "b") {
		t.Fatalf("no-op move not idempotent: %v then %v", ids(once[domain.StatusTodo]), ids(twice[domain.StatusTodo]))
	}
	// a same-status Move must behave exactly like Reorder
	reordered := Reorder(c, "c", domain.StatusTodo, 0)
	if !equalIDs(reordered[domain.StatusTodo], ids(once[domain.StatusTodo])...) {
		t.Fatalf("Move and Reorder diverge: %v vs %v", ids(once[domain.StatusTodo]), ids(reordered[domain.StatusTodo]))
	}
}

func TestMoveFallbackInsertsUnknownTask(t *testing.T) {
	c := New()
	fb := task("x", domain.StatusTodo)
	got := Move(c, "x", domain.StatusInProgress, AppendEnd, &fb)
	if !equalIDs(got[domain.StatusInProgress], "x") {
		t.Fatalf("fallback not inserted: %v", ids(got[domain.StatusInProgress]))
	}
	if got[domain.StatusInProgress][0].Status != domain.StatusInProgress {
		t.Fatalf("fallback status not overwritten")
	}
	// without a fallback an unknown task leaves the store unchanged
	got = Move(c, "x", domain.StatusInProgress, 0, nil)
	if len(got[domain.StatusInProgress]) != 0 {
		t.Fatalf("unexpected insert without fallback")
	}
}

func TestTaskLivesInExactlyOneBucket(t *testing.T) {
	c := Build([]domain.Task{
		task("a", domain.StatusTodo),
		task("b", domain.StatusInProgress),
	})
	got := Move(c, "a", domain.StatusInProgress, 1, nil)
	count := 0
	for _, s := range domain.Statuses() {
		for _, tk := range got[s] {
			if tk.ID == "a" {
				count++
				if tk.Status != s {
					t.Fatalf("bucket %s disagrees with status %s", s, tk.Status)
				}
			}
		}
	}
	if count != 1 {
		t.Fatalf("task present in %d buckets", count)
	}
}

func TestGroupedMutationsLeaveOtherGroupsAlone(t *testing.T) {
	t1, t2 := task("a", domain.StatusTodo), task("b", domain.StatusTodo)
	t2.BoardID = "b2"
	groups := BuildGroups([]domain.Task{t1, t2}, func(id string) string {
		if id == "b1" {
			return "Sport"
		}
		return ""
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "Sport" || groups[1].Label != "b2" {
		t.Fatalf("labels wrong: %q, %q", groups[0].Label, groups[1].Label)
	}
	moved := MoveInGroup(groups, 0, "a", domain.StatusDone, 0, nil)
	if len(moved[0].Columns[domain.StatusDone]) != 1 {
		t.Fatalf("move not applied to group 0")
	}
	// second group keeps its exact column slices
	if &moved[1].Columns[domain.StatusTodo][0] != &groups[1].Columns[domain.StatusTodo][0] {
		t.Fatalf("untouched group was copied")
	}
}

func TestMoveInGroupFallback(t *testing.T) {
	groups := BuildGroups([]domain.Task{task("a", domain.StatusTodo)}, nil)
	fb := task("z", domain.StatusTodo)
	got := MoveInGroup(groups, 0, "z", domain.StatusDone, 0, &fb)
	if len(got[0].Columns[domain.StatusDone]) != 1 || got[0].Columns[domain.StatusDone][0].ID != "z" {
		t.Fatalf("fallback not inserted into group")
	}
	// bad group index is a no-op
	same := MoveInGroup(groups, 5, "a", domain.StatusDone, 0, nil)
	if len(same[0].Columns[domain.StatusTodo]) != 1 {
		t.Fatalf("out-of-range group index changed state")
	}
}

func TestScheduleMembershipInheritsDownward(t *testing.T) {
	today := "2026-09-01"
	tomorrow := "2026-09-02"
	parent := domain.Task{
		ID: "p", BoardID: "b1", Key: "RUN-001", ScheduleDate: &today,
		Subtasks: []domain.Task{
			{ID: "s1", BoardID: "b1", Key: "RUN-2"},
			{ID: "s2", BoardID: "b1", Key: "RUN-3"},
		},
	}
	got := ScheduleFor([]domain.Task{parent}, today)
	if len(got) != 1 || len(got[0].Subtasks) != 2 {
		t.Fatalf("expected whole subtree for today, got %+v", got)
	}
	if got := ScheduleFor([]domain.Task{parent}, tomorrow); len(got) != 0 {
		t.Fatalf("expected nothing for tomorrow, got %d tasks", len(got))
	}
}

func TestDescendantIDs(t *testing.T) {
	p := func(s string) *string { return &s }
	flat := []domain.Task{
		{ID: "r"},
		{ID: "a", ParentID: p("r")},
		{ID: "b", ParentID: p("a")},
		{ID: "c", ParentID: p("b")},
		{ID: "other"},
	}
	got := DescendantIDs(flat, "r")
	want := map[string]bool{"r": true, "a": true, "b": true, "c": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("unexpected id %s", id)
		}
	}
}
