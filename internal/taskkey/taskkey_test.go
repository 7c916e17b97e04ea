package taskkey

import (
	"fmt"
	"testing"
)

func TestPrefix(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"RUN-001", "RUN"},
		{"GH-378-RUN", "GH"},
		{"AB-CD-7", "AB-CD"},
		{"TASK-42", "TASK"},
		{"123-4", "TASK"},
		{"", "TASK"},
	}
	for _, c := range cases {
		if got := Prefix(c.key); got != c.want {
			t.Errorf("Prefix(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestNumberUsesLastDigitRun(t *testing.T) {
	if n, ok := Number("GH-378-RUN"); !ok || n != 378 {
		t.Fatalf("Number(GH-378-RUN) = %d, %v", n, ok)
	}
	if n, ok := Number("A1B-22-C303"); !ok || n != 303 {
		t.Fatalf("Number(A1B-22-C303) = %d, %v", n, ok)
	}
	if _, ok := Number("NODIGITS"); ok {
		t.Fatalf("expected no number in NODIGITS")
	}
	if _, ok := Number(""); ok {
		t.Fatalf("expected no number in empty key")
	}
}

func TestNextTopLevelKeyTakesMaxNotGap(t *testing.T) {
	got := NextTopLevelKey("Sport", []string{"RUN-001", "RUN-003"})
	if got != "RUN-004" {
		t.Fatalf("expected RUN-004, got %s", got)
	}
}

func TestNextTopLevelKeyFromBoardName(t *testing.T) {
	if got := NextTopLevelKey("Sport", nil); got != "SPO-001" {
		t.Fatalf("expected SPO-001, got %s", got)
	}
	if got := NextTopLevelKey("a b!", nil); got != "AB-001" {
		t.Fatalf("expected AB-001, got %s", got)
	}
	if got := NextTopLevelKey("123", nil); got != "TASK-001" {
		t.Fatalf("expected TASK-001, got %s", got)
	}
}

func TestNextSubtaskKeyMonotonic(t *testing.T) {
	first := NextSubtaskKey("PS-2", nil)
	if first != "PS-3" {
		t.Fatalf("expected PS-3, got %s", first)
	}
	second := NextSubtaskKey("PS-2", []string{first})
	if second != "PS-4" {
		t.Fatalf("expected PS-4, got %s", second)
	}
}

func TestNextSubtaskKeyIgnoresDigitlessSiblings(t *testing.T) {
	got := NextSubtaskKey("QA-5", []string{"QA-BROKEN", "QA-7"})
	if got != "QA-8" {
		t.Fatalf("expected QA-8, got %s", got)
	}
}

func TestGeneratedKeysStayUnique(t *testing.T) {
	seen := map[string]bool{}
	var siblings []string
	for i := 0; i < 50; i++ {
		k := NextSubtaskKey("GH-378-RUN", siblings)
		if seen[k] {
			t.Fatalf("duplicate key %s at iteration %d", k, i)
		}
		seen[k] = true
		siblings = append(siblings, k)
	}
	var existing []string
	for i := 0; i < 50; i++ {
		k := NextTopLevelKey("Sport", existing)
		if seen[k] {
			t.Fatalf("duplicate key %s at iteration %d", k, i)
		}
		seen[k] = true
		existing = append(existing, k)
	}
}

func TestSuffixEqualsMaxPlusOne(t *testing.T) {
	for _, parent := range []int{1, 5, 100} {
		for _, sibling := range []int{0, 3, 250} {
			siblings := []string{fmt.Sprintf("PX-%d", sibling)}
			want := parent + 1
			if sibling >= parent {
				want = sibling + 1
			}
			got := NextSubtaskKey(fmt.Sprintf("PX-%d", parent), siblings)
			if got != fmt.Sprintf("PX-%d", want) {
				t.Errorf("parent %d sibling %d: got %s, want PX-%d", parent, sibling, got, want)
			}
		}
	}
}
