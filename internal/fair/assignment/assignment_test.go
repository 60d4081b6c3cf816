package assignment

import (
	"testing"

	"github.com/louisbranch/fairscore/internal/fair/store"
)

func testPanels() []store.Panel {
	return []store.Panel{
		{ID: "PNL-0001", EvaluatorIDs: []string{"EVAL-0001", "EVAL-0002", "EVAL-0003"}, ProjectIDs: []string{"PRJ-0001", "PRJ-0002"}},
		{ID: "PNL-0002", EvaluatorIDs: []string{"EVAL-0001", "EVAL-0004", "EVAL-0005"}, ProjectIDs: []string{"PRJ-0002", "PRJ-0003"}},
	}
}

func TestProjectIDsUnionFirstSeen(t *testing.T) {
	t.Parallel()

	got := ProjectIDs(testPanels(), "EVAL-0001")
	want := []string{"PRJ-0001", "PRJ-0002", "PRJ-0003"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
	if ids := ProjectIDs(testPanels(), "EVAL-0099"); len(ids) != 0 {
		t.Fatalf("unassigned evaluator got %v", ids)
	}
}

func TestPanelForPicksFirstMatch(t *testing.T) {
	t.Parallel()

	p, ok := PanelFor(testPanels(), "PRJ-0002", "EVAL-0001")
	if !ok || p.ID != "PNL-0001" {
		t.Fatalf("panel = %q %v", p.ID, ok)
	}
	p, ok = PanelFor(testPanels(), "PRJ-0002", "EVAL-0004")
	if !ok || p.ID != "PNL-0002" {
		t.Fatalf("panel = %q %v", p.ID, ok)
	}
	if IsAssigned(testPanels(), "EVAL-0004", "PRJ-0001") {
		t.Fatal("EVAL-0004 is not on a panel with PRJ-0001")
	}
}

func TestProjectsFlagsMissing(t *testing.T) {
	t.Parallel()

	projects := []store.Project{{ID: "PRJ-0001", Title: "Solar"}, {ID: "PRJ-0003", Title: "Wind"}}
	got := Projects(testPanels(), projects, "EVAL-0001")
	if len(got) != 3 {
		t.Fatalf("assigned = %+v", got)
	}
	if got[0].Project.Title != "Solar" || got[0].PanelID != "PNL-0001" {
		t.Fatalf("first = %+v", got[0])
	}
	if !got[1].Missing || got[1].Project.ID != "PRJ-0002" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestProgressFor(t *testing.T) {
	t.Parallel()

	panels := []store.Panel{{ID: "PNL-0001", EvaluatorIDs: []string{"EVAL-0001", "EVAL-0002", "EVAL-0003"}, ProjectIDs: []string{"PRJ-0001", "PRJ-0002"}}}
	results := []store.Result{
		{ID: "RES-0001", ProjectID: "PRJ-0001", EvaluatorID: "EVAL-0001"},
		{ID: "RES-0002", ProjectID: "PRJ-0009", EvaluatorID: "EVAL-0001"},
		{ID: "RES-0003", ProjectID: "PRJ-0002", EvaluatorID: "EVAL-0002"},
	}
	got := ProgressFor(panels, results, "EVAL-0001")
	want := Progress{Completed: 1, Total: 2, Left: 1, Percent: 50}
	if got != want {
		t.Fatalf("progress = %+v, want %+v", got, want)
	}
}

func TestProgressForRounds(t *testing.T) {
	t.Parallel()

	panels := []store.Panel{{ID: "PNL-0001", EvaluatorIDs: []string{"E"}, ProjectIDs: []string{"A", "B", "C"}}}
	results := []store.Result{{ProjectID: "A", EvaluatorID: "E"}, {ProjectID: "B", EvaluatorID: "E"}}
	if got := ProgressFor(panels, results, "E").Percent; got != 67 {
		t.Fatalf("percent = %d, want 67", got)
	}
}

func TestProgressForNoAssignments(t *testing.T) {
	t.Parallel()

	got := ProgressFor(nil, []store.Result{{ProjectID: "A", EvaluatorID: "E"}}, "E")
	if got != (Progress{}) {
		t.Fatalf("progress = %+v", got)
	}
}
