package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/fairscore/internal/fair/ranking"
	"github.com/louisbranch/fairscore/internal/fair/rubric"
	"github.com/louisbranch/fairscore/internal/fair/store"
)

// Missing is rendered for references that no longer resolve.
const Missing = "—"

// TimeLayout formats result timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// ScoreRows returns one row per project in ranking order.
func ScoreRows(projects []store.Project, results []store.Result) []Row {
	ranked := ranking.Rank(projects, results)
	rows := make([]Row, 0, len(ranked))
	for _, ps := range ranked {
		p := ps.Project
		rows = append(rows, Row{
			{"Project ID", p.ID},
			{"Project Title", p.Title},
			{"Category", p.Category},
			{"Team", p.Team},
			{"School", p.School},
			{"Number of Evaluators", strconv.Itoa(ps.EvaluatorCount)},
			{"Average Score", strconv.FormatFloat(ps.AverageScore, 'f', 2, 64)},
			{"Max Possible", strconv.Itoa(ps.MaxPossible)},
			{"Percentage", strconv.FormatFloat(ps.Percentage, 'f', 1, 64) + "%"},
		})
	}
	return rows
}

// ScoresCSV renders project standings.
func ScoresCSV(snap store.Snapshot) string {
	return CSV(ScoreRows(snap.Projects, snap.Results))
}

// ResultRows returns one row per result with names resolved and per-criterion
// scores appended in rubric order.
func ResultRows(snap store.Snapshot, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}
	panels := make(map[string]string, len(snap.Panels))
	for _, p := range snap.Panels {
		panels[p.ID] = p.Name
	}
	projects := make(map[string]string, len(snap.Projects))
	for _, p := range snap.Projects {
		projects[p.ID] = p.Title
	}
	evaluators := make(map[string]string, len(snap.Evaluators))
	for _, e := range snap.Evaluators {
		evaluators[e.ID] = e.Name
	}

	rows := make([]Row, 0, len(snap.Results))
	for _, r := range snap.Results {
		finalized := "No"
		if r.FinalizedByEvaluator {
			finalized = "Yes"
		}
		row := Row{
			{"id", r.ID},
			{"panel", lookup(panels, r.PanelID)},
			{"project", lookup(projects, r.ProjectID)},
			{"evaluator", lookup(evaluators, r.EvaluatorID)},
			{"total", strconv.Itoa(r.Total)},
			{"remark", r.Remark},
			{"finalized", finalized},
			{"time", time.UnixMilli(r.TS).In(loc).Format(TimeLayout)},
		}
		for _, key := range rubric.Keys() {
			if v, ok := r.Scores[key]; ok {
				row = append(row, Field{key, strconv.Itoa(v)})
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ResultsCSV renders every result.
func ResultsCSV(snap store.Snapshot, loc *time.Location) string {
	return CSV(ResultRows(snap, loc))
}

// ResultsJSON dumps the raw results.
func ResultsJSON(results []store.Result) ([]byte, error) {
	if results == nil {
		results = []store.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return data, nil
}

// SnapshotJSON dumps the full dataset.
func SnapshotJSON(snap store.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap.Clone(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func lookup(names map[string]string, key string) string {
	if name := names[key]; name != "" {
		return name
	}
	return Missing
}
