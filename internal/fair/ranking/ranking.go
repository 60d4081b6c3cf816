// Package ranking aggregates submitted results into project standings.
package ranking

import (
	"sort"

	"github.com/louisbranch/fairscore/internal/fair/rubric"
	"github.com/louisbranch/fairscore/internal/fair/store"
)

// ProjectScore is a project's aggregate over submitted results.
type ProjectScore struct {
	Project        store.Project `json:"project"`
	EvaluatorCount int           `json:"evaluatorCount"`
	AverageScore   float64       `json:"averageScore"`
	MaxPossible    int           `json:"maxPossible"`
	Percentage     float64       `json:"percentage"`
}

// Rank sorts projects by average score, highest first. Ties keep project
// insertion order. Drafts are ignored.
func Rank(projects []store.Project, results []store.Result) []ProjectScore {
	maxTotal := rubric.MaxTotal()
	sums := make(map[string]int, len(projects))
	counts := make(map[string]int, len(projects))
	for _, r := range results {
		if !r.Submitted() {
			continue
		}
		sums[r.ProjectID] += r.Total
		counts[r.ProjectID]++
	}

	out := make([]ProjectScore, 0, len(projects))
	for _, p := range projects {
		ps := ProjectScore{Project: p, EvaluatorCount: counts[p.ID], MaxPossible: maxTotal}
		if ps.EvaluatorCount > 0 {
			ps.AverageScore = float64(sums[p.ID]) / float64(ps.EvaluatorCount)
			ps.Percentage = ps.AverageScore / float64(maxTotal) * 100
		}
		out = append(out, ps)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageScore > out[j].AverageScore
	})
	return out
}

// CriterionAverage is the mean score of one criterion across evaluators.
type CriterionAverage struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Scores  []int   `json:"scores"`
	Average float64 `json:"average"`
	Max     int     `json:"max"`
}

// EvaluatorScore is one evaluator's submitted total for a project.
type EvaluatorScore struct {
	ResultID    string `json:"resultId"`
	EvaluatorID string `json:"evaluatorId"`
	// Name is empty when the evaluator no longer exists.
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Remark    string `json:"remark,omitempty"`
	Finalized bool   `json:"finalized"`
	TS        int64  `json:"ts"`
}

// Detail is the per-criterion breakdown of a project.
type Detail struct {
	ProjectScore
	Criteria   []CriterionAverage `json:"criteria"`
	TotalAvg   float64            `json:"totalAvg"`
	Evaluators []EvaluatorScore   `json:"evaluators"`
}

// ProjectDetail aggregates submitted results for project per criterion.
// Summing the criterion averages gives the same figure as the mean total.
func ProjectDetail(project store.Project, evaluators []store.Evaluator, results []store.Result) Detail {
	names := make(map[string]string, len(evaluators))
	for _, e := range evaluators {
		name := e.Name
		if name == "" {
			name = e.Email
		}
		names[e.ID] = name
	}

	var mine []store.Result
	for _, r := range results {
		if r.ProjectID == project.ID && r.Submitted() {
			mine = append(mine, r)
		}
	}

	d := Detail{ProjectScore: Rank([]store.Project{project}, mine)[0]}
	for _, c := range rubric.Criteria() {
		agg := CriterionAverage{Key: c.Key, Label: c.Label, Scores: []int{}, Max: rubric.MaxScore}
		sum := 0
		for _, r := range mine {
			v := r.Scores[c.Key]
			agg.Scores = append(agg.Scores, v)
			sum += v
		}
		if len(mine) > 0 {
			agg.Average = float64(sum) / float64(len(mine))
		}
		d.TotalAvg += agg.Average
		d.Criteria = append(d.Criteria, agg)
	}
	for _, r := range mine {
		d.Evaluators = append(d.Evaluators, EvaluatorScore{
			ResultID:    r.ID,
			EvaluatorID: r.EvaluatorID,
			Name:        names[r.EvaluatorID],
			Total:       r.Total,
			Remark:      r.Remark,
			Finalized:   r.FinalizedByEvaluator,
			TS:          r.TS,
		})
	}
	return d
}

// Dashboard is the admin overview of a dataset.
type Dashboard struct {
	Projects          int            `json:"projects"`
	Evaluators        int            `json:"evaluators"`
	Panels            int            `json:"panels"`
	Results           int            `json:"results"`
	Submitted         int            `json:"submitted"`
	FinalizedEvals    int            `json:"finalizedEvaluators"`
	EvaluatedProjects int            `json:"evaluatedProjects"`
	MeanAverage       float64        `json:"meanAverage"`
	Top               []ProjectScore `json:"top"`
}

// TopN is the number of leaders included in a dashboard.
const TopN = 5

// Summarize builds the dashboard for snap.
func Summarize(snap store.Snapshot) Dashboard {
	d := Dashboard{
		Projects:   len(snap.Projects),
		Evaluators: len(snap.Evaluators),
		Panels:     len(snap.Panels),
		Results:    len(snap.Results),
	}
	for _, r := range snap.Results {
		if r.Submitted() {
			d.Submitted++
		}
	}
	for _, st := range snap.EvaluatorState {
		if st.FinalizedAll {
			d.FinalizedEvals++
		}
	}
	ranked := Rank(snap.Projects, snap.Results)
	sum := 0.0
	for _, ps := range ranked {
		if ps.EvaluatorCount == 0 {
			continue
		}
		d.EvaluatedProjects++
		sum += ps.AverageScore
	}
	if d.EvaluatedProjects > 0 {
		d.MeanAverage = sum / float64(d.EvaluatedProjects)
	}
	d.Top = ranked[:min(TopN, len(ranked))]
	return d
}
