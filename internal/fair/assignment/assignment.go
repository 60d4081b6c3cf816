// Package assignment resolves which projects an evaluator must score from
// panel membership.
package assignment

import (
	"math"
	"slices"

	"github.com/louisbranch/fairscore/internal/fair/store"
)

// ProjectIDs returns the union of project ids over every panel containing
// evaluatorID, in first-seen order.
func ProjectIDs(panels []store.Panel, evaluatorID string) []string {
	var ids []string
	for _, p := range panels {
		if !p.HasEvaluator(evaluatorID) {
			continue
		}
		for _, projectID := range p.ProjectIDs {
			if !slices.Contains(ids, projectID) {
				ids = append(ids, projectID)
			}
		}
	}
	return ids
}

// Assigned is one project on an evaluator's list. Missing is set when the
// panel references a project that no longer exists.
type Assigned struct {
	Project store.Project `json:"project"`
	PanelID string        `json:"panelId"`
	Missing bool          `json:"missing,omitempty"`
}

// Projects resolves the evaluator's assigned project ids to projects.
func Projects(panels []store.Panel, projects []store.Project, evaluatorID string) []Assigned {
	ids := ProjectIDs(panels, evaluatorID)
	out := make([]Assigned, 0, len(ids))
	for _, projectID := range ids {
		item := Assigned{Project: store.Project{ID: projectID}}
		if panel, ok := PanelFor(panels, projectID, evaluatorID); ok {
			item.PanelID = panel.ID
		}
		idx := slices.IndexFunc(projects, func(p store.Project) bool { return p.ID == projectID })
		if idx < 0 {
			item.Missing = true
		} else {
			item.Project = projects[idx]
		}
		out = append(out, item)
	}
	return out
}

// IsAssigned reports whether evaluatorID must score projectID.
func IsAssigned(panels []store.Panel, evaluatorID, projectID string) bool {
	_, ok := PanelFor(panels, projectID, evaluatorID)
	return ok
}

// PanelFor returns the first panel that holds both the project and the evaluator.
func PanelFor(panels []store.Panel, projectID, evaluatorID string) (store.Panel, bool) {
	for _, p := range panels {
		if p.HasEvaluator(evaluatorID) && p.HasProject(projectID) {
			return p, true
		}
	}
	return store.Panel{}, false
}

// Progress summarizes an evaluator's completion.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Left      int `json:"left"`
	Percent   int `json:"percent"`
}

// ProgressFor counts the evaluator's results, drafts included, for projects
// still assigned to them. Results for projects since unassigned are ignored.
func ProgressFor(panels []store.Panel, results []store.Result, evaluatorID string) Progress {
	ids := ProjectIDs(panels, evaluatorID)
	p := Progress{Total: len(ids)}
	for _, r := range results {
		if r.EvaluatorID == evaluatorID && slices.Contains(ids, r.ProjectID) {
			p.Completed++
		}
	}
	p.Left = max(0, p.Total-p.Completed)
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}
