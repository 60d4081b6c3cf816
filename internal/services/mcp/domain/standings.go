package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/fairscore/internal/fair/assignment"
	"github.com/louisbranch/fairscore/internal/fair/ranking"
	"github.com/louisbranch/fairscore/internal/fair/remote"
	"github.com/louisbranch/fairscore/internal/fair/store"
	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DatasetSource reads the full dataset from the system of record.
type DatasetSource interface {
	GetData(ctx context.Context) (remote.Dataset, error)
}

// loadSnapshot fetches the dataset and applies it over default settings.
func loadSnapshot(ctx context.Context, source DatasetSource) (store.Snapshot, error) {
	if source == nil {
		return store.Snapshot{}, apperrors.New(apperrors.CodeRemoteNotConfigured, "dataset source is not configured")
	}
	data, err := source.GetData(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap, err := data.Snapshot(store.DefaultSettings())
	if err != nil {
		return store.Snapshot{}, apperrors.Wrap(apperrors.CodeRemoteRejected, "decode dataset", err)
	}
	return snap, nil
}

// Standing is one ranked project.
type Standing struct {
	Rank           int     `json:"rank" jsonschema:"1-based position in the standings"`
	ProjectID      string  `json:"project_id" jsonschema:"project identifier"`
	Title          string  `json:"title" jsonschema:"project title"`
	Category       string  `json:"category,omitempty" jsonschema:"project category"`
	School         string  `json:"school,omitempty" jsonschema:"school name"`
	EvaluatorCount int     `json:"evaluator_count" jsonschema:"number of submitted evaluations"`
	AverageScore   float64 `json:"average_score" jsonschema:"mean submitted total"`
	MaxPossible    int     `json:"max_possible" jsonschema:"maximum rubric total"`
	Percentage     float64 `json:"percentage" jsonschema:"average as a percentage of the maximum"`
}

func standingFrom(rank int, ps ranking.ProjectScore) Standing {
	return Standing{
		Rank:           rank,
		ProjectID:      ps.Project.ID,
		Title:          ps.Project.Title,
		Category:       ps.Project.Category,
		School:         ps.Project.School,
		EvaluatorCount: ps.EvaluatorCount,
		AverageScore:   ps.AverageScore,
		MaxPossible:    ps.MaxPossible,
		Percentage:     ps.Percentage,
	}
}

// RankProjectsInput represents the MCP tool input for project standings.
type RankProjectsInput struct {
	Category string `json:"category,omitempty" jsonschema:"optional category filter (case-insensitive)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"optional maximum number of standings"`
}

// RankProjectsResult represents the MCP tool output for project standings.
type RankProjectsResult struct {
	Standings []Standing `json:"standings" jsonschema:"projects ordered by average score"`
}

// RankProjectsTool defines the MCP tool schema for project standings.
func RankProjectsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "rank_projects",
		Description: "Ranks projects by their average submitted score",
	}
}

// RankProjectsHandler ranks projects of the current dataset.
func RankProjectsHandler(source DatasetSource) mcp.ToolHandlerFor[RankProjectsInput, RankProjectsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RankProjectsInput) (*mcp.CallToolResult, RankProjectsResult, error) {
		if input.Limit < 0 {
			return nil, RankProjectsResult{}, apperrors.New(apperrors.CodeInvalidRequest, "limit must not be negative")
		}
		snap, err := loadSnapshot(ctx, source)
		if err != nil {
			return nil, RankProjectsResult{}, err
		}
		projects := snap.Projects
		if category := strings.TrimSpace(input.Category); category != "" {
			projects = nil
			for _, p := range snap.Projects {
				if strings.EqualFold(p.Category, category) {
					projects = append(projects, p)
				}
			}
		}

		result := RankProjectsResult{Standings: []Standing{}}
		for i, ps := range ranking.Rank(projects, snap.Results) {
			if input.Limit > 0 && i == input.Limit {
				break
			}
			result.Standings = append(result.Standings, standingFrom(i+1, ps))
		}
		return nil, result, nil
	}
}

// ProjectDetailInput represents the MCP tool input for a project breakdown.
type ProjectDetailInput struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier (required)"`
}

// CriterionResult is the average of one rubric criterion.
type CriterionResult struct {
	Key     string  `json:"key" jsonschema:"criterion key"`
	Label   string  `json:"label" jsonschema:"criterion label"`
	Scores  []int   `json:"scores" jsonschema:"submitted scores in result order"`
	Average float64 `json:"average" jsonschema:"mean score"`
	Max     int     `json:"max" jsonschema:"maximum score"`
}

// EvaluationResult is one evaluator's submitted total.
type EvaluationResult struct {
	EvaluatorID string `json:"evaluator_id" jsonschema:"evaluator identifier"`
	Name        string `json:"name,omitempty" jsonschema:"evaluator name (empty when deleted)"`
	Total       int    `json:"total" jsonschema:"submitted total"`
	Remark      string `json:"remark,omitempty" jsonschema:"evaluator remark"`
	Finalized   bool   `json:"finalized" jsonschema:"whether the evaluator finalized"`
}

// ProjectDetailResult represents the MCP tool output for a project breakdown.
type ProjectDetailResult struct {
	Standing    Standing           `json:"standing" jsonschema:"project standing"`
	Criteria    []CriterionResult  `json:"criteria" jsonschema:"per-criterion averages"`
	TotalAvg    float64            `json:"total_average" jsonschema:"sum of the criterion averages"`
	Evaluations []EvaluationResult `json:"evaluations" jsonschema:"submitted evaluations"`
}

// ProjectDetailTool defines the MCP tool schema for a project breakdown.
func ProjectDetailTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "project_detail",
		Description: "Breaks a project's submitted scores down per criterion and evaluator",
	}
}

// ProjectDetailHandler returns the breakdown of one project.
func ProjectDetailHandler(source DatasetSource) mcp.ToolHandlerFor[ProjectDetailInput, ProjectDetailResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProjectDetailInput) (*mcp.CallToolResult, ProjectDetailResult, error) {
		projectID := strings.TrimSpace(input.ProjectID)
		if projectID == "" {
			return nil, ProjectDetailResult{}, apperrors.New(apperrors.CodeInvalidRequest, "project_id is required")
		}
		snap, err := loadSnapshot(ctx, source)
		if err != nil {
			return nil, ProjectDetailResult{}, err
		}

		rank := 0
		var project store.Project
		for i, ps := range ranking.Rank(snap.Projects, snap.Results) {
			if ps.Project.ID == projectID {
				rank, project = i+1, ps.Project
				break
			}
		}
		if rank == 0 {
			return nil, ProjectDetailResult{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("project %s not found", projectID))
		}

		detail := ranking.ProjectDetail(project, snap.Evaluators, snap.Results)
		result := ProjectDetailResult{
			Standing:    standingFrom(rank, detail.ProjectScore),
			Criteria:    make([]CriterionResult, 0, len(detail.Criteria)),
			TotalAvg:    detail.TotalAvg,
			Evaluations: make([]EvaluationResult, 0, len(detail.Evaluators)),
		}
		for _, c := range detail.Criteria {
			result.Criteria = append(result.Criteria, CriterionResult(c))
		}
		for _, e := range detail.Evaluators {
			result.Evaluations = append(result.Evaluations, EvaluationResult{
				EvaluatorID: e.EvaluatorID,
				Name:        e.Name,
				Total:       e.Total,
				Remark:      e.Remark,
				Finalized:   e.Finalized,
			})
		}
		return nil, result, nil
	}
}

// EvaluatorProgressInput represents the MCP tool input for evaluator progress.
type EvaluatorProgressInput struct {
	EvaluatorID string `json:"evaluator_id" jsonschema:"evaluator identifier (required)"`
}

// EvaluatorProgressResult represents the MCP tool output for evaluator progress.
type EvaluatorProgressResult struct {
	EvaluatorID string   `json:"evaluator_id" jsonschema:"evaluator identifier"`
	Name        string   `json:"name" jsonschema:"evaluator name"`
	Finalized   bool     `json:"finalized" jsonschema:"whether the evaluator finalized all results"`
	Completed   int      `json:"completed" jsonschema:"results recorded including drafts"`
	Total       int      `json:"total" jsonschema:"projects assigned"`
	Left        int      `json:"left" jsonschema:"projects without a result"`
	Percent     int      `json:"percent" jsonschema:"completion percentage"`
	Pending     []string `json:"pending" jsonschema:"assigned project identifiers without a result"`
}

// EvaluatorProgressTool defines the MCP tool schema for evaluator progress.
func EvaluatorProgressTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "evaluator_progress",
		Description: "Reports how many assigned projects an evaluator has scored",
	}
}

// EvaluatorProgressHandler returns the completion of one evaluator.
func EvaluatorProgressHandler(source DatasetSource) mcp.ToolHandlerFor[EvaluatorProgressInput, EvaluatorProgressResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EvaluatorProgressInput) (*mcp.CallToolResult, EvaluatorProgressResult, error) {
		evaluatorID := strings.TrimSpace(input.EvaluatorID)
		if evaluatorID == "" {
			return nil, EvaluatorProgressResult{}, apperrors.New(apperrors.CodeInvalidRequest, "evaluator_id is required")
		}
		snap, err := loadSnapshot(ctx, source)
		if err != nil {
			return nil, EvaluatorProgressResult{}, err
		}

		var evaluator *store.Evaluator
		for i := range snap.Evaluators {
			if snap.Evaluators[i].ID == evaluatorID {
				evaluator = &snap.Evaluators[i]
				break
			}
		}
		if evaluator == nil {
			return nil, EvaluatorProgressResult{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("evaluator %s not found", evaluatorID))
		}

		progress := assignment.ProgressFor(snap.Panels, snap.Results, evaluatorID)
		scored := make(map[string]bool)
		for _, r := range snap.Results {
			if r.EvaluatorID == evaluatorID {
				scored[r.ProjectID] = true
			}
		}
		pending := []string{}
		for _, projectID := range assignment.ProjectIDs(snap.Panels, evaluatorID) {
			if !scored[projectID] {
				pending = append(pending, projectID)
			}
		}
		return nil, EvaluatorProgressResult{
			EvaluatorID: evaluatorID,
			Name:        evaluator.Name,
			Finalized:   snap.EvaluatorState[evaluatorID].FinalizedAll,
			Completed:   progress.Completed,
			Total:       progress.Total,
			Left:        progress.Left,
			Percent:     progress.Percent,
			Pending:     pending,
		}, nil
	}
}

// DashboardInput represents the MCP tool input for the dataset overview.
type DashboardInput struct{}

// DashboardResult represents the MCP tool output for the dataset overview.
type DashboardResult struct {
	Projects            int        `json:"projects" jsonschema:"project count"`
	Evaluators          int        `json:"evaluators" jsonschema:"evaluator count"`
	Panels              int        `json:"panels" jsonschema:"panel count"`
	Results             int        `json:"results" jsonschema:"result count including drafts"`
	Submitted           int        `json:"submitted" jsonschema:"submitted result count"`
	FinalizedEvaluators int        `json:"finalized_evaluators" jsonschema:"evaluators who finalized"`
	EvaluatedProjects   int        `json:"evaluated_projects" jsonschema:"projects with a submitted result"`
	MeanAverage         float64    `json:"mean_average" jsonschema:"mean of evaluated project averages"`
	Top                 []Standing `json:"top" jsonschema:"leading projects"`
}

// DashboardTool defines the MCP tool schema for the dataset overview.
func DashboardTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "dashboard",
		Description: "Summarizes dataset counts and the leading projects",
	}
}

// DashboardHandler summarizes the current dataset.
func DashboardHandler(source DatasetSource) mcp.ToolHandlerFor[DashboardInput, DashboardResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardResult, error) {
		snap, err := loadSnapshot(ctx, source)
		if err != nil {
			return nil, DashboardResult{}, err
		}
		d := ranking.Summarize(snap)
		result := DashboardResult{
			Projects:            d.Projects,
			Evaluators:          d.Evaluators,
			Panels:              d.Panels,
			Results:             d.Results,
			Submitted:           d.Submitted,
			FinalizedEvaluators: d.FinalizedEvals,
			EvaluatedProjects:   d.EvaluatedProjects,
			MeanAverage:         d.MeanAverage,
			Top:                 make([]Standing, 0, len(d.Top)),
		}
		for i, ps := range d.Top {
			result.Top = append(result.Top, standingFrom(i+1, ps))
		}
		return nil, result, nil
	}
}
