package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Project is a science-fair entry.
type Project struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Team     string `json:"team,omitempty"`
	School   string `json:"school,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

// Evaluator is a judge who logs in with email and access code.
type Evaluator struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Expertise string     `json:"expertise,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Code      AccessCode `json:"code"`
}

// AccessCode is an evaluator's login secret. Stored data carries it either as
// a JSON number or a string; numeric codes are written back as numbers.
type AccessCode string

// MarshalJSON implements json.Marshaler.
func (c AccessCode) MarshalJSON() ([]byte, error) {
	value := string(c)
	if isNumericCode(value) {
		return []byte(value), nil
	}
	return json.Marshal(value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *AccessCode) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*c = ""
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*c = AccessCode(strings.TrimSpace(value))
		return nil
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("access code: %w", err)
		}
		*c = AccessCode(number.String())
		return nil
	}
}

func isNumericCode(value string) bool {
	if value == "" || len(value) > 15 || (len(value) > 1 && value[0] == '0') {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Panel is a jury of evaluators responsible for a set of projects.
type Panel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	EvaluatorIDs []string `json:"evaluatorIds"`
	ProjectIDs   []string `json:"projectIds"`
}

// HasEvaluator reports whether evaluatorID sits on the panel.
func (p Panel) HasEvaluator(evaluatorID string) bool {
	return slices.Contains(p.EvaluatorIDs, evaluatorID)
}

// HasProject reports whether projectID is assigned to the panel.
func (p Panel) HasProject(projectID string) bool {
	return slices.Contains(p.ProjectIDs, projectID)
}

// Result is one evaluator's scoring of one project.
type Result struct {
	ID                   string         `json:"id"`
	PanelID              string         `json:"panelId,omitempty"`
	ProjectID            string         `json:"projectId"`
	EvaluatorID          string         `json:"evaluatorId"`
	Scores               map[string]int `json:"scores"`
	Remark               string         `json:"remark"`
	Total                int            `json:"total"`
	TS                   int64          `json:"ts"`
	FinalizedByEvaluator bool           `json:"finalizedByEvaluator"`
	// Draft marks results saved without submission. Records written before
	// drafts were tracked decode as submitted.
	Draft bool `json:"draft,omitempty"`
}

// Submitted reports whether the result counts toward aggregation.
func (r Result) Submitted() bool {
	return !r.Draft
}

// EvaluatorState is the per-evaluator lifecycle flag set.
type EvaluatorState struct {
	FinalizedAll bool `json:"finalizedAll"`
}

// Snapshot is the full dataset exchanged with the remote store.
type Snapshot struct {
	Settings       Settings                  `json:"settings"`
	Evaluators     []Evaluator               `json:"evaluators"`
	Projects       []Project                 `json:"projects"`
	Panels         []Panel                   `json:"panels"`
	Results        []Result                  `json:"results"`
	EvaluatorState map[string]EvaluatorState `json:"evaluatorState"`
}

// Clone returns a deep copy. Nil collections become empty ones so encoded
// snapshots always carry arrays and objects.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Settings:       s.Settings,
		Evaluators:     append([]Evaluator{}, s.Evaluators...),
		Projects:       append([]Project{}, s.Projects...),
		Panels:         make([]Panel, len(s.Panels)),
		Results:        make([]Result, len(s.Results)),
		EvaluatorState: make(map[string]EvaluatorState, len(s.EvaluatorState)),
	}
	for i, p := range s.Panels {
		out.Panels[i] = clonePanel(p)
	}
	for i, r := range s.Results {
		out.Results[i] = cloneResult(r)
	}
	maps.Copy(out.EvaluatorState, s.EvaluatorState)
	return out
}

func clonePanel(p Panel) Panel {
	p.EvaluatorIDs = append([]string{}, p.EvaluatorIDs...)
	p.ProjectIDs = append([]string{}, p.ProjectIDs...)
	return p
}

func cloneResult(r Result) Result {
	r.Scores = maps.Clone(r.Scores)
	if r.Scores == nil {
		r.Scores = map[string]int{}
	}
	return r
}
