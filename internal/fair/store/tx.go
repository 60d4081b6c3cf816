package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/louisbranch/fairscore/internal/platform/errors"
	"github.com/louisbranch/fairscore/internal/platform/id"
)

// Panel evaluator bounds.
const (
	MinPanelEvaluators = 3
	MaxPanelEvaluators = 4
)

// Tx is a unit of work over the dataset. Read methods return copies.
type Tx struct {
	state   Snapshot
	now     time.Time
	newCode func() string
}

// Now is the transaction timestamp.
func (tx *Tx) Now() time.Time { return tx.now }

// Snapshot returns a copy of the transaction state.
func (tx *Tx) Snapshot() Snapshot { return tx.state.Clone() }

// Settings returns the transaction's settings.
func (tx *Tx) Settings() Settings { return tx.state.Settings }

// NextID allocates the next identifier of kind from the current entity count.
func (tx *Tx) NextID(kind id.Kind) string {
	var count int
	switch kind {
	case id.KindProject:
		count = len(tx.state.Projects)
	case id.KindEvaluator:
		count = len(tx.state.Evaluators)
	case id.KindPanel:
		count = len(tx.state.Panels)
	case id.KindResult:
		count = len(tx.state.Results)
	}
	return id.Next(kind, count)
}

func notFound(kind, entityID string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("%s %s not found", kind, entityID),
		map[string]string{"Kind": kind, "ID": entityID})
}

// Projects

// ProjectInput holds the editable project fields.
type ProjectInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Team     string `json:"team"`
	School   string `json:"school"`
	Contact  string `json:"contact"`
}

func (in ProjectInput) normalize() (ProjectInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Team = strings.TrimSpace(in.Team)
	in.School = strings.TrimSpace(in.School)
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Title == "" {
		return in, apperrors.New(apperrors.CodeProjectTitleRequired, "project title is required")
	}
	return in, nil
}

// Projects lists projects in insertion order.
func (tx *Tx) Projects() []Project {
	return slices.Clone(tx.state.Projects)
}

// Project finds a project by id.
func (tx *Tx) Project(projectID string) (Project, bool) {
	idx := tx.projectIndex(projectID)
	if idx < 0 {
		return Project{}, false
	}
	return tx.state.Projects[idx], true
}

func (tx *Tx) projectIndex(projectID string) int {
	return slices.IndexFunc(tx.state.Projects, func(p Project) bool { return p.ID == projectID })
}

// CreateProject adds a project.
func (tx *Tx) CreateProject(in ProjectInput) (Project, error) {
	in, err := in.normalize()
	if err != nil {
		return Project{}, err
	}
	p := Project{
		ID:       tx.NextID(id.KindProject),
		Title:    in.Title,
		Category: in.Category,
		Team:     in.Team,
		School:   in.School,
		Contact:  in.Contact,
	}
	tx.state.Projects = append(tx.state.Projects, p)
	return p, nil
}

// UpdateProject replaces the editable fields of a project.
func (tx *Tx) UpdateProject(projectID string, in ProjectInput) (Project, error) {
	idx := tx.projectIndex(projectID)
	if idx < 0 {
		return Project{}, notFound("project", projectID)
	}
	in, err := in.normalize()
	if err != nil {
		return Project{}, err
	}
	p := &tx.state.Projects[idx]
	p.Title, p.Category, p.Team, p.School, p.Contact = in.Title, in.Category, in.Team, in.School, in.Contact
	return *p, nil
}

// DeleteProject removes a project and its panel assignments. Results that
// reference it are kept.
func (tx *Tx) DeleteProject(projectID string) error {
	idx := tx.projectIndex(projectID)
	if idx < 0 {
		return notFound("project", projectID)
	}
	tx.state.Projects = slices.Delete(tx.state.Projects, idx, idx+1)
	for i := range tx.state.Panels {
		tx.state.Panels[i].ProjectIDs = slices.DeleteFunc(tx.state.Panels[i].ProjectIDs, func(v string) bool { return v == projectID })
	}
	return nil
}

// Evaluators

// EvaluatorInput holds the admin-editable evaluator fields. An empty Code on
// create generates a random six digit code; on update it keeps the old one.
type EvaluatorInput struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Expertise string     `json:"expertise"`
	Notes     string     `json:"notes"`
	Code      AccessCode `json:"code"`
}

func (in EvaluatorInput) normalize() (EvaluatorInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Expertise = strings.TrimSpace(in.Expertise)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Code = AccessCode(strings.TrimSpace(string(in.Code)))
	if in.Name == "" {
		return in, apperrors.New(apperrors.CodeEvaluatorNameRequired, "evaluator name is required")
	}
	if in.Email == "" {
		return in, apperrors.New(apperrors.CodeEvaluatorEmailRequired, "evaluator email is required")
	}
	return in, nil
}

// Evaluators lists evaluators in insertion order.
func (tx *Tx) Evaluators() []Evaluator {
	return slices.Clone(tx.state.Evaluators)
}

// Evaluator finds an evaluator by id.
func (tx *Tx) Evaluator(evaluatorID string) (Evaluator, bool) {
	idx := tx.evaluatorIndex(evaluatorID)
	if idx < 0 {
		return Evaluator{}, false
	}
	return tx.state.Evaluators[idx], true
}

// EvaluatorByCredentials finds the first evaluator matching email and code.
func (tx *Tx) EvaluatorByCredentials(email string, code string) (Evaluator, bool) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return Evaluator{}, false
	}
	for _, e := range tx.state.Evaluators {
		if e.Email == email && string(e.Code) == code {
			return e, true
		}
	}
	return Evaluator{}, false
}

func (tx *Tx) evaluatorIndex(evaluatorID string) int {
	return slices.IndexFunc(tx.state.Evaluators, func(e Evaluator) bool { return e.ID == evaluatorID })
}

// CreateEvaluator adds an evaluator.
func (tx *Tx) CreateEvaluator(in EvaluatorInput) (Evaluator, error) {
	in, err := in.normalize()
	if err != nil {
		return Evaluator{}, err
	}
	if in.Code == "" {
		in.Code = AccessCode(tx.newCode())
	}
	e := Evaluator{
		ID:        tx.NextID(id.KindEvaluator),
		Name:      in.Name,
		Email:     in.Email,
		Expertise: in.Expertise,
		Notes:     in.Notes,
		Code:      in.Code,
	}
	tx.state.Evaluators = append(tx.state.Evaluators, e)
	return e, nil
}

// UpdateEvaluator replaces the editable fields of an evaluator.
func (tx *Tx) UpdateEvaluator(evaluatorID string, in EvaluatorInput) (Evaluator, error) {
	idx := tx.evaluatorIndex(evaluatorID)
	if idx < 0 {
		return Evaluator{}, notFound("evaluator", evaluatorID)
	}
	in, err := in.normalize()
	if err != nil {
		return Evaluator{}, err
	}
	e := &tx.state.Evaluators[idx]
	e.Name, e.Email, e.Expertise, e.Notes = in.Name, in.Email, in.Expertise, in.Notes
	if in.Code != "" {
		e.Code = in.Code
	}
	return *e, nil
}

// ProfileInput is the part of an evaluator record the evaluator may edit.
type ProfileInput struct {
	Name      string `json:"name"`
	Expertise string `json:"expertise"`
	Notes     string `json:"notes"`
}

// UpdateProfile lets an evaluator change their own name, expertise and notes.
func (tx *Tx) UpdateProfile(evaluatorID string, in ProfileInput) (Evaluator, error) {
	idx := tx.evaluatorIndex(evaluatorID)
	if idx < 0 {
		return Evaluator{}, notFound("evaluator", evaluatorID)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Evaluator{}, apperrors.New(apperrors.CodeEvaluatorNameRequired, "evaluator name is required")
	}
	e := &tx.state.Evaluators[idx]
	e.Name = name
	e.Expertise = strings.TrimSpace(in.Expertise)
	e.Notes = strings.TrimSpace(in.Notes)
	return *e, nil
}

// DeleteEvaluator removes an evaluator from the roster and from every panel.
// Results and lifecycle state that reference it are kept.
func (tx *Tx) DeleteEvaluator(evaluatorID string) error {
	idx := tx.evaluatorIndex(evaluatorID)
	if idx < 0 {
		return notFound("evaluator", evaluatorID)
	}
	tx.state.Evaluators = slices.Delete(tx.state.Evaluators, idx, idx+1)
	for i := range tx.state.Panels {
		tx.state.Panels[i].EvaluatorIDs = slices.DeleteFunc(tx.state.Panels[i].EvaluatorIDs, func(v string) bool { return v == evaluatorID })
	}
	return nil
}

// Panels

// PanelInput holds the editable panel fields. An empty name on create
// defaults to "Panel N".
type PanelInput struct {
	Name         string   `json:"name"`
	EvaluatorIDs []string `json:"evaluatorIds"`
	ProjectIDs   []string `json:"projectIds"`
}

func (tx *Tx) normalizePanel(in PanelInput) (PanelInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.EvaluatorIDs = dedupe(in.EvaluatorIDs)
	in.ProjectIDs = dedupe(in.ProjectIDs)
	if n := len(in.EvaluatorIDs); n < MinPanelEvaluators || n > MaxPanelEvaluators {
		return in, apperrors.WithMetadata(apperrors.CodePanelEvaluatorCount,
			fmt.Sprintf("panel needs %d-%d evaluators, got %d", MinPanelEvaluators, MaxPanelEvaluators, n),
			map[string]string{"Count": fmt.Sprint(n)})
	}
	if len(in.ProjectIDs) == 0 {
		return in, apperrors.New(apperrors.CodePanelProjectsRequired, "panel needs at least one project")
	}
	for _, evaluatorID := range in.EvaluatorIDs {
		if tx.evaluatorIndex(evaluatorID) < 0 {
			return in, notFound("evaluator", evaluatorID)
		}
	}
	for _, projectID := range in.ProjectIDs {
		if tx.projectIndex(projectID) < 0 {
			return in, notFound("project", projectID)
		}
	}
	return in, nil
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Panels lists panels in insertion order.
func (tx *Tx) Panels() []Panel {
	out := make([]Panel, len(tx.state.Panels))
	for i, p := range tx.state.Panels {
		out[i] = clonePanel(p)
	}
	return out
}

// Panel finds a panel by id.
func (tx *Tx) Panel(panelID string) (Panel, bool) {
	idx := tx.panelIndex(panelID)
	if idx < 0 {
		return Panel{}, false
	}
	return clonePanel(tx.state.Panels[idx]), true
}

func (tx *Tx) panelIndex(panelID string) int {
	return slices.IndexFunc(tx.state.Panels, func(p Panel) bool { return p.ID == panelID })
}

// CreatePanel adds a panel of 3-4 evaluators and at least one project.
func (tx *Tx) CreatePanel(in PanelInput) (Panel, error) {
	in, err := tx.normalizePanel(in)
	if err != nil {
		return Panel{}, err
	}
	if in.Name == "" {
		in.Name = fmt.Sprintf("Panel %d", len(tx.state.Panels)+1)
	}
	p := Panel{
		ID:           tx.NextID(id.KindPanel),
		Name:         in.Name,
		EvaluatorIDs: in.EvaluatorIDs,
		ProjectIDs:   in.ProjectIDs,
	}
	tx.state.Panels = append(tx.state.Panels, p)
	return clonePanel(p), nil
}

// UpdatePanel replaces a panel's name and membership.
func (tx *Tx) UpdatePanel(panelID string, in PanelInput) (Panel, error) {
	idx := tx.panelIndex(panelID)
	if idx < 0 {
		return Panel{}, notFound("panel", panelID)
	}
	in, err := tx.normalizePanel(in)
	if err != nil {
		return Panel{}, err
	}
	p := &tx.state.Panels[idx]
	if in.Name != "" {
		p.Name = in.Name
	}
	p.EvaluatorIDs = in.EvaluatorIDs
	p.ProjectIDs = in.ProjectIDs
	return clonePanel(*p), nil
}

// DeletePanel removes a panel. Results that reference it are kept.
func (tx *Tx) DeletePanel(panelID string) error {
	idx := tx.panelIndex(panelID)
	if idx < 0 {
		return notFound("panel", panelID)
	}
	tx.state.Panels = slices.Delete(tx.state.Panels, idx, idx+1)
	return nil
}

// Results

// Results lists results in insertion order.
func (tx *Tx) Results() []Result {
	out := make([]Result, len(tx.state.Results))
	for i, r := range tx.state.Results {
		out[i] = cloneResult(r)
	}
	return out
}

// Result finds a result by id.
func (tx *Tx) Result(resultID string) (Result, bool) {
	for _, r := range tx.state.Results {
		if r.ID == resultID {
			return cloneResult(r), true
		}
	}
	return Result{}, false
}

// ResultFor finds the result an evaluator recorded for a project.
func (tx *Tx) ResultFor(projectID, evaluatorID string) (Result, bool) {
	for _, r := range tx.state.Results {
		if r.ProjectID == projectID && r.EvaluatorID == evaluatorID {
			return cloneResult(r), true
		}
	}
	return Result{}, false
}

// ResultsByEvaluator lists an evaluator's results in insertion order.
func (tx *Tx) ResultsByEvaluator(evaluatorID string) []Result {
	var out []Result
	for _, r := range tx.state.Results {
		if r.EvaluatorID == evaluatorID {
			out = append(out, cloneResult(r))
		}
	}
	return out
}

// PutResult inserts r, or overwrites the stored result with the same id.
func (tx *Tx) PutResult(r Result) {
	r = cloneResult(r)
	for i := range tx.state.Results {
		if tx.state.Results[i].ID == r.ID {
			tx.state.Results[i] = r
			return
		}
	}
	tx.state.Results = append(tx.state.Results, r)
}

// Evaluator state

// EvaluatorState returns the lifecycle state of an evaluator.
func (tx *Tx) EvaluatorState(evaluatorID string) EvaluatorState {
	return tx.state.EvaluatorState[evaluatorID]
}

// SetEvaluatorState stores the lifecycle state of an evaluator.
func (tx *Tx) SetEvaluatorState(evaluatorID string, st EvaluatorState) {
	if tx.state.EvaluatorState == nil {
		tx.state.EvaluatorState = map[string]EvaluatorState{}
	}
	tx.state.EvaluatorState[evaluatorID] = st
}
