// Package seed loads the in-memory defaults a fair service starts with when no
// remote data is available.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/fairscore/internal/fair/store"
)

// File is the YAML seed document. Panels reference evaluators by email and
// projects by title.
type File struct {
	Settings   yaml.Node   `yaml:"settings,omitempty"`
	Projects   []Project   `yaml:"projects,omitempty"`
	Evaluators []Evaluator `yaml:"evaluators,omitempty"`
	Panels     []Panel     `yaml:"panels,omitempty"`
}

// Project is a seeded project.
type Project struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category,omitempty"`
	Team     string `yaml:"team,omitempty"`
	School   string `yaml:"school,omitempty"`
	Contact  string `yaml:"contact,omitempty"`
}

// Evaluator is a seeded evaluator. An empty code is generated.
type Evaluator struct {
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Expertise string `yaml:"expertise,omitempty"`
	Notes     string `yaml:"notes,omitempty"`
	Code      string `yaml:"code,omitempty"`
}

// Panel is a seeded panel.
type Panel struct {
	Name       string   `yaml:"name,omitempty"`
	Evaluators []string `yaml:"evaluators"`
	Projects   []string `yaml:"projects"`
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed: %w", err)
	}
	return f, nil
}

// Load reads a seed file. An empty path yields an empty seed.
func Load(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return File{}, nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Snapshot builds the seeded dataset through the store's validation. Settings
// present in the file override defaults key by key.
func (f File) Snapshot(opts ...store.Option) (store.Snapshot, error) {
	settings := store.DefaultSettings()
	if !f.Settings.IsZero() {
		if err := f.Settings.Decode(&settings); err != nil {
			return store.Snapshot{}, fmt.Errorf("seed settings: %w", err)
		}
	}
	st := store.New(store.Snapshot{Settings: settings}, opts...)
	err := st.Update(func(tx *store.Tx) error {
		projectIDs := make(map[string]string, len(f.Projects))
		for _, p := range f.Projects {
			created, err := tx.CreateProject(store.ProjectInput{
				Title: p.Title, Category: p.Category, Team: p.Team, School: p.School, Contact: p.Contact,
			})
			if err != nil {
				return fmt.Errorf("seed project %q: %w", p.Title, err)
			}
			projectIDs[created.Title] = created.ID
		}
		evaluatorIDs := make(map[string]string, len(f.Evaluators))
		for _, e := range f.Evaluators {
			created, err := tx.CreateEvaluator(store.EvaluatorInput{
				Name: e.Name, Email: e.Email, Expertise: e.Expertise, Notes: e.Notes, Code: store.AccessCode(e.Code),
			})
			if err != nil {
				return fmt.Errorf("seed evaluator %q: %w", e.Email, err)
			}
			evaluatorIDs[strings.ToLower(created.Email)] = created.ID
		}
		for i, p := range f.Panels {
			in := store.PanelInput{Name: p.Name}
			for _, email := range p.Evaluators {
				evaluatorID, ok := evaluatorIDs[strings.ToLower(strings.TrimSpace(email))]
				if !ok {
					return fmt.Errorf("seed panel %d: unknown evaluator %q", i+1, email)
				}
				in.EvaluatorIDs = append(in.EvaluatorIDs, evaluatorID)
			}
			for _, title := range p.Projects {
				projectID, ok := projectIDs[strings.TrimSpace(title)]
				if !ok {
					return fmt.Errorf("seed panel %d: unknown project %q", i+1, title)
				}
				in.ProjectIDs = append(in.ProjectIDs, projectID)
			}
			if _, err := tx.CreatePanel(in); err != nil {
				return fmt.Errorf("seed panel %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return store.Snapshot{}, err
	}
	return st.Snapshot(), nil
}
