package remote

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/fairscore/internal/fair/store"
)

// Request types accepted by POST.
const (
	TypeAdminLogin = "adminLogin"
	TypeBulk       = "bulk"
	TypeResult     = "result"
)

// ActionGetData is the GET query action that returns the dataset.
const ActionGetData = "getData"

// ErrInvalidToken is the error text the remote store returns for a missing,
// expired or forged admin token.
const ErrInvalidToken = "invalid token"

// Request is the POST body.
type Request struct {
	Type     string          `json:"type"`
	Password string          `json:"password,omitempty"`
	Token    string          `json:"token,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Response is the POST reply.
type Response struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// Dataset is the GET reply. Settings stay raw so they can be merged over
// local settings key by key.
type Dataset struct {
	Settings       json.RawMessage                 `json:"settings,omitempty"`
	Evaluators     []store.Evaluator               `json:"evaluators"`
	Projects       []store.Project                 `json:"projects"`
	Panels         []store.Panel                   `json:"panels"`
	Results        []store.Result                  `json:"results"`
	EvaluatorState map[string]store.EvaluatorState `json:"evaluatorState"`
}

// Snapshot converts the dataset, merging its settings over base. Keys absent
// from the remote settings keep their base values.
func (d Dataset) Snapshot(base store.Settings) (store.Snapshot, error) {
	settings := base
	if len(d.Settings) > 0 && string(d.Settings) != "null" {
		if err := json.Unmarshal(d.Settings, &settings); err != nil {
			return store.Snapshot{}, fmt.Errorf("decode remote settings: %w", err)
		}
	}
	snap := store.Snapshot{
		Settings:       settings,
		Evaluators:     d.Evaluators,
		Projects:       d.Projects,
		Panels:         d.Panels,
		Results:        d.Results,
		EvaluatorState: d.EvaluatorState,
	}
	return snap.Clone(), nil
}

// DatasetFrom encodes a snapshot as a dataset.
func DatasetFrom(snap store.Snapshot) (Dataset, error) {
	snap = snap.Clone()
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return Dataset{}, fmt.Errorf("encode settings: %w", err)
	}
	return Dataset{
		Settings:       settings,
		Evaluators:     snap.Evaluators,
		Projects:       snap.Projects,
		Panels:         snap.Panels,
		Results:        snap.Results,
		EvaluatorState: snap.EvaluatorState,
	}, nil
}
