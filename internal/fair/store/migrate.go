package store

import (
	"sort"

	"github.com/louisbranch/fairscore/internal/platform/id"
)

// MigrationReport maps old ids to new ids per kind, listing only ids that changed.
type MigrationReport map[id.Kind]map[string]string

// Changed reports the number of rewritten ids.
func (r MigrationReport) Changed() int {
	n := 0
	for _, m := range r {
		n += len(m)
	}
	return n
}

// NeedsMigration reports whether any entity still carries a legacy id or
// shares its id with another entity of the same kind.
func (tx *Tx) NeedsMigration() bool {
	for _, ids := range tx.entityIDs() {
		seen := make(map[string]bool, len(ids))
		for _, v := range ids {
			if id.IsLegacy(v) || seen[v] {
				return true
			}
			seen[v] = true
		}
	}
	return false
}

func (tx *Tx) entityIDs() map[id.Kind][]string {
	out := map[id.Kind][]string{}
	for _, p := range tx.state.Projects {
		out[id.KindProject] = append(out[id.KindProject], p.ID)
	}
	for _, e := range tx.state.Evaluators {
		out[id.KindEvaluator] = append(out[id.KindEvaluator], e.ID)
	}
	for _, p := range tx.state.Panels {
		out[id.KindPanel] = append(out[id.KindPanel], p.ID)
	}
	for _, r := range tx.state.Results {
		out[id.KindResult] = append(out[id.KindResult], r.ID)
	}
	return out
}

// danglingSequences collects, per kind, the canonical sequences that are
// referenced but name no live entity. Renumbering skips them so a stale
// reference never starts pointing at another entity.
func (tx *Tx) danglingSequences() map[id.Kind]map[int]bool {
	live := map[id.Kind]map[string]bool{}
	for kind, ids := range tx.entityIDs() {
		live[kind] = make(map[string]bool, len(ids))
		for _, v := range ids {
			live[kind][v] = true
		}
	}
	reserved := map[id.Kind]map[int]bool{}
	note := func(kind id.Kind, ref string) {
		if ref == "" || live[kind][ref] {
			return
		}
		parsed, seq, ok := id.Parse(ref)
		if !ok || parsed != kind {
			return
		}
		if reserved[kind] == nil {
			reserved[kind] = map[int]bool{}
		}
		reserved[kind][seq] = true
	}
	for _, p := range tx.state.Panels {
		for _, v := range p.EvaluatorIDs {
			note(id.KindEvaluator, v)
		}
		for _, v := range p.ProjectIDs {
			note(id.KindProject, v)
		}
	}
	for _, r := range tx.state.Results {
		note(id.KindPanel, r.PanelID)
		note(id.KindProject, r.ProjectID)
		note(id.KindEvaluator, r.EvaluatorID)
	}
	for evaluatorID := range tx.state.EvaluatorState {
		note(id.KindEvaluator, evaluatorID)
	}
	return reserved
}

// Migrate renumbers every entity to a canonical sequential id and rewrites
// all cross-references. It does nothing unless NeedsMigration reports true.
// Sequences still named by dangling references are skipped.
func (tx *Tx) Migrate() MigrationReport {
	report := MigrationReport{}
	if !tx.NeedsMigration() {
		return report
	}

	reserved := tx.danglingSequences()
	maps := map[id.Kind]map[string]string{}
	counters := map[id.Kind]int{}
	for _, kind := range id.Kinds {
		maps[kind] = map[string]string{}
	}
	allocate := func(kind id.Kind, old string) string {
		seq := counters[kind] + 1
		for reserved[kind][seq] {
			seq++
		}
		counters[kind] = seq
		next := id.Format(kind, seq)
		if _, dup := maps[kind][old]; !dup {
			maps[kind][old] = next
		}
		return next
	}
	remap := func(kind id.Kind, old string) string {
		if v, ok := maps[kind][old]; ok {
			return v
		}
		return old
	}

	for i := range tx.state.Projects {
		p := &tx.state.Projects[i]
		p.ID = allocate(id.KindProject, p.ID)
	}
	for i := range tx.state.Evaluators {
		e := &tx.state.Evaluators[i]
		e.ID = allocate(id.KindEvaluator, e.ID)
	}
	for i := range tx.state.Panels {
		p := &tx.state.Panels[i]
		p.ID = allocate(id.KindPanel, p.ID)
		for j, v := range p.EvaluatorIDs {
			p.EvaluatorIDs[j] = remap(id.KindEvaluator, v)
		}
		for j, v := range p.ProjectIDs {
			p.ProjectIDs[j] = remap(id.KindProject, v)
		}
	}
	for i := range tx.state.Results {
		r := &tx.state.Results[i]
		r.ID = allocate(id.KindResult, r.ID)
		r.PanelID = remap(id.KindPanel, r.PanelID)
		r.ProjectID = remap(id.KindProject, r.ProjectID)
		r.EvaluatorID = remap(id.KindEvaluator, r.EvaluatorID)
	}
	if len(tx.state.EvaluatorState) > 0 {
		keys := make([]string, 0, len(tx.state.EvaluatorState))
		for k := range tx.state.EvaluatorState {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		next := make(map[string]EvaluatorState, len(keys))
		for _, k := range keys {
			target := remap(id.KindEvaluator, k)
			st := tx.state.EvaluatorState[k]
			if prev, ok := next[target]; ok {
				st.FinalizedAll = st.FinalizedAll || prev.FinalizedAll
			}
			next[target] = st
		}
		tx.state.EvaluatorState = next
	}

	for kind, m := range maps {
		for old, next := range m {
			if old == next {
				continue
			}
			if report[kind] == nil {
				report[kind] = map[string]string{}
			}
			report[kind][old] = next
		}
	}
	return report
}
