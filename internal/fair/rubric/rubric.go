// Package rubric defines the fixed scoring criteria shared by every result.
package rubric

// MaxScore is the highest score a single criterion accepts.
const MaxScore = 10

// Criterion is one scoring dimension.
type Criterion struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var criteria = []Criterion{
	{Key: "problem", Label: "Problem Statement Clarity"},
	{Key: "originality", Label: "Originality"},
	{Key: "description", Label: "Project Description Quality"},
	{Key: "method", Label: "Methodology & Design"},
	{Key: "impact", Label: "Practical Application / Impact"},
	{Key: "presentation", Label: "Presentation & Q&A"},
}

// Criteria returns the ordered rubric. The slice is a copy.
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria)
	return out
}

// Keys returns criterion keys in rubric order.
func Keys() []string {
	keys := make([]string, len(criteria))
	for i, c := range criteria {
		keys[i] = c.Key
	}
	return keys
}

// Has reports whether key names a rubric criterion.
func Has(key string) bool {
	for _, c := range criteria {
		if c.Key == key {
			return true
		}
	}
	return false
}

// MaxTotal is the highest possible result total.
func MaxTotal() int {
	return len(criteria) * MaxScore
}
