// Package id generates opaque random identifiers and the human-readable,
// category-prefixed identifiers used by fair entities.
package id

import (
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a 26-character lowercase base32 encoding of a random UUIDv4.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Kind is an entity category with its own identifier sequence.
type Kind string

const (
	KindProject   Kind = "project"
	KindEvaluator Kind = "evaluator"
	KindPanel     Kind = "panel"
	KindResult    Kind = "result"
)

// Kinds lists every entity kind in migration order.
var Kinds = []Kind{KindProject, KindEvaluator, KindPanel, KindResult}

// LegacyPrefix marks identifiers created before sequential ids existed.
const LegacyPrefix = "id_"

// Prefix returns the identifier prefix for kind.
func (k Kind) Prefix() string {
	switch k {
	case KindProject:
		return "PRJ"
	case KindEvaluator:
		return "EVAL"
	case KindPanel:
		return "PNL"
	case KindResult:
		return "RES"
	default:
		return ""
	}
}

// Format renders seq as "<PREFIX>-<4 digit sequence>". Sequences wider than
// four digits are kept as-is.
func Format(kind Kind, seq int) string {
	return fmt.Sprintf("%s-%04d", kind.Prefix(), seq)
}

// Next allocates the id that follows count existing entities of kind.
// The sequence is not persisted: after a deletion the next id can repeat
// one still in use.
func Next(kind Kind, count int) string {
	return Format(kind, count+1)
}

// Parse returns the kind and sequence of a canonical id.
func Parse(value string) (Kind, int, bool) {
	prefix, digits, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok || len(digits) < 4 {
		return "", 0, false
	}
	var kind Kind
	for _, candidate := range Kinds {
		if candidate.Prefix() == prefix {
			kind = candidate
			break
		}
	}
	if kind == "" {
		return "", 0, false
	}
	seq, err := strconv.Atoi(digits)
	if err != nil || seq < 1 {
		return "", 0, false
	}
	return kind, seq, true
}

// IsCanonical reports whether value is a canonical id of kind.
func IsCanonical(kind Kind, value string) bool {
	parsed, _, ok := Parse(value)
	return ok && parsed == kind
}

// IsLegacy reports whether value uses the legacy random id pattern.
func IsLegacy(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), LegacyPrefix)
}
