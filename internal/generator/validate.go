package generator

import (
	"strings"

	"github.com/abhisek/findata/internal/dataset"
)

// ItemValidator rejects generated items. chunk is the text the item was
// generated from.
type ItemValidator interface {
	Validate(item dataset.Item, chunk string) error
}

// StructuralValidator requires every field to be non-blank.
type StructuralValidator struct{}

func (StructuralValidator) Validate(item dataset.Item, _ string) error {
	if item.Complete() {
		return nil
	}
	switch {
	case strings.TrimSpace(item.Question) == "":
		return &ValidationError{Field: "question", Reason: "empty"}
	case strings.TrimSpace(item.Answer) == "":
		return &ValidationError{Field: "answer", Reason: "empty"}
	}
	return &ValidationError{Field: "context", Reason: "empty"}
}

// GroundingValidator requires the context to occur in the chunk, ignoring
// case and whitespace differences.
type GroundingValidator struct{}

func (GroundingValidator) Validate(item dataset.Item, chunk string) error {
	if !strings.Contains(foldSpace(chunk), foldSpace(item.Context)) {
		return &ValidationError{Field: "context", Reason: "not found in source chunk"}
	}
	return nil
}

func foldSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// DefaultValidators returns the structural check, plus the grounding check
// when grounded is set.
func DefaultValidators(grounded bool) []ItemValidator {
	v := []ItemValidator{StructuralValidator{}}
	if grounded {
		v = append(v, GroundingValidator{})
	}
	return v
}
