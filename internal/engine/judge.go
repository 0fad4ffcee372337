package engine

import (
	"math/rand"
	"strings"

	"escape-trail/internal/domain"
)

// NewDraft builds the initial draft for p. Ordering steps are permuted with a
// uniform Fisher-Yates shuffle drawn from rnd.
func NewDraft(p domain.Puzzle, rnd *rand.Rand) domain.Draft {
	switch p.Variant {
	case domain.VariantArithmetic:
		return &domain.ArithmeticDraft{}
	case domain.VariantOddOneOut:
		return &domain.OddOneOutDraft{}
	case domain.VariantOrdering:
		steps := append([]string(nil), p.Choices.Steps...)
		rnd.Shuffle(len(steps), func(i, j int) { steps[i], steps[j] = steps[j], steps[i] })
		return &domain.OrderingDraft{Steps: steps}
	case domain.VariantMatching:
		return &domain.MatchingDraft{Pairs: map[string]string{}}
	default:
		// Catalog validation rejects unknown variants before an engine exists.
		panic("engine: unknown variant " + string(p.Variant))
	}
}

// Judge reports whether draft solves p. It never mutates either argument.
func Judge(p domain.Puzzle, draft domain.Draft) bool {
	switch d := draft.(type) {
	case *domain.ArithmeticDraft:
		return p.Variant == domain.VariantArithmetic && normalize(d.Text) == normalize(p.Solution.Total)
	case *domain.OddOneOutDraft:
		return p.Variant == domain.VariantOddOneOut && d.Selected != "" && d.Selected == p.Solution.ChoiceID
	case *domain.OrderingDraft:
		if p.Variant != domain.VariantOrdering || len(d.Steps) != len(p.Solution.Order) {
			return false
		}
		for i := range d.Steps {
			if d.Steps[i] != p.Solution.Order[i] {
				return false
			}
		}
		return true
	case *domain.MatchingDraft:
		if p.Variant != domain.VariantMatching || len(d.Pairs) != len(p.Solution.Pairs) {
			return false
		}
		for left, right := range p.Solution.Pairs {
			if got, ok := d.Pairs[left]; !ok || got != right {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// normalize mirrors the forgiving text comparison: trim, then lowercase.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
