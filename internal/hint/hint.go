package hint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"escape-trail/internal/domain"
)

const (
	// DefaultTemperature is the creativity setting sent to the model.
	DefaultTemperature float32 = 0.8
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-3-flash-preview"
	// DefaultPersona is the voice the model answers in.
	DefaultPersona = "Sei un Senatore Romano."
	// DefaultText is shown when the model answers with nothing.
	DefaultText = "La saggezza degli antichi ti illuminerà."
	// FallbackText is shown when the hint could not be produced at all.
	FallbackText = "Gli dèi non rispondono. Usa il tuo ingegno."
)

// ErrHintDisabled is returned by Disabled for every request.
var ErrHintDisabled = errors.New("hint provider disabled")

// Provider produces free text for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Request is everything the prompt is built from.
type Request struct {
	CatalogID   string
	PuzzleID    int
	Title       string
	Description string
	Location    string
	Solution    string
	Persona     string
	Temperature float32
}

// NewRequest captures p from catalogID with its solution rendered as JSON text.
func NewRequest(catalogID string, p domain.Puzzle, persona string, temperature float32) Request {
	if persona == "" {
		persona = DefaultPersona
	}
	return Request{
		CatalogID:   catalogID,
		PuzzleID:    p.ID,
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		Solution:    renderSolution(p),
		Persona:     persona,
		Temperature: temperature,
	}
}

// Key identifies requests that may share one provider call or cached text.
// It changes whenever anything the prompt is built from changes.
func (r Request) Key() string {
	sum := sha256.Sum256([]byte(BuildPrompt(r)))
	return fmt.Sprintf("%s:%d:%s", r.CatalogID, r.PuzzleID, hex.EncodeToString(sum[:12]))
}

// BuildPrompt renders the instruction text sent to the provider.
func BuildPrompt(r Request) string {
	return fmt.Sprintf(
		"%s Aiuta il giocatore a risolvere questo enigma: \"%s\". Descrizione: %s. Luogo: %s. La risposta corretta è %s. Fornisci un indizio criptico e solenne senza svelare la risposta.",
		r.Persona, r.Title, r.Description, r.Location, r.Solution,
	)
}

func renderSolution(p domain.Puzzle) string {
	var v any
	switch p.Variant {
	case domain.VariantArithmetic:
		v = p.Solution.Total
	case domain.VariantOddOneOut:
		v = p.Solution.ChoiceID
	case domain.VariantOrdering:
		v = p.Solution.Order
	case domain.VariantMatching:
		v = p.Solution.Pairs
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

type disabled struct{}

// Disabled is the provider used when no API key is configured.
var Disabled Provider = disabled{}

func (disabled) Generate(context.Context, string, float32) (string, error) {
	return "", ErrHintDisabled
}
