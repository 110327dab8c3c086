package triage

import "strings"

// Category labels match the values persisted with each email.
const (
	CategoryProductive   = "Produtivo"
	CategoryUnproductive = "Improdutivo"
)

// Classification carries the predicted category, a confidence in [0,1] and
// up to six of the terms that drove the decision.
type Classification struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Highlights []string `json:"highlights"`
}

var productiveHints = []string{
	"status", "protocolo", "andamento", "suporte", "erro",
	"anexo", "comprovante", "prazo", "ticket", "requisicao", "solicitacao",
}

var unproductiveHints = []string{
	"feliz natal", "parabens", "obrigado", "agradeco",
	"bom dia", "boa tarde", "boa noite", "ok", "ciente",
}

// Classify decides whether a message needs action (Produtivo) or is mere
// pleasantry (Improdutivo). Keyword hints vote first; when both sides score,
// question-like phrasing breaks the tie towards Produtivo.
func Classify(text string) Classification {
	folded := Fold(text)

	prodHits := hintMatches(folded, productiveHints)
	unprodHits := hintMatches(folded, unproductiveHints)

	if len(prodHits) > 0 && len(unprodHits) == 0 {
		return Classification{
			Category:   CategoryProductive,
			Confidence: hintConfidence(len(prodHits)),
			Highlights: capHighlights(prodHits),
		}
	}
	if len(unprodHits) > 0 && len(prodHits) == 0 {
		return Classification{
			Category:   CategoryUnproductive,
			Confidence: hintConfidence(len(unprodHits)),
			Highlights: capHighlights(unprodHits),
		}
	}

	if strings.Contains(folded, "?") ||
		strings.Contains(folded, "favor") ||
		strings.Contains(folded, "poderiam") ||
		strings.Contains(folded, "pode verificar") {
		return Classification{Category: CategoryProductive, Confidence: 0.6, Highlights: []string{}}
	}
	return Classification{Category: CategoryUnproductive, Confidence: 0.6, Highlights: []string{}}
}

func hintMatches(folded string, hints []string) []string {
	var hits []string
	for _, hint := range hints {
		if strings.Contains(folded, hint) {
			hits = append(hits, hint)
		}
	}
	return hits
}

func hintConfidence(hits int) float64 {
	confidence := 0.5 + 0.1*float64(hits)
	if confidence > 0.95 {
		return 0.95
	}
	return confidence
}

func capHighlights(hits []string) []string {
	if len(hits) > 6 {
		return hits[:6]
	}
	return hits
}
