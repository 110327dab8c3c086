package triage

import (
	"sort"
	"strings"
)

// SummaryMaxChars is the default cap for generated summaries.
const SummaryMaxChars = 280

var summaryKeywords = []string{
	"status", "protocolo", "ticket", "chamado", "andamento", "prazo",
	"anexo", "comprovante", "arquivo", "documento", "contrato",
	"erro", "falha", "indisponibilidade", "acesso", "senha", "bloqueio",
	"fatura", "boleto", "pagamento", "nota fiscal", "nf",
	"pedido", "solicitacao", "requisicao",
	"urgente", "asap", "prioridade", "p1", "deadline", "hoje", "amanha",
	"ultimo dia", "atrasado", "atrasada",
}

// Summarize extracts up to two high-signal sentences from the text, preferring
// sentences that carry domain keywords, open the message, or echo the subject.
// The result is capped at SummaryMaxChars runes.
func Summarize(text, subject string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return truncate(NormalizeWhitespace(text), SummaryMaxChars)
	}

	subjectTokens := tokenSet(Fold(subject))

	type scored struct {
		score float64
		idx   int
		text  string
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		ranked = append(ranked, scored{scoreSentence(s, i, subjectTokens), i, s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].idx < ranked[j].idx
	})

	chosen := []string{ranked[0].text}
	for _, cand := range ranked[1:] {
		if len(chosen) >= 2 {
			break
		}
		if tokenOverlap(chosen[0], cand.text) < 0.5 {
			chosen = append(chosen, cand.text)
		}
	}

	return truncate(NormalizeWhitespace(strings.Join(chosen, " ")), SummaryMaxChars)
}

func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	runes := []rune(strings.TrimSpace(text))

	flush := func() {
		s := NormalizeWhitespace(sb.String())
		sb.Reset()
		if len(s) >= 3 {
			out = append(out, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		sb.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && isSpace(runes[i+1]) {
			flush()
			for i+1 < len(runes) && isSpace(runes[i+1]) {
				i++
			}
		}
	}
	flush()
	return out
}

func isSentenceEnd(r rune) bool { return r == '.' || r == '!' || r == '?' }
func isSpace(r rune) bool       { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func scoreSentence(sentence string, idx int, subjectTokens map[string]struct{}) float64 {
	folded := Fold(sentence)
	score := 0.0

	for _, kw := range summaryKeywords {
		if strings.Contains(folded, kw) {
			score += 2.0
		}
	}

	// earlier sentences tend to carry the context
	if bonus := 1.5 - 0.15*float64(idx); bonus > 0 {
		score += bonus
	}

	for tok := range tokenSet(folded) {
		if _, ok := subjectTokens[tok]; ok {
			score += 0.8
		}
	}

	switch n := len(sentence); {
	case n < 30:
		score -= 0.3
	case n > 260:
		score -= 0.4
	}
	return score
}

func tokenSet(folded string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(folded) {
		set[tok] = struct{}{}
	}
	return set
}

func tokenOverlap(a, b string) float64 {
	ta := tokenSet(Fold(a))
	tb := tokenSet(Fold(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}
