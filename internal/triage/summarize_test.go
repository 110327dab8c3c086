package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"unicode/utf8"
)

func TestSummarizePrefersKeywordSentences(t *testing.T) {
	text := "Bom dia, tudo bem por aí. " +
		"Preciso do status do protocolo 998877 com urgência, pois o prazo é hoje. " +
		"Abraços e um ótimo final de semana para toda a equipe."

	summary := Summarize(text, "Status do protocolo 998877")
	require.Contains(t, summary, "protocolo 998877")
	require.LessOrEqual(t, utf8.RuneCountInString(summary), SummaryMaxChars)
}

func TestSummarizePicksAtMostTwoSentences(t *testing.T) {
	text := "O pagamento do boleto falhou. " +
		"O erro aparece na tela de fatura. " +
		"Qualquer coisa estamos por aqui."

	summary := Summarize(text, "")
	require.LessOrEqual(t, strings.Count(summary, "."), 2)
}

func TestSummarizeTruncatesLongInput(t *testing.T) {
	text := strings.Repeat("palavra ", 200) + "."
	summary := Summarize(text, "")
	require.LessOrEqual(t, utf8.RuneCountInString(summary), SummaryMaxChars)
	require.True(t, strings.HasSuffix(summary, "…"))
}

func TestSummarizeEmptyInput(t *testing.T) {
	require.Empty(t, Summarize("", "assunto"))
	require.Empty(t, Summarize("   \n ", ""))
}

func TestSummarizeAvoidsDuplicateSentences(t *testing.T) {
	text := "Preciso do status do protocolo 123. " +
		"Preciso do status do protocolo 123. " +
		"O prazo do contrato vence amanhã."

	summary := Summarize(text, "")
	require.Equal(t, 1, strings.Count(summary, "protocolo 123"),
		"near-identical sentences must not both be chosen")
}
