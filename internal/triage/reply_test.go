package triage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggestReplyByTopic(t *testing.T) {
	cases := []struct {
		name     string
		category string
		text     string
		want     string
	}{
		{"status request", CategoryProductive, "qual o andamento do meu ticket?", "protocolo/ticket"},
		{"attachment", CategoryProductive, "segue em anexo o comprovante", "Arquivo recebido"},
		{"technical issue", CategoryProductive, "estou com erro de acesso no sistema", "inconveniente"},
		{"generic productive", CategoryProductive, "gostaria de uma informação", "Obrigado pelo contato"},
		{"unproductive", CategoryUnproductive, "feliz natal!", "Agradecemos a mensagem"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Contains(t, SuggestReply(tc.category, tc.text), tc.want)
		})
	}
}

func TestSuggestReplyTopicMatchingIgnoresAccents(t *testing.T) {
	require.Contains(t, SuggestReply(CategoryProductive, "houve uma FALHA de acesso"), "inconveniente")
}
