package triage

import "strings"

// SuggestReply produces a canned Portuguese reply draft matched to the
// message's category and topic. It is the deterministic fallback when no
// LLM suggestion is available.
func SuggestReply(category, text string) string {
	folded := Fold(text)

	if category != CategoryProductive {
		return "Olá! Agradecemos a mensagem. " +
			"Se precisar de suporte ou tiver alguma solicitação, estamos à disposição por este canal."
	}

	if containsAny(folded, "status", "protocolo", "andamento", "ticket", "chamado") {
		return "Olá! Recebemos sua solicitação de atualização de status. " +
			"Para agilizar, por favor confirme o número do protocolo/ticket e, se possível, o CPF/CNPJ do cadastro. " +
			"Assim que recebermos as informações, retornaremos com o andamento."
	}
	if containsAny(folded, "anexo", "comprovante", "arquivo", "documento", "segue em anexo") {
		return "Olá! Arquivo recebido com sucesso. " +
			"Encaminhamos para análise e retornaremos com os próximos passos. " +
			"Se houver algum detalhe adicional (ex.: nº do pedido), por favor informe neste e-mail."
	}
	if containsAny(folded, "erro", "falha", "indispon", "acesso", "reset de senha", "bloqueio") {
		return "Olá! Sentimos pelo inconveniente. " +
			"Poderia detalhar o cenário (passo a passo, prints, horário) e informar seu e-mail de acesso e nº de protocolo (se existir)? " +
			"Com isso, direcionamos a correção com prioridade."
	}
	return "Olá! Obrigado pelo contato. " +
		"Para direcionarmos rapidamente, poderia compartilhar o nº de protocolo/ticket e um breve contexto do pedido? " +
		"Ficamos à disposição."
}

func containsAny(folded string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(folded, Fold(n)) {
			return true
		}
	}
	return false
}
