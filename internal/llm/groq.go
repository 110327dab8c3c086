// Package llm talks to the Groq chat-completions API to draft reply
// suggestions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autou/mailtriage/pkg/errors"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
	defaultTimeout = 30 * time.Second
)

const systemPrompt = "Você escreve e-mails profissionais e concisos em português."

// Config configures the Groq client. Only APIKey is required.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client is a minimal Groq chat-completions client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates the configuration and returns a client. A missing API
// key is reported here, not on first use.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: groq api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SuggestReply asks the model for a short, courteous PT-BR reply draft to
// the given email.
func (c *Client) SuggestReply(ctx context.Context, subject, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Você é um assistente de atendimento ao cliente. "+
			"Escreva uma resposta curta, objetiva e cordial em PT-BR ao e-mail abaixo. "+
			"Se pedir status, peça número do protocolo; se anexos, confirme recebimento; "+
			"se erro técnico, solicite detalhes mínimos. Não invente dados.\n\n"+
			"Assunto: %s\n\nCorpo:\n%s\n\n"+
			"Responda apenas com o texto do e-mail (sem rótulos).",
		subject, text,
	)

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		return "", errors.Wrap(err, "llm: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "llm: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "llm: groq request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "llm: read response")
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "llm: decode response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", errors.New("LLM_UPSTREAM_ERROR",
			fmt.Sprintf("groq returned status %d: %s", resp.StatusCode, msg),
			http.StatusBadGateway)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("LLM_EMPTY_RESPONSE", "groq returned no choices", http.StatusBadGateway)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
