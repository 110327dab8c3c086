package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggestReply(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Olá! Segue o andamento.  "}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	draft, err := client.SuggestReply(context.Background(), "Status", "Qual o andamento?")
	require.NoError(t, err)
	require.Equal(t, "Olá! Segue o andamento.", draft, "whitespace is trimmed")

	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, defaultModel, gotReq["model"])

	messages := gotReq["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	require.Contains(t, user["content"], "Assunto: Status")
	require.Contains(t, user["content"], "Qual o andamento?")
}

func TestSuggestReplyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "model not found"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.SuggestReply(context.Background(), "s", "t")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not found")
}

func TestSuggestReplyEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.SuggestReply(context.Background(), "s", "t")
	require.Error(t, err)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}
