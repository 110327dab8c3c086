package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/autou/mailtriage/internal/database/testutil"
	"github.com/autou/mailtriage/internal/services"
	"github.com/autou/mailtriage/pkg/errors"
)

type stubSuggester struct {
	draft      string
	err        error
	gotSubject string
	gotText    string
}

func (s *stubSuggester) SuggestReply(_ context.Context, subject, text string) (string, error) {
	s.gotSubject = subject
	s.gotText = text
	return s.draft, s.err
}

func suggestRouter(t *testing.T, llm ReplySuggester) (*gin.Engine, *services.EmailService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	emails, err := services.NewEmailService(db)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/api/groq/suggest", NewSuggestHandler(llm, emails).Suggest)
	return r, emails
}

func postSuggest(r *gin.Engine, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/groq/suggest", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSuggestWithInlineText(t *testing.T) {
	llm := &stubSuggester{draft: "Olá! Segue o andamento do protocolo."}
	r, _ := suggestRouter(t, llm)

	w := postSuggest(r, `{"subject":"Status","text":"Qual o andamento do protocolo 42?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			DraftReply string  `json:"draft_reply"`
			Category   string  `json:"category"`
			Confidence float64 `json:"confidence"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, llm.draft, body.Data.DraftReply)
	require.Equal(t, "Produtivo", body.Data.Category)
	require.Greater(t, body.Data.Confidence, 0.0)
	require.Equal(t, "Status", llm.gotSubject)
}

func TestSuggestLoadsStoredEmail(t *testing.T) {
	llm := &stubSuggester{draft: "Olá!"}
	r, emails := suggestRouter(t, llm)

	id, err := emails.SavePack(context.Background(), services.EmailPack{
		MessageUID: "uid-1",
		Subject:    "Status do pedido",
		BodyText:   "Qual o andamento do protocolo 42?",
	})
	require.NoError(t, err)

	w := postSuggest(r, `{"email_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Status do pedido", llm.gotSubject)
	require.Contains(t, llm.gotText, "protocolo 42")
}

func TestSuggestUnknownEmailID(t *testing.T) {
	r, _ := suggestRouter(t, &stubSuggester{})
	w := postSuggest(r, `{"email_id":"missing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSuggestRequiresInput(t *testing.T) {
	r, _ := suggestRouter(t, &stubSuggester{})
	w := postSuggest(r, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSuggestFallsBackWithoutLLM(t *testing.T) {
	r, _ := suggestRouter(t, nil)

	w := postSuggest(r, `{"text":"Qual o status do ticket?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "protocolo/ticket", "canned reply serves when no LLM is configured")
}

func TestSuggestPropagatesLLMFailure(t *testing.T) {
	llm := &stubSuggester{err: errors.New("LLM_UPSTREAM_ERROR", "groq unavailable", http.StatusBadGateway)}
	r, _ := suggestRouter(t, llm)

	w := postSuggest(r, `{"text":"Qual o status?"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
}
