package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Path              string
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction"`
}

func newGeminiServer(t *testing.T, status int) (*httptest.Server, func() []geminiRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		req.Path = r.URL.Path
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
			return
		}
		// generateContent goes through the streaming endpoint, which answers
		// with a JSON array of chunks.
		_, _ = w.Write([]byte(`[{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "  Hoş geldiniz!  "}]}}],
			"usageMetadata": {"promptTokenCount": 21, "candidatesTokenCount": 4, "totalTokenCount": 25}
		}]`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []geminiRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]geminiRequest(nil), requests...)
	}
}

func newTestGemini(t *testing.T, srv *httptest.Server) *GeminiProvider {
	t.Helper()
	provider, err := NewGeminiProvider(context.Background(), "test-key", "gemini-1.5-flash", zap.NewNop(),
		option.WithEndpoint(srv.URL),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestGeminiComplete(t *testing.T) {
	srv, requests := newGeminiServer(t, http.StatusOK)
	provider := newTestGemini(t, srv)

	resp, err := provider.Complete(context.Background(), &LLMRequest{
		SystemPrompts: []string{"Cullinan Hotel asistanısın."},
		History: []llms.ChatMessage{
			llms.HumanChatMessage{Content: "merhaba"},
			llms.AIChatMessage{Content: "Merhaba, nasıl yardımcı olabilirim?"},
			llms.SystemChatMessage{Content: "Türkçe yanıt ver."},
		},
		UserMessage: "havuz var mı?",
		Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hoş geldiniz!", resp.Content)
	assert.Equal(t, 21, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)

	got := requests()
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0].Path, "/models/gemini-1.5-flash:streamGenerateContent"), got[0].Path)

	require.Len(t, got[0].Contents, 3)
	assert.Equal(t, "user", got[0].Contents[0].Role)
	assert.Equal(t, "model", got[0].Contents[1].Role)
	assert.Equal(t, "user", got[0].Contents[2].Role)
	assert.Equal(t, "havuz var mı?", got[0].Contents[2].Parts[0].Text)

	require.NotNil(t, got[0].SystemInstruction)
	require.Len(t, got[0].SystemInstruction.Parts, 1)
	assert.Equal(t, "Cullinan Hotel asistanısın.\n\nTürkçe yanıt ver.", got[0].SystemInstruction.Parts[0].Text)
}

func TestGeminiModelOverride(t *testing.T) {
	srv, requests := newGeminiServer(t, http.StatusOK)
	provider := newTestGemini(t, srv)

	_, err := provider.Complete(context.Background(), &LLMRequest{UserMessage: "selam", Model: "gemini-1.5-pro"})
	require.NoError(t, err)
	_, err = provider.Complete(context.Background(), &LLMRequest{UserMessage: "selam", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	got := requests()
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Path, "gemini-1.5-pro:streamGenerateContent")
	assert.Contains(t, got[1].Path, "gemini-1.5-flash:streamGenerateContent")
	assert.Nil(t, got[0].SystemInstruction)
}

func TestGeminiUpstreamError(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusBadRequest)
	provider := newTestGemini(t, srv)

	_, err := provider.Complete(context.Background(), &LLMRequest{UserMessage: "selam"})
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeNetwork), err.Error())
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "gemini-1.5-flash", zap.NewNop())
	assert.Error(t, err)
}

func TestGeminiHistory(t *testing.T) {
	history, system := geminiHistory(&LLMRequest{
		History: []llms.ChatMessage{
			llms.HumanChatMessage{Content: "a"},
			llms.AIChatMessage{Content: "b"},
			llms.SystemChatMessage{Content: "c"},
			llms.GenericChatMessage{Content: "d", Role: "guest"},
		},
	})
	require.Len(t, history, 3)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "user", history[2].Role)
	assert.Equal(t, genai.Text("d"), history[2].Parts[0])

	require.NotNil(t, system)
	assert.Equal(t, genai.Text("c"), system.Parts[0])

	_, system = geminiHistory(&LLMRequest{})
	assert.Nil(t, system)
}
