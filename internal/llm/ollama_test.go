package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrshnv/deid/internal/testutil"
)

func TestOllamaGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var reqBody ollamaGenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
			assert.Equal(t, "qwen3:4b", reqBody.Model)
			assert.Equal(t, "find names", reqBody.Prompt)
			assert.False(t, reqBody.Stream)
			assert.JSONEq(t, namesSchema, string(reqBody.Format))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{
				Model:           "qwen3:4b",
				Response:        `{"names":["Ada"]}`,
				Done:            true,
				DoneReason:      "stop",
				PromptEvalCount: 12,
				EvalCount:       5,
			})
		}))
		defer server.Close()

		provider := NewOllamaProvider(server.URL)
		res, err := provider.Generate(ctx, &GenerateRequest{Model: "qwen3:4b", Prompt: "find names", Format: NamesFormat()})
		require.NoError(t, err)
		assert.Equal(t, Payload{Source: SourceResponse, Body: `{"names":["Ada"]}`}, res.Payload)
		assert.Equal(t, "stop", res.DoneReason)
		assert.Equal(t, 12, res.InputTokens)
		assert.Equal(t, 5, res.OutputTokens)
	})

	t.Run("thinking field used when response is empty", func(t *testing.T) {
		thinking := `{"names":["Bo"]}`
		server := testutil.NewOllamaServer(testutil.GenerateReply{Thinking: &thinking})
		defer server.Close()

		res, err := NewOllamaProvider(server.URL).Generate(ctx, &GenerateRequest{Model: "qwen3:4b"})
		require.NoError(t, err)
		assert.Equal(t, SourceThinking, res.Payload.Source)
		assert.Equal(t, thinking, res.Payload.Body)
		assert.Equal(t, "qwen3:4b", res.Model, "model echoes the request when the backend omits it")
	})

	t.Run("non-2xx status is a transport error", func(t *testing.T) {
		server := testutil.NewStatusServer(http.StatusNotFound, `{"error":"model 'nonexistent' not found"}`)
		defer server.Close()

		res, err := NewOllamaProvider(server.URL).Generate(ctx, &GenerateRequest{Model: "nonexistent"})
		assert.Nil(t, res)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "ollama api error 404")
		assert.Contains(t, err.Error(), "model 'nonexistent' not found")
	})

	t.Run("500 internal server error", func(t *testing.T) {
		server := testutil.NewStatusServer(http.StatusInternalServerError, "internal error")
		defer server.Close()

		_, err := NewOllamaProvider(server.URL).Generate(ctx, &GenerateRequest{Model: "qwen3:4b"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "ollama api error 500")
	})

	t.Run("invalid JSON in 200 response is a payload error", func(t *testing.T) {
		server := testutil.NewStatusServer(http.StatusOK, `{invalid json`)
		defer server.Close()

		res, err := NewOllamaProvider(server.URL).Generate(ctx, &GenerateRequest{Model: "qwen3:4b"})
		assert.Nil(t, res)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPayload)
		assert.Contains(t, err.Error(), "decoding ollama response")
	})

	t.Run("connection refused is a transport error", func(t *testing.T) {
		res, err := NewOllamaProvider(testutil.UnreachableURL).Generate(ctx, &GenerateRequest{Model: "qwen3:4b"})
		assert.Nil(t, res)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Contains(t, err.Error(), "ollama api call")
	})

	t.Run("context deadline is a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := NewOllamaProvider(server.URL).Generate(short, &GenerateRequest{Model: "qwen3:4b"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestNewOllamaProvider(t *testing.T) {
	t.Run("default base URL", func(t *testing.T) {
		p := NewOllamaProvider("")
		assert.Equal(t, "http://localhost:11434", p.BaseURL())
	})

	t.Run("custom base URL trims trailing slash", func(t *testing.T) {
		p := NewOllamaProvider("http://ollama:11434/")
		assert.Equal(t, "http://ollama:11434", p.BaseURL())
	})

	t.Run("http client option", func(t *testing.T) {
		var seen []string
		client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = append(seen, r.URL.String())
			return nil, errors.New("dial refused")
		})}
		p := NewOllamaProvider("http://ollama:11434", WithHTTPClient(client))

		_, err := p.Generate(context.Background(), &GenerateRequest{Model: "qwen3:4b", Prompt: "hi"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Equal(t, []string{"http://ollama:11434/api/generate"}, seen)
	})

	t.Run("health timeout option", func(t *testing.T) {
		p := NewOllamaProvider("", WithHealthTimeout(5*time.Second))
		assert.Equal(t, 5*time.Second, p.healthTimeout)
		p = NewOllamaProvider("", WithHealthTimeout(0))
		assert.Equal(t, DefaultHealthTimeout, p.healthTimeout, "non-positive keeps the default")
	})
}

func TestOllamaPing(t *testing.T) {
	ctx := context.Background()

	t.Run("2xx is available", func(t *testing.T) {
		server := testutil.NewOllamaNamesServer()
		defer server.Close()
		assert.True(t, NewOllamaProvider(server.URL).Ping(ctx))
	})

	t.Run("non-2xx is unavailable", func(t *testing.T) {
		server := testutil.NewStatusServer(http.StatusServiceUnavailable, "loading")
		defer server.Close()
		assert.False(t, NewOllamaProvider(server.URL).Ping(ctx))
	})

	t.Run("unreachable is unavailable", func(t *testing.T) {
		assert.False(t, NewOllamaProvider(testutil.UnreachableURL).Ping(ctx))
	})

	t.Run("slow service times out", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()
		p := NewOllamaProvider(server.URL, WithHealthTimeout(50*time.Millisecond))
		assert.False(t, p.Ping(ctx))
	})
}

func TestOllamaListModels(t *testing.T) {
	server := testutil.NewOllamaServer(testutil.GenerateReply{}, "qwen3:4b", "llama3.1:8b")
	defer server.Close()

	models, err := NewOllamaProvider(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3:4b", "llama3.1:8b"}, models)

	_, err = NewOllamaProvider(testutil.UnreachableURL).ListModels(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
