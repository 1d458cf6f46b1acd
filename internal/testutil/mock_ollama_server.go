// Package testutil provides shared test helpers and fakes for deid tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// GenerateReply is the JSON body the fake Ollama returns from /api/generate.
type GenerateReply struct {
	Model    string  `json:"model"`
	Response string  `json:"response"`
	Thinking *string `json:"thinking,omitempty"`
	Done     bool    `json:"done"`
}

// OllamaServer is a fake Ollama service. It records every generate request
// body it receives.
type OllamaServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

// Requests returns the decoded generate request bodies received so far.
func (s *OllamaServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.requests))
	copy(out, s.requests)
	return out
}

// NamesPayload encodes names as the structured payload {"names": [...]}.
func NamesPayload(names ...string) string {
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(map[string][]string{"names": names})
	return string(b)
}

// NewOllamaServer starts a fake Ollama that answers GET / with 200, GET
// /api/tags with the given models, and POST /api/generate with reply.
// Caller must call Close or register t.Cleanup(server.Close).
func NewOllamaServer(reply GenerateReply, models ...string) *OllamaServer {
	s := &OllamaServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("Ollama is running"))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		var tags struct {
			Models []model `json:"models"`
		}
		for _, m := range models {
			tags.Models = append(tags.Models, model{Name: m})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tags)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, body)
		s.mu.Unlock()

		out := reply
		if out.Model == "" {
			out.Model, _ = body["model"].(string)
		}
		out.Done = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	s.Server = httptest.NewServer(mux)
	return s
}

// NewOllamaNamesServer is NewOllamaServer replying with the given names in
// the primary response field.
func NewOllamaNamesServer(names ...string) *OllamaServer {
	return NewOllamaServer(GenerateReply{Response: NamesPayload(names...)})
}

// NewStatusServer starts a server that answers every request with status and
// body, e.g. to simulate a 500 from the inference service.
func NewStatusServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

// UnreachableURL is an address nothing listens on.
const UnreachableURL = "http://127.0.0.1:1"
