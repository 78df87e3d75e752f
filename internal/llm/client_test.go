package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Endpoint: "http://localhost:11434", Model: "llama3.2:3b"}, false},
		{"missing endpoint", Config{Model: "llama3.2:3b"}, true},
		{"missing model", Config{Endpoint: "http://localhost:11434"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Errorf("client must request non-streaming output")
		}
		if req.Model != "llama3.2:3b" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "SELECT * FROM students"})
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Model: "llama3.2:3b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.Generate(context.Background(), "list all students")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "SELECT * FROM students" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `model "nope" not found`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Model: "nope"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Generate(context.Background(), "q")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want *ServiceError, got %v", err)
	}
	if svcErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", svcErr.StatusCode)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("a reachable endpoint must not classify as unavailable")
	}
}

func TestGenerateErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Error: "out of memory"})
	}))
	defer srv.Close()

	c, _ := New(Config{Endpoint: srv.URL, Model: "m"})
	_, err := c.Generate(context.Background(), "q")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("want *ServiceError, got %v", err)
	}
	if svcErr.Body != "out of memory" {
		t.Errorf("Body = %q", svcErr.Body)
	}
}

func TestGenerateUnavailable(t *testing.T) {
	// A closed server's address refuses connections immediately.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c, err := New(Config{Endpoint: endpoint, Model: "m", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Generate(context.Background(), "q")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("want ErrUnavailable, got %v", err)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "   "})
	}))
	defer srv.Close()

	c, _ := New(Config{Endpoint: srv.URL, Model: "m"})
	if _, err := c.Generate(context.Background(), "q"); err == nil {
		t.Errorf("empty model output should be an error")
	}
}
