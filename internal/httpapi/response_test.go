package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestText(t *testing.T) {
	w := httptest.NewRecorder()
	Text(w, http.StatusConflict, "Job already registered in relique server")

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if w.Body.String() != "Job already registered in relique server" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes a valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"alpha"}`))
		w := httptest.NewRecorder()

		var v struct {
			Name string `json:"name"`
		}
		if err := DecodeJSON(w, req, &v); err != nil {
			t.Fatalf("DecodeJSON: %v", err)
		}
		if v.Name != "alpha" {
			t.Fatalf("Name = %q", v.Name)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unexpected":"value"}`))
		w := httptest.NewRecorder()

		var v struct {
			Name string `json:"name"`
		}
		if err := DecodeJSON(w, req, &v); err == nil {
			t.Fatal("expected an error for an unknown field")
		}
	})
}
