package clientapp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/metrics"
	"relique/internal/protocol"
	"relique/internal/rsync"

	"github.com/prometheus/client_golang/prometheus"
)

func newHandlerTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "client")
	return New(config.ClientDaemonConfig{}, rsync.NewEngine(), m, reg, zap.NewNop())
}

func doClientRequest(t *testing.T, d *Daemon, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	w := httptest.NewRecorder()
	d.Router().ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

func TestHandleGetConfigVersion(t *testing.T) {
	d := newHandlerTestDaemon(t)

	t.Run("nil before any config is pushed", func(t *testing.T) {
		w := doClientRequest(t, d, http.MethodGet, protocol.RouteConfigVersion, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		var got protocol.ConfigVersion
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Version != nil {
			t.Fatalf("expected nil version, got %v", *got.Version)
		}
	})

	t.Run("reflects the currently held config_version", func(t *testing.T) {
		daemon.Write(d.state, func(s *clientState) bool {
			s.Spec = &config.Client{ConfigVersion: "v1"}
			return true
		})

		w := doClientRequest(t, d, http.MethodGet, protocol.RouteConfigVersion, nil)
		var got protocol.ConfigVersion
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Version == nil || *got.Version != "v1" {
			t.Fatalf("got %+v, want v1", got)
		}
	})
}

func TestHandlePostConfig(t *testing.T) {
	d := newHandlerTestDaemon(t)

	cc := protocol.ClientConfig{
		Name:          "alpha",
		Address:       "10.0.0.1",
		Port:          8434,
		ConfigVersion: "v1",
		Modules: []protocol.ModuleRef{
			{Name: "etc", ModuleType: "files", BackupType: protocol.BackupTypeFull, BackupPaths: []string{"/etc"}},
		},
		Schedules: []protocol.ScheduleRef{
			{Name: "business-hours", Monday: "09:00-17:00"},
		},
	}

	t.Run("accepts the first config push", func(t *testing.T) {
		w := doClientRequest(t, d, http.MethodPost, protocol.RouteConfig, cc)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		spec := daemon.Read(d.state, func(s clientState) *config.Client { return s.Spec })
		if spec == nil || spec.Name != "alpha" || len(spec.Modules) != 1 {
			t.Fatalf("unexpected spec after push: %+v", spec)
		}
	})

	t.Run("a repeated config_version is a no-op", func(t *testing.T) {
		cc2 := cc
		cc2.Address = "10.0.0.99"
		w := doClientRequest(t, d, http.MethodPost, protocol.RouteConfig, cc2)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		spec := daemon.Read(d.state, func(s clientState) *config.Client { return s.Spec })
		if spec.Address != "10.0.0.1" {
			t.Fatalf("expected spec to be unchanged, got address %q", spec.Address)
		}
	})

	t.Run("a new config_version replaces the spec", func(t *testing.T) {
		cc3 := cc
		cc3.ConfigVersion = "v2"
		cc3.Address = "10.0.0.2"
		w := doClientRequest(t, d, http.MethodPost, protocol.RouteConfig, cc3)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		spec := daemon.Read(d.state, func(s clientState) *config.Client { return s.Spec })
		if spec.Address != "10.0.0.2" {
			t.Fatalf("expected spec to be replaced, got address %q", spec.Address)
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		d.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, protocol.RouteConfig, bytes.NewBufferString("not json")))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}
