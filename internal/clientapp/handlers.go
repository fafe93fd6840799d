package clientapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/httpapi"
	"relique/internal/protocol"
	"relique/internal/schedule"
)

// Router assembles the client's HTTP surface (spec.md §6).
func (d *Daemon) Router() *chi.Mux {
	return httpapi.NewRouter(d.log, httpapi.PromHandler(d.registry), func(r chi.Router) {
		r.Get(protocol.RouteConfigVersion, d.handleGetConfigVersion)
		r.Post(protocol.RouteConfig, d.handlePostConfig)
	})
}

// handleGetConfigVersion implements GET /api/v1/config/version. It only
// reads state, so it takes the reader lock (spec.md §5).
func (d *Daemon) handleGetConfigVersion(w http.ResponseWriter, r *http.Request) {
	version := daemon.Read(d.state, func(s clientState) *string {
		if s.Spec == nil {
			return nil
		}
		v := s.Spec.ConfigVersion
		return &v
	})
	httpapi.JSON(w, http.StatusOK, protocol.ConfigVersion{Version: version})
}

// handlePostConfig implements POST /api/v1/config. It mutates state, so it
// takes the writer lock. The local spec is replaced iff the pushed
// config_version differs from the one already held (spec.md §6).
func (d *Daemon) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var wire protocol.ClientConfig
	if err := httpapi.DecodeJSON(w, r, &wire); err != nil {
		httpapi.Text(w, http.StatusBadRequest, "malformed config body: "+err.Error())
		return
	}

	replaced := daemon.Write(d.state, func(s *clientState) bool {
		if s.Spec != nil && s.Spec.ConfigVersion == wire.ConfigVersion {
			return false
		}
		s.Spec = wireToClient(wire)
		return true
	})

	if replaced {
		d.log.Info("accepted new configuration from server", zap.String("config_version", wire.ConfigVersion))
	}
	httpapi.Text(w, http.StatusOK, "Config accepted")
}

func wireToClient(w protocol.ClientConfig) *config.Client {
	c := &config.Client{
		Name:          w.Name,
		Address:       w.Address,
		Port:          w.Port,
		ServerAddress: w.ServerAddress,
		ServerPort:    w.ServerPort,
		ConfigVersion: w.ConfigVersion,
	}
	for _, m := range w.Modules {
		c.Modules = append(c.Modules, config.BackupModule{
			Name:              m.Name,
			ModuleType:        m.ModuleType,
			BackupType:        string(m.BackupType),
			BackupPaths:       m.BackupPaths,
			PreBackupScript:   m.PreBackupScript,
			PostBackupScript:  m.PostBackupScript,
			PreRestoreScript:  m.PreRestoreScript,
			PostRestoreScript: m.PostRestoreScript,
		})
	}
	for _, s := range w.Schedules {
		c.Schedules = append(c.Schedules, config.Schedule{
			Name:      s.Name,
			Monday:    parseBoundsIgnoreError(s.Monday),
			Tuesday:   parseBoundsIgnoreError(s.Tuesday),
			Wednesday: parseBoundsIgnoreError(s.Wednesday),
			Thursday:  parseBoundsIgnoreError(s.Thursday),
			Friday:    parseBoundsIgnoreError(s.Friday),
			Saturday:  parseBoundsIgnoreError(s.Saturday),
			Sunday:    parseBoundsIgnoreError(s.Sunday),
		})
	}
	return c
}

// parseBoundsIgnoreError parses the wire bounds string, logging nothing and
// returning a nil Bounds on a malformed value rather than rejecting the
// whole config push over one bad schedule.
func parseBoundsIgnoreError(s string) schedule.Bounds {
	b, err := schedule.ParseBounds(s)
	if err != nil {
		return nil
	}
	return b
}
