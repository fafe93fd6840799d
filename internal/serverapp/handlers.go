package serverapp

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/httpapi"
	"relique/internal/protocol"
	"relique/internal/store"
)

// Router assembles the server's HTTP surface (spec.md §6).
func (d *Daemon) Router() *chi.Mux {
	return httpapi.NewRouter(d.log, httpapi.PromHandler(d.registry), func(r chi.Router) {
		r.Post(protocol.RouteJobRegister, d.handleRegisterJob)
		r.Put(protocol.RouteJobStatus, d.handleUpdateJobStatus)
		r.Get(protocol.RouteJobSignature, d.handleGetSignature)
		r.Post(protocol.RouteJobDelta, d.handleUploadDelta)
	})
}

func (d *Daemon) handleRegisterJob(w http.ResponseWriter, r *http.Request) {
	var wire protocol.BackupJob
	if err := httpapi.DecodeJSON(w, r, &wire); err != nil {
		httpapi.Text(w, http.StatusBadRequest, "malformed job body: "+err.Error())
		return
	}

	client := &store.Client{
		Name:          wire.Client.Name,
		Address:       wire.Client.Address,
		Port:          wire.Client.Port,
		ServerAddress: wire.Client.ServerAddress,
		ServerPort:    wire.Client.ServerPort,
	}
	module := &store.Module{
		Name:              wire.Module.Name,
		ModuleType:        wire.Module.ModuleType,
		BackupType:        backupTypeFromWire(wire.Module.BackupType),
		PreBackupScript:   wire.Module.PreBackupScript,
		PostBackupScript:  wire.Module.PostBackupScript,
		PreRestoreScript:  wire.Module.PreRestoreScript,
		PostRestoreScript: wire.Module.PostRestoreScript,
	}

	job, err := d.jobs.Register(r.Context(), wire.UUID, jobStatusFromWire(wire.Status), backupTypeFromWire(wire.BackupType), client, module)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyRegistered) {
			httpapi.Text(w, http.StatusConflict, "Job already registered in relique server")
			return
		}
		d.log.Error("job registration failed", zap.String("uuid", wire.UUID), zap.Error(err))
		httpapi.Text(w, http.StatusInternalServerError, "failed to register job: "+err.Error())
		return
	}

	d.log.Info("job registered", zap.String("uuid", job.UUID), zap.String("client", client.Name), zap.String("module", module.Name))
	httpapi.Text(w, http.StatusOK, "Job registered")
}

func (d *Daemon) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if uuid == "" {
		httpapi.Text(w, http.StatusBadRequest, "missing job uuid")
		return
	}

	var wire protocol.JobStatus
	if err := httpapi.DecodeJSON(w, r, &wire); err != nil {
		httpapi.Text(w, http.StatusBadRequest, "malformed status body: "+err.Error())
		return
	}

	if err := d.jobs.UpdateStatus(r.Context(), uuid, jobStatusFromWire(wire)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpapi.Text(w, http.StatusNotFound, "Job not found")
			return
		}
		d.log.Error("job status update failed", zap.String("uuid", uuid), zap.Error(err))
		httpapi.Text(w, http.StatusInternalServerError, "failed to update job status: "+err.Error())
		return
	}

	d.log.Info("job status updated", zap.String("uuid", uuid), zap.String("status", string(wire)))
	httpapi.Text(w, http.StatusOK, "Job status updated")
}

// handleGetSignature implements GET /api/v1/backup/jobs/{uuid}/signature.
// Per spec.md §6 this is a GET carrying a JSON body, a protocol quirk
// preserved verbatim from the source rather than switched to POST.
func (d *Daemon) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	var bf protocol.BackupFile
	if err := httpapi.DecodeJSON(w, r, &bf); err != nil {
		httpapi.Text(w, http.StatusBadRequest, "malformed backup file body: "+err.Error())
		return
	}

	job, err := d.jobs.GetByUUID(r.Context(), uuid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpapi.Text(w, http.StatusNotFound, "Job not found")
			return
		}
		httpapi.Text(w, http.StatusInternalServerError, "failed to load job: "+err.Error())
		return
	}

	cfg := d.currentConfig()
	fullUUID, err := d.resolveReference(r.Context(), job)
	if err != nil {
		d.log.Error("reference resolution failed", zap.String("uuid", uuid), zap.Error(err))
		httpapi.Text(w, http.StatusInternalServerError, "failed to resolve reference file: "+err.Error())
		return
	}

	refPath := d.referencePath(cfg.BackupStoragePath, job.Client.Name, refJobUUID(fullUUID), bf.Path)

	f, err := openReference(refPath)
	if err != nil {
		d.log.Error("failed to open reference file", zap.String("path", refPath), zap.Error(err))
		httpapi.Text(w, http.StatusInternalServerError, "failed to open reference file: "+err.Error())
		return
	}
	defer f.Close()

	sig, err := d.engine.Signature(f)
	if err != nil {
		d.log.Error("signature computation failed", zap.String("path", refPath), zap.Error(err))
		httpapi.Text(w, http.StatusInternalServerError, "failed to compute signature: "+err.Error())
		return
	}

	httpapi.JSON(w, http.StatusOK, protocol.BackupFile{JobID: bf.JobID, Path: bf.Path, Signature: sig})
}

// refJobUUID distinguishes the devNull sentinel from an actual full job
// uuid for referencePath, which only joins a per-job directory when there
// is a real reference job.
func refJobUUID(resolved string) string {
	if resolved == devNull {
		return ""
	}
	return resolved
}

func openReference(path string) (*os.File, error) {
	if path == devNull {
		return os.Open(devNull)
	}
	return os.Open(path)
}

// handleUploadDelta implements POST /api/v1/backup/jobs/{uuid}/delta
// (spec.md §4.4 "Delta application (server side)").
func (d *Daemon) handleUploadDelta(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	var bf protocol.BackupFile
	if err := httpapi.DecodeJSON(w, r, &bf); err != nil {
		httpapi.Text(w, http.StatusBadRequest, "malformed backup file body: "+err.Error())
		return
	}

	job, err := d.jobs.GetByUUID(r.Context(), uuid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpapi.Text(w, http.StatusNotFound, "Job not found")
			return
		}
		httpapi.Text(w, http.StatusInternalServerError, "failed to load job: "+err.Error())
		return
	}

	cfg := d.currentConfig()
	target := targetPath(cfg.BackupStoragePath, job.Client.Name, job.UUID, bf.Path)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		httpapi.Text(w, http.StatusInternalServerError, "failed to create storage directory: "+err.Error())
		return
	}

	base, err := openBase(target)
	if err != nil {
		httpapi.Text(w, http.StatusInternalServerError, "failed to open base file: "+err.Error())
		return
	}
	defer base.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".relique-delta-*.tmp")
	if err != nil {
		httpapi.Text(w, http.StatusInternalServerError, "failed to create temp file: "+err.Error())
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := d.engine.Apply(base, bf.Delta, tmp); err != nil {
		tmp.Close()
		httpapi.Text(w, http.StatusInternalServerError, "failed to apply delta: "+err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		httpapi.Text(w, http.StatusInternalServerError, "failed to finalize temp file: "+err.Error())
		return
	}

	if err := os.Rename(tmpPath, target); err != nil {
		httpapi.Text(w, http.StatusInternalServerError, "failed to finalize file: "+err.Error())
		return
	}

	if d.metrics != nil {
		d.metrics.DeltaBytesSent.Add(float64(len(bf.Delta)))
	}

	httpapi.Text(w, http.StatusOK, "Delta applied")
}

func (d *Daemon) currentConfig() config.Config {
	return daemon.Read(d.cfg, func(s config.Config) config.Config { return s })
}

func backupTypeFromWire(t protocol.BackupType) store.BackupType {
	if t == protocol.BackupTypeDiff {
		return store.BackupTypeDiff
	}
	return store.BackupTypeFull
}

func jobStatusFromWire(s protocol.JobStatus) store.JobStatus {
	switch s {
	case protocol.JobStatusPending:
		return store.JobStatusPending
	case protocol.JobStatusActive:
		return store.JobStatusActive
	case protocol.JobStatusDone:
		return store.JobStatusDone
	case protocol.JobStatusIncomplete:
		return store.JobStatusIncomplete
	default:
		return store.JobStatusError
	}
}
