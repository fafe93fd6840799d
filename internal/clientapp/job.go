package clientapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"relique/internal/config"
	"relique/internal/protocol"
	"relique/internal/store"
)

func newJobUUID() string {
	return uuid.NewString()
}

// runJob drives a single backup job's three-leg protocol from the client
// side (spec.md §4.4). It owns handle exclusively: no other goroutine
// writes to it.
func (d *Daemon) runJob(ctx context.Context, client config.Client, module config.BackupModule, handle *jobHandle) {
	log := d.log.With(zap.String("uuid", handle.uuid), zap.String("module", module.Name))
	handle.setStatus(store.JobStatusActive)

	job := protocol.BackupJob{
		UUID:       handle.uuid,
		Client:     clientRef(client),
		Module:     moduleRef(module),
		Status:     protocol.JobStatusActive,
		BackupType: protocol.BackupType(module.BackupType),
	}

	if err := d.registerJob(ctx, &client, job); err != nil {
		log.Warn("job registration failed, not starting", zap.Error(err))
		handle.setStatus(store.JobStatusError)
		return
	}

	log.Info("job registered", zap.String("status", "Active"))

	sweepFailed := false
	anyFileFailed := false

	for _, root := range module.BackupPaths {
		err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if de.IsDir() {
				return nil
			}
			if bErr := d.backupFile(ctx, &client, handle.uuid, path); bErr != nil {
				log.Warn("file backup failed, marking job incomplete", zap.String("path", path), zap.Error(bErr))
				anyFileFailed = true
			}
			return nil
		})
		if err != nil {
			log.Error("backup sweep failed", zap.String("root", root), zap.Error(err))
			sweepFailed = true
		}
	}

	final := store.JobStatusDone
	switch {
	case sweepFailed:
		final = store.JobStatusError
	case anyFileFailed:
		final = store.JobStatusIncomplete
	}
	handle.setStatus(final)

	if err := d.updateJobStatus(ctx, &client, handle.uuid, final); err != nil {
		log.Warn("failed to report final job status to server", zap.Error(err))
	}
	log.Info("job finished", zap.String("status", final.String()))
}

func clientRef(c config.Client) protocol.ClientRef {
	return protocol.ClientRef{
		Name:          c.Name,
		Address:       c.Address,
		Port:          c.Port,
		ServerAddress: c.ServerAddress,
		ServerPort:    c.ServerPort,
	}
}

func moduleRef(m config.BackupModule) protocol.ModuleRef {
	bt := m.BackupType
	if bt == "" {
		bt = "Full"
	}
	return protocol.ModuleRef{
		Name:              m.Name,
		ModuleType:        m.ModuleType,
		BackupType:        protocol.BackupType(bt),
		BackupPaths:       m.BackupPaths,
		PreBackupScript:   m.PreBackupScript,
		PostBackupScript:  m.PostBackupScript,
		PreRestoreScript:  m.PreRestoreScript,
		PostRestoreScript: m.PostRestoreScript,
	}
}

func (d *Daemon) registerJob(ctx context.Context, c *config.Client, job protocol.BackupJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	url := clientBaseURL(c) + protocol.RouteJobRegister
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("job already registered")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register job: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// backupFile runs the per-file signature/delta exchange for a single
// regular file (spec.md §4.4 step 3).
func (d *Daemon) backupFile(ctx context.Context, c *config.Client, jobUUID, path string) error {
	bf := protocol.BackupFile{JobID: jobUUID, Path: path}

	sig, err := d.fetchSignature(ctx, c, bf)
	if err != nil {
		return fmt.Errorf("fetch signature: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	delta, err := d.engine.Delta(sig, f)
	if err != nil {
		return fmt.Errorf("compute delta: %w", err)
	}

	bf.Delta = delta
	if err := d.uploadDelta(ctx, c, bf); err != nil {
		return fmt.Errorf("upload delta: %w", err)
	}
	return nil
}

func (d *Daemon) fetchSignature(ctx context.Context, c *config.Client, bf protocol.BackupFile) ([]byte, error) {
	body, err := json.Marshal(bf)
	if err != nil {
		return nil, err
	}

	url := clientBaseURL(c) + protocol.JobSignaturePath(bf.JobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out protocol.BackupFile
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Signature, nil
}

func (d *Daemon) uploadDelta(ctx context.Context, c *config.Client, bf protocol.BackupFile) error {
	body, err := json.Marshal(bf)
	if err != nil {
		return err
	}

	url := clientBaseURL(c) + protocol.JobDeltaPath(bf.JobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (d *Daemon) updateJobStatus(ctx context.Context, c *config.Client, jobUUID string, status store.JobStatus) error {
	body, err := json.Marshal(statusToWire(status))
	if err != nil {
		return err
	}

	url := clientBaseURL(c) + protocol.JobStatusPath(jobUUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func statusToWire(s store.JobStatus) protocol.JobStatus {
	switch s {
	case store.JobStatusPending:
		return protocol.JobStatusPending
	case store.JobStatusActive:
		return protocol.JobStatusActive
	case store.JobStatusDone:
		return protocol.JobStatusDone
	case store.JobStatusIncomplete:
		return protocol.JobStatusIncomplete
	default:
		return protocol.JobStatusError
	}
}
