package serverapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"relique/internal/store"
)

// devNull is opened in place of a reference file whenever a job has no
// base to diff against, so its signature comes out empty and the computed
// delta is the file's literal content (spec.md §4.4 "Full backup").
const devNull = "/dev/null"

// resolveReference implements the server-side reference-file resolution
// rule of spec.md §4.4. It may rewrite job.BackupType to Full in the
// database as a side effect, mirroring the source's behavior exactly.
func (d *Daemon) resolveReference(ctx context.Context, job *store.Job) (string, error) {
	if job.BackupType == store.BackupTypeFull {
		return devNull, nil
	}

	full, err := d.jobs.MostRecentDoneFull(ctx, job.Module.ModuleType, job.Client.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := d.jobs.RewriteToFull(ctx, job.UUID); err != nil {
				return "", fmt.Errorf("rewrite job to full: %w", err)
			}
			job.BackupType = store.BackupTypeFull
			return devNull, nil
		}
		return "", fmt.Errorf("find reference full job: %w", err)
	}

	return full.UUID, nil
}

// referencePath renders the on-disk path of a file inside a previously
// completed full backup, per spec.md §4.4 / §6.
func (d *Daemon) referencePath(backupStoragePath, clientName, fullJobUUID, requestedPath string) string {
	if fullJobUUID == "" {
		return devNull
	}
	return filepath.Join(backupStoragePath, clientName, fullJobUUID, requestedPath)
}

// targetPath renders the on-disk path a delta is applied to, per spec.md
// §4.4 step 1 and §6's backup storage layout.
func targetPath(backupStoragePath, clientName, jobUUID, filePath string) string {
	return filepath.Join(backupStoragePath, clientName, jobUUID, filePath)
}

// openBase opens path as the base for a delta application. A target that
// does not exist yet (first write for this job+file) is treated as an
// empty base by opening /dev/null instead, the "partial resumption" case
// of spec.md §4.4 step 3.
func openBase(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if os.IsNotExist(err) {
		return os.Open(devNull)
	}
	return nil, err
}
