package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// JobRepository persists Job records, keyed by UUID. Per spec.md §4.6,
// every job save cascades through saving its module then its client first,
// so that the foreign keys it needs are always valid.
type JobRepository struct {
	db       *gorm.DB
	clients  *ClientRepository
	modules  *ModuleRepository
}

func NewJobRepository(db *gorm.DB, clients *ClientRepository, modules *ModuleRepository) *JobRepository {
	return &JobRepository{db: db, clients: clients, modules: modules}
}

// Register cascades-saves client and module, then inserts the job under
// UUID. It is the one entry point jobs are created through; a UUID that
// already exists is rejected with ErrAlreadyRegistered and the existing
// row is left unchanged.
func (r *JobRepository) Register(ctx context.Context, uuid string, status JobStatus, backupType BackupType, client *Client, module *Module) (*Job, error) {
	if err := r.modules.Upsert(ctx, module); err != nil {
		return nil, fmt.Errorf("jobs: register: %w", err)
	}
	if err := r.clients.Upsert(ctx, client); err != nil {
		return nil, fmt.Errorf("jobs: register: %w", err)
	}

	var existing Job
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&existing).Error
	switch {
	case err == nil:
		return nil, fmt.Errorf("jobs: register: %w", ErrAlreadyRegistered)
	case errors.Is(err, gorm.ErrRecordNotFound):
		job := &Job{
			UUID:       uuid,
			Status:     status,
			BackupType: backupType,
			ModuleID:   module.ID,
			ClientID:   client.ID,
		}
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, fmt.Errorf("jobs: register (create): %w", err)
		}
		job.Module = *module
		job.Client = *client
		return job, nil
	default:
		return nil, fmt.Errorf("jobs: register: %w", err)
	}
}

// ErrAlreadyRegistered is returned by Register when a job with the same
// UUID already exists (spec.md §6: 409 Conflict on re-registration).
var ErrAlreadyRegistered = errors.New("store: job already registered")

// GetByUUID returns the job with its client and module preloaded, or
// ErrNotFound.
func (r *JobRepository) GetByUUID(ctx context.Context, uuid string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Preload("Client").Preload("Module").
		Where("uuid = ?", uuid).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("jobs: get by uuid: %w", err)
	}
	return &job, nil
}

// UpdateStatus sets the job's status column.
func (r *JobRepository) UpdateStatus(ctx context.Context, uuid string, status JobStatus) error {
	result := r.db.WithContext(ctx).Model(&Job{}).
		Where("uuid = ?", uuid).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("jobs: update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RewriteToFull demotes a Diff job to Full. Used when no prior Done Full
// job exists for the (client, module_type) pair (spec.md §4.4).
func (r *JobRepository) RewriteToFull(ctx context.Context, uuid string) error {
	result := r.db.WithContext(ctx).Model(&Job{}).
		Where("uuid = ?", uuid).
		Update("backup_type", BackupTypeFull)
	if result.Error != nil {
		return fmt.Errorf("jobs: rewrite to full: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MostRecentDoneFull finds the most recent Done/Full job for the given
// (module_type, client name) pair, ordered by descending insertion order,
// as required by the reference-file resolution rule of spec.md §4.4. It
// returns ErrNotFound if no such job exists.
func (r *JobRepository) MostRecentDoneFull(ctx context.Context, moduleType, clientName string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Preload("Client").Preload("Module").
		Joins("JOIN modules ON modules.id = jobs.module_id").
		Joins("JOIN clients ON clients.id = jobs.client_id").
		Where("modules.module_type = ? AND clients.name = ? AND jobs.backup_type = ? AND jobs.status = ?",
			moduleType, clientName, BackupTypeFull, JobStatusDone).
		Order("jobs.id DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("jobs: most recent done full: %w", err)
	}
	return &job, nil
}

// ListActive returns every job with status Active, used by the server
// daemon's per-tick reporting step (spec.md §4.2 step 3).
func (r *JobRepository) ListActive(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := r.db.WithContext(ctx).
		Preload("Client").Preload("Module").
		Where("status = ?", JobStatusActive).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("jobs: list active: %w", err)
	}
	return jobs, nil
}
