package store

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *JobRepository {
	t.Helper()
	db, err := Open(Config{
		DSN:      ":memory:",
		Logger:   zap.NewNop(),
		LogLevel: gormlogger.Silent,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	clients := NewClientRepository(db)
	modules := NewModuleRepository(db)
	return NewJobRepository(db, clients, modules)
}

func TestJobRepositoryRegisterAndLookup(t *testing.T) {
	jobs := openTestDB(t)
	ctx := context.Background()

	client := &Client{Name: "alpha", Address: "10.0.0.1", Port: 8434}
	module := &Module{Name: "etc", ModuleType: "files", BackupType: BackupTypeFull}

	t.Run("register persists client, module and job", func(t *testing.T) {
		job, err := jobs.Register(ctx, "job-1", JobStatusPending, BackupTypeFull, client, module)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if job.ID == 0 {
			t.Fatal("expected a non-zero job ID")
		}

		got, err := jobs.GetByUUID(ctx, "job-1")
		if err != nil {
			t.Fatalf("GetByUUID: %v", err)
		}
		if got.Client.Name != "alpha" || got.Module.Name != "etc" {
			t.Fatalf("unexpected preloaded associations: %+v", got)
		}
	})

	t.Run("registering the same uuid twice is rejected", func(t *testing.T) {
		_, err := jobs.Register(ctx, "job-1", JobStatusPending, BackupTypeFull, client, module)
		if !errors.Is(err, ErrAlreadyRegistered) {
			t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
		}
	})

	t.Run("GetByUUID on an unknown uuid returns ErrNotFound", func(t *testing.T) {
		_, err := jobs.GetByUUID(ctx, "does-not-exist")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestJobRepositoryMostRecentDoneFull(t *testing.T) {
	jobs := openTestDB(t)
	ctx := context.Background()

	client := &Client{Name: "alpha", Address: "10.0.0.1", Port: 8434}
	module := &Module{Name: "etc", ModuleType: "files", BackupType: BackupTypeFull}

	t.Run("no prior full job yields ErrNotFound", func(t *testing.T) {
		_, err := jobs.MostRecentDoneFull(ctx, "files", "alpha")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	if _, err := jobs.Register(ctx, "full-1", JobStatusDone, BackupTypeFull, client, module); err != nil {
		t.Fatalf("Register full-1: %v", err)
	}
	if err := jobs.UpdateStatus(ctx, "full-1", JobStatusDone); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	t.Run("finds the most recent done full job", func(t *testing.T) {
		got, err := jobs.MostRecentDoneFull(ctx, "files", "alpha")
		if err != nil {
			t.Fatalf("MostRecentDoneFull: %v", err)
		}
		if got.UUID != "full-1" {
			t.Fatalf("got %q, want full-1", got.UUID)
		}
	})

	t.Run("RewriteToFull flips a job's backup type", func(t *testing.T) {
		if _, err := jobs.Register(ctx, "diff-1", JobStatusPending, BackupTypeDiff, client, module); err != nil {
			t.Fatalf("Register diff-1: %v", err)
		}
		if err := jobs.RewriteToFull(ctx, "diff-1"); err != nil {
			t.Fatalf("RewriteToFull: %v", err)
		}
		got, err := jobs.GetByUUID(ctx, "diff-1")
		if err != nil {
			t.Fatalf("GetByUUID: %v", err)
		}
		if got.BackupType != BackupTypeFull {
			t.Fatalf("expected BackupTypeFull, got %v", got.BackupType)
		}
	})
}

func TestJobRepositoryListActive(t *testing.T) {
	jobs := openTestDB(t)
	ctx := context.Background()

	client := &Client{Name: "alpha", Address: "10.0.0.1", Port: 8434}
	module := &Module{Name: "etc", ModuleType: "files", BackupType: BackupTypeFull}

	if _, err := jobs.Register(ctx, "active-1", JobStatusActive, BackupTypeFull, client, module); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := jobs.Register(ctx, "done-1", JobStatusDone, BackupTypeFull, client, module); err != nil {
		t.Fatalf("Register: %v", err)
	}

	active, err := jobs.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].UUID != "active-1" {
		t.Fatalf("unexpected active jobs: %+v", active)
	}
}
