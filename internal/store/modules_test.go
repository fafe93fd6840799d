package store

import (
	"context"
	"errors"
	"testing"
)

func TestModuleRepositoryUpsert(t *testing.T) {
	jobs := openTestDB(t)
	modules := NewModuleRepository(jobs.db)
	ctx := context.Background()

	m := &Module{Name: "etc", ModuleType: "files", BackupType: BackupTypeFull}
	if err := modules.Upsert(ctx, m); err != nil {
		t.Fatalf("Upsert (create): %v", err)
	}
	if m.ID == 0 {
		t.Fatal("expected a non-zero ID after create")
	}
	firstID := m.ID

	m2 := &Module{Name: "etc", ModuleType: "files", BackupType: BackupTypeDiff}
	if err := modules.Upsert(ctx, m2); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	if m2.ID != firstID {
		t.Fatalf("expected upsert to keep ID %d, got %d", firstID, m2.ID)
	}

	got, err := modules.GetByName(ctx, "etc")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.BackupType != BackupTypeDiff {
		t.Fatalf("expected update to overwrite backup type, got %v", got.BackupType)
	}
}

func TestModuleRepositoryGetByNameNotFound(t *testing.T) {
	jobs := openTestDB(t)
	modules := NewModuleRepository(jobs.db)

	_, err := modules.GetByName(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
