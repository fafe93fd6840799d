package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ModuleRepository persists Module records, upserted by Name.
type ModuleRepository struct {
	db *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// Upsert saves m keyed on Name, populating m.ID on return.
func (r *ModuleRepository) Upsert(ctx context.Context, m *Module) error {
	var existing Module
	err := r.db.WithContext(ctx).Where("name = ?", m.Name).First(&existing).Error
	switch {
	case err == nil:
		m.ID = existing.ID
		if err := r.db.WithContext(ctx).Model(&existing).Updates(m).Error; err != nil {
			return fmt.Errorf("modules: upsert (update): %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			return fmt.Errorf("modules: upsert (create): %w", err)
		}
		return nil
	default:
		return fmt.Errorf("modules: upsert: %w", err)
	}
}

// GetByName returns the module with the given name, or ErrNotFound.
func (r *ModuleRepository) GetByName(ctx context.Context, name string) (*Module, error) {
	var m Module
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("modules: get by name: %w", err)
	}
	return &m, nil
}
