package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ClientRepository persists Client records, upserted by Name per spec.md
// §4.6's upsert discipline.
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Upsert saves c keyed on Name: an existing row with the same name is
// updated in place (preserving its ID), otherwise a new row is inserted.
// On return c.ID is always populated.
func (r *ClientRepository) Upsert(ctx context.Context, c *Client) error {
	var existing Client
	err := r.db.WithContext(ctx).Where("name = ?", c.Name).First(&existing).Error
	switch {
	case err == nil:
		c.ID = existing.ID
		if err := r.db.WithContext(ctx).Model(&existing).Updates(c).Error; err != nil {
			return fmt.Errorf("clients: upsert (update): %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
			return fmt.Errorf("clients: upsert (create): %w", err)
		}
		return nil
	default:
		return fmt.Errorf("clients: upsert: %w", err)
	}
}

// GetByName returns the client with the given name, or ErrNotFound.
func (r *ClientRepository) GetByName(ctx context.Context, name string) (*Client, error) {
	var c Client
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clients: get by name: %w", err)
	}
	return &c, nil
}

// UpdateConfigVersion stamps the client's currently-held config_version.
func (r *ClientRepository) UpdateConfigVersion(ctx context.Context, name, version string) error {
	result := r.db.WithContext(ctx).Model(&Client{}).
		Where("name = ?", name).
		Update("config_version", version)
	if result.Error != nil {
		return fmt.Errorf("clients: update config version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every persisted client.
func (r *ClientRepository) List(ctx context.Context) ([]Client, error) {
	var clients []Client
	if err := r.db.WithContext(ctx).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	return clients, nil
}
