// Package store is the server's persistence layer: GORM models, embedded
// migrations, and repositories over the clients/modules/jobs/
// modules_schedules schema of spec.md §4.6.
package store

import "time"

// Client is the persisted counterpart of a configured backup client.
// Uniqueness is on Name; (Address, Port) uniqueness is enforced by the
// config loader rather than the DB (spec.md §3 duplicate-detection rule).
type Client struct {
	ID            uint   `gorm:"primaryKey"`
	ConfigVersion string `gorm:"column:config_version"`
	Name          string `gorm:"uniqueIndex;not null"`
	Address       string
	Port          int
	ServerAddress string `gorm:"column:server_address"`
	ServerPort    int    `gorm:"column:server_port"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Client) TableName() string { return "clients" }

// Module is the persisted counterpart of a BackupModule definition.
type Module struct {
	ID               uint   `gorm:"primaryKey"`
	ModuleType       string `gorm:"column:module_type"`
	Name             string `gorm:"uniqueIndex;not null"`
	BackupType       BackupType
	PreBackupScript  string `gorm:"column:pre_backup_script"`
	PostBackupScript string `gorm:"column:post_backup_script"`
	PreRestoreScript string `gorm:"column:pre_restore_script"`
	PostRestoreScript string `gorm:"column:post_restore_script"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Module) TableName() string { return "modules" }

// ModuleSchedule is the schedule_id/module_id join table declared by
// spec.md §4.6. It is intentionally never populated: schedule-to-module
// linkage is carried in memory through BackupModule.Schedules only, per
// the open question preserved in spec.md §9. The type exists so the
// table's shape is documented and migratable, not so that any repository
// writes to it.
type ModuleSchedule struct {
	ScheduleID uint `gorm:"column:schedule_id"`
	ModuleID   uint `gorm:"column:module_id"`
}

func (ModuleSchedule) TableName() string { return "modules_schedules" }

// Job is the persisted counterpart of a BackupJob. UUID is the protocol
// identity; ID is the local relational key used for foreign keys only.
type Job struct {
	ID         uint   `gorm:"primaryKey"`
	UUID       string `gorm:"column:uuid;uniqueIndex;not null"`
	Status     JobStatus
	BackupType BackupType
	ModuleID   uint `gorm:"column:module_id"`
	ClientID   uint `gorm:"column:client_id"`
	Module     Module `gorm:"foreignKey:ModuleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Client     Client `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Job) TableName() string { return "jobs" }
