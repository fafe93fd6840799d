// Package protocol defines the wire types and route paths of the relique
// HTTP API described in spec.md §6: config distribution and the three-leg
// backup delta exchange.
package protocol

import "fmt"

// API route paths. Both daemons mount their HTTP surface under this prefix.
const (
	APIPrefix = "/api/v1"

	RouteConfigVersion = APIPrefix + "/config/version"
	RouteConfig        = APIPrefix + "/config"

	RouteJobRegister = APIPrefix + "/backup/jobs/register"
	RouteJobStatus   = APIPrefix + "/backup/jobs/{uuid}/status"
	RouteJobSignature = APIPrefix + "/backup/jobs/{uuid}/signature"
	RouteJobDelta    = APIPrefix + "/backup/jobs/{uuid}/delta"
)

// JobStatusPath renders RouteJobStatus for a concrete job uuid.
func JobStatusPath(uuid string) string {
	return fmt.Sprintf("%s/backup/jobs/%s/status", APIPrefix, uuid)
}

// JobSignaturePath renders RouteJobSignature for a concrete job uuid.
func JobSignaturePath(uuid string) string {
	return fmt.Sprintf("%s/backup/jobs/%s/signature", APIPrefix, uuid)
}

// JobDeltaPath renders RouteJobDelta for a concrete job uuid.
func JobDeltaPath(uuid string) string {
	return fmt.Sprintf("%s/backup/jobs/%s/delta", APIPrefix, uuid)
}

// BackupType mirrors store.BackupType on the wire, as a string so the JSON
// payload stays human-readable across the HTTP boundary.
type BackupType string

const (
	BackupTypeFull BackupType = "Full"
	BackupTypeDiff BackupType = "Diff"
)

// JobStatus mirrors store.JobStatus on the wire.
type JobStatus string

const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusActive     JobStatus = "Active"
	JobStatusDone       JobStatus = "Done"
	JobStatusIncomplete JobStatus = "Incomplete"
	JobStatusError      JobStatus = "Error"
)

// ClientRef is the client snapshot carried inside a BackupJob payload.
type ClientRef struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Port          int    `json:"port"`
	ServerAddress string `json:"server_address"`
	ServerPort    int    `json:"server_port"`
}

// ModuleRef is the module snapshot carried inside a BackupJob payload.
type ModuleRef struct {
	Name              string     `json:"name"`
	ModuleType        string     `json:"module_type"`
	BackupType        BackupType `json:"backup_type"`
	BackupPaths       []string   `json:"backup_paths,omitempty"`
	PreBackupScript   string     `json:"pre_backup_script,omitempty"`
	PostBackupScript  string     `json:"post_backup_script,omitempty"`
	PreRestoreScript  string     `json:"pre_restore_script,omitempty"`
	PostRestoreScript string     `json:"post_restore_script,omitempty"`
}

// BackupJob is the wire form of a BackupJob, exchanged on register and
// embedded implicitly via uuid in the status/signature/delta legs.
type BackupJob struct {
	UUID       string     `json:"uuid"`
	Client     ClientRef  `json:"client"`
	Module     ModuleRef  `json:"module"`
	Status     JobStatus  `json:"status"`
	BackupType BackupType `json:"backup_type"`
}

// String renders a human-readable status line, grounded on the job status
// Display strings carried over from the original implementation.
func (j BackupJob) String() string {
	switch j.Status {
	case JobStatusPending:
		return fmt.Sprintf("Job %s pending for client %s (%s)", j.UUID, j.Client.Name, j.Module.Name)
	case JobStatusActive:
		return fmt.Sprintf("Job %s running for client %s (%s)", j.UUID, j.Client.Name, j.Module.Name)
	case JobStatusDone:
		return fmt.Sprintf("Job %s done for client %s (%s)", j.UUID, j.Client.Name, j.Module.Name)
	case JobStatusIncomplete:
		return fmt.Sprintf("Job %s incomplete for client %s (%s)", j.UUID, j.Client.Name, j.Module.Name)
	case JobStatusError:
		return fmt.Sprintf("Job %s errored for client %s (%s)", j.UUID, j.Client.Name, j.Module.Name)
	default:
		return fmt.Sprintf("Job %s (%s) for client %s (%s)", j.UUID, j.Status, j.Client.Name, j.Module.Name)
	}
}

// BackupFile is the wire-only, never-persisted per-file envelope of
// spec.md §3. IsDir is serialized but never meaningfully consumed by this
// implementation, preserved verbatim as an open question from the source.
type BackupFile struct {
	JobID     string `json:"job_id"`
	Path      string `json:"path"`
	Signature []byte `json:"signature,omitempty"`
	Delta     []byte `json:"delta,omitempty"`
	IsDir     bool   `json:"is_dir"`
}

// ConfigVersion is the response body of GET /api/v1/config/version.
type ConfigVersion struct {
	Version *string `json:"version"`
}

// ScheduleRef mirrors a Schedule for the wire, carrying each weekday's
// Bounds in the "HH:MM-HH:MM" comma-separated format of spec.md §4.5.
type ScheduleRef struct {
	Name      string `json:"name"`
	Monday    string `json:"monday,omitempty"`
	Tuesday   string `json:"tuesday,omitempty"`
	Wednesday string `json:"wednesday,omitempty"`
	Thursday  string `json:"thursday,omitempty"`
	Friday    string `json:"friday,omitempty"`
	Saturday  string `json:"saturday,omitempty"`
	Sunday    string `json:"sunday,omitempty"`
}

// ClientConfig is the POST /api/v1/config request body: the fully merged
// client record pushed from server to client.
type ClientConfig struct {
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	Port          int           `json:"port"`
	ServerAddress string        `json:"server_address"`
	ServerPort    int           `json:"server_port"`
	ConfigVersion string        `json:"config_version"`
	Modules       []ModuleRef   `json:"modules"`
	Schedules     []ScheduleRef `json:"schedules"`
}
