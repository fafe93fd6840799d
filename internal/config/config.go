// Package config loads and merges the on-disk TOML configuration described
// in spec.md §4.7 and §6: a server.toml (or client.toml) plus per-client and
// per-schedule TOML fragments, stamped with a fresh config_version on every
// load.
package config

import "relique/internal/schedule"

// BackupModule is a named unit of what-to-back-up plus optional lifecycle
// scripts, per spec.md §3.
type BackupModule struct {
	Name              string   `toml:"name"`
	ModuleType        string   `toml:"module_type"`
	BackupType        string   `toml:"backup_type,omitempty"`
	Schedules         []string `toml:"schedules,omitempty"`
	BackupPaths       []string `toml:"backup_paths,omitempty"`
	PreBackupScript   string   `toml:"pre_backup_script,omitempty"`
	PostBackupScript  string   `toml:"post_backup_script,omitempty"`
	PreRestoreScript  string   `toml:"pre_restore_script,omitempty"`
	PostRestoreScript string   `toml:"post_restore_script,omitempty"`
}

// Schedule is a named weekly pattern of active windows, one optional Bounds
// per weekday.
type Schedule struct {
	Name      string          `toml:"name"`
	Monday    schedule.Bounds `toml:"monday,omitempty"`
	Tuesday   schedule.Bounds `toml:"tuesday,omitempty"`
	Wednesday schedule.Bounds `toml:"wednesday,omitempty"`
	Thursday  schedule.Bounds `toml:"thursday,omitempty"`
	Friday    schedule.Bounds `toml:"friday,omitempty"`
	Saturday  schedule.Bounds `toml:"saturday,omitempty"`
	Sunday    schedule.Bounds `toml:"sunday,omitempty"`
}

// ToEvaluator converts a config Schedule into the runtime evaluator type.
func (s Schedule) ToEvaluator() *schedule.Schedule {
	return &schedule.Schedule{
		Name:      s.Name,
		Monday:    s.Monday,
		Tuesday:   s.Tuesday,
		Wednesday: s.Wednesday,
		Thursday:  s.Thursday,
		Friday:    s.Friday,
		Saturday:  s.Saturday,
		Sunday:    s.Sunday,
	}
}

// Client is a registered backup client, as attached to the server's Config
// and pushed verbatim to the client over POST /api/v1/config.
type Client struct {
	Name          string         `toml:"name"`
	Address       string         `toml:"address"`
	Port          int            `toml:"port"`
	ServerAddress string         `toml:"server_address"`
	ServerPort    int            `toml:"server_port"`
	ConfigVersion string         `toml:"-"`
	Modules       []BackupModule `toml:"modules"`
	Schedules     []Schedule     `toml:"-"`
}

const (
	defaultClientPort = 8434
	defaultServerPort = 8433
)

// applyClientDefaults fills in the documented defaults for fields a client
// TOML fragment left at the zero value.
func applyClientDefaults(c *Client) {
	if c.Port == 0 {
		c.Port = defaultClientPort
	}
	if c.ServerPort == 0 {
		c.ServerPort = defaultServerPort
	}
}

// Config is the server's authoritative in-memory document, built fresh on
// every load per spec.md §3.
type Config struct {
	ConfigVersion             string `toml:"-"`
	BindAddr                  string `toml:"bind_addr"`
	PublicAddress             string `toml:"public_address"`
	Port                      int    `toml:"port"`
	SSLCert                   string `toml:"ssl_cert"`
	SSLKey                    string `toml:"ssl_key"`
	StrictSSLCertificateCheck bool   `toml:"strict_ssl_certificate_check"`
	ClientsCfgPath            string `toml:"clients_cfg_path"`
	SchedulesCfgPath          string `toml:"schedules_cfg_path"`
	BackupStoragePath         string `toml:"backup_storage_path"`

	Clients   []Client   `toml:"-"`
	Schedules []Schedule `toml:"-"`

	// Errors accumulates non-fatal configuration problems found while
	// loading (spec.md §7/§8, scenarios S1/S2). Critical entries have
	// already caused Load to fail by the time a caller can observe this
	// slice, so in practice only Warning-severity entries appear here.
	Errors []Error
}

// Default returns a Config populated with the documented defaults from
// spec.md §4.7 / the original implementation's Default impl.
func Default() Config {
	return Config{
		BindAddr:                  "0.0.0.0",
		Port:                      defaultServerPort,
		SSLCert:                   "/etc/relique/cert.pem",
		SSLKey:                    "/etc/relique/key.pem",
		StrictSSLCertificateCheck: false,
		ClientsCfgPath:            "clients",
		SchedulesCfgPath:          "schedules",
		BackupStoragePath:         "/opt/relique/",
	}
}

// Severity classifies a configuration Error.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "Critical"
	}
	return "Warning"
}

// Error is a single configuration problem discovered while loading,
// carrying enough structure for both logs and tests to key off Key.
type Error struct {
	Key      string
	Desc     string
	Severity Severity
}

func (e Error) Error() string {
	return e.Desc
}

// ClientDaemonConfig is the client.toml document: the client daemon's own
// HTTP listener settings plus where to reach the server. It does not carry
// modules or schedules — those arrive over the wire from the server via
// POST /api/v1/config (protocol.ClientConfig), mirroring the original
// implementation's ClientDaemon holding Option<config::Client> only after
// the first successful push.
type ClientDaemonConfig struct {
	BindAddr                  string `toml:"bind_addr"`
	Port                      int    `toml:"port"`
	SSLCert                   string `toml:"ssl_cert"`
	SSLKey                    string `toml:"ssl_key"`
	StrictSSLCertificateCheck bool   `toml:"strict_ssl_certificate_check"`
	ServerAddress             string `toml:"server_address"`
	ServerPort                int    `toml:"server_port"`
}

// DefaultClient returns a ClientDaemonConfig with the documented defaults.
func DefaultClient() ClientDaemonConfig {
	return ClientDaemonConfig{
		BindAddr:                  "0.0.0.0",
		Port:                      defaultClientPort,
		SSLCert:                   "/etc/relique/cert.pem",
		SSLKey:                    "/etc/relique/key.pem",
		StrictSSLCertificateCheck: false,
		ServerPort:                defaultServerPort,
	}
}
