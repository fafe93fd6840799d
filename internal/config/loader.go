package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// ModulesPath is where per-module-type defaults live, per spec.md §6.
const ModulesPath = "/var/lib/relique/modules"

// LoadServer reads server.toml at path, then recursively walks
// ClientsCfgPath and SchedulesCfgPath (resolved relative to path's
// directory) parsing every .toml file found into a Client or Schedule.
// It always stamps a fresh ConfigVersion. Critical configuration errors
// (duplicate client name, duplicate (address,port)) are returned as an
// error; Warning-level ones are collected onto the returned Config.
func LoadServer(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: load server config %s: %w", path, err)
	}
	cfg.ConfigVersion = uuid.NewString()

	base := filepath.Dir(path)

	schedules, err := loadSchedules(resolvePath(base, cfg.SchedulesCfgPath))
	if err != nil {
		return nil, fmt.Errorf("config: load schedules: %w", err)
	}
	cfg.Schedules = schedules

	clients, warnings, err := loadClients(resolvePath(base, cfg.ClientsCfgPath))
	if err != nil {
		return nil, err
	}
	cfg.Errors = append(cfg.Errors, warnings...)

	if len(clients) == 0 {
		cfg.Errors = append(cfg.Errors, Error{
			Key:      "clients",
			Desc:     "No clients defined",
			Severity: SeverityWarning,
		})
	}

	if err := validateClients(clients); err != nil {
		return nil, err
	}

	for i := range clients {
		applyClientDefaults(&clients[i])
		clients[i].ConfigVersion = cfg.ConfigVersion
		clients[i].Schedules = schedules
		if err := mergeModuleDefaults(clients[i].Modules); err != nil {
			return nil, fmt.Errorf("config: merge module defaults for client %s: %w", clients[i].Name, err)
		}
	}
	cfg.Clients = clients

	return &cfg, nil
}

// LoadClient reads client.toml at path and applies documented defaults.
func LoadClient(path string) (*ClientDaemonConfig, error) {
	cfg := DefaultClient()
	if err := decodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: load client config %s: %w", path, err)
	}
	return &cfg, nil
}

func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing toml: %w", err)
	}
	return nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// loadSchedules recursively parses every .toml file under dir into a
// Schedule. A missing directory is not an error: schedules are optional.
func loadSchedules(dir string) ([]Schedule, error) {
	var schedules []Schedule
	err := walkTOMLFiles(dir, func(path string) error {
		var s Schedule
		if err := decodeFile(path, &s); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		schedules = append(schedules, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// loadClients recursively parses every .toml file under dir into a Client.
func loadClients(dir string) ([]Client, []Error, error) {
	var clients []Client
	err := walkTOMLFiles(dir, func(path string) error {
		var c Client
		if err := decodeFile(path, &c); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		clients = append(clients, c)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("config: load clients: %w", err)
	}
	return clients, nil, nil
}

// walkTOMLFiles calls fn once per *.toml file found recursively under dir,
// in filepath.WalkDir order. A dir that does not exist yields no files and
// no error, since both clients_cfg_path and schedules_cfg_path are optional.
func walkTOMLFiles(dir string, fn func(path string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := walkTOMLFiles(path, fn); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	return nil
}

// validateClients enforces the duplicate-detection invariants of spec.md
// §3: (name) and (address, port) must both be unique across all clients.
// Either violation is Critical and aborts startup (spec.md §7, scenario S2).
func validateClients(clients []Client) error {
	names := make(map[string]bool, len(clients))
	addrs := make(map[string]bool, len(clients))

	for _, c := range clients {
		if names[c.Name] {
			return Error{
				Key:      "clients.name",
				Desc:     fmt.Sprintf("duplicate client name %q", c.Name),
				Severity: SeverityCritical,
			}
		}
		names[c.Name] = true

		key := fmt.Sprintf("%s:%d", c.Address, c.Port)
		if addrs[key] {
			return Error{
				Key:      "clients.address",
				Desc:     fmt.Sprintf("duplicate client address %q", key),
				Severity: SeverityCritical,
			}
		}
		addrs[key] = true
	}
	return nil
}

// mergeModuleDefaults loads /var/lib/relique/modules/{module_type}/default.toml
// for each module and fills in BackupPaths and the four script fields
// wherever the module's own TOML fragment left them unset, per spec.md
// §4.7. A missing module-type directory is a Critical configuration error
// ("missing module default") since the module has no way to know what to
// back up.
func mergeModuleDefaults(modules []BackupModule) error {
	for i := range modules {
		m := &modules[i]
		if m.BackupType == "" {
			m.BackupType = "Full"
		}

		needsDefaults := len(m.BackupPaths) == 0 ||
			m.PreBackupScript == "" || m.PostBackupScript == "" ||
			m.PreRestoreScript == "" || m.PostRestoreScript == ""
		if !needsDefaults {
			continue
		}

		defaultPath := filepath.Join(ModulesPath, m.ModuleType, "default.toml")
		var def BackupModule
		err := decodeFile(defaultPath, &def)
		if err != nil {
			if os.IsNotExist(err) {
				return Error{
					Key:      "modules.default",
					Desc:     fmt.Sprintf("missing module default for type %q", m.ModuleType),
					Severity: SeverityCritical,
				}
			}
			return fmt.Errorf("reading %s: %w", defaultPath, err)
		}

		if len(m.BackupPaths) == 0 {
			m.BackupPaths = def.BackupPaths
		}
		if m.PreBackupScript == "" {
			m.PreBackupScript = def.PreBackupScript
		}
		if m.PostBackupScript == "" {
			m.PostBackupScript = def.PostBackupScript
		}
		if m.PreRestoreScript == "" {
			m.PreRestoreScript = def.PreRestoreScript
		}
		if m.PostRestoreScript == "" {
			m.PostRestoreScript = def.PostRestoreScript
		}
	}
	return nil
}
