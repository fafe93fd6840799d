package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadServer(t *testing.T) {
	t.Run("loads clients, schedules and stamps a fresh config_version", func(t *testing.T) {
		dir := t.TempDir()
		serverPath := filepath.Join(dir, "server.toml")
		writeFile(t, serverPath, `
bind_addr = "0.0.0.0"
port = 8433
ssl_cert = "/etc/relique/cert.pem"
ssl_key = "/etc/relique/key.pem"
clients_cfg_path = "clients"
schedules_cfg_path = "schedules"
backup_storage_path = "/opt/relique/"
`)
		writeFile(t, filepath.Join(dir, "schedules", "business.toml"), `
name = "business-hours"
monday = "09:00-17:00"
`)
		writeFile(t, filepath.Join(dir, "clients", "alpha.toml"), `
name = "alpha"
address = "10.0.0.1"
port = 8434
server_address = "10.0.0.2"
server_port = 8433

[[modules]]
name = "etc"
module_type = "files"
backup_paths = ["/etc"]
pre_backup_script = "/usr/local/bin/pre-backup.sh"
post_backup_script = "/usr/local/bin/post-backup.sh"
pre_restore_script = "/usr/local/bin/pre-restore.sh"
post_restore_script = "/usr/local/bin/post-restore.sh"
`)

		cfg, err := LoadServer(serverPath)
		if err != nil {
			t.Fatalf("LoadServer: %v", err)
		}

		if cfg.ConfigVersion == "" {
			t.Fatal("expected a non-empty config_version")
		}
		if len(cfg.Clients) != 1 {
			t.Fatalf("expected 1 client, got %d", len(cfg.Clients))
		}
		client := cfg.Clients[0]
		if client.ConfigVersion != cfg.ConfigVersion {
			t.Fatalf("client.config_version %q != Config.config_version %q", client.ConfigVersion, cfg.ConfigVersion)
		}
		if len(client.Schedules) != 1 || client.Schedules[0].Name != "business-hours" {
			t.Fatalf("client did not inherit global schedules: %+v", client.Schedules)
		}
		if client.Port != 8434 {
			t.Fatalf("expected explicit port to be kept, got %d", client.Port)
		}
	})

	t.Run("missing clients directory produces a warning, not a failure", func(t *testing.T) {
		dir := t.TempDir()
		serverPath := filepath.Join(dir, "server.toml")
		writeFile(t, serverPath, `
bind_addr = "0.0.0.0"
port = 8433
clients_cfg_path = "clients"
schedules_cfg_path = "schedules"
`)

		cfg, err := LoadServer(serverPath)
		if err != nil {
			t.Fatalf("LoadServer: %v", err)
		}
		if len(cfg.Clients) != 0 {
			t.Fatalf("expected no clients, got %d", len(cfg.Clients))
		}

		found := false
		for _, e := range cfg.Errors {
			if e.Key == "clients" {
				found = true
			}
		}
		if !found {
			t.Fatal("expected a 'No clients defined' warning")
		}
	})

	t.Run("duplicate client name is a critical error", func(t *testing.T) {
		dir := t.TempDir()
		serverPath := filepath.Join(dir, "server.toml")
		writeFile(t, serverPath, `
clients_cfg_path = "clients"
schedules_cfg_path = "schedules"
`)
		writeFile(t, filepath.Join(dir, "clients", "a.toml"), `
name = "dup"
address = "10.0.0.1"
port = 1
`)
		writeFile(t, filepath.Join(dir, "clients", "b.toml"), `
name = "dup"
address = "10.0.0.2"
port = 2
`)

		if _, err := LoadServer(serverPath); err == nil {
			t.Fatal("expected an error for duplicate client name")
		}
	})

	t.Run("client omitting port/server_port gets documented defaults", func(t *testing.T) {
		dir := t.TempDir()
		serverPath := filepath.Join(dir, "server.toml")
		writeFile(t, serverPath, `
clients_cfg_path = "clients"
schedules_cfg_path = "schedules"
`)
		writeFile(t, filepath.Join(dir, "clients", "a.toml"), `
name = "alpha"
address = "10.0.0.1"
`)

		cfg, err := LoadServer(serverPath)
		if err != nil {
			t.Fatalf("LoadServer: %v", err)
		}
		if len(cfg.Clients) != 1 {
			t.Fatalf("expected 1 client, got %d", len(cfg.Clients))
		}
		c := cfg.Clients[0]
		if c.Port != defaultClientPort || c.ServerPort != defaultServerPort {
			t.Fatalf("expected default ports, got port=%d server_port=%d", c.Port, c.ServerPort)
		}
	})
}
