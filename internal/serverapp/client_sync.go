package serverapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"relique/internal/config"
	"relique/internal/protocol"
)

func (d *Daemon) fetchClientVersion(ctx context.Context, c config.Client) (*string, error) {
	url := clientBaseURL(c) + protocol.RouteConfigVersion
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out protocol.ConfigVersion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Version, nil
}

func (d *Daemon) pushClientConfig(ctx context.Context, c config.Client) error {
	wire := protocol.ClientConfig{
		Name:          c.Name,
		Address:       c.Address,
		Port:          c.Port,
		ServerAddress: c.ServerAddress,
		ServerPort:    c.ServerPort,
		ConfigVersion: c.ConfigVersion,
	}
	for _, m := range c.Modules {
		wire.Modules = append(wire.Modules, protocol.ModuleRef{
			Name:              m.Name,
			ModuleType:        m.ModuleType,
			BackupType:        protocol.BackupType(m.BackupType),
			BackupPaths:       m.BackupPaths,
			PreBackupScript:   m.PreBackupScript,
			PostBackupScript:  m.PostBackupScript,
			PreRestoreScript:  m.PreRestoreScript,
			PostRestoreScript: m.PostRestoreScript,
		})
	}
	for _, s := range c.Schedules {
		wire.Schedules = append(wire.Schedules, protocol.ScheduleRef{
			Name:      s.Name,
			Monday:    s.Monday.String(),
			Tuesday:   s.Tuesday.String(),
			Wednesday: s.Wednesday.String(),
			Thursday:  s.Thursday.String(),
			Friday:    s.Friday.String(),
			Saturday:  s.Saturday.String(),
			Sunday:    s.Sunday.String(),
		})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	url := clientBaseURL(c) + protocol.RouteConfig
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
