package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm"

	"relique/internal/exitcode"
	"relique/internal/protocol"
	"relique/internal/store"
)

// openServerStore opens the server's job database directly for the
// operator commands (jobs, backup, restore). These are server-only commands:
// the original src/cli.rs rejected them against a client configuration,
// reproduced here by simply requiring --db to point at a real database
// file rather than accepting a client.toml.
func openServerStore(debug bool, dbPath string) (*gorm.DB, *zap.Logger, error) {
	log, err := buildLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := store.Open(store.Config{DSN: dbPath, Logger: log, LogLevel: level})
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return db, log, nil
}

func newJobsCmd(flags *globalFlags) *cobra.Command {
	var dbPath, client, module, jobType string
	var id string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect backup jobs recorded by a server",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active jobs, optionally filtered by client/module/type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(cmd.Context(), flags, dbPath, client, module, jobType)
		},
	}
	list.Flags().StringVar(&client, "client", "", "filter by client name")
	list.Flags().StringVar(&module, "module", "", "filter by module name")
	list.Flags().StringVar(&jobType, "type", "", "filter by backup type (Full or Diff)")
	list.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show a single job by uuid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsShow(cmd.Context(), flags, dbPath, id)
		},
	}
	show.Flags().StringVar(&id, "id", "", "job uuid (required)")
	show.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")

	cmd.AddCommand(list, show)
	return cmd
}

func runJobsList(ctx context.Context, flags *globalFlags, dbPath, client, module, jobType string) error {
	db, log, err := openServerStore(flags.debug, dbPath)
	if err != nil {
		return wrapExit(exitcode.Software, err)
	}

	jobs := store.NewJobRepository(db, store.NewClientRepository(db), store.NewModuleRepository(db))
	active, err := jobs.ListActive(ctx)
	if err != nil {
		return wrapExit(exitcode.DataErr, fmt.Errorf("jobs list: %w", err))
	}

	for _, j := range active {
		if client != "" && j.Client.Name != client {
			continue
		}
		if module != "" && j.Module.Name != module {
			continue
		}
		if jobType != "" && j.BackupType.String() != jobType {
			continue
		}
		fmt.Println(jobLine(j))
	}
	log.Debug("jobs list complete", zap.Int("matched", len(active)))
	return nil
}

func runJobsShow(ctx context.Context, flags *globalFlags, dbPath, id string) error {
	if id == "" {
		return wrapExit(exitcode.Config, fmt.Errorf("jobs show: --id is required"))
	}

	db, _, err := openServerStore(flags.debug, dbPath)
	if err != nil {
		return wrapExit(exitcode.Software, err)
	}

	jobs := store.NewJobRepository(db, store.NewClientRepository(db), store.NewModuleRepository(db))
	job, err := jobs.GetByUUID(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return wrapExit(exitcode.DataErr, fmt.Errorf("jobs show: no job with uuid %s", id))
		}
		return wrapExit(exitcode.DataErr, fmt.Errorf("jobs show: %w", err))
	}

	fmt.Println(jobLine(*job))
	return nil
}

func jobLine(j store.Job) string {
	wire := protocol.BackupJob{
		UUID:       j.UUID,
		Client:     protocol.ClientRef{Name: j.Client.Name},
		Module:     protocol.ModuleRef{Name: j.Module.Name},
		Status:     wireJobStatus(j.Status),
		BackupType: protocol.BackupType(j.BackupType.String()),
	}
	return wire.String()
}

func wireJobStatus(s store.JobStatus) protocol.JobStatus {
	switch s.String() {
	case "Pending":
		return protocol.JobStatusPending
	case "Active":
		return protocol.JobStatusActive
	case "Done":
		return protocol.JobStatusDone
	case "Incomplete":
		return protocol.JobStatusIncomplete
	default:
		return protocol.JobStatusError
	}
}
