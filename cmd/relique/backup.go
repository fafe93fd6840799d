package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"relique/internal/exitcode"
	"relique/internal/store"
)

func newBackupCmd(flags *globalFlags) *cobra.Command {
	var dbPath, clientName, moduleName, backupType string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Trigger or inspect backup jobs on a server",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Register a new job out-of-band of the regular schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupStart(cmd.Context(), flags, dbPath, clientName, moduleName, backupType)
		},
	}
	start.Flags().StringVar(&clientName, "client", "", "client name (required)")
	start.Flags().StringVar(&moduleName, "module", "", "module name (required)")
	start.Flags().StringVar(&backupType, "type", "Full", "backup type: Full or Diff")
	start.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every recorded job, regardless of status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackupList(cmd.Context(), flags, dbPath)
		},
	}
	list.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")

	cmd.AddCommand(start, list)
	return cmd
}

func runBackupStart(ctx context.Context, flags *globalFlags, dbPath, clientName, moduleName, backupType string) error {
	if clientName == "" || moduleName == "" {
		return wrapExit(exitcode.Config, fmt.Errorf("backup start: --client and --module are required"))
	}

	db, _, err := openServerStore(flags.debug, dbPath)
	if err != nil {
		return wrapExit(exitcode.Software, err)
	}

	clients := store.NewClientRepository(db)
	modules := store.NewModuleRepository(db)
	jobs := store.NewJobRepository(db, clients, modules)

	client, err := clients.GetByName(ctx, clientName)
	if err != nil {
		return wrapExit(exitcode.DataErr, fmt.Errorf("backup start: unknown client %q: %w", clientName, err))
	}
	module, err := modules.GetByName(ctx, moduleName)
	if err != nil {
		return wrapExit(exitcode.DataErr, fmt.Errorf("backup start: unknown module %q: %w", moduleName, err))
	}

	bt := store.BackupTypeFull
	if backupType == "Diff" {
		bt = store.BackupTypeDiff
	}

	job, err := jobs.Register(ctx, uuid.NewString(), store.JobStatusPending, bt, client, module)
	if err != nil {
		return wrapExit(exitcode.Software, fmt.Errorf("backup start: %w", err))
	}

	fmt.Println(jobLine(*job))
	return nil
}

func runBackupList(ctx context.Context, flags *globalFlags, dbPath string) error {
	db, _, err := openServerStore(flags.debug, dbPath)
	if err != nil {
		return wrapExit(exitcode.Software, err)
	}

	var jobs []store.Job
	if err := db.WithContext(ctx).Preload("Client").Preload("Module").Find(&jobs).Error; err != nil {
		return wrapExit(exitcode.DataErr, fmt.Errorf("backup list: %w", err))
	}

	for _, j := range jobs {
		fmt.Println(jobLine(j))
	}
	return nil
}
