package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relique/internal/exitcode"
	"relique/internal/store"
)

// newRestoreCmd models restore as a hook invocation point only, per
// spec.md's explicit non-goal ("no restore protocol, only the
// restore-script hook points are modelled"): it runs the named module's
// pre/post restore scripts and does nothing else.
func newRestoreCmd(flags *globalFlags) *cobra.Command {
	var dbPath, moduleName string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Invoke a module's restore-script hooks",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Run pre_restore_script then post_restore_script for a module",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestoreStart(cmd.Context(), flags, dbPath, moduleName)
		},
	}
	start.Flags().StringVar(&moduleName, "module", "", "module name (required)")
	start.Flags().StringVar(&dbPath, "db", defaultServerDBPath, "path to the server's SQLite database file")
	cmd.AddCommand(start)

	return cmd
}

func runRestoreStart(ctx context.Context, flags *globalFlags, dbPath, moduleName string) error {
	if moduleName == "" {
		return wrapExit(exitcode.Config, fmt.Errorf("restore start: --module is required"))
	}

	db, log, err := openServerStore(flags.debug, dbPath)
	if err != nil {
		return wrapExit(exitcode.Software, err)
	}

	module, err := store.NewModuleRepository(db).GetByName(ctx, moduleName)
	if err != nil {
		return wrapExit(exitcode.DataErr, fmt.Errorf("restore start: unknown module %q: %w", moduleName, err))
	}

	if err := runHook(ctx, log, "pre_restore_script", module.PreRestoreScript); err != nil {
		return wrapExit(exitcode.Software, err)
	}
	if err := runHook(ctx, log, "post_restore_script", module.PostRestoreScript); err != nil {
		return wrapExit(exitcode.Software, err)
	}

	return nil
}

func runHook(ctx context.Context, log *zap.Logger, name, script string) error {
	if script == "" {
		log.Debug("no script configured, skipping", zap.String("hook", name))
		return nil
	}
	log.Info("running restore hook", zap.String("hook", name), zap.String("script", script))
	cmd := exec.CommandContext(ctx, script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w (output: %s)", name, err, out)
	}
	return nil
}
