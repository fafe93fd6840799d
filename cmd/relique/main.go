// Command relique is the CLI entry point for both daemon roles (server,
// client) and the operator subcommands the original src/cli.rs exposed
// (jobs, backup, restore), per spec.md §6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relique/internal/exitcode"
)

var (
	version = "dev"
	commit  = "none"
)

// globalFlags holds the two flags every subcommand shares: -c/--config and
// -d/--debug, per spec.md §6.
type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := &globalFlags{}
	root := newRootCmd(flags)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodeFor(err)
	}
	return exitcode.OK
}

func newRootCmd(flags *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "relique",
		Short: "Relique — delta-aware backup orchestration",
		Long: `Relique coordinates scheduled, delta-aware file backups between a
server and one or more clients over a three-leg HTTP protocol.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the role's TOML configuration file")
	root.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug-level logging")

	root.AddCommand(newServerCmd(flags))
	root.AddCommand(newClientCmd(flags))
	root.AddCommand(newJobsCmd(flags))
	root.AddCommand(newBackupCmd(flags))
	root.AddCommand(newRestoreCmd(flags))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relique %s (commit: %s)\n", version, commit)
		},
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return cfg.Build()
}

// exitErr carries a sysexits-style code alongside the wrapped error, so
// run() can translate a subcommand's failure into the right process exit
// status (spec.md §6).
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func wrapExit(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitErr{code: code, err: err}
}

func exitCodeFor(err error) int {
	if ee, ok := err.(*exitErr); ok {
		return ee.code
	}
	return exitcode.Software
}
