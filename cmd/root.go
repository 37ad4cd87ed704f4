// Package cmd wires the command line interface of otterdog.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/config"
	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var (
	configPath string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:   "otterdog",
	Short: "Manage GitHub organizations at scale with a configuration-as-code approach",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file to use (default \"otterdog.json\")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity (repeatable)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
}

func setupLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case verbosity >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// usageError marks command line misuse, reported with exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCodeError carries an explicit exit code, used by validate to
// report its error count.
type exitCodeError struct {
	code int
	msg  string
}

func (e exitCodeError) Error() string { return e.msg }

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	var exit exitCodeError
	if errors.As(err, &exit) {
		if exit.msg != "" {
			fmt.Fprintln(os.Stderr, exit.msg)
		}
		return exit.code
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 1
}

// loadConfig reads the top-level configuration named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// orgArgs selects the organizations to operate on. Zero names means all
// configured organizations.
func orgArgs(cfg *config.Config, args []string) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.OrganizationNames()
}

// runForOrgs executes an operation once per selected organization and
// aggregates failures.
func runForOrgs(cmd *cobra.Command, args []string, noWebUI bool,
	fn func(ctx context.Context, o *operations.OrgContext) error) error {

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var failures int
	for _, name := range orgArgs(cfg, args) {
		o, err := operations.NewOrgContext(ctx, cfg, name, operations.ContextOptions{
			NoWebUI: noWebUI,
			Out:     cmd.OutOrStdout(),
		})
		if err != nil {
			logrus.Errorf("organization %s: %v", name, err)
			failures++
			continue
		}
		if err := fn(ctx, o); err != nil {
			logrus.Errorf("organization %s: %v", name, err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("operation failed for %d organization(s)", failures)
	}
	return nil
}
