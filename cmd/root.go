// Package cmd implements the command-line entry point: flag parsing and the
// top-level mount/unmount lifecycle. Unlike the teacher, which layers a
// viper-backed YAML config file under its flags, this adapter's flag surface
// is small enough (two positional arguments, a handful of booleans and
// strings) that a config file would add indirection without buying
// anything; flags are bound directly with pflag.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var opts struct {
	AutoUnmount bool
	AllowRoot   bool
	AllowOther  bool
	LogLevel    string
	MetricsAddr string
}

var rootCmd = &cobra.Command{
	Use:   "joplinfs [flags] <DATABASE> <MOUNT_POINT>",
	Short: "Mount a Joplin SQLite database as a filesystem",
	Long: `joplinfs projects a Joplin-style SQLite note store as a mountable
POSIX-like filesystem: folders become directories, notes become files named
by title with a .md suffix, and ordinary tools (ls, cat, mv, rm, mkdir,
editors) read and mutate the database directly.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving database path: %w", err)
		}
		mountPoint, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving mount point: %w", err)
		}
		return runMount(dbPath, mountPoint)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.AutoUnmount, "auto_unmount", false, "register auto-unmount on process exit")
	flags.BoolVar(&opts.AllowRoot, "allow-root", false, "permit the root user to access the mount")
	flags.BoolVar(&opts.AllowOther, "allow-other", false, "permit other users to access the mount")
	flags.StringVar(&opts.LogLevel, "log-level", "", "override the JOPLINFS_LOG level for this run")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")
}

// Execute runs the root command, exiting the process with a non-zero status
// on mount or database-open failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
