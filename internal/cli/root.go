// Package cli implements needleyctl, the administrative command line for a
// needley database. It talks to the database file directly through the
// service layer, so the server does not need to be running.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Database string
	Format   string // "json" | "text"
	Verbose  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func defaultDatabase() string {
	if p := os.Getenv("DB_PATH"); p != "" {
		return p
	}
	return "data/needley.db"
}

// NewRootCommand creates the root command for needleyctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "needleyctl",
		Short: "Administer a needley database",
		Long:  "Inspect and manage the users and articles of a needley blog database.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaultDatabase(), "path to the SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log service activity to stderr")

	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewArticlesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
