// Command needleyctl administers a needley database from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/needley/internal/cli"
)

func main() {
	// DB_PATH from .env becomes the default for --db.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
