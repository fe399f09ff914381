package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┌┬┐┌─┐┬ ┬┌┐┌┌─┐
  ├─┘├─┤ ││└─┐└┬┘││││
  ┴  ┴ ┴─┴┘└─┘ ┴ ┘└┘└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "padsync",
		Short: "Realtime collaborative notepad server",
		Long: `Padsync is a small realtime collaborative notepad server.

It keeps short-lived sessions identified by a 4-character code. Clients
join a session over a WebSocket, each owning one editable note that is
broadcast live to every participant in that session. Everything lives in
memory: restart the process and the sessions are gone.

Run it on a laptop, share the 4-character code, and everyone on the same
network can write together.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the padsync ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
