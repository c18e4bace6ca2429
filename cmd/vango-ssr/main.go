// Command vango-ssr serves and prerenders pages with the streaming SSR
// engine.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/ssr/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	verrors.SetColor(isatty.IsTerminal(os.Stderr.Fd()))
	if err := rootCmd().Execute(); err != nil {
		verrors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "vango-ssr",
		Short: "Streaming server-side rendering for Vango pages",
		Long: `vango-ssr renders component pages to HTML on the server.

The first chunk of a page is sent as soon as routing is decided. Parts of
the page waiting on server data are sent later, as they resolve, and fully
resolved pages can be cached for incremental rendering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: ssr.json or ssr.yaml in the working directory or a parent)")

	root.AddCommand(
		serveCmd(&configPath),
		prerenderCmd(&configPath),
		initCmd(),
		versionCmd(),
	)
	return root
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
