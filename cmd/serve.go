package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recruitsite/recruit/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recruiting site",
	Long: `Serve the recruiting site.

Start-up opens (and by default migrates) the database, registers the
render-data slots, primes them from storage and then listens for requests.
Slots whose tables are missing are skipped and served empty. Registration
or priming failures abort start-up.

Examples:
  recruit serve
  recruit serve --addr :9000 --db /var/lib/recruit/site.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("no-watch", false, "do not refresh when another process writes the database")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		cfg.Watcher.Enabled = false
	}

	ctx, stop := signal.NotifyContext(background(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	site, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting site: %w", err)
	}
	defer func() { _ = site.Close() }()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on port %d\n", site.Port())
	if err := site.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// background returns the command's context or a background one when the
// command runs outside Execute.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
