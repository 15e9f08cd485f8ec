package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/infrastructure/sqlite"
	"github.com/recruitsite/recruit/internal/presentation"
	"github.com/recruitsite/recruit/internal/renderdata"
)

var slotsFormat string

var slotsListCmd = &cobra.Command{
	Use:   "slots:list",
	Short: "List the render-data slots",
	Long: `List every render-data slot with its kind, entity type and status.

The slots are primed from the database the same way the server does it, so
the status column shows which slots would be served empty. Collection slots
report their item count. The database is only read: singletons without a
stored row are listed with their default values.

Examples:
  recruit slots:list
  recruit slots:list --format yaml
  recruit slots:list | jq '.[] | select(.status == "unavailable") | .name'`,
	RunE: runSlotsList,
}

func init() {
	slotsListCmd.Flags().StringVarP(&slotsFormat, "format", "f", presentation.FormatJSON, "output format: json or yaml")
	rootCmd.AddCommand(slotsListCmd)
}

func runSlotsList(cmd *cobra.Command, _ []string) error {
	formatter, err := presentation.NewFormatter(cmd.OutOrStdout(), slotsFormat)
	if err != nil {
		return err
	}

	db, err := sqlite.NewDBWithOptions(cfg.Database.Path, sqlite.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := background(cmd)
	reg := renderdata.NewRegistry()
	if err := content.Register(reg); err != nil {
		return err
	}
	if err := reg.Initialize(ctx, renderdata.Options{Reader: db.ReadOnlyEntityStore()}); err != nil {
		return fmt.Errorf("reading slots: %w", err)
	}

	return formatter.FormatSlots(presentation.FromRegistry(ctx, reg))
}
