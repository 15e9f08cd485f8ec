package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/infrastructure/sqlite"
	"github.com/recruitsite/recruit/internal/presentation"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Edit site content",
	Long: `Edit site content in the database.

A running server watching the same database picks the change up and
refreshes the affected render data.`,
}

var faqAddCmd = &cobra.Command{
	Use:     "faq:add",
	Short:   "Add a FAQ point",
	Example: `  recruit content faq:add --question "Who can apply?" --answer "<p>Citizens aged 18+</p>" --position 1`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		position, _ := cmd.Flags().GetInt("position")

		point := &content.FAQPoint{Question: question, Answer: answer, Position: position}
		return withStore(cmd, func(store *sqlite.EntityStore) error {
			if err := store.Save(background(cmd), point); err != nil {
				return err
			}
			return printResult(cmd, presentation.FromSaved("created", point, point.ID))
		})
	},
}

var faqDeleteCmd = &cobra.Command{
	Use:     "faq:delete ID",
	Short:   "Delete a FAQ point",
	Example: `  recruit content faq:delete 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		point := &content.FAQPoint{ID: id}
		return withStore(cmd, func(store *sqlite.EntityStore) error {
			if err := store.Delete(background(cmd), point); err != nil {
				return err
			}
			return printResult(cmd, presentation.FromSaved("deleted", point, id))
		})
	},
}

var pageUpsertCmd = &cobra.Command{
	Use:   "page:upsert",
	Short: "Create or update a page",
	Long: `Create or update the page whose template is --file-name.
Only the flags given are changed on an existing page.`,
	Example: `  recruit content page:upsert --file-name legal --title "Privacy policy"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fileName, _ := cmd.Flags().GetString("file-name")
		return withStore(cmd, func(store *sqlite.EntityStore) error {
			ctx := background(cmd)
			action := "updated"
			page, err := store.PageByFileName(ctx, fileName)
			switch {
			case errors.Is(err, entity.ErrNotFound):
				action = "created"
				page = &content.Page{FileName: fileName}
			case err != nil:
				return err
			}

			setString(cmd, "name", &page.Name)
			setString(cmd, "title", &page.Title)
			setString(cmd, "seo", &page.SEOContent)
			if page.Name == "" {
				page.Name = page.Title
			}
			if err := store.Save(ctx, page); err != nil {
				return err
			}
			return printResult(cmd, presentation.FromSaved(action, page, page.ID))
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "settings:set",
	Short:   "Change site settings",
	Long:    `Change site settings. Only the flags given are changed.`,
	Example: `  recruit content settings:set --robots "User-agent: *" --favicon /static/favicon.ico`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(store *sqlite.EntityStore) error {
			ctx := background(cmd)
			v, err := store.FetchSingleton(ctx, entity.TypeOf[*content.SiteSettings]())
			if err != nil {
				return err
			}
			settings := v.(*content.SiteSettings)

			setString(cmd, "favicon", &settings.Favicon)
			setString(cmd, "video", &settings.Video)
			setString(cmd, "robots", &settings.RobotsTxt)
			setString(cmd, "head-html", &settings.HeadHTML)
			setString(cmd, "body-html", &settings.BodyHTML)
			if err := store.Save(ctx, settings); err != nil {
				return err
			}
			return printResult(cmd, presentation.FromSaved("updated", settings, 0))
		})
	},
}

func init() {
	faqAddCmd.Flags().String("question", "", "question text (required)")
	faqAddCmd.Flags().String("answer", "", "answer HTML (required)")
	faqAddCmd.Flags().Int("position", 0, "display position")
	_ = faqAddCmd.MarkFlagRequired("question")
	_ = faqAddCmd.MarkFlagRequired("answer")

	pageUpsertCmd.Flags().String("file-name", "", "template name without .html (required)")
	pageUpsertCmd.Flags().String("name", "", "page name")
	pageUpsertCmd.Flags().String("title", "", "page title")
	pageUpsertCmd.Flags().String("seo", "", "SEO markup for the page head")
	_ = pageUpsertCmd.MarkFlagRequired("file-name")

	settingsSetCmd.Flags().String("favicon", "", "favicon URL")
	settingsSetCmd.Flags().String("video", "", "main page video URL")
	settingsSetCmd.Flags().String("robots", "", "robots.txt content")
	settingsSetCmd.Flags().String("head-html", "", "markup added to every page head")
	settingsSetCmd.Flags().String("body-html", "", "markup added to the end of every page body")

	contentCmd.AddCommand(faqAddCmd, faqDeleteCmd, pageUpsertCmd, settingsSetCmd)
	rootCmd.AddCommand(contentCmd)
}

// withStore opens the configured database, migrating it if configured, and
// runs fn with its content store.
func withStore(cmd *cobra.Command, fn func(store *sqlite.EntityStore) error) error {
	db, err := sqlite.NewDBWithOptions(cfg.Database.Path, sqlite.Options{
		Migrate: cfg.Database.AutoMigrate,
		Backup:  cfg.Database.AutoMigrate && cfg.Database.BackupBeforeMigrate,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db.EntityStore(entity.NewSignal()))
}

// setString copies flag name into dst when it was given.
func setString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func printResult(cmd *cobra.Command, result presentation.ContentResultDTO) error {
	formatter, err := presentation.NewFormatter(cmd.OutOrStdout(), presentation.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatResult(result)
}
