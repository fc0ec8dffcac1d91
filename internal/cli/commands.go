package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bookmarks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			items, err := e.api.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			renderList(e.out, items, "")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd(v *viper.Viper) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			b, err := e.api.Add(cmd.Context(), args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "added %s\n", idStyle.Render(b.ID))
			renderBookmark(e.out, b)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "display title")
	return cmd
}

func newRmCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete bookmarks by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := e.api.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(e.out, "deleted %s\n", idStyle.Render(id))
			}
			return nil
		},
	}
}

func newOpenCmd(v *viper.Viper) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "open <query>",
		Short: "Print the URL of the bookmark best matching query",
		Long: `Fuzzy-matches query against bookmark titles and hosts and prints the
best URL, so it can be piped to a browser:

  xdg-open "$(marksctl open grafana)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			items, err := e.api.List(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if all {
				candidates := domain.RankBookmarks(query, items)
				if len(candidates) == 0 {
					return fmt.Errorf("no bookmark matches %q", query)
				}
				for _, c := range candidates {
					fmt.Fprintf(e.out, "%6.1f  %s\n", c.Score, c.Bookmark.URL)
				}
				return nil
			}

			b, ok := domain.FindBestBookmark(query, items)
			if !ok {
				return fmt.Errorf("no bookmark matches %q", query)
			}
			fmt.Fprintln(e.out, b.URL)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "print every match with its score")
	return cmd
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	var (
		kind   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import links from a Homepage bookmarks.yaml or services.yaml",
		Long: `Reads a Homepage (gethomepage.dev) configuration file and adds every
link whose URL is not bookmarked yet. Entry names become titles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			k := homepage.Kind(kind)
			if k == "" {
				k = homepage.DetectKind(path)
			}
			drafts, err := homepage.Load(path, k)
			if err != nil {
				return err
			}

			e, err := newEnv(cmd, v)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			existing, err := e.api.List(ctx)
			if err != nil {
				return err
			}
			have := make(map[string]struct{}, len(existing))
			for _, b := range existing {
				have[b.URL] = struct{}{}
			}

			var added, skipped int
			for _, d := range drafts {
				if _, ok := have[d.URL]; ok {
					skipped++
					continue
				}
				if dryRun {
					fmt.Fprintf(e.out, "would add %s %s\n", labelStyle.Render(d.Title), urlStyle.Render(d.URL))
					added++
					continue
				}
				if _, err := e.api.Add(ctx, d.URL, d.Title); err != nil {
					if domain.IsValidation(err) {
						e.log.Warnf("skipping %s: %v", d.URL, err)
						skipped++
						continue
					}
					return fmt.Errorf("import stopped after %d bookmarks: %w", added, err)
				}
				have[d.URL] = struct{}{}
				added++
			}

			verb := "imported"
			if dryRun {
				verb = "would import"
			}
			fmt.Fprintf(e.out, "%s %d, skipped %d already present\n", verb, added, skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "file layout: bookmarks or services (default: from file name)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only print what would be added")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "marksctl "+version.Get().String())
			return nil
		},
	}
}
