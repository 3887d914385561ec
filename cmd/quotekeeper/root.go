package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
)

// options are the persistent flags shared by every command.
type options struct {
	profile   string
	configDir string
}

func defaultProfile() string {
	if p := os.Getenv("APP_ENVIRONMENT"); p != "" {
		return p
	}

	return "local"
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "quotekeeper",
		Short: "Random quote page with categories, import/export and server sync",
		Long: `quotekeeper keeps a collection of quotes, each with a category.

"serve" runs the quote page, the JSON API and the periodic server sync.
The other commands work on the same store directly, without a server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.profile, "profile", defaultProfile(), "config profile loaded on top of base.yaml")
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", config.DefaultConfigDir, "directory holding base.yaml and profile files")

	root.AddCommand(
		newServeCmd(opts),
		newRandomCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newCategoriesCmd(opts),
		newFilterCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newSyncCmd(opts),
		newVersionCmd(),
	)

	return root
}
