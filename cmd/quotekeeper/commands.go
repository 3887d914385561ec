package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// stdioPath selects stdin or stdout instead of a file.
const stdioPath = "-"

// withRuntime bootstraps a runtime for one command. Logs go to stderr so
// stdout carries only the command output.
func withRuntime(cmd *cobra.Command, opts *options, fn func(ctx context.Context, rt *runtime, out io.Writer) error) (err error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := bootstrap(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, rt.Close())
	}()

	return fn(ctx, rt, cmd.OutOrStdout())
}

func newRandomCmd(opts *options) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Show a random quote from the selected or given category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				quote, err := rt.service.Random(ctx, category)

				var nf *domain.NotFoundError
				if errors.As(err, &nf) {
					_, err = fmt.Fprintln(out, nf.DisplayMessage())
					return err
				}

				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(out, quote.Render())

				return err
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", `category to pick from; defaults to the stored filter, "all" for every quote`)

	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, optionally in one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				listed := category
				if listed == "" {
					selected, err := rt.service.SelectedCategory(ctx)
					if err != nil {
						return err
					}

					listed = selected
				}

				for _, q := range rt.service.List(listed) {
					if _, err := fmt.Fprintln(out, q.Render()); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category to list (default: the selected filter)")

	return cmd
}

func newAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text> <category>",
		Short: "Add a quote",
		Example: `  quotekeeper add "Simplicity is prerequisite for reliability." Programming`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				quote, err := rt.service.Add(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(out, "Added:", quote.Render())

				return err
			})
		},
	}
}

func newCategoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories; the stored filter is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				selected, err := rt.service.SelectedCategory(ctx)
				if err != nil {
					return err
				}

				for _, opt := range rt.service.CategoryOptions() {
					marker := " "
					if opt.Value == selected {
						marker = "*"
					}

					if _, err := fmt.Fprintf(out, "%s %s\n", marker, opt.Label); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func newFilterCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: `Show or set the stored category filter; an empty category selects "all"`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				var (
					category string
					err      error
				)

				if len(args) == 0 {
					category, err = rt.service.SelectedCategory(ctx)
				} else {
					category, err = rt.service.SetFilter(ctx, args[0])
				}

				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(out, category)

				return err
			})
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				data, err := rt.service.Export(ctx)
				if err != nil {
					return err
				}

				if output == stdioPath {
					_, err = out.Write(data)
					return err
				}

				if err := os.WriteFile(output, data, 0o600); err != nil {
					return fmt.Errorf("writing export: %w", err)
				}

				_, err = fmt.Fprintf(out, "Exported %d quotes to %s\n", len(rt.service.List(domain.CategoryAll)), output)

				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", domain.ExportFileName, `output file, "-" for stdout`)

	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: `Import quotes from a JSON array file, "-" for stdin`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				report, err := rt.service.Import(ctx, data)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(out, "Quotes imported successfully! %d added, %d already present.\n",
					report.Added, report.Skipped)

				return err
			})
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == stdioPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	return data, nil
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch server quotes once and merge them; the server wins on conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime, out io.Writer) error {
				report, err := rt.poller.SyncNow(ctx)
				if err != nil {
					return err
				}

				if !report.Changed() {
					_, err = fmt.Fprintln(out, "Already in sync with server.")
					return err
				}

				messages := make([]string, 0, 1)
				for _, n := range rt.feed.Active() {
					messages = append(messages, n.Message)
				}

				_, err = fmt.Fprintf(out, "%s %d added, %d updated.\n",
					strings.Join(messages, " "), report.Added, report.Updated)

				return err
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "quotekeeper %s (commit %s, built %s)\n", Version, Commit, BuildTime)
			return err
		},
	}
}
