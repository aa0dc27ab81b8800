package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"bookshelf/internal/app"
)

// withApp opens the application, runs fn and closes it again
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := opts.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := opts.Open(ctx)
			if err != nil {
				return err
			}
			// Run closes the storage on shutdown
			return a.Run()
		},
	}
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the reading agenda as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				data, err := a.Agenda().ExportAgendaData()
				if err != nil {
					return err
				}
				if output == "" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), data)
					return err
				}
				if err := os.WriteFile(output, []byte(data), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Agenda exported to %s\n", output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the export to a file instead of stdout")
	return cmd
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported agenda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				if !a.Agenda().ImportAgendaData(ctx, string(data)) {
					return errors.New("import rejected: not an agenda export")
				}
				summary := a.Agenda().GetAgendaSummary()
				fmt.Fprintf(cmd.OutOrStdout(), "Imported agenda: %d to read, %d reading, %d finished\n",
					summary.ToRead, summary.Reading, summary.Finished)
				return nil
			})
		},
	}
}

func newUsageCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show how many bytes each stored key uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				usage := a.Store().UsageReport(ctx)
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), usage)
				}

				keys := make([]string, 0, len(usage.PerKeyBytes))
				for key := range usage.PerKeyBytes {
					keys = append(keys, key)
				}
				sort.Strings(keys)

				out := cmd.OutOrStdout()
				for _, key := range keys {
					fmt.Fprintf(out, "%-20s %8d\n", key, usage.PerKeyBytes[key])
				}
				fmt.Fprintf(out, "%-20s %8d\n", "total", usage.TotalBytes)
				return nil
			})
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the agenda, discussions and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear all data without --yes")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				a.ClearAll(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all data")
	return cmd
}

func newRecommendCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Print book recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				recs := a.Recommender().GenerateRecommendations(ctx)
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), recs)
				}
				for i, rec := range recs {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s by %s [%s %.2f]\n",
						i+1, rec.Title, rec.AuthorLine(), rec.Strategy, rec.RelevanceScore)
				}
				return nil
			})
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print reading statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				stats := a.Agenda().GetStats()
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Books read this year: %d\n", stats.BooksReadThisYear)
				fmt.Fprintf(out, "Pages read this year: %d\n", stats.PagesReadThisYear)
				fmt.Fprintf(out, "Total books read:     %d\n", stats.TotalBooksRead)
				fmt.Fprintf(out, "Reading streak:       %d days\n", stats.ReadingStreak)
				fmt.Fprintf(out, "Average rating:       %.1f\n", stats.AverageRating)
				fmt.Fprintf(out, "Goals completed:      %d\n", stats.GoalsCompleted)
				return nil
			})
		},
	}
}
