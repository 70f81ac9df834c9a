package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/storage"
)

// newHistoryCmd creates the history subcommand.
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classifications",
		Long:  `History lists saved classifications, most recent first. Requires storage.driver to be sqlite or postgres.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History.List(ctx, limit)
			if err != nil {
				return err
			}

			ui := NewUI(outputJSON, noColor)
			if outputJSON {
				return ui.JSON(records)
			}
			if len(records) == 0 {
				ui.Info("No classifications saved yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				desc := rec.Description
				if desc == "" && rec.HasImage {
					desc = "(image)"
				}
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					string(rec.Region),
					rec.HSCode,
					fmt.Sprintf("%d%%", rec.Confidence),
					string(rec.Source),
					truncate(desc, 48),
				})
			}
			ui.Table([]string{"WHEN", "REGION", "HS CODE", "CONF", "SOURCE", "PRODUCT"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "number of records to show")
	cmd.AddCommand(newHistoryShowCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid classification id %q: %w", args[0], err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.History.GetByID(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no classification with id %s", id)
			}
			if err != nil {
				return err
			}

			ui := NewUI(outputJSON, noColor)
			if outputJSON {
				return ui.JSON(rec)
			}
			ui.Report(recordReport(rec))
			ui.KeyValue("Saved", rec.CreatedAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func openHistory(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if store == nil {
		return nil, errors.New("history is disabled: set storage.driver to sqlite or postgres")
	}
	return store, nil
}

func recordReport(rec *storage.Record) *classifier.Report {
	return &classifier.Report{
		ID:       rec.ID,
		Region:   rec.Region,
		Result:   rec.Result,
		Provider: rec.Provider,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
