package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/domain"
)

const defaultBatchConcurrency = 4

// batchRow is one CSV line: description, region and an optional image path.
type batchRow struct {
	Line        int
	Description string
	Region      string
	ImagePath   string
}

// batchLine is one JSON line of batch output.
type batchLine struct {
	Line        int                          `json:"line"`
	Description string                       `json:"description"`
	Region      string                       `json:"region"`
	ID          string                       `json:"id,omitempty"`
	Result      *domain.ClassificationResult `json:"result,omitempty"`
	Error       string                       `json:"error,omitempty"`
}

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	var (
		output      string
		concurrency int
		retries     uint64
	)

	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Classify every product in a CSV file",
		Long: `Batch reads rows of "description,region[,image path]" and classifies them
concurrently. A header row starting with "description" is skipped. Image paths
are resolved relative to the CSV file. One JSON line per row is written to
--output (default stdout); failed rows carry an "error" field instead of a
result and do not stop the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			rows, err := readBatch(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return errors.New("batch file has no rows")
			}

			out := io.Writer(os.Stdout)
			if output != "" {
				of, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer of.Close()
				out = of
			}

			a, err := newApp(ctx, cfg, logger, "batch")
			if err != nil {
				return err
			}
			defer a.Close()

			ui := NewUI(outputJSON, noColor)
			bar := ui.NewProgressBar(int64(len(rows)), "Classifying")
			baseDir := filepath.Dir(args[0])

			lines := runBatch(ctx, rows, concurrency, func(ctx context.Context, row batchRow) (*classifier.Report, classifyInput, error) {
				imagePath := row.ImagePath
				if imagePath != "" && !filepath.IsAbs(imagePath) {
					imagePath = filepath.Join(baseDir, imagePath)
				}
				input, err := buildInput(row.Description, row.Region, imagePath)
				if err != nil {
					return nil, input, err
				}
				req, err := domain.NewClassificationRequest(input.Description, input.Region, input.Image, nil)
				if err != nil {
					return nil, input, err
				}
				rep, err := classifier.IdentifyWithRetry(ctx, a.service, req, retries, classifier.DefaultRetryBase)
				if err == nil {
					a.saveHistory(ctx, input, rep)
				}
				return rep, input, err
			}, func() { _ = bar.Add(1) })
			_ = bar.Finish()

			failed, err := writeBatch(out, lines)
			if err != nil {
				return err
			}
			if output != "" {
				ui.Success("Classified %d of %d rows into %s", len(lines)-failed, len(lines), output)
			}
			if failed > 0 {
				ui.Warning("%d row(s) failed", failed)
			}
			return ctx.Err()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON lines to this file instead of stdout")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaultBatchConcurrency, "rows classified in parallel")
	cmd.Flags().Uint64Var(&retries, "retries", 0, "retry failed rows with exponential backoff")

	return cmd
}

// readBatch parses CSV rows, skipping blank lines and an optional header.
func readBatch(r io.Reader) ([]batchRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []batchRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch file: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		if len(rows) == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "description") {
			continue
		}

		row := batchRow{Line: line, Description: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			row.Region = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			row.ImagePath = strings.TrimSpace(record[2])
		}
		if row.Region == "" {
			row.Region = string(domain.RegionGlobal)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type classifyRowFunc func(ctx context.Context, row batchRow) (*classifier.Report, classifyInput, error)

// runBatch classifies rows with at most concurrency in flight. Output keeps
// input order. done is called once per finished row.
func runBatch(ctx context.Context, rows []batchRow, concurrency int, classify classifyRowFunc, done func()) []batchLine {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	lines := make([]batchLine, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, row := range rows {
		g.Go(func() error {
			defer done()
			line := batchLine{Line: row.Line, Description: row.Description, Region: row.Region}
			if err := gctx.Err(); err != nil {
				line.Error = err.Error()
				lines[i] = line
				return nil
			}
			rep, input, err := classify(gctx, row)
			if input.Region != "" {
				line.Region = string(input.Region)
			}
			if err != nil {
				line.Error = describeError(err)
			} else {
				line.ID = rep.ID.String()
				line.Result = rep.Result
			}
			lines[i] = line
			return nil
		})
	}
	_ = g.Wait()
	return lines
}

// writeBatch writes one JSON object per line and returns the failure count.
func writeBatch(w io.Writer, lines []batchLine) (int, error) {
	enc := json.NewEncoder(w)
	failed := 0
	for _, line := range lines {
		if line.Error != "" {
			failed++
		}
		if err := enc.Encode(line); err != nil {
			return failed, fmt.Errorf("write batch output: %w", err)
		}
	}
	return failed, nil
}
