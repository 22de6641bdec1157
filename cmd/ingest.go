package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Stage candidate leads from an .xlsx or .csv export",
		Long: `Reads a spreadsheet export with a header row and stages every row with an id
and a website as a pending lead. Leads already in the table are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return ingestFile(cmd.Context(), appInstance, args[0], batchSize, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultInsertBatch, "rows written per transaction")
	return cmd
}

func ingestFile(ctx context.Context, appInstance App, path string, batchSize int, out io.Writer) error {
	logger := appInstance.GetLogger().With(zap.String("file", path))

	res, err := ingest.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "ingest %s", path)
	}
	for _, s := range res.Skipped {
		logger.Warn("skipped row", zap.Int("row", s.Row), zap.String("reason", s.Reason))
	}

	inserted, err := ingest.Insert(ctx, appInstance.GetLeads(), res.Candidates, batchSize)
	if err != nil {
		return eris.Wrapf(err, "ingest %s", path)
	}
	logger.Info("ingest finished",
		zap.Int("rows", len(res.Candidates)),
		zap.Int64("inserted", inserted),
		zap.Int("skipped", len(res.Skipped)),
	)
	fmt.Fprintf(out, "staged %d new leads from %d rows (%d skipped)\n", inserted, len(res.Candidates), len(res.Skipped))
	return nil
}
