package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/law-leads-crawler/internal/api"
	"github.com/JakeFAU/law-leads-crawler/internal/dispatcher"
	"github.com/JakeFAU/law-leads-crawler/internal/id/uuid"
	"github.com/JakeFAU/law-leads-crawler/internal/ingest"
	"github.com/JakeFAU/law-leads-crawler/internal/queue/memory"
	"github.com/JakeFAU/law-leads-crawler/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type runOptions struct {
	once       bool
	ingestFile string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl pending leads",
		Long: `Starts the worker pool. A feeder scans pending leads into a bounded queue,
workers claim and crawl them, and a reaper returns abandoned claims to pending.
With --once the process exits after one pass over the pending leads; otherwise
it polls until interrupted. The operator HTTP server runs alongside when
server.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return runWorkers(cmd, appInstance, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.once, "once", false, "process the pending leads once and exit")
	cmd.Flags().StringVar(&opts.ingestFile, "ingest", "", "stage leads from this file before crawling")
	return cmd
}

func runWorkers(cmd *cobra.Command, appInstance App, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	if opts.ingestFile != "" {
		if err := ingestFile(ctx, appInstance, opts.ingestFile, ingest.DefaultInsertBatch, cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	f, err := appInstance.NewFetcher()
	if err != nil {
		return err
	}
	extractor, err := appInstance.NewExtractor(f)
	if err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		logger.Warn("hostname unavailable; worker ids carry no host", zap.Error(err))
	}
	ids := uuid.New(hostname)

	queue := memory.NewQueue(cfg.Worker.QueueDepth)
	workers := make([]*worker.Worker, 0, cfg.Worker.Concurrency)
	for range cfg.Worker.Concurrency {
		id, err := ids.NewID()
		if err != nil {
			return fmt.Errorf("worker id: %w", err)
		}
		workers = append(workers, worker.New(
			id,
			queue,
			appInstance.GetLeads(),
			appInstance.GetFirms(),
			appInstance.GetEmails(),
			extractor,
			worker.Config{CandidateTimeout: cfg.Worker.CandidateTimeout},
			logger,
		))
	}
	dispatch := dispatcher.New(queue, workers)
	feeder := dispatcher.NewFeeder(appInstance.GetLeads(), dispatch, dispatcher.FeederConfig{
		BatchSize:    cfg.Worker.BatchSize,
		PollInterval: cfg.Worker.PollInterval,
		Once:         opts.once,
	}, logger)
	reaper := dispatcher.NewReaper(
		appInstance.GetLeads(), cfg.Worker.StaleAfter, cfg.Worker.ReapInterval, logger,
	)

	// Abandoned claims go back to pending before the first scan sees the table.
	if _, err := reaper.ReapOnce(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(gctx)
		// Workers only return early once the queue is closed and drained.
		cancel()
		return nil
	})
	g.Go(func() error {
		defer queue.Close()
		return feeder.Run(gctx)
	})
	if !opts.once {
		g.Go(func() error { return reaper.Run(gctx) })
	}
	if cfg.Server.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewServer(appInstance.GetLeads(), appInstance.GetFirms(), appInstance.GetEmails(), cfg, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error { return serve(gctx, srv, logger) })
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	counts, err := appInstance.GetLeads().CountByStatus(context.WithoutCancel(ctx))
	if err != nil {
		logger.Warn("final status counts unavailable", zap.Error(err))
		return nil
	}
	logger.Info("run finished")
	return printCounts(cmd, counts)
}

func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}
