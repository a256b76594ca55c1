package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/report"
	"github.com/kursadbilgin/hme-generator/internal/service"
	"github.com/kursadbilgin/hme-generator/internal/sink"
	"github.com/kursadbilgin/hme-generator/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

var (
	generateCount int
	listActive    bool
	listInactive  bool
	listSearch    string
)

func init() {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and reserve addresses",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	generateCmd.Flags().IntVarP(&generateCount, "count", "c", 0, "number of addresses to generate (prompted when omitted)")
	rootCmd.AddCommand(generateCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List existing addresses",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().BoolVar(&listActive, "active", true, "show active addresses")
	listCmd.Flags().BoolVar(&listInactive, "inactive", false, "show inactive addresses instead")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "regular expression matched against labels")
	listCmd.MarkFlagsMutuallyExclusive("active", "inactive")
	rootCmd.AddCommand(listCmd)

	historyCmd := &cobra.Command{
		Use:   "history RUN_ID",
		Short: "Show the batches recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	rootCmd.AddCommand(historyCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}
	defer a.close()

	count := generateCount
	if !cmd.Flags().Changed("count") {
		count, err = promptCount(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}
	req := domain.GenerationRequest{Count: count}
	if err := req.Validate(); err != nil {
		return err
	}

	// Installed after the prompt so that Ctrl+C still aborts it.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := a.addressService()
	if err != nil {
		return err
	}

	reporter := report.Multi{report.NewConsole(cmd.OutOrStdout()), report.NewLog(a.logger)}
	metrics := observability.NewMetrics()

	fileLog, err := sink.NewFileLog(a.cfg.EmailsFile)
	if err != nil {
		return err
	}
	out, err := sink.NewFanout(fileLog, a.logger)
	if err != nil {
		return err
	}

	workflowOpts := []service.WorkflowOption{service.WithWorkflowMetrics(metrics)}
	deps := transport.ServerDeps{Metrics: metrics}

	if limiter, rdb, err := a.windowLimiter(ctx); err != nil {
		return err
	} else if limiter != nil {
		workflowOpts = append(workflowOpts, service.WithWindowLimiter(limiter, a.cfg.Account))
		deps.Redis = rdb
	}
	if history, sqlDB, err := a.historySink(ctx); err != nil {
		return err
	} else if history != nil {
		out.Add("history", history)
		deps.SQLDB = sqlDB
	}
	if events, err := a.eventSink(ctx); err != nil {
		return err
	} else if events != nil {
		out.Add("events", events)
	}

	if addr := a.cfg.MetricsAddr; addr != "" {
		srv, err := transport.NewMetricsServer(deps, a.logger)
		if err != nil {
			return err
		}
		srv.Start(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	workflow, err := service.NewAddressWorkflow(svc, reporter, a.logger, workflowOpts...)
	if err != nil {
		return err
	}
	generator, err := service.NewGenerator(
		workflow.Run,
		out,
		service.NewCooldown(a.cfg.CooldownRefresh(), reporter),
		reporter,
		service.GeneratorConfig{
			BatchSize:          a.cfg.RateLimitBatchSize,
			MaxConcurrentTasks: a.cfg.MaxConcurrentTasks,
			Cooldown:           a.cfg.RateLimitWait(),
			SavedTo:            fileLog.Path(),
		},
		a.logger,
	)
	if err != nil {
		return err
	}
	generator.SetMetrics(metrics)

	if _, err := generator.Run(ctx, req); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.addressService()
	if err != nil {
		return err
	}
	lister, err := service.NewLister(svc, a.logger)
	if err != nil {
		return err
	}

	addresses, err := lister.List(cmd.Context(), domain.AddressFilter{
		Active: listActive && !listInactive,
		Search: listSearch,
	})
	if err != nil {
		return err
	}
	return report.RenderAddresses(cmd.OutOrStdout(), addresses)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApplication()
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := uuid.Parse(args[0]); err != nil {
		return fmt.Errorf("%w: run id %q is not a uuid", domain.ErrValidation, args[0])
	}

	repo, _, err := a.historyRepo(cmd.Context())
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("%w: DATABASE_DSN is not set", domain.ErrValidation)
	}

	batches, err := repo.ListBatches(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}
	if len(batches) == 0 {
		return fmt.Errorf("%w: no batches recorded for run %s", domain.ErrNotFound, args[0])
	}
	return report.RenderBatches(cmd.OutOrStdout(), batches)
}
