package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"piggyback/internal/amqp"
	"piggyback/internal/calendar"
	"piggyback/internal/config"
	"piggyback/internal/database"
	"piggyback/internal/logger"
	"piggyback/internal/reconcile"
	"piggyback/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	batchFile := flag.String("batch", "", "apply the match requests in a JSON file and exit")
	enqueueFile := flag.String("enqueue", "", "publish the match requests in a JSON file to the queue and exit")
	project := flag.String("project", "", "print the paid/unpaid projection for a partnership and exit")
	from := flag.String("from", "", "projection window start (YYYY-MM-DD)")
	to := flag.String("to", "", "projection window end (YYYY-MM-DD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	matcher := services.NewMatcherService(db, auditService)
	reconciler := reconcile.New(matcher, cfg.StoreTimeout, cfg.ReconcileConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *project != "":
		return runProjection(ctx, services.NewPeriodInstanceService(db), *project, *from, *to)
	case *batchFile != "":
		return runBatch(ctx, reconciler, *batchFile)
	}

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to use the match request queue")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	defer client.Close()

	if *enqueueFile != "" {
		return runEnqueue(ctx, client, *enqueueFile)
	}

	log.Infow("Reconciler started",
		"queue", cfg.AMQPQueue,
		"db_driver", cfg.DBDriver,
		"store_timeout", cfg.StoreTimeout,
	)

	err = client.ConsumeMatchRequests(ctx, reconciler.Handle)
	if errors.Is(err, context.Canceled) {
		log.Info("Shutdown signal received, reconciler stopped")
		return nil
	}
	return err
}

func readBatch(path string) ([]services.MatchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var inputs []services.MatchInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	return inputs, nil
}

func runEnqueue(ctx context.Context, client *amqp.Client, path string) error {
	inputs, err := readBatch(path)
	if err != nil {
		return err
	}

	for _, in := range inputs {
		msg := amqp.NewMatchRequestMessage(in.PartnershipID, in.TransactionID, in.ExpenseID, in.Actor, in.Confidence)
		if err := client.PublishMatchRequest(ctx, msg); err != nil {
			return err
		}
	}

	logger.Get().Infow("Match requests published", "count", len(inputs))
	return nil
}

func runBatch(ctx context.Context, reconciler *reconcile.Reconciler, path string) error {
	inputs, err := readBatch(path)
	if err != nil {
		return err
	}

	summary, err := reconciler.MatchBatch(ctx, inputs)
	logger.Get().Infow("Batch complete",
		"requests", len(inputs),
		"created", summary.Created,
		"existing", summary.Existing,
		"already_linked", summary.AlreadyLinked,
		"failed", summary.Failed,
	)
	return err
}

func runProjection(ctx context.Context, svc services.PeriodInstanceServicer, partnershipID, from, to string) error {
	fromDate, err := calendar.ParseDate(from)
	if err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	toDate, err := calendar.ParseDate(to)
	if err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}

	projection, err := svc.ProjectWindow(ctx, partnershipID, fromDate, toDate)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(projection)
}
