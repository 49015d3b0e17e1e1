/**
 * @description
 * One-shot import runner. Connects to the database and the OVH API,
 * executes a single import pass (full, differential or explicit period)
 * and exits non-zero on failure. Intended for cron-less environments and
 * for the initial backfill.
 *
 * Usage:
 *   import -full
 *   import -from 2025-01-01 -to 2025-01-31
 *   import                      (differential, the default)
 *
 * @dependencies
 * - flag, log: Standard Go libraries.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/app, internal/config, internal/store, pkg/ovhclient, pkg/rabbitmq.
 */

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/cloudlens/billing-service/internal/app"
	"github.com/cloudlens/billing-service/internal/config"
	"github.com/cloudlens/billing-service/internal/domain"
	"github.com/cloudlens/billing-service/internal/store"
	"github.com/cloudlens/billing-service/pkg/ovhclient"
	rmrabbit "github.com/cloudlens/billing-service/pkg/rabbitmq"
)

func main() {
	full := flag.Bool("full", false, "clear stored data and re-import everything")
	diff := flag.Bool("diff", false, "differential import since the latest stored bill (the default)")
	from := flag.String("from", "", "period start (YYYY-MM-DD)")
	to := flag.String("to", "", "period end (YYYY-MM-DD)")
	consumption := flag.Bool("consumption", false, "also refresh the cloud consumption snapshot")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=import msg=\"no .env file found; using environment\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=import msg=\"config load failed\" err=%v", err)
	}

	opts := app.ImportOptions{Type: domain.ImportTypeDifferential, IncludeConsumption: *consumption}
	switch {
	case *full && *diff:
		log.Fatal("level=fatal component=import msg=\"-full and -diff are mutually exclusive\"")
	case *full:
		opts.Type = domain.ImportTypeFull
	case *diff:
	case *from != "" || *to != "":
		opts.Type = domain.ImportTypePeriod
		opts.From = *from
		opts.To = *to
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=import msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=import msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()

	repository := store.NewPostgresRepository(dbpool)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := repository.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("level=fatal component=import msg=\"schema bootstrap failed\" err=%v", err)
	}

	var producer rmrabbit.Publisher = &rmrabbit.EventProducerFallback{}
	if rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL); err == nil {
		defer rabbitProducer.Close()
		producer = rabbitProducer
	}

	source := ovhclient.NewClient(cfg.OVHEndpoint, cfg.OVHAppKey, cfg.OVHAppSecret, cfg.OVHConsumerKey)
	service := app.NewService(repository, source, producer, cfg.ImportEventExchange, cfg.ImportBatchSize)

	run, err := service.RunImport(context.Background(), opts)
	if err != nil {
		log.Fatalf("level=fatal component=import msg=\"import failed\" err=%v", err)
	}
	log.Printf("level=info component=import msg=\"import finished\" run_id=%s type=%s bills=%d details=%d projects=%d failures=%d",
		run.ID, run.Type, run.BillsImported, run.DetailsImported, run.ProjectsImported, run.Failures)
}
