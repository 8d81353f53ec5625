package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/marketcore/params"
	"github.com/uhyunpark/marketcore/pkg/api"
	"github.com/uhyunpark/marketcore/pkg/app/exchange"
	"github.com/uhyunpark/marketcore/pkg/events"
	"github.com/uhyunpark/marketcore/pkg/gateway"
	"github.com/uhyunpark/marketcore/pkg/storage"
	"github.com/uhyunpark/marketcore/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

	// ---- Engine ----
	policy := exchange.SelfMatchReject
	if cfg.Engine.SelfMatch == params.SelfMatchAllow {
		policy = exchange.SelfMatchAllow
	}
	engine := exchange.NewMarketEngine(exchange.Options{
		SelfMatch: policy,
		Logger:    sugar.Named("engine"),
		Clock:     util.RealClock{},
	})
	gw := gateway.New(engine, sugar.Named("gateway"))

	// ---- Sinks ----
	bus := events.NewBus(sugar.Named("events"))

	if cfg.Sinks.JournalPath != "" {
		journal, err := storage.NewPebbleJournal(cfg.Sinks.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Sinks.JournalPath, "err", err)
		}
		defer journal.Close()
		bus.Journal(journal)
		sugar.Infow("journal_enabled", "path", cfg.Sinks.JournalPath)
	}

	if len(cfg.Sinks.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Sinks.KafkaBrokers, cfg.Sinks.KafkaTopic, sugar.Named("kafka"))
		defer publisher.Close()
		bus.Publish(publisher)
		sugar.Infow("kafka_enabled", "brokers", cfg.Sinks.KafkaBrokers, "topic", cfg.Sinks.KafkaTopic)
	}

	var reqLog storage.RequestLog = storage.NewNopWAL()
	if cfg.Sinks.RequestLog != "" {
		wal, err := storage.NewFileWAL(cfg.Sinks.RequestLog)
		if err != nil {
			sugar.Fatalw("request_log_open_failed", "path", cfg.Sinks.RequestLog, "err", err)
		}
		defer wal.Close()
		reqLog = wal
		sugar.Infow("request_log_enabled", "path", cfg.Sinks.RequestLog)
	}

	// ---- API Server ----
	apiServer := api.NewServer(gw, api.Options{
		Logger:      sugar.Named("api"),
		RequestLog:  reqLog,
		CORSOrigins: cfg.API.CORSOrigins,
	})

	// Hook API server to the engine: stream trades and depth to websocket clients
	bus.OnTrades(apiServer.BroadcastTrades)
	bus.OnBookChange(apiServer.BroadcastBook)
	bus.Attach(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("node_starting",
		"self_match", cfg.Engine.SelfMatch,
		"api_addr", cfg.API.Addr)

	if err := apiServer.Run(ctx, cfg.API.Addr); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Infow("node_stopped", "items", len(engine.Items()))
}
