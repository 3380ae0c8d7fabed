package main

import (
	"context"
	"flag"
	"log"
	"os"

	"SepsisWatch/internal/di"
	"SepsisWatch/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	inputPath := flag.String("input", "", "batch mode: observation events file (json or jsonl)")
	outputPath := flag.String("output", "", "batch mode: summary output file")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Batch mode: assess a file of events and exit, no broker or warehouse.
	if *inputPath != "" {
		runner, err := di.InitializeBatchRunner(cfg)
		if err != nil {
			log.Fatalf("batch init failed: %v", err)
		}
		summary, err := runner.RunFile(context.Background(), *inputPath, *outputPath)
		if err != nil {
			log.Fatalf("batch run failed: %v", err)
		}
		log.Printf("batch done: assessed=%d rejected=%d", len(summary.Results), len(summary.Rejected))
		return
	}

	log.Printf("env=%s backend=%s", cfg.Environment, cfg.Backend.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	log.Printf("kafka: connected brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.ObservationsTopic)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
