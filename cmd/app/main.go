package main

import (
	"flag"
	"log"
	"os"

	"KalshiPulse/internal/di"
	"KalshiPulse/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s contracts=%d paper=%v",
		cfg.Environment, cfg.Backend.Type, len(cfg.Strategy.ContractIDs), cfg.Strategy.PaperTrading)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
