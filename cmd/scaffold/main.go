package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/skafu/skafu/internal/services/scaffold/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	service, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize service: %v", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.Printf("close service: %v", err)
		}
	}()

	if err := service.Run(ctx); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
