package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordering-helper/backend/ocr"
	"github.com/ordering-helper/backend/pkg/app"
	"github.com/ordering-helper/backend/pkg/config"
)

func main() {
	cfg := config.Load()

	application, err := app.NewApplication(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if cfg.Vision.APIKey != "" {
		application.Container().SetVisionClient(ocr.NewRESTVisionClient(cfg.Vision))
	}

	go func() {
		if err := application.Start(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Stop(ctx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
