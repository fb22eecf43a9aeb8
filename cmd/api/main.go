package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/gen/docs/swagger"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/app"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
)

// @title SwapSavvy Identity API
// @version 1.0
// @description Registration, email verification, and login for SwapSavvy Pro.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Printf("application stopped: %v", err)
		os.Exit(1)
	}
}
