package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/consumer/worker"
	infraPkg "github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/repository"
	"github.com/auroramedia/gramflow/scheduler"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(cfg, infra, repo)

	// External trigger path: a message on the trigger queue forces a tick
	// between intervals.
	triggerConsumer := worker.NewTriggerConsumer(infra.RabbitMQ.Channel, infra, sched)
	if err := triggerConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start trigger consumer")
		log.Fatalf("Failed to start trigger consumer: %v", err)
	}

	// Periodic path: the fixed-interval loop.
	go sched.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down scheduler daemon...")
	cancel()

	infra.Logger.Shutdown(context.Background())
	infra.RabbitMQ.Close()
}
